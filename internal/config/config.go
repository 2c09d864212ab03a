// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
	CORSOrigins  []string
}

// DatabaseConfig holds connection and pool settings.
type DatabaseConfig struct {
	Driver          string // postgres, mysql, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	RawDSN          string // DATABASE_DSN overrides the discrete fields
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
	Migrations      bool
}

// EngineConfig tunes the numbering and consistency engine.
type EngineConfig struct {
	MaxAttempts     int
	NumberWidth     int
	LockStrategy    string // auto, advisory, row, none
	LockTimeout     time.Duration
	TxTimeout       time.Duration
	DefaultTimezone string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// DSN returns the driver specific connection string.
func (d DatabaseConfig) DSN() string {
	if d.RawDSN != "" {
		return d.RawDSN
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.DBName,
		)
	case "sqlite":
		return d.DBName
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
		)
	}
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	driver := strings.ToLower(getEnv("DB_DRIVER", "postgres"))
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:          driver,
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", defaultPort(driver)),
			User:            getEnv("DB_USER", "documents"),
			Password:        getEnv("DB_PASSWORD", "documents123"),
			DBName:          getEnv("DB_NAME", "documents"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			RawDSN:          strings.Trim(strings.TrimSpace(os.Getenv("DATABASE_DSN")), "\"'"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			Debug:           getEnvBool("DB_DEBUG", false),
			Migrations:      getEnvBool("MIGRATIONS", false),
		},
		Engine: EngineConfig{
			MaxAttempts:     getEnvInt("SEQUENCE_MAX_ATTEMPTS", 50),
			NumberWidth:     getEnvInt("SEQUENCE_WIDTH", 4),
			LockStrategy:    strings.ToLower(getEnv("LOCK_STRATEGY", "auto")),
			LockTimeout:     getEnvDuration("LOCK_TIMEOUT", 5*time.Second),
			TxTimeout:       getEnvDuration("TX_TIMEOUT", 30*time.Second),
			DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "UTC"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", c.Database.Driver))
	}
	switch c.Engine.LockStrategy {
	case "auto", "advisory", "row", "none":
	default:
		errs = append(errs, fmt.Errorf("LOCK_STRATEGY: unsupported strategy %q", c.Engine.LockStrategy))
	}
	if c.Engine.LockStrategy == "advisory" && c.Database.Driver != "postgres" {
		errs = append(errs, errors.New("LOCK_STRATEGY: advisory locks require postgres"))
	}
	if c.Engine.MaxAttempts <= 0 {
		errs = append(errs, errors.New("SEQUENCE_MAX_ATTEMPTS: must be positive"))
	}
	if c.Engine.NumberWidth <= 0 {
		errs = append(errs, errors.New("SEQUENCE_WIDTH: must be positive"))
	}
	if c.Engine.TxTimeout <= 0 {
		errs = append(errs, errors.New("TX_TIMEOUT: must be positive"))
	}
	if _, err := time.LoadLocation(c.Engine.DefaultTimezone); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

func defaultPort(driver string) int {
	if driver == "mysql" {
		return 3306
	}
	return 5432
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration accepts Go durations ("5s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if i, err := strconv.Atoi(value); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
