package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/diewo77/go-documents/auth"
	"github.com/diewo77/go-documents/internal/config"
	"github.com/diewo77/go-documents/internal/db"
	"github.com/diewo77/go-documents/internal/logger"
	"github.com/diewo77/go-documents/internal/models"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config
	root := &cobra.Command{
		Use:           "documents",
		Short:         "Transactional document numbering, stock and ledger engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			lc := logger.DefaultConfig()
			lc.Level, lc.Format, lc.Output = cfg.Log.Level, cfg.Log.Format, cfg.Log.Output
			return logger.Setup(lc)
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Run database migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cfg, func(conn *gorm.DB) error {
					if err := db.Migrate(conn, cfg.Database.Migrations); err != nil {
						return err
					}
					log.Info().Msg("migrations completed")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert the demo tenant, items and accounts",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cfg, func(conn *gorm.DB) error {
					if err := db.Seed(conn); err != nil {
						return err
					}
					log.Info().Str("tenant", db.DemoTenantCode).Msg("seed completed")
					return nil
				})
			},
		},
	)
	return root
}

func withDB(cfg *config.Config, fn func(*gorm.DB) error) error {
	conn, err := db.Open(cfg.Database, logger.WithComponent("db"))
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	if sqlDB, err := conn.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := fn(conn); err != nil {
		log.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	return withDB(cfg, func(conn *gorm.DB) error {
		if err := db.Migrate(conn, cfg.Database.Migrations); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		// Tokens of deleted tenants are rejected
		auth.SetTenantVerifier(func(ctx context.Context, tenantID uint) bool {
			var count int64
			conn.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", tenantID).Count(&count)
			return count > 0
		})

		app, err := NewApp(conn, cfg)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      app,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return fmt.Errorf("server: %w", err)
		case <-quit:
			log.Info().Msg("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
			return err
		}
		log.Info().Msg("server stopped gracefully")
		return nil
	})
}
