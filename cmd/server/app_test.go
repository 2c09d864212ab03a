package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-documents/auth"
	"github.com/diewo77/go-documents/internal/config"
	"github.com/diewo77/go-documents/internal/db"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:"+t.Name()+"?mode=memory&cache=shared")
	cfg := config.Load()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestAppRoutes(t *testing.T) {
	cfg := newTestConfig(t)
	conn, err := db.Open(cfg.Database, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn, false))

	app, err := NewApp(conn, cfg)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+auth.CreateToken(1))
	w = httptest.NewRecorder()
	app.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewAppRejectsBadEngineConfig(t *testing.T) {
	cfg := newTestConfig(t)
	conn, err := db.Open(cfg.Database, zerolog.Nop())
	require.NoError(t, err)

	cfg.Engine.LockStrategy = "advisory"
	_, err = NewApp(conn, cfg)
	assert.Error(t, err, "advisory locks need postgres")

	cfg.Engine.LockStrategy = "auto"
	cfg.Engine.DefaultTimezone = "Mars/Olympus"
	_, err = NewApp(conn, cfg)
	assert.Error(t, err)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "seed"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
