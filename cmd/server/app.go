package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/diewo77/go-documents/auth"
	"github.com/diewo77/go-documents/httpx"
	"github.com/diewo77/go-documents/internal/config"
	"github.com/diewo77/go-documents/internal/handlers"
	"github.com/diewo77/go-documents/internal/logger"
	"github.com/diewo77/go-documents/internal/scopelock"
	"github.com/diewo77/go-documents/internal/services"
)

// NewApp builds the document engine from cfg and mounts it on a chi router.
func NewApp(db *gorm.DB, cfg *config.Config) (http.Handler, error) {
	svc, err := newDocumentService(db, cfg.Engine)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auth.Middleware)
	r.Use(handlers.RequestLogger(logger.WithComponent("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.IdempotencyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthz(db))

	docs := handlers.NewDocumentHandler(svc)
	catalog := handlers.NewCatalogHandler(db)
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireTenant)
		docs.Routes(r)
		catalog.Routes(r)
	})
	return r, nil
}

func newDocumentService(db *gorm.DB, cfg config.EngineConfig) (*services.DocumentService, error) {
	locker, err := scopelock.New(cfg.LockStrategy, db.Dialector.Name(), cfg.LockTimeout)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("default timezone: %w", err)
	}
	return services.NewDocumentService(db,
		services.WithLocker(locker),
		services.WithMaxAttempts(cfg.MaxAttempts),
		services.WithNumberWidth(cfg.NumberWidth),
		services.WithTxTimeout(cfg.TxTimeout),
		services.WithLocation(loc),
	), nil
}

func healthz(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
