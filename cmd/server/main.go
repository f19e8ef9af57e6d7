package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/metalrate/internal/config"
	"github.com/Simplici0/metalrate/internal/db"
	"github.com/Simplici0/metalrate/internal/history"
	"github.com/Simplici0/metalrate/internal/kvstore"
	"github.com/Simplici0/metalrate/internal/migrations"
	"github.com/Simplici0/metalrate/internal/pricing"
	"github.com/Simplici0/metalrate/internal/ratestore"
	"github.com/Simplici0/metalrate/internal/screen"
	"github.com/Simplici0/metalrate/internal/seed"
	"github.com/Simplici0/metalrate/internal/shopify"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	auth    *authService
	logger  *zap.Logger
	screens *screen.Registry
	updater screen.PriceUpdater
	history *history.Log
}

type serverDeps struct {
	auth    *authService
	logger  *zap.Logger
	loader  screen.CatalogLoader
	updater screen.PriceUpdater
	history *history.Log
	store   *ratestore.Store
	builder pricing.Builder
}

func newServer(deps serverDeps) *server {
	logger := deps.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{
		auth:    deps.auth,
		logger:  logger,
		updater: deps.updater,
		history: deps.history,
		screens: screen.NewRegistry(func() *screen.Screen {
			return screen.New(screen.Deps{
				Loader:   deps.loader,
				Updater:  deps.updater,
				Recorder: deps.history,
				Store:    deps.store,
				Builder:  deps.builder,
				Logger:   logger.Named("screen"),
			})
		}),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, w := range cfg.Warnings() {
		logger.Warn("configuration incomplete", zap.String("detail", w))
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}

	stats, err := seed.Run(ctx, database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	logger.Info("database ready", zap.String("path", cfg.DBPath), zap.Int("seed_inserts", stats.Inserts))

	client := shopify.NewClient(cfg.Shopify, logger.Named("shopify"))
	srv := newServer(serverDeps{
		auth:    newAuthService(database, cfg.SessionSecret),
		logger:  logger,
		loader:  client,
		updater: client,
		history: history.NewLog(database),
		store:   ratestore.Load(ctx, kvstore.NewSQLite(database), logger.Named("ratestore")),
		builder: pricing.NewBuilder(cfg.Pricing.Epsilon, cfg.Pricing.ClampNegative),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("environment", cfg.Environment))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.IsDev() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	zcfg.Level = level
	return zcfg.Build()
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/logout", s.handleLogout)

		r.Route("/api", func(r chi.Router) {
			r.Get("/screen", s.handleScreen)
			r.Route("/selection", func(r chi.Router) {
				r.Post("/toggle/{id}", s.handleToggle)
				r.Post("/select-all", s.handleSelectAll)
				r.Post("/deselect-all", s.handleDeselectAll)
				r.Post("/confirm", s.handleConfirm)
				r.Post("/reselect", s.handleReselect)
			})
			r.Put("/pricing/{id}", s.handleSavePricing)
			r.Post("/submit", s.handleSubmit)
			r.Post("/prices/bulk-update", s.handleBulkUpdate)
			r.Get("/submissions", s.handleSubmissions)
			r.Get("/submissions/{id}", s.handleSubmissionPayload)
		})
	})
	return r
}

type sessionKey struct{}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.auth.sessionEmail(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, email)))
	})
}

func sessionFrom(ctx context.Context) string {
	email, _ := ctx.Value(sessionKey{}).(string)
	return email
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request completed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
