package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/pai-academy/internal/api"
	"github.com/p-n-ai/pai-academy/internal/attempt"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/certificate"
	"github.com/p-n-ai/pai-academy/internal/platform/cache"
	"github.com/p-n-ai/pai-academy/internal/platform/config"
	"github.com/p-n-ai/pai-academy/internal/platform/database"
	"github.com/p-n-ai/pai-academy/internal/progress"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// app holds the wired service and the resources it must release.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires config into stores, catalog, certificate issuance, the
// attempt recorder and the HTTP API. Without a database URL every store is
// kept in memory.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]func(ctx context.Context) error{}

	var (
		store      progress.Store    = progress.NewMemoryStore()
		certStore  certificate.Store = certificate.NewMemoryStore()
		eventSinks progress.MultiEventLogger
	)

	if cfg.UsesDatabase() {
		db, err := database.Open(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
			Migrate:  cfg.Database.Migrate,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db.HealthCheck

		pgStore, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			a.Close()
			return nil, err
		}
		pgCerts, err := certificate.NewPostgresStore(db.Pool)
		if err != nil {
			a.Close()
			return nil, err
		}
		store, certStore = pgStore, pgCerts
		eventSinks = append(eventSinks, progress.NewPostgresEventLogger(db.Pool))
		slog.Info("using postgres stores")
	} else {
		slog.Warn("LEARN_DATABASE_URL not set, progress is kept in memory")
	}

	cat, err := catalog.LoadDir(cfg.Catalog.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	var reader catalog.Reader = cat
	if c := cache.Optional(ctx, cfg.Cache.URL); c != nil {
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c.HealthCheck
		cached := catalog.NewCachedReader(cat, c.Client, cfg.Cache.CatalogTTL)
		if err := cached.Invalidate(ctx); err != nil {
			slog.Warn("failed to clear stale catalog cache", "error", err)
		}
		reader = cached
	}

	hub := api.NewEventHub()
	eventSinks = append(eventSinks, hub)

	directory, err := certificate.LoadStaticDirectory(cfg.Certificate.DirectoryPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load recipient directory: %w", err)
	}

	certs := certificate.NewService(
		newGenerator(cfg.Certificate),
		certStore,
		newNotifier(cfg.Email),
		directory,
		cfg.Certificate.Kinds...,
	)

	recorder := attempt.NewRecorder(attempt.RecorderConfig{
		Catalog: reader,
		Store:   store,
		Issuer:  certs,
		Events:  eventSinks,
	})

	srv := api.NewServer(api.Config{
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, api.Deps{
		Catalog:       reader,
		Store:         store,
		Recorder:      recorder,
		Certificates:  certs,
		Authenticator: api.NewAuthenticator(cfg.Auth.JWTSecret),
		Hub:           hub,
		Checks:        checks,
	})
	a.handler = srv.Router()
	return a, nil
}

func newGenerator(cfg config.CertificateConfig) certificate.Generator {
	if cfg.NumberingURL != "" {
		slog.Info("using external certificate numbering", "url", cfg.NumberingURL)
		return certificate.NewHTTPGenerator(cfg.NumberingURL, cfg.NumberingTimeout)
	}
	return certificate.NewLocalGenerator(cfg.NumberPrefix, cfg.SigningSecret)
}

func newNotifier(cfg config.EmailConfig) certificate.Notifier {
	if cfg.SendGridAPIKey == "" {
		return certificate.NopNotifier{}
	}
	return certificate.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.FromAddress, cfg.FromName, cfg.VerifyURL)
}
