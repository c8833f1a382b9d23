// Package app contains the application setup for the sales desk.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/salesdesk/internal/config"
	"github.com/abgdnv/salesdesk/internal/service"
	"github.com/abgdnv/salesdesk/internal/store"
	"github.com/abgdnv/salesdesk/internal/transport/rest"
	"github.com/abgdnv/salesdesk/pkg/bootstrap"
	"github.com/abgdnv/salesdesk/pkg/messaging"
	natspkg "github.com/abgdnv/salesdesk/pkg/nats"
	"github.com/abgdnv/salesdesk/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Dependencies struct {
	DeskService service.DeskService
	Logger      *slog.Logger

	dbPool *pgxpool.Pool
	closer func()
}

// SetupDependencies builds the snapshot store and optional publisher from the
// configuration, wires the engine and seeds it from the last saved snapshot.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger, closer: func() {}}

	snapshots, err := setupSnapshotStore(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	publisher, err := setupPublisher(cfg, deps, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deskService := service.NewService(snapshots, publisher, logger)
	if err := deskService.Load(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to seed engine state: %w", err)
	}
	deps.DeskService = deskService
	return deps, nil
}

// Close releases the database pool and messaging connection, if any.
func (d *Dependencies) Close() {
	d.closer()
	if d.dbPool != nil {
		d.dbPool.Close()
	}
}

func setupSnapshotStore(ctx context.Context, cfg *config.Config, deps *Dependencies) (store.SnapshotStore, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		deps.dbPool = dbPool
		pgStore, err := store.NewPgStore(ctx, dbPool)
		if err != nil {
			return nil, fmt.Errorf("failed to set up postgres snapshot store: %w", err)
		}
		return pgStore, nil
	default:
		return store.NewFileStore(cfg.Store.File.Path), nil
	}
}

func setupPublisher(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (messaging.Publisher, error) {
	if !cfg.NATS.Enabled {
		return nil, nil
	}
	nc, err := natspkg.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
	if err != nil {
		return nil, err
	}
	js, err := natspkg.NewJetStreamContext(nc)
	if err != nil {
		return nil, err
	}
	deps.closer = nc.Close
	logger.Info("NATS publisher configured", slog.String("url", cfg.NATS.Url))
	return natspkg.NewNatsPublisher(js), nil
}

// SetupHttpHandler initializes the HTTP routes for the sales desk application.
// Used by tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the sales desk application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	deskHandler := rest.NewHandler(deps.DeskService, deps.Logger)
	deskHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the sales desk application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
