// Package server wires the sync server: storage, use cases, the gRPC sync
// endpoint and the admin HTTP endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophsync/internal/logging"
	"github.com/dmitrijs2005/gophsync/internal/server/backups"
	"github.com/dmitrijs2005/gophsync/internal/server/config"
	"github.com/dmitrijs2005/gophsync/internal/server/events"
	"github.com/dmitrijs2005/gophsync/internal/server/httpadmin"
	"github.com/dmitrijs2005/gophsync/internal/server/metrics"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophsync/internal/server/services"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophsync/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	rm       repomanager.RepositoryManager
	registry *prometheus.Registry
	grpc     *gs.GRPCServer
	admin    *httpadmin.Server
	closers  []io.Closer
}

// seams for tests
var (
	openDB         = repomanager.Open
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

// NewLogger builds the logger selected by c.
func NewLogger(c *config.Config) (logging.Logger, error) {
	return logging.New(c.LogBackend, c.LogLevel, os.Stdout)
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{
		config:   c,
		logger:   logger,
		db:       db,
		rm:       newRepoManager(),
		registry: prometheus.NewRegistry(),
		closers:  []io.Closer{db},
	}

	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(app.registry)

	var publisher events.Publisher = events.NopPublisher{}
	if c.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: c.RedisAddr})
		app.closers = append(app.closers, client)
		publisher = events.NewAsynqPublisher(client)
	} else {
		logger.Warn(ctx, "redis address not set, domain events are disabled")
	}

	svc := gs.Services{
		Items: services.NewItemService(db, app.rm, publisher, m, logger, services.SaveOptions{
			Concurrency:         c.ValidationConcurrency,
			MaxItemContentBytes: c.MaxItemContentBytes,
			SyncConflictLeeway:  c.SyncConflictLeeway,
		}),
		Integrity: services.NewIntegrityService(db, app.rm, m, logger),
		Transfer:  services.NewTransferService(db, app.rm, m, logger, c.TransferLimitBytes),
	}
	if c.S3Bucket != "" {
		store := backups.NewS3Store(backups.Settings{
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Bucket:   c.S3Bucket,
			Region:   c.S3Region,
			Endpoint: c.S3BaseEndpoint,
		})
		svc.Backups = services.NewBackupService(db, app.rm, store, m, logger)
	}

	app.grpc = gs.NewGRPCServer(c.GRPCAddr, logger, svc, c.SecretKey)
	app.admin = httpadmin.NewServer(c.HTTPAddr, httpadmin.NewRouter(logger, db, app.registry), logger)

	return app, nil
}

// Migrate applies pending schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	app.logger.Info(ctx, "Migrations applied")
	return nil
}

// Run serves until ctx is done or one of the servers fails, then stops both.
func (app *App) Run(ctx context.Context) error {

	app.logger.Info(ctx, "Starting app...")
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.grpc.Run(gctx)
	})
	g.Go(func() error {
		return app.admin.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
		return err
	}

	app.logger.Info(ctx, "App stopped")
	return nil
}

// Close releases the database pool and the broker client.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}
