package cmd

import (
	"context"
	"fmt"
	"time"

	"megamillions/config"
	"megamillions/database"
	"megamillions/events"
	"megamillions/fetcher"
	"megamillions/observability"
	"megamillions/repository"
	"megamillions/server"
	"megamillions/service"

	log "github.com/sirupsen/logrus"
)

// app owns every long lived resource; one config and one connection pool
// are shared by ingestion and the API
type app struct {
	cfg       *config.Config
	db        *database.DB
	bus       *events.Bus
	nats      *events.NATSPublisher
	telemetry *observability.Provider
	metrics   *observability.Metrics

	ingestion *service.IngestionService
	results   *service.ResultsService
}

// newApp runs migrations and wires the application together
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	log.Info("Running database migrations...")
	if err := database.MigrateUp(cfg.GetDatabaseURL()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	log.Info("Database connection established successfully")

	log.Info("Initializing metrics...")
	a.telemetry, err = observability.NewProvider(ctx, cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.metrics, err = observability.NewMetrics(a.telemetry.Meter())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create metric instruments: %w", err)
	}

	log.Info("Initializing event bus...")
	a.bus = events.NewBus()
	a.bus.Subscribe(events.EventTypeSnapshotReplaced, func(ctx context.Context, event events.Event) {
		log.WithField("event", event).Info("Snapshot replaced")
	})
	if cfg.NATSServers != "" {
		a.nats, err = events.NewNATSPublisher(cfg.NATSServers)
		if err != nil {
			a.close()
			return nil, err
		}
		a.bus.Subscribe(events.EventTypeSnapshotReplaced, a.nats.Handler())
	} else {
		log.Info("NATS_SERVERS not set, snapshot notifications stay in process")
	}

	snapshots := repository.NewSnapshotRepository(db)
	runs := repository.NewSnapshotRunRepository(db)

	f := fetcher.New(fetcher.Config{
		Timeout:   cfg.FetchTimeout,
		Retries:   cfg.FetchRetries,
		UserAgent: cfg.FetchUserAgent,
	})

	a.ingestion = service.NewIngestionService(cfg, f, snapshots, runs, a.bus, a.metrics)
	a.results = service.NewResultsService(snapshots, cfg.PublishedTables())
	log.Info("Services initialized successfully")

	return a, nil
}

// close releases resources in reverse order of acquisition
func (a *app) close() {
	if a.bus != nil {
		a.bus.Wait()
	}
	if a.nats != nil {
		a.nats.Close()
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Failed to shut down metrics provider")
		}
	}
	if a.db != nil {
		log.Info("Closing database connection...")
		a.db.Close()
	}
}

func (a *app) ingest(ctx context.Context) error {
	run, err := a.ingestion.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	log.WithFields(log.Fields{
		"run_id":   run.ID,
		"rows":     run.RowCount,
		"columns":  run.ColumnCount,
		"rejected": run.RejectedRows,
	}).Info("Ingestion completed")
	return nil
}

// serve runs the API until ctx is cancelled, then drains in-flight requests
func (a *app) serve(ctx context.Context) error {
	api := server.New(a.results, a.db, a.metrics)
	srv := server.NewHTTPServer(a.cfg, api.Handler())

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", a.cfg.HTTPAddr).Info("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	log.Info("API server stopped")
	return nil
}
