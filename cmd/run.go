package cmd

import (
	"context"
	"fmt"

	"megamillions/config"
	"megamillions/models"

	log "github.com/sirupsen/logrus"
)

// Run ingests the upstream table once and then serves the API.
// A failed ingestion aborts startup.
func Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.WithField("environment", cfg.Environment).Info("Starting megamillions...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ingest(ctx); err != nil {
		return err
	}
	return a.serve(ctx)
}

// Ingest runs one ingestion and exits
func Ingest(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.WithField("table", cfg.TableName).Info("Starting one-off ingestion...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	return a.ingest(ctx)
}

// Serve runs the API over whatever snapshot is already stored
func Serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.WithField("environment", cfg.Environment).Info("Starting megamillions API...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	logLatestRun(ctx, a.ingestion)
	return a.serve(ctx)
}

// loadConfig reads and validates configuration, then sets up logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	SetupLogging(cfg)
	return cfg, nil
}

type latestRunReader interface {
	LatestRun(ctx context.Context) (*models.SnapshotRun, error)
}

// logLatestRun reports which ingestion run produced the snapshot about to be served
func logLatestRun(ctx context.Context, runs latestRunReader) {
	run, err := runs.LatestRun(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to look up the latest ingestion run")
		return
	}
	if run == nil {
		log.Warn("No ingestion run recorded yet, the API serves empty results until one succeeds")
		return
	}

	fields := log.Fields{
		"run_id":     run.ID,
		"table":      run.TableName,
		"status":     run.Status,
		"rows":       run.RowCount,
		"rejected":   run.RejectedRows,
		"started_at": run.StartedAt,
	}
	if run.Error != nil {
		fields["error"] = *run.Error
	}

	if run.Status != models.SnapshotRunStatusSucceeded {
		log.WithFields(fields).Warn("Latest ingestion run did not succeed")
		return
	}
	log.WithFields(fields).Info("Serving snapshot from latest ingestion run")
}
