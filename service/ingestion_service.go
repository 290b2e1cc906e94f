package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"megamillions/config"
	"megamillions/events"
	"megamillions/models"
	"megamillions/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// previewRows is how many stored rows are logged after a replace
const previewRows = 5

// finishTimeout bounds recording a run outcome after the caller's context ended
const finishTimeout = 5 * time.Second

// IngestionService fetches the upstream results table and replaces the stored snapshot
type IngestionService struct {
	fetcher   Fetcher
	snapshots SnapshotStore
	runs      SnapshotRunStore
	publisher EventPublisher
	metrics   IngestionMetrics
	schema    models.Schema
	sourceURL string
	tableName string
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	cfg *config.Config,
	fetcher Fetcher,
	snapshots SnapshotStore,
	runs SnapshotRunStore,
	publisher EventPublisher,
	metrics IngestionMetrics,
) *IngestionService {
	return &IngestionService{
		fetcher:   fetcher,
		snapshots: snapshots,
		runs:      runs,
		publisher: publisher,
		metrics:   metrics,
		schema:    models.MegaMillionsSchema,
		sourceURL: cfg.SourceURL,
		tableName: cfg.TableName,
	}
}

// Ingest runs one fetch → validate → replace cycle. The stored snapshot is only
// touched when the fetched table conforms to the schema and has valid rows.
func (s *IngestionService) Ingest(ctx context.Context) (*models.SnapshotRun, error) {
	run := &models.SnapshotRun{
		ID:        uuid.New(),
		TableName: s.tableName,
		SourceURL: s.sourceURL,
	}

	logger := log.WithFields(log.Fields{
		"run_id": run.ID,
		"table":  s.tableName,
		"source": s.sourceURL,
	})

	if err := s.runs.Start(ctx, run); err != nil {
		s.metrics.RecordIngest(ctx, s.tableName, observability.OutcomeFailure)
		return nil, fmt.Errorf("failed to record snapshot run: %w", err)
	}
	logger.Info("Starting ingestion run")

	fetchStart := time.Now()
	tables, err := s.fetcher.Fetch(ctx, s.sourceURL)
	if err != nil {
		s.metrics.RecordFetch(ctx, observability.OutcomeFailure, time.Since(fetchStart))
		return run, s.fail(ctx, run, fmt.Errorf("failed to fetch results: %w", err))
	}
	s.metrics.RecordFetch(ctx, observability.OutcomeSuccess, time.Since(fetchStart))
	logger.WithField("tables", len(tables)).Debug("Fetched upstream tables")

	table, positions, err := SelectTable(tables, s.schema)
	if err != nil {
		return run, s.fail(ctx, run, fmt.Errorf("%w (columns %v, %d tables fetched)", err, s.schema.Names(), len(tables)))
	}

	snapshot, rejections := BuildSnapshot(table, positions, s.schema)
	run.RowCount = snapshot.RowCount()
	run.ColumnCount = len(snapshot.Columns)
	run.RejectedRows = len(rejections)

	if len(rejections) > 0 {
		s.metrics.RecordRejected(ctx, s.tableName, len(rejections))
		logger.WithFields(log.Fields{
			"rejected":   len(rejections),
			"scraped":    table.RowCount(),
			"first_hint": rejections[0].String(),
		}).Warn("Rejected scraped rows that did not match the schema")
	}

	if snapshot.RowCount() == 0 {
		return run, s.fail(ctx, run, fmt.Errorf("%w: %d scraped rows, %d rejected", ErrEmptySnapshot, table.RowCount(), len(rejections)))
	}

	replaceStart := time.Now()
	if err := s.snapshots.Replace(ctx, s.tableName, snapshot); err != nil {
		return run, s.fail(ctx, run, fmt.Errorf("failed to replace snapshot: %w", err))
	}
	replaceDuration := time.Since(replaceStart)

	run.Status = models.SnapshotRunStatusSucceeded
	if err := s.runs.Finish(ctx, run); err != nil {
		logger.WithError(err).Error("Failed to record successful snapshot run")
	}

	s.metrics.RecordReplace(ctx, s.tableName, run.RowCount, replaceDuration)
	s.metrics.RecordIngest(ctx, s.tableName, observability.OutcomeSuccess)

	logger.WithFields(log.Fields{
		"rows":     run.RowCount,
		"columns":  run.ColumnCount,
		"rejected": run.RejectedRows,
		"duration": replaceDuration,
	}).Info("Replaced results snapshot")

	s.logPreview(ctx, logger)

	event := events.SnapshotReplacedEvent{
		RunID:      run.ID,
		Table:      s.tableName,
		Rows:       run.RowCount,
		Columns:    run.ColumnCount,
		ReplacedAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WithError(err).Warn("Failed to publish snapshot replaced event")
	}

	return run, nil
}

// LatestRun returns the most recent ingestion run for the configured table
func (s *IngestionService) LatestRun(ctx context.Context) (*models.SnapshotRun, error) {
	run, err := s.runs.Latest(ctx, s.tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot run: %w", err)
	}
	return run, nil
}

// fail records the run as failed and returns cause. An empty or mismatched
// upstream counts as skipped; the stored snapshot was not touched.
func (s *IngestionService) fail(ctx context.Context, run *models.SnapshotRun, cause error) error {
	outcome := observability.OutcomeFailure
	if errors.Is(cause, ErrEmptySnapshot) || errors.Is(cause, ErrSchemaMismatch) {
		outcome = observability.OutcomeSkipped
	}
	s.metrics.RecordIngest(ctx, s.tableName, outcome)

	msg := cause.Error()
	run.Status = models.SnapshotRunStatusFailed
	run.Error = &msg

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if err := s.runs.Finish(finishCtx, run); err != nil {
		log.WithError(err).WithField("run_id", run.ID).Error("Failed to record failed snapshot run")
	}

	log.WithError(cause).WithFields(log.Fields{
		"run_id":  run.ID,
		"table":   s.tableName,
		"outcome": outcome,
	}).Error("Ingestion run failed")
	return cause
}

// logPreview reads the declared columns back and logs the first few rows
func (s *IngestionService) logPreview(ctx context.Context, logger *log.Entry) {
	rows, err := s.snapshots.ReadColumns(ctx, s.tableName, s.schema.Names())
	if err != nil {
		logger.WithError(err).Warn("Failed to read back stored snapshot")
		return
	}

	if len(rows) > previewRows {
		rows = rows[:previewRows]
	}
	for _, row := range rows {
		fields := log.Fields{}
		for i, col := range row.Columns {
			fields[col] = row.Values[i]
		}
		logger.WithFields(fields).Info("Stored row preview")
	}
}
