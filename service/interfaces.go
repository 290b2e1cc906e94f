package service

import (
	"context"
	"time"

	"megamillions/events"
	"megamillions/models"
)

// Fetcher retrieves the HTML tables published at a source URL
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]*models.Table, error)
}

// SnapshotReader defines read access to stored results tables
type SnapshotReader interface {
	// ReadAll returns every row of a table ordered by index
	ReadAll(ctx context.Context, tableName string) ([]models.Row, error)

	// ReadColumns returns the named columns of every row, plus the index
	ReadColumns(ctx context.Context, tableName string, columns []string) ([]models.Row, error)

	// ReadByID returns the row with the given index, if any
	ReadByID(ctx context.Context, tableName string, id int64) ([]models.Row, error)
}

// SnapshotStore defines the interface for results table storage
type SnapshotStore interface {
	SnapshotReader

	// Replace atomically overwrites a table with the snapshot
	Replace(ctx context.Context, tableName string, snapshot *models.Snapshot) error
}

// SnapshotRunStore defines the interface for ingestion run bookkeeping
type SnapshotRunStore interface {
	// Start records a run in the running state
	Start(ctx context.Context, run *models.SnapshotRun) error

	// Finish records the outcome of a run
	Finish(ctx context.Context, run *models.SnapshotRun) error

	// Latest returns the most recent run for a table, or nil
	Latest(ctx context.Context, tableName string) (*models.SnapshotRun, error)
}

// EventPublisher publishes service events
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// IngestionMetrics records ingestion pipeline measurements
type IngestionMetrics interface {
	RecordFetch(ctx context.Context, outcome string, duration time.Duration)
	RecordIngest(ctx context.Context, table, outcome string)
	RecordRejected(ctx context.Context, table string, rejected int)
	RecordReplace(ctx context.Context, table string, rows int, duration time.Duration)
}
