package repository

import (
	"context"
	"fmt"

	"megamillions/database"
	"megamillions/models"

	"github.com/jackc/pgx/v5"
)

// SnapshotRunRepository records ingestion runs
type SnapshotRunRepository struct {
	db *database.DB
}

// NewSnapshotRunRepository creates a new snapshot run repository
func NewSnapshotRunRepository(db *database.DB) *SnapshotRunRepository {
	return &SnapshotRunRepository{db: db}
}

// Start inserts a run in the running state and fills in its start time
func (r *SnapshotRunRepository) Start(ctx context.Context, run *models.SnapshotRun) error {
	query := `
		INSERT INTO snapshot_runs (id, table_name, source_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING started_at
	`

	run.Status = models.SnapshotRunStatusRunning
	err := r.db.QueryRow(ctx, query, run.ID, run.TableName, run.SourceURL, run.Status).Scan(&run.StartedAt)
	if err != nil {
		return classify(fmt.Sprintf("failed to start snapshot run %s", run.ID), err)
	}

	return nil
}

// Finish stores the outcome of a run and fills in its completion time
func (r *SnapshotRunRepository) Finish(ctx context.Context, run *models.SnapshotRun) error {
	query := `
		UPDATE snapshot_runs
		SET status = $2,
		    row_count = $3,
		    column_count = $4,
		    rejected_rows = $5,
		    error = $6,
		    completed_at = NOW()
		WHERE id = $1
		RETURNING completed_at
	`

	err := r.db.QueryRow(ctx, query,
		run.ID,
		run.Status,
		run.RowCount,
		run.ColumnCount,
		run.RejectedRows,
		run.Error,
	).Scan(&run.CompletedAt)

	if err == pgx.ErrNoRows {
		return fmt.Errorf("snapshot run %s not found", run.ID)
	}
	if err != nil {
		return classify(fmt.Sprintf("failed to finish snapshot run %s", run.ID), err)
	}

	return nil
}

// Latest returns the most recently started run for a table, or nil if there is none
func (r *SnapshotRunRepository) Latest(ctx context.Context, tableName string) (*models.SnapshotRun, error) {
	query := `
		SELECT id, table_name, source_url, status, row_count, column_count,
		       rejected_rows, error, started_at, completed_at
		FROM snapshot_runs
		WHERE table_name = $1
		ORDER BY started_at DESC
		LIMIT 1
	`

	var run models.SnapshotRun
	err := r.db.QueryRow(ctx, query, tableName).Scan(
		&run.ID,
		&run.TableName,
		&run.SourceURL,
		&run.Status,
		&run.RowCount,
		&run.ColumnCount,
		&run.RejectedRows,
		&run.Error,
		&run.StartedAt,
		&run.CompletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Sprintf("failed to get latest snapshot run for %s", tableName), err)
	}

	return &run, nil
}
