package models

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotRunStatus is the outcome of an ingestion run
type SnapshotRunStatus string

const (
	SnapshotRunStatusRunning   SnapshotRunStatus = "running"
	SnapshotRunStatusSucceeded SnapshotRunStatus = "succeeded"
	SnapshotRunStatusFailed    SnapshotRunStatus = "failed"
)

// SnapshotRun records one fetch → replace attempt for a published table
type SnapshotRun struct {
	ID           uuid.UUID         `db:"id"`
	TableName    string            `db:"table_name"`
	SourceURL    string            `db:"source_url"`
	Status       SnapshotRunStatus `db:"status"`
	RowCount     int               `db:"row_count"`
	ColumnCount  int               `db:"column_count"`
	RejectedRows int               `db:"rejected_rows"`
	Error        *string           `db:"error"`
	StartedAt    time.Time         `db:"started_at"`
	CompletedAt  *time.Time        `db:"completed_at"`
}
