package testutil

import (
	"fmt"
	"time"

	"megamillions/models"

	"github.com/google/uuid"
)

// SnapshotColumns are the columns of snapshots built by CreateTestSnapshot
var SnapshotColumns = []models.Column{
	{Name: "Draw date", Type: models.ColumnTypeDate},
	{Name: "Winning Numbers", Type: models.ColumnTypeNumberList},
	{Name: "Megaball", Type: models.ColumnTypeInteger},
	{Name: "Jackpot Winners", Type: models.ColumnTypeInteger},
	{Name: "Jackpot", Type: models.ColumnTypeText},
	{Name: "Megaplier", Type: models.ColumnTypeNumeric},
}

// CreateTestSnapshot creates a snapshot of n drawings, three days apart
func CreateTestSnapshot(n int) *models.Snapshot {
	snapshot := &models.Snapshot{
		Columns: append([]models.Column(nil), SnapshotColumns...),
		Rows:    make([][]any, n),
	}

	first := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		snapshot.Rows[i] = []any{
			first.AddDate(0, 0, 3*i),
			[]int64{int64(i%60 + 1), 12, 23, 45, 61},
			int64(i%25 + 1),
			int64(i % 2),
			fmt.Sprintf("$%d Million", 20+i),
			float64(i%4 + 2),
		}
	}
	return snapshot
}

// CreateTestSnapshotRun creates a run for a table in the running state
func CreateTestSnapshotRun(tableName string) *models.SnapshotRun {
	return &models.SnapshotRun{
		ID:        uuid.New(),
		TableName: tableName,
		SourceURL: "https://example.test/results",
		Status:    models.SnapshotRunStatusRunning,
	}
}
