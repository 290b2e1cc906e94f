package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"megamillions/database"
	"megamillions/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// maxIdentifierLength is Postgres' NAMEDATALEN-1; longer names are silently truncated
const maxIdentifierLength = 63

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SnapshotRepository persists whole result tables and reads them back.
// Replace and reads are serialized so readers in this process never see a
// table that is being rebuilt.
type SnapshotRepository struct {
	db *database.DB
	mu sync.RWMutex
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// ValidateTableName checks that name is a plain identifier safe to use as a table name
func ValidateTableName(name string) error {
	if len(name) > maxIdentifierLength || !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

// Replace drops tableName and recreates it from the snapshot, assigning a
// 0-based "index" to every row. The drop, create and load run in one
// transaction, so other sessions see either the old table or the new one.
func (r *SnapshotRepository) Replace(ctx context.Context, tableName string, snapshot *models.Snapshot) error {
	if err := ValidateTableName(tableName); err != nil {
		return err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}

	table := pgx.Identifier{tableName}
	columns := make([]string, 0, len(snapshot.Columns)+1)
	definitions := make([]string, 0, len(snapshot.Columns)+1)

	columns = append(columns, models.IndexColumn)
	definitions = append(definitions, pgx.Identifier{models.IndexColumn}.Sanitize()+" BIGINT PRIMARY KEY")
	for _, c := range snapshot.Columns {
		columns = append(columns, c.Name)
		definitions = append(definitions, pgx.Identifier{c.Name}.Sanitize()+" "+c.Type.SQLType())
	}

	rows := make([][]any, len(snapshot.Rows))
	for i, row := range snapshot.Rows {
		values := make([]any, 0, len(row)+1)
		values = append(values, int64(i))
		values = append(values, row...)
		rows[i] = values
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+table.Sanitize()); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}

		create := fmt.Sprintf("CREATE TABLE %s (%s)", table.Sanitize(), strings.Join(definitions, ", "))
		if _, err := tx.Exec(ctx, create); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		copied, err := tx.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
		if copied != int64(len(rows)) {
			return fmt.Errorf("copied %d of %d rows", copied, len(rows))
		}
		return nil
	})
	if err != nil {
		return classify(fmt.Sprintf("failed to replace table %s", tableName), err)
	}

	return nil
}

// ReadAll returns every row of tableName ordered by index.
// An unknown table yields no rows.
func (r *SnapshotRepository) ReadAll(ctx context.Context, tableName string) ([]models.Row, error) {
	return r.read(ctx, tableName, nil, nil)
}

// ReadColumns returns the index plus the named columns of every row.
// An unknown column is a query error; an unknown table yields no rows.
func (r *SnapshotRepository) ReadColumns(ctx context.Context, tableName string, columns []string) ([]models.Row, error) {
	if len(columns) == 0 {
		return r.read(ctx, tableName, nil, nil)
	}
	return r.read(ctx, tableName, columns, nil)
}

// ReadByID returns the row whose index equals id, or no rows
func (r *SnapshotRepository) ReadByID(ctx context.Context, tableName string, id int64) ([]models.Row, error) {
	return r.read(ctx, tableName, nil, &id)
}

func (r *SnapshotRepository) read(ctx context.Context, tableName string, columns []string, id *int64) ([]models.Row, error) {
	if err := ValidateTableName(tableName); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selectList(columns), pgx.Identifier{tableName}.Sanitize())
	var args []any
	if id != nil {
		query += " WHERE " + pgx.Identifier{models.IndexColumn}.Sanitize() + " = $1"
		args = append(args, *id)
	}
	query += " ORDER BY " + pgx.Identifier{models.IndexColumn}.Sanitize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return []models.Row{}, nil
		}
		return nil, classify(fmt.Sprintf("failed to read table %s", tableName), err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	result := []models.Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, classify(fmt.Sprintf("failed to scan table %s", tableName), err)
		}
		for i, f := range fields {
			values[i] = normalizeValue(f.DataTypeOID, values[i])
		}
		result = append(result, models.Row{Columns: names, Values: values})
	}

	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return []models.Row{}, nil
		}
		return nil, classify(fmt.Sprintf("failed to iterate table %s", tableName), err)
	}

	return result, nil
}

// selectList builds the projection; the index column always comes first
func selectList(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	parts := []string{pgx.Identifier{models.IndexColumn}.Sanitize()}
	for _, c := range columns {
		if c == models.IndexColumn {
			continue
		}
		parts = append(parts, pgx.Identifier{c}.Sanitize())
	}
	return strings.Join(parts, ", ")
}

// normalizeValue converts driver values into their JSON representation
func normalizeValue(oid uint32, v any) any {
	if oid == pgtype.DateOID {
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02")
		}
	}
	return v
}

func validateSnapshot(snapshot *models.Snapshot) error {
	if snapshot == nil || len(snapshot.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidSnapshot)
	}

	seen := make(map[string]bool, len(snapshot.Columns))
	for _, c := range snapshot.Columns {
		switch {
		case c.Name == "":
			return fmt.Errorf("%w: empty column name", ErrInvalidSnapshot)
		case len(c.Name) > maxIdentifierLength:
			return fmt.Errorf("%w: column name too long: %q", ErrInvalidSnapshot, c.Name)
		case c.Name == models.IndexColumn:
			return fmt.Errorf("%w: column name %q is reserved", ErrInvalidSnapshot, c.Name)
		case seen[c.Name]:
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidSnapshot, c.Name)
		}
		seen[c.Name] = true
	}

	for i, row := range snapshot.Rows {
		if len(row) != len(snapshot.Columns) {
			return fmt.Errorf("%w: row %d has %d values for %d columns", ErrInvalidSnapshot, i, len(row), len(snapshot.Columns))
		}
	}
	return nil
}
