package models

// ColumnType is the declared or inferred type of a results column
type ColumnType string

const (
	ColumnTypeText       ColumnType = "text"
	ColumnTypeNumeric    ColumnType = "numeric"
	ColumnTypeInteger    ColumnType = "integer"
	ColumnTypeDate       ColumnType = "date"
	ColumnTypeNumberList ColumnType = "number_list"
)

// SQLType returns the Postgres column type used to persist values of this type
func (t ColumnType) SQLType() string {
	switch t {
	case ColumnTypeNumeric:
		return "DOUBLE PRECISION"
	case ColumnTypeInteger:
		return "BIGINT"
	case ColumnTypeDate:
		return "DATE"
	case ColumnTypeNumberList:
		return "INTEGER[]"
	default:
		return "TEXT"
	}
}

// Column is a named, typed column of a results table
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is one HTML table as scraped from the upstream page.
// Rows hold the raw cell text; every row has len(Columns) cells.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// RowCount returns the number of data rows
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int {
	return len(t.Columns)
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Snapshot is a schema-validated table ready to be persisted.
// Each row holds typed values aligned with Columns; nil is SQL NULL.
type Snapshot struct {
	Columns []Column
	Rows    [][]any
}

// RowCount returns the number of rows in the snapshot
func (s *Snapshot) RowCount() int {
	return len(s.Rows)
}
