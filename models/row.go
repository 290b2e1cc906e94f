package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IndexColumn is the surrogate 0-based row index assigned on persistence
const IndexColumn = "index"

// Row is one persisted result row. It marshals to a JSON object whose keys
// follow the stored column order.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Index returns the row's surrogate index, or -1 if it was not selected
func (r Row) Index() int64 {
	v, ok := r.Get(IndexColumn)
	if !ok {
		return -1
	}
	if idx, ok := v.(int64); ok {
		return idx
	}
	return -1
}

// MarshalJSON encodes the row as an ordered JSON object
func (r Row) MarshalJSON() ([]byte, error) {
	if len(r.Columns) != len(r.Values) {
		return nil, fmt.Errorf("row has %d columns but %d values", len(r.Columns), len(r.Values))
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal column %q: %w", col, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
