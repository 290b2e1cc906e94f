package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowMarshalJSONKeepsColumnOrder(t *testing.T) {
	row := Row{
		Columns: []string{IndexColumn, "Draw date", "Winning Numbers", "Megaball", "Jackpot"},
		Values:  []any{int64(4), "2024-01-14", []any{int32(3), int32(9), int32(27)}, int64(22), nil},
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t,
		`{"index":4,"Draw date":"2024-01-14","Winning Numbers":[3,9,27],"Megaball":22,"Jackpot":null}`,
		string(data))
}

func TestRowMarshalJSONInSlice(t *testing.T) {
	rows := []Row{
		{Columns: []string{IndexColumn}, Values: []any{int64(0)}},
		{Columns: []string{IndexColumn}, Values: []any{int64(1)}},
	}

	data, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"index":0},{"index":1}]`, string(data))
}

func TestRowMarshalJSONMismatch(t *testing.T) {
	_, err := json.Marshal(Row{Columns: []string{"a", "b"}, Values: []any{1}})
	assert.Error(t, err)
}

func TestRowGetAndIndex(t *testing.T) {
	row := Row{Columns: []string{IndexColumn, "Megaball"}, Values: []any{int64(7), int64(12)}}

	v, ok := row.Get("Megaball")
	assert.True(t, ok)
	assert.Equal(t, int64(12), v)

	_, ok = row.Get("Megaplier")
	assert.False(t, ok)

	assert.Equal(t, int64(7), row.Index())
	assert.Equal(t, int64(-1), Row{Columns: []string{"Megaball"}, Values: []any{int64(1)}}.Index())
}
