package models

import "strings"

// Schema is an ordered list of declared columns a results table must carry
type Schema struct {
	Columns []Column
}

// MegaMillionsSchema declares the columns the API guarantees for every drawing.
// Other scraped columns are kept with their inferred types.
var MegaMillionsSchema = Schema{
	Columns: []Column{
		{Name: "Draw date", Type: ColumnTypeDate},
		{Name: "Winning Numbers", Type: ColumnTypeNumberList},
		{Name: "Megaball", Type: ColumnTypeInteger},
		{Name: "Jackpot Winners", Type: ColumnTypeInteger},
	},
}

// Lookup finds the declared column matching a scraped header.
// Matching ignores case and collapses whitespace.
func (s Schema) Lookup(header string) (Column, bool) {
	key := NormalizeHeader(header)
	for _, c := range s.Columns {
		if NormalizeHeader(c.Name) == key {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the declared column names in order
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// NormalizeHeader lowercases a header and collapses runs of whitespace
func NormalizeHeader(header string) string {
	return strings.ToLower(strings.Join(strings.Fields(header), " "))
}
