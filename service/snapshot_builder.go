package service

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"megamillions/fetcher"
	"megamillions/models"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrSchemaMismatch means no fetched table carries every declared column
	ErrSchemaMismatch = errors.New("no table matches the results schema")

	// ErrEmptySnapshot means coercion left nothing worth storing
	ErrEmptySnapshot = errors.New("snapshot has no valid rows")
)

// maxColumnNameLength matches the Postgres identifier limit
const maxColumnNameLength = 63

// dateLayouts are the draw date formats accepted from the upstream page
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006-01-02",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"Mon, Jan 2, 2006",
	"Mon, January 2, 2006",
	"Monday, January 2, 2006",
	"Mon 01/02/2006",
}

var digitRun = regexp.MustCompile(`\d+`)

// SelectTable returns the first table whose headers cover every declared column,
// along with the table column index of each declared column
func SelectTable(tables []*models.Table, schema models.Schema) (*models.Table, map[string]int, error) {
	for _, table := range tables {
		if positions, ok := matchSchema(table, schema); ok {
			return table, positions, nil
		}
	}
	return nil, nil, ErrSchemaMismatch
}

func matchSchema(table *models.Table, schema models.Schema) (map[string]int, bool) {
	positions := make(map[string]int, len(schema.Columns))
	for i, c := range table.Columns {
		declared, ok := schema.Lookup(c.Name)
		if !ok {
			continue
		}
		if _, seen := positions[declared.Name]; !seen {
			positions[declared.Name] = i
		}
	}
	return positions, len(positions) == len(schema.Columns)
}

// RowRejection describes a scraped row dropped during coercion
type RowRejection struct {
	Row    int
	Column string
	Reason string
}

func (r RowRejection) String() string {
	if r.Column == "" {
		return fmt.Sprintf("row %d: %s", r.Row, r.Reason)
	}
	return fmt.Sprintf("row %d, column %q: %s", r.Row, r.Column, r.Reason)
}

// BuildSnapshot coerces a scraped table into typed rows. Declared columns take
// the schema name and type; other columns keep the fetcher's inferred type.
// Rows with an uncoercible cell or no content at all are rejected.
func BuildSnapshot(table *models.Table, positions map[string]int, schema models.Schema) (*models.Snapshot, []RowRejection) {
	declaredAt := make(map[int]models.Column, len(positions))
	for _, c := range schema.Columns {
		if i, ok := positions[c.Name]; ok {
			declaredAt[i] = c
		}
	}

	columns := make([]models.Column, len(table.Columns))
	used := make(map[string]bool, len(table.Columns))
	for i, c := range table.Columns {
		col := c
		if d, ok := declaredAt[i]; ok {
			col = d
		}
		col.Name = uniqueColumnName(col.Name, used)
		columns[i] = col
	}

	snapshot := &models.Snapshot{Columns: columns, Rows: make([][]any, 0, len(table.Rows))}
	var rejections []RowRejection

rows:
	for r, cells := range table.Rows {
		if isBlankRow(cells) {
			rejections = append(rejections, RowRejection{Row: r, Reason: "empty row"})
			continue
		}

		values := make([]any, len(columns))
		for i, col := range columns {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}

			v, err := coerceCell(cell, col.Type)
			if err != nil {
				rejections = append(rejections, RowRejection{Row: r, Column: col.Name, Reason: err.Error()})
				continue rows
			}
			values[i] = v
		}
		snapshot.Rows = append(snapshot.Rows, values)
	}

	for _, rej := range rejections {
		log.WithField("rejection", rej.String()).Debug("Rejected scraped row")
	}
	return snapshot, rejections
}

func coerceCell(cell string, t models.ColumnType) (any, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}

	switch t {
	case models.ColumnTypeNumeric:
		f, ok := fetcher.ParseNumber(cell)
		if !ok {
			return nil, fmt.Errorf("%q is not a number", cell)
		}
		return f, nil

	case models.ColumnTypeInteger:
		return parseInteger(cell)

	case models.ColumnTypeDate:
		return parseDate(cell)

	case models.ColumnTypeNumberList:
		return parseNumberList(cell)

	default:
		return cell, nil
	}
}

func parseInteger(cell string) (int64, error) {
	f, ok := fetcher.ParseNumber(cell)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%q is not an integer", cell)
	}
	return int64(f), nil
}

func parseDate(cell string) (time.Time, error) {
	normalized := strings.Join(strings.Fields(cell), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date", cell)
}

func parseNumberList(cell string) ([]int64, error) {
	runs := digitRun.FindAllString(cell, -1)
	if len(runs) == 0 {
		return nil, fmt.Errorf("%q has no numbers", cell)
	}

	numbers := make([]int64, len(runs))
	for i, run := range runs {
		n, err := strconv.ParseInt(run, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%q is out of range", run)
		}
		numbers[i] = n
	}
	return numbers, nil
}

func uniqueColumnName(name string, used map[string]bool) string {
	if name == models.IndexColumn {
		name = "index_"
	}
	name = truncate(name, maxColumnNameLength)

	candidate := name
	for n := 1; used[candidate]; n++ {
		suffix := fmt.Sprintf(".%d", n)
		candidate = truncate(name, maxColumnNameLength-len(suffix)) + suffix
	}
	used[candidate] = true
	return candidate
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
