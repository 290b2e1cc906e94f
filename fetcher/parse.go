package fetcher

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"megamillions/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxColspan bounds how far a single cell may be repeated
const maxColspan = 1000

// ParseTables parses every table in an HTML document
func ParseTables(r io.Reader) ([]*models.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var tables []*models.Table
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		if table, ok := ExtractTable(s); ok {
			tables = append(tables, table)
		}
	})
	return tables, nil
}

// ExtractTable converts a <table> selection into a Table. Rows of nested
// tables are ignored. It reports false when the table has no columns.
func ExtractTable(s *goquery.Selection) (*models.Table, bool) {
	rows := s.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(s)
	})

	var header []string
	var body [][]string
	headerFound := false

	rows.Each(func(i int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}
		values := rowValues(cells)

		inHead := tr.ParentsFiltered("thead").Length() > 0
		allTH := cells.Length() == cells.Filter("th").Length()

		switch {
		case !headerFound && (inHead || (i == 0 && allTH)):
			header = values
			headerFound = true
		case inHead:
			// additional header rows are not part of the data
		case headerFound && allTH && equalRows(values, header):
			// repeated header row inside the body
		default:
			body = append(body, values)
		}
	})

	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil, false
	}

	table := &models.Table{
		Columns: make([]models.Column, width),
		Rows:    make([][]string, len(body)),
	}

	names := columnNames(header, width, headerFound)
	for i := range body {
		table.Rows[i] = fitRow(body[i], width)
	}
	for i, name := range names {
		table.Columns[i] = models.Column{Name: name, Type: inferType(table.Rows, i)}
	}

	return table, true
}

// rowValues returns the text of each cell, repeating cells that span columns
func rowValues(cells *goquery.Selection) []string {
	var values []string
	cells.Each(func(_ int, cell *goquery.Selection) {
		text := cellText(cell)
		span := 1
		if attr, ok := cell.Attr("colspan"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(attr)); err == nil && n > 1 {
				span = n
			}
		}
		if span > maxColspan {
			span = maxColspan
		}
		for j := 0; j < span; j++ {
			values = append(values, text)
		}
	})
	return values
}

// cellText joins the cell's text nodes with single spaces, so numbers rendered
// as adjacent inline elements stay separated.
func cellText(cell *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, strings.Fields(n.Data)...)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range cell.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// columnNames builds unique column names. Blank headers become "Unnamed: N",
// duplicates get ".1", ".2" suffixes, and header-less tables use positions.
func columnNames(header []string, width int, headerFound bool) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		var name string
		switch {
		case !headerFound:
			name = strconv.Itoa(i)
		case i < len(header) && header[i] != "":
			name = header[i]
		default:
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

func fitRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	fitted := make([]string, width)
	copy(fitted, row)
	return fitted
}

func equalRows(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// inferType reports numeric when every non-empty cell of the column is a number
func inferType(rows [][]string, col int) models.ColumnType {
	seen := false
	for _, row := range rows {
		cell := row[col]
		if cell == "" {
			continue
		}
		if _, ok := ParseNumber(cell); !ok {
			return models.ColumnTypeText
		}
		seen = true
	}
	if !seen {
		return models.ColumnTypeText
	}
	return models.ColumnTypeNumeric
}

// ParseNumber parses a decimal number, allowing thousands separators
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
