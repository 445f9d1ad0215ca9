// Package tabular reads and writes header-plus-rows tables in the file
// formats the order desk exchanges with its users: XLSX workbooks, CSV and
// gzip-compressed CSV.
package tabular

import (
	"fmt"
	"strings"
)

// Table is a rectangular-ish table: a header row followed by data rows.
// Rows may be shorter than the header; missing cells read as empty strings.
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: header}
}

// Append adds a data row.
func (t *Table) Append(row ...string) {
	t.Rows = append(t.Rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column, or -1 when absent.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Require returns a *SchemaError listing every named column missing from
// the header, or nil when all of them are present.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if t.Index(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Cell returns the value at column col of row, or "" when out of range.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// SchemaError reports a table that does not match the expected layout:
// either required columns are missing or a cell holds an unusable value.
type SchemaError struct {
	// Missing lists absent required columns.
	Missing []string
	// Row is the 1-based data row of a bad cell, zero for header problems.
	Row    int
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("row %d column %s: %s", e.Row, e.Column, e.Reason)
}

// normalizeHeader trims whitespace and a leading UTF-8 BOM from header cells.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func fromRecords(records [][]string) *Table {
	if len(records) == 0 {
		return &Table{}
	}
	t := &Table{Header: normalizeHeader(records[0])}
	for _, row := range records[1:] {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
