// Package table holds an in-memory CSV table: one header and an ordered
// set of rows. Column order and row order are preserved through every
// operation; nothing here reorders, adds, or drops data.
package table

import (
	"fmt"
)

// Table is a header plus rows. Each row is aligned to the header: row[i]
// is the cell under Header[i]. Rows shorter than the header are padded on
// construction, never lazily.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string

	cols map[string]int
}

// New builds a Table and indexes its header. Duplicate column names are
// rejected because a remap over an ambiguous column would silently write
// to the wrong one.
func New(name string, header []string, rows [][]string) (*Table, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := cols[h]; dup {
			return nil, fmt.Errorf("%s: duplicate column %q in header", name, h)
		}
		cols[h] = i
	}

	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("%s: row %d has %d cells, header has %d", name, i+1, len(row), len(header))
		}
		for len(rows[i]) < len(header) {
			rows[i] = append(rows[i], "")
		}
	}

	return &Table{Name: name, Header: header, Rows: rows, cols: cols}, nil
}

// Column returns the index of the named column, or false if the header
// does not contain it.
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.cols[name]
	return i, ok
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// Clone returns a deep copy sharing nothing with the receiver. Pipelines
// mutate the copy so callers keep the original for comparison.
func (t *Table) Clone() *Table {
	header := make([]string, len(t.Header))
	copy(header, t.Header)

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = make([]string, len(row))
		copy(rows[i], row)
	}

	cols := make(map[string]int, len(t.cols))
	for k, v := range t.cols {
		cols[k] = v
	}

	return &Table{Name: t.Name, Header: header, Rows: rows, cols: cols}
}
