package remap

import (
	"strconv"
	"strings"

	"github.com/mberg/mpmigrate/internal/table"
)

// IDMap maps original record identifiers (exact strings, not numbers) to
// newly assigned sequential identifiers. Built once per table, read-only
// afterwards.
type IDMap map[string]string

// BuildIDMap scans the table in row order and assigns each distinct value
// of idCol the next integer from start. Duplicate originals share the new
// identifier of their first occurrence, so N unique originals occupy
// exactly {start .. start+N-1}. Original values are trimmed before
// comparison, matching the lookup side.
func BuildIDMap(t *table.Table, idCol string, start int) (IDMap, error) {
	col, ok := t.Column(idCol)
	if !ok {
		return nil, &MissingColumnError{Table: t.Name, Columns: []string{idCol}}
	}

	m := make(IDMap, t.Len())
	next := start
	for _, row := range t.Rows {
		old := strings.TrimSpace(row[col])
		if _, seen := m[old]; !seen {
			m[old] = strconv.Itoa(next)
			next++
		}
	}
	return m, nil
}

// Lookup resolves an identifier as it appears in a cell, trimming before
// comparison. The second return is false when the identifier is unknown.
func (m IDMap) Lookup(raw string) (string, bool) {
	mapped, ok := m[strings.TrimSpace(raw)]
	return mapped, ok
}
