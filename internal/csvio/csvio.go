// Package csvio reads and writes the CSV tables the engine works on.
// Reading tolerates a UTF-8 BOM and ragged short rows (padded to header
// width); writing emits the header verbatim and the rows in order,
// nothing else.
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mberg/mpmigrate/internal/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTable loads a CSV file into a Table named name. The first row is
// the header and is required; a file with only a header yields an empty
// table, not an error.
func ReadTable(name, path string) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s csv: %w", name, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s csv: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s csv %s has no header row", name, path)
	}

	tbl, err := table.New(name, records[0], records[1:])
	if err != nil {
		return nil, fmt.Errorf("failed to load %s csv: %w", name, err)
	}
	return tbl, nil
}

// WriteTable writes a table to path, creating parent directories as
// needed. Header and row order come out exactly as held in the table.
func WriteTable(t *table.Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	text, err := Render(t)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s csv: %w", t.Name, err)
	}
	return nil
}

// Render returns the CSV text of a table without touching the
// filesystem, for dry-run previews.
func Render(t *table.Table) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return "", fmt.Errorf("failed to encode %s header: %w", t.Name, err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to encode %s row: %w", t.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to encode %s csv: %w", t.Name, err)
	}
	return buf.String(), nil
}
