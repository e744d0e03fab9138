package remap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoInput is returned when every supplied table is empty: there is
// nothing to allocate and nothing to write.
var ErrNoInput = errors.New("no rows found in inputs")

// MissingColumnError reports a table whose header lacks a required
// identifier column. Structural: the run aborts with no output.
type MissingColumnError struct {
	Table   string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Columns) == 1 {
		return fmt.Sprintf("%s: required column %q not found in header", e.Table, e.Columns[0])
	}
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf("%s: none of the required columns %s found in header", e.Table, strings.Join(quoted, ", "))
}
