package remap

import (
	"strings"

	"github.com/mberg/mpmigrate/internal/table"
)

// protectedColumns are never touched by any remapping step. subscr_id is
// the payment processor's own subscription identifier; rewriting it would
// sever the link to the external system.
var protectedColumns = map[string]bool{"subscr_id": true}

// Cap on how many distinct unmapped values are sampled per category, to
// keep the run summary readable on large exports.
const maxUnmappedSamples = 20

// ForeignKey names a column whose values reference another table's
// primary identifiers through the given map.
type ForeignKey struct {
	Column string
	Ref    IDMap
}

// Spec configures one table's pipeline pass.
type Spec struct {
	// IDColumns lists accepted primary-identifier column names in order
	// of preference; the first one present in the header wins.
	IDColumns []string
	// Start is the first new identifier to assign.
	Start int

	ForeignKeys    []ForeignKey
	ProductColumns []string
	GatewayColumns []string
}

// TableResult summarizes one table's pass for the caller's report.
type TableResult struct {
	Rows  int
	Start int
	IDs   IDMap

	// ChangedRows counts rows where at least one product or gateway
	// value was substituted.
	ChangedRows int
	// UnmappedRefs counts foreign-key cells left unchanged because the
	// referenced table never owned that identifier.
	UnmappedRefs int
	// Distinct values seen in configured columns with no mapping entry,
	// capped at maxUnmappedSamples each.
	UnmappedProducts []string
	UnmappedGateways []string
}

// RunTable applies one full pipeline pass to t, in place: primary-key
// reassignment, foreign-key propagation, and product/gateway value
// rewriting. Every other column passes through untouched, and header and
// row order are preserved by construction since only cells are written.
func RunTable(t *table.Table, spec Spec, products, gateways ValueMap) (*TableResult, error) {
	idCol := -1
	for _, name := range spec.IDColumns {
		if i, ok := t.Column(name); ok {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, &MissingColumnError{Table: t.Name, Columns: spec.IDColumns}
	}

	ids, err := BuildIDMap(t, t.Header[idCol], spec.Start)
	if err != nil {
		return nil, err
	}

	res := &TableResult{Rows: t.Len(), Start: spec.Start, IDs: ids}

	for _, row := range t.Rows {
		if mapped, ok := ids.Lookup(row[idCol]); ok {
			row[idCol] = mapped
		}
	}

	for _, fk := range spec.ForeignKeys {
		col, ok := t.Column(fk.Column)
		if !ok || protectedColumns[fk.Column] {
			continue
		}
		for _, row := range t.Rows {
			if mapped, ok := fk.Ref.Lookup(row[col]); ok {
				row[col] = mapped
			} else if strings.TrimSpace(row[col]) != "" {
				res.UnmappedRefs++
			}
		}
	}

	res.UnmappedProducts = mapColumns(t, spec.ProductColumns, products, &res.ChangedRows)
	res.UnmappedGateways = mapColumns(t, spec.GatewayColumns, gateways, &res.ChangedRows)

	return res, nil
}

// mapColumns rewrites the named columns through vm and returns a sample
// of values that had no mapping entry. Columns absent from the header and
// protected columns are skipped.
func mapColumns(t *table.Table, columns []string, vm ValueMap, changedRows *int) []string {
	if len(columns) == 0 || len(vm) == 0 {
		return nil
	}

	var cols []int
	for _, name := range columns {
		if protectedColumns[name] {
			continue
		}
		if i, ok := t.Column(name); ok {
			cols = append(cols, i)
		}
	}
	if len(cols) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var samples []string
	for _, row := range t.Rows {
		rowChanged := false
		for _, col := range cols {
			cell := row[col]
			if cell == "" {
				continue
			}
			mapped, changed := vm.MapCell(cell)
			if changed {
				row[col] = mapped
				rowChanged = true
				continue
			}
			for _, tok := range vm.UnmappedTokens(cell) {
				if len(samples) >= maxUnmappedSamples {
					break
				}
				if !seen[tok] {
					seen[tok] = true
					samples = append(samples, tok)
				}
			}
		}
		if rowChanged {
			*changedRows++
		}
	}
	return samples
}
