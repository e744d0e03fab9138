package remap

import (
	"strings"
)

// ValueMap translates a closed vocabulary of old values (product IDs,
// gateway IDs) to new ones. Lookups are exact or trim-only; values are
// never lowercased because the IDs can be case-sensitive.
type ValueMap map[string]string

// NewValueMap builds a ValueMap from raw configuration entries, trimming
// keys and values. Nil input yields an empty map, which maps nothing.
func NewValueMap(entries map[string]string) ValueMap {
	m := make(ValueMap, len(entries))
	for k, v := range entries {
		m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return m
}

// MapValue maps a single scalar value. It tries the raw string first,
// then the trimmed string with the surrounding whitespace reattached
// around the replacement. Unknown values pass through unchanged; the
// second return reports whether a substitution happened.
func (m ValueMap) MapValue(raw string) (string, bool) {
	if len(m) == 0 {
		return raw, false
	}
	if mapped, ok := m[raw]; ok {
		return mapped, true
	}

	trimmed := strings.TrimSpace(raw)
	if mapped, ok := m[trimmed]; ok {
		lead := raw[:strings.Index(raw, trimmed)]
		trail := raw[len(lead)+len(trimmed):]
		return lead + mapped + trail, true
	}
	return raw, false
}

// MapCell maps every token of a possibly multi-value cell, keeping the
// original separators and spacing. Tokens that are empty after trimming
// are left alone. The second return reports whether any token changed.
func (m ValueMap) MapCell(cell string) (string, bool) {
	if cell == "" || len(m) == 0 {
		return cell, false
	}

	parts := Split(cell)
	changed := false
	for i := 0; i < len(parts); i += 2 {
		if strings.TrimSpace(parts[i]) == "" {
			continue
		}
		if mapped, ok := m.MapValue(parts[i]); ok {
			parts[i] = mapped
			changed = true
		}
	}
	if !changed {
		return cell, false
	}
	return Join(parts), true
}

// UnmappedTokens returns the trimmed tokens of a cell that have no entry
// in the map, for reporting mapping-table gaps. Empty tokens are skipped.
func (m ValueMap) UnmappedTokens(cell string) []string {
	var missing []string
	parts := Split(cell)
	for i := 0; i < len(parts); i += 2 {
		tok := strings.TrimSpace(parts[i])
		if tok == "" {
			continue
		}
		if _, ok := m[tok]; !ok {
			missing = append(missing, tok)
		}
	}
	return missing
}
