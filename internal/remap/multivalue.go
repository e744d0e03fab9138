// Package remap implements the re-identification engine: sequential ID
// allocation, foreign-key propagation, and value-dictionary rewriting over
// in-memory CSV tables. The engine never reads or writes files and never
// prints; callers feed it tables and collect the results.
package remap

import (
	"regexp"
	"strings"
)

// Multi-value cells join several logical values with , ; or |. The
// separator match swallows the whitespace around the delimiter so tokens
// carry only their own content at interior boundaries.
var separatorPattern = regexp.MustCompile(`\s*[,;|]\s*`)

// Split tokenizes a multi-value cell into alternating parts: even indices
// are tokens, odd indices are the literal separators (delimiter plus
// surrounding whitespace) found between them. Join of the parts always
// reproduces the input verbatim. A cell with no recognized delimiter,
// including an empty or whitespace-only cell, is a single token.
func Split(cell string) []string {
	seps := separatorPattern.FindAllStringIndex(cell, -1)
	if len(seps) == 0 {
		return []string{cell}
	}

	parts := make([]string, 0, 2*len(seps)+1)
	prev := 0
	for _, loc := range seps {
		parts = append(parts, cell[prev:loc[0]], cell[loc[0]:loc[1]])
		prev = loc[1]
	}
	parts = append(parts, cell[prev:])
	return parts
}

// Join concatenates parts produced by Split back into a cell.
func Join(parts []string) string {
	return strings.Join(parts, "")
}
