// Package rowmap translates between named records and positional rows
// whose column order is given by a header row that people may edit.
//
// Column names are compared after trimming surrounding whitespace. A field
// without a matching column is not written; a column without a matching
// field is written as an empty cell.
package rowmap

import (
	"sort"
	"strings"
)

// Record maps field names to cell values.
type Record map[string]string

// Aliases maps alternative column titles to field names.
type Aliases map[string]string

// Resolve returns the header with every title trimmed and translated
// through aliases. Positions are preserved so the result indexes the same
// cells as the original header.
func Resolve(header []string, aliases Aliases) []string {
	out := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if field, ok := aliases[name]; ok {
			name = field
		}
		out[i] = name
	}
	return out
}

// ToRow lays rec out in header order. The result always has exactly
// len(header) cells.
func ToRow(header []string, rec Record) []string {
	row := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		row[i] = rec[name]
	}
	return row
}

// FromRow reads row positionally against header. Missing trailing cells
// read as empty and blank header titles are skipped. When a title repeats,
// the first column carrying it wins.
func FromRow(header []string, row []string) Record {
	rec := make(Record, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if _, seen := rec[name]; seen {
			continue
		}
		if i < len(row) {
			rec[name] = row[i]
		} else {
			rec[name] = ""
		}
	}
	return rec
}

// Unmapped returns, sorted, the fields of rec that have no column in
// header. Empty field values count too: the column is what is missing.
func Unmapped(header []string, rec Record) []string {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = struct{}{}
	}
	var missing []string
	for field := range rec {
		if _, ok := present[field]; !ok {
			missing = append(missing, field)
		}
	}
	sort.Strings(missing)
	return missing
}

// Missing returns the names in required that have no column in header,
// in the order given.
func Missing(header []string, required []string) []string {
	var out []string
	for _, field := range required {
		if IndexOf(header, field) < 0 {
			out = append(out, field)
		}
	}
	return out
}

// IndexOf returns the position of the first column titled field, or -1.
func IndexOf(header []string, field string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == field {
			return i
		}
	}
	return -1
}

// IsBlank reports whether every cell of row is empty or whitespace.
func IsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// HasHeader reports whether header names at least one column.
func HasHeader(header []string) bool {
	return !IsBlank(header)
}

// Overflow returns the non-blank cells of row that sit past the last header
// column. Such cells cannot be attributed to any field.
func Overflow(header []string, row []string) []string {
	if len(row) <= len(header) {
		return nil
	}
	var extra []string
	for _, cell := range row[len(header):] {
		if strings.TrimSpace(cell) != "" {
			extra = append(extra, cell)
		}
	}
	return extra
}

// Extend returns header followed by every title in want it does not already
// carry. Existing columns keep their position. The bool is false when
// nothing had to be added.
func Extend(header []string, want []string) ([]string, bool) {
	out := append([]string(nil), header...)
	added := false
	for _, field := range want {
		name := strings.TrimSpace(field)
		if name == "" || IndexOf(out, name) >= 0 {
			continue
		}
		out = append(out, name)
		added = true
	}
	return out, added
}
