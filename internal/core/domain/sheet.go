package domain

import "strings"

// Sheet is a collection snapshot: the header row followed by data rows in
// append order. Rows may be shorter than the header.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// SchemaDriftWarning names record fields that had no matching column and
// were therefore not persisted.
type SchemaDriftWarning struct {
	Collection string   `json:"collection"`
	Fields     []string `json:"fields"`
}

func (w SchemaDriftWarning) String() string {
	return "collection " + w.Collection + " has no column for: " + strings.Join(w.Fields, ", ")
}
