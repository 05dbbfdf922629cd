package analyzer

import "strings"

// IndexEntry pairs a table name with its free-text index definitions
type IndexEntry struct {
	Table      string `json:"table" yaml:"table"`
	Definition string `json:"indexes" yaml:"indexes"`
}

// Registry is a read-only snapshot of the index registry taken for one call.
// The zero value is an empty registry.
type Registry struct {
	entries []IndexEntry
}

// NewRegistry copies entries so later changes by the caller are not observed
func NewRegistry(entries ...IndexEntry) Registry {
	cp := make([]IndexEntry, len(entries))
	copy(cp, entries)
	return Registry{entries: cp}
}

// Entries returns a copy of the snapshot in insertion order
func (r Registry) Entries() []IndexEntry {
	cp := make([]IndexEntry, len(r.entries))
	copy(cp, r.entries)
	return cp
}

// Len returns the number of entries
func (r Registry) Len() int {
	return len(r.entries)
}

// Lookup returns the first entry whose table matches name case-insensitively
func (r Registry) Lookup(name string) (IndexEntry, bool) {
	for _, e := range r.entries {
		if strings.EqualFold(e.Table, name) {
			return e, true
		}
	}
	return IndexEntry{}, false
}

// HasIndexes reports whether any entry is registered for table
func (r Registry) HasIndexes(table string) bool {
	_, ok := r.Lookup(table)
	return ok
}

// ColumnIsCovered reports whether column occurs as a substring of the index
// definition text of any entry belonging to one of tables. The match is
// purely textual and case-sensitive; it does not parse index columns.
func (r Registry) ColumnIsCovered(column string, tables []string) bool {
	for _, e := range r.entries {
		if !containsFold(tables, e.Table) {
			continue
		}
		if strings.Contains(e.Definition, column) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
