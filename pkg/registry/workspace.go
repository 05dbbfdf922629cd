package registry

import (
	"fmt"
	"strings"
	"sync"

	"go-sqladvisor/pkg/analyzer"
)

// ValidationError reports a table card that cannot be added
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Workspace is the mutable, ordered list of table cards the user edits.
// Analyses never read it directly; they take a Snapshot.
type Workspace struct {
	mu    sync.RWMutex
	cards []analyzer.IndexEntry
}

// NewWorkspace creates a workspace holding the given cards in order
func NewWorkspace(cards ...analyzer.IndexEntry) *Workspace {
	w := &Workspace{}
	for _, c := range cards {
		w.cards = append(w.cards, analyzer.IndexEntry{
			Table:      strings.TrimSpace(c.Table),
			Definition: strings.TrimSpace(c.Definition),
		})
	}
	return w
}

// Add appends a card. A second card for an existing table name is kept as a
// separate entry; lookups resolve to the first one.
func (w *Workspace) Add(table, definitions string) error {
	table = strings.TrimSpace(table)
	definitions = strings.TrimSpace(definitions)
	if table == "" {
		return &ValidationError{Field: "table", Message: "please enter a table name"}
	}
	if definitions == "" {
		return &ValidationError{Field: "indexes", Message: "please enter at least one index definition"}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.cards = append(w.cards, analyzer.IndexEntry{Table: table, Definition: definitions})
	return nil
}

// Remove drops every card for table (case-insensitive) and reports whether any existed
func (w *Workspace) Remove(table string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.cards[:0]
	removed := false
	for _, c := range w.cards {
		if strings.EqualFold(c.Table, strings.TrimSpace(table)) {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	w.cards = kept
	return removed
}

// Replace swaps the whole card list, used when loading a file or the store
func (w *Workspace) Replace(cards []analyzer.IndexEntry) {
	fresh := NewWorkspace(cards...)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.cards = fresh.cards
}

// Tables returns a copy of the cards in insertion order
func (w *Workspace) Tables() []analyzer.IndexEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]analyzer.IndexEntry, len(w.cards))
	copy(out, w.cards)
	return out
}

// Names returns the distinct table names in first-seen order
func (w *Workspace) Names() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var names []string
	seen := make(map[string]bool)
	for _, c := range w.cards {
		key := strings.ToLower(c.Table)
		if !seen[key] {
			seen[key] = true
			names = append(names, c.Table)
		}
	}
	return names
}

func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.cards)
}

func (w *Workspace) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cards = nil
}

// Snapshot returns the immutable registry an analysis call reads
func (w *Workspace) Snapshot() analyzer.Registry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return analyzer.NewRegistry(w.cards...)
}
