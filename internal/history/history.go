// Package history keeps a linear undo/redo stack of full shape-list snapshots.
package history

import "github.com/plannr/plannr/blueprint-go/internal/document"

// Entry is one committed snapshot. Entries are never mutated after creation.
type Entry struct {
	Shapes []document.Shape
}

// Manager is a linear stack plus a pointer to the current entry.
type Manager struct {
	entries []Entry
	index   int
	limit   int
}

// New starts a history whose first entry is initial. limit caps the number
// of retained entries; zero means unbounded.
func New(initial []document.Shape, limit int) *Manager {
	return &Manager{
		entries: []Entry{{Shapes: document.CloneShapes(initial)}},
		limit:   limit,
	}
}

// Commit drops any redo branch after the pointer, appends a copy of shapes
// and advances the pointer.
func (m *Manager) Commit(shapes []document.Shape) {
	m.entries = append(m.entries[:m.index+1], Entry{Shapes: document.CloneShapes(shapes)})
	m.index++

	if m.limit > 0 && len(m.entries) > m.limit {
		drop := len(m.entries) - m.limit
		m.entries = append([]Entry(nil), m.entries[drop:]...)
		m.index -= drop
	}
}

// Undo steps back and returns a copy of that snapshot. At the start of
// history it returns false.
func (m *Manager) Undo() ([]document.Shape, bool) {
	if m.index == 0 {
		return nil, false
	}
	m.index--
	return document.CloneShapes(m.entries[m.index].Shapes), true
}

// Redo steps forward and returns a copy of that snapshot. At the end of
// history it returns false.
func (m *Manager) Redo() ([]document.Shape, bool) {
	if m.index >= len(m.entries)-1 {
		return nil, false
	}
	m.index++
	return document.CloneShapes(m.entries[m.index].Shapes), true
}

func (m *Manager) CanUndo() bool { return m.index > 0 }
func (m *Manager) CanRedo() bool { return m.index < len(m.entries)-1 }
func (m *Manager) Len() int      { return len(m.entries) }
func (m *Manager) Index() int    { return m.index }
