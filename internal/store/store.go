package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

var ErrShapeNotFound = errors.New("shape not found")

// Store is the ordered shape list of one document. It is owned by a single
// editor and is not safe for concurrent use.
type Store struct {
	shapes []document.Shape
	nextZ  int
}

// New creates a store seeded with a copy of shapes.
func New(shapes []document.Shape) *Store {
	s := &Store{}
	s.Replace(shapes)
	return s
}

// Shapes returns a deep copy of the list in insertion order.
func (s *Store) Shapes() []document.Shape {
	return document.CloneShapes(s.shapes)
}

// Painted returns a deep copy in paint order (ascending zIndex).
func (s *Store) Painted() []document.Shape {
	out := s.Shapes()
	slices.SortStableFunc(out, func(a, b document.Shape) int {
		return a.ZIndex - b.ZIndex
	})
	return out
}

func (s *Store) Len() int { return len(s.shapes) }

func (s *Store) Get(id string) (document.Shape, bool) {
	i := s.index(id)
	if i < 0 {
		return document.Shape{}, false
	}
	return s.shapes[i].Clone(), true
}

// Add appends a shape and assigns the next zIndex in creation sequence.
func (s *Store) Add(shape document.Shape) (document.Shape, error) {
	if !shape.Kind.Valid() {
		return document.Shape{}, fmt.Errorf("add shape %q: %w", shape.ID, document.ErrUnknownKind)
	}
	if shape.ID == "" {
		return document.Shape{}, errors.New("add shape: missing id")
	}
	if s.index(shape.ID) >= 0 {
		return document.Shape{}, fmt.Errorf("add shape: duplicate id %q", shape.ID)
	}

	shape = shape.Clone()
	shape.Normalize()
	shape.ZIndex = s.nextZ
	s.nextZ++
	s.shapes = append(s.shapes, shape)
	return shape.Clone(), nil
}

// Update mutates one shape in place. The id and kind cannot be changed and
// the result is normalized.
func (s *Store) Update(id string, fn func(*document.Shape)) (document.Shape, error) {
	i := s.index(id)
	if i < 0 {
		return document.Shape{}, fmt.Errorf("update %q: %w", id, ErrShapeNotFound)
	}

	cur := &s.shapes[i]
	kind := cur.Kind
	fn(cur)
	cur.ID = id
	cur.Kind = kind
	cur.Normalize()
	return cur.Clone(), nil
}

// Delete removes the given ids and returns how many were found.
func (s *Store) Delete(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	before := len(s.shapes)
	s.shapes = slices.DeleteFunc(s.shapes, func(sh document.Shape) bool {
		return drop[sh.ID]
	})
	return before - len(s.shapes)
}

// Replace swaps the whole list. The zIndex counter moves past the highest
// value so new shapes still paint on top.
func (s *Store) Replace(shapes []document.Shape) {
	s.shapes = document.CloneShapes(shapes)
	next := 0
	for _, sh := range s.shapes {
		if sh.ZIndex >= next {
			next = sh.ZIndex + 1
		}
	}
	s.nextZ = max(next, s.nextZ)
}

// Select marks ids as selected. Without extend the previous selection is
// cleared first.
func (s *Store) Select(ids []string, extend bool) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range s.shapes {
		if want[s.shapes[i].ID] {
			s.shapes[i].Selected = true
		} else if !extend {
			s.shapes[i].Selected = false
		}
	}
}

func (s *Store) SelectOnly(id string) { s.Select([]string{id}, false) }

func (s *Store) ClearSelection() { s.Select(nil, false) }

// Toggle flips the selected flag of one shape.
func (s *Store) Toggle(id string) {
	if i := s.index(id); i >= 0 {
		s.shapes[i].Selected = !s.shapes[i].Selected
	}
}

func (s *Store) SelectedIDs() []string {
	var ids []string
	for _, sh := range s.shapes {
		if sh.Selected {
			ids = append(ids, sh.ID)
		}
	}
	return ids
}

func (s *Store) Selected() []document.Shape {
	var out []document.Shape
	for _, sh := range s.shapes {
		if sh.Selected {
			out = append(out, sh.Clone())
		}
	}
	return out
}

// HitTest returns the topmost visible shape whose un-rotated bounding box
// contains p. Rotation is deliberately not taken into account.
func (s *Store) HitTest(p geometry.Point) (document.Shape, bool) {
	best := -1
	for i, sh := range s.shapes {
		if !sh.Visible || !hit(sh, p) {
			continue
		}
		if best < 0 || sh.ZIndex >= s.shapes[best].ZIndex {
			best = i
		}
	}
	if best < 0 {
		return document.Shape{}, false
	}
	return s.shapes[best].Clone(), true
}

func hit(sh document.Shape, p geometry.Point) bool {
	switch sh.Kind {
	case document.KindRectangle, document.KindCircle, document.KindLine,
		document.KindText, document.KindPolygon:
		return sh.Bounds().Contains(p)
	default:
		return false
	}
}

// ContainedIn returns the ids of visible shapes fully inside r.
func (s *Store) ContainedIn(r geometry.Rect) []string {
	var ids []string
	for _, sh := range s.shapes {
		if sh.Visible && r.ContainsRect(sh.Bounds()) {
			ids = append(ids, sh.ID)
		}
	}
	return ids
}

// BringToFront gives id the highest zIndex.
func (s *Store) BringToFront(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("bring to front %q: %w", id, ErrShapeNotFound)
	}
	s.shapes[i].ZIndex = s.nextZ
	s.nextZ++
	return nil
}

// SendToBack gives id a zIndex below every other shape.
func (s *Store) SendToBack(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("send to back %q: %w", id, ErrShapeNotFound)
	}
	lowest := s.shapes[i].ZIndex
	for _, sh := range s.shapes {
		lowest = min(lowest, sh.ZIndex)
	}
	s.shapes[i].ZIndex = lowest - 1
	return nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.shapes, func(sh document.Shape) bool {
		return sh.ID == id
	})
}
