package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

var (
	ErrUnknownKind = errors.New("unknown shape kind")
	// ErrNotFound is returned by blueprint stores for a missing id.
	ErrNotFound = errors.New("blueprint not found")
)

// ShapeKind is the discriminant of a shape. It is fixed at creation.
type ShapeKind string

const (
	KindRectangle ShapeKind = "rectangle"
	KindCircle    ShapeKind = "circle"
	KindLine      ShapeKind = "line"
	KindText      ShapeKind = "text"
	KindPolygon   ShapeKind = "polygon"
)

// Kinds lists every shape kind in declaration order.
var Kinds = []ShapeKind{KindRectangle, KindCircle, KindLine, KindText, KindPolygon}

func (k ShapeKind) Valid() bool {
	switch k {
	case KindRectangle, KindCircle, KindLine, KindText, KindPolygon:
		return true
	default:
		return false
	}
}

// Geometry is the shared placement payload. X/Y is the top-left corner in
// document units, rotation is in degrees about the center.
type Geometry struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

type Shape struct {
	ID   string    `json:"id"`
	Kind ShapeKind `json:"type"`
	Geometry
	Style
	Text   string           `json:"text,omitempty"`
	Points []geometry.Point `json:"points,omitempty"`

	// Selected is local UI state and is stripped by ForWire.
	Selected bool `json:"selected,omitempty"`
	Locked   bool `json:"locked"`
	Visible  bool `json:"visible"`
	ZIndex   int  `json:"zIndex"`
}

// NewShape builds a visible shape of kind covering rect with the kind's
// default style.
func NewShape(id string, kind ShapeKind, rect geometry.Rect) (Shape, error) {
	s := Shape{
		ID:      id,
		Kind:    kind,
		Visible: true,
		Geometry: Geometry{
			X:      rect.X,
			Y:      rect.Y,
			Width:  rect.Width,
			Height: rect.Height,
		},
	}

	switch kind {
	case KindRectangle:
		s.Style = Style{Fill: "#dbeafe", Stroke: "#1e40af", StrokeWidth: 2}
	case KindCircle:
		s.Style = Style{Fill: "#dcfce7", Stroke: "#166534", StrokeWidth: 2}
	case KindLine:
		s.Style = Style{Fill: "transparent", Stroke: "#111827", StrokeWidth: 2}
	case KindText:
		s.Style = Style{Fill: "#111827", Stroke: "transparent", StrokeWidth: 0}
		s.Text = "Text"
	case KindPolygon:
		s.Style = Style{Fill: "#fef3c7", Stroke: "#92400e", StrokeWidth: 2}
	default:
		return Shape{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s, nil
}

// Bounds is the un-rotated axis-aligned box of the shape.
func (s Shape) Bounds() geometry.Rect {
	return geometry.Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// Origin is the top-left corner.
func (s Shape) Origin() geometry.Point {
	return geometry.Point{X: s.X, Y: s.Y}
}

// Normalize enforces the record invariants: non-negative size, strokeWidth
// >= 0, rotation in [0,360) and text only on text shapes.
func (s *Shape) Normalize() {
	s.Width = max(s.Width, 0)
	s.Height = max(s.Height, 0)
	s.StrokeWidth = max(s.StrokeWidth, 0)
	s.Rotation = geometry.NormalizeDegrees(s.Rotation)
	if s.Kind != KindText {
		s.Text = ""
	}
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	if s.Points != nil {
		pts := make([]geometry.Point, len(s.Points))
		copy(pts, s.Points)
		s.Points = pts
	}
	return s
}

// CloneShapes deep-copies a shape list. A nil list clones to an empty one.
func CloneShapes(shapes []Shape) []Shape {
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Clone()
	}
	return out
}

// ForWire clones shapes and clears the local-only selected flag.
func ForWire(shapes []Shape) []Shape {
	out := CloneShapes(shapes)
	for i := range out {
		out[i].Selected = false
	}
	return out
}

type Unit string

const (
	UnitFeet   Unit = "feet"
	UnitInches Unit = "inches"
)

func (u Unit) Valid() bool {
	return u == UnitFeet || u == UnitInches
}

// Blueprint is the persisted document record. CanvasData holds the JSON
// shape list and is opaque to storage.
type Blueprint struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Unit       Unit            `json:"unit"`
	CanvasData json.RawMessage `json:"canvas_data"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Shapes decodes CanvasData. An empty payload is an empty document.
func (b *Blueprint) Shapes() ([]Shape, error) {
	return UnmarshalShapes(b.CanvasData)
}

// NewBlueprint creates an empty blueprint with real-world dimensions.
func NewBlueprint(id, name string, width, height float64, unit Unit) *Blueprint {
	if !unit.Valid() {
		unit = UnitFeet
	}
	return &Blueprint{
		ID:         id,
		Name:       name,
		Width:      width,
		Height:     height,
		Unit:       unit,
		CanvasData: json.RawMessage(`[]`),
		UpdatedAt:  time.Now().UTC(),
	}
}
