package document

import (
	"fmt"

	"github.com/plannr/plannr/blueprint-go/internal/geometry"
	"github.com/plannr/plannr/blueprint-go/internal/typeid"
)

// NewSampleBlueprint returns a small banquet-hall layout: a stage, a dance
// floor, two rows of round tables and a label.
func NewSampleBlueprint(id string) (*Blueprint, error) {
	var shapes []Shape
	add := func(kind ShapeKind, r geometry.Rect, mutate func(*Shape)) error {
		s, err := NewShape(typeid.NewShapeID(), kind, r)
		if err != nil {
			return err
		}
		s.ZIndex = len(shapes)
		if mutate != nil {
			mutate(&s)
		}
		shapes = append(shapes, s)
		return nil
	}

	if err := add(KindRectangle, geometry.Rect{X: 240, Y: 24, Width: 480, Height: 144}, func(s *Shape) {
		s.Fill = "#e5e7eb"
		s.Locked = true
	}); err != nil {
		return nil, err
	}
	if err := add(KindText, geometry.Rect{X: 432, Y: 84, Width: 96, Height: 24}, func(s *Shape) {
		s.Text = "Stage"
	}); err != nil {
		return nil, err
	}
	if err := add(KindPolygon, geometry.Rect{X: 336, Y: 240, Width: 288, Height: 192}, nil); err != nil {
		return nil, err
	}

	for row := 0; row < 2; row++ {
		for col := 0; col < 4; col++ {
			r := geometry.Rect{
				X:      float64(48 + col*240),
				Y:      float64(504 + row*168),
				Width:  96,
				Height: 96,
			}
			if err := add(KindCircle, r, nil); err != nil {
				return nil, err
			}
			label := fmt.Sprintf("Table %d", row*4+col+1)
			lr := geometry.Rect{X: r.X, Y: r.Y + 108, Width: 96, Height: 24}
			if err := add(KindText, lr, func(s *Shape) { s.Text = label }); err != nil {
				return nil, err
			}
		}
	}

	data, err := MarshalShapes(shapes)
	if err != nil {
		return nil, err
	}

	bp := NewBlueprint(id, "Banquet Hall", 80, 72, UnitFeet)
	bp.CanvasData = data
	return bp, nil
}
