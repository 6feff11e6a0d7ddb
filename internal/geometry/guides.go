package geometry

import "math"

type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// Guide is an advisory alignment overlay. Vertical guides carry an x
// position, horizontal guides a y position. From/To are the render extents.
type Guide struct {
	Orientation Orientation `json:"orientation"`
	Kind        string      `json:"kind"` // "edge" or "center"
	Position    float64     `json:"position"`
	From        Point       `json:"from"`
	To          Point       `json:"to"`
}

// AlignmentGuides compares the salient edges of every selected rect with
// those of every other rect and emits a guide wherever two of them are within
// tolerance. Left/right are cross-compared, centers only with centers. The
// guide sits on the other rect's coordinate. Nothing is snapped.
func AlignmentGuides(selected, others []Rect, tolerance float64) []Guide {
	var guides []Guide
	seen := make(map[Guide]bool)
	add := func(g Guide) {
		key := Guide{Orientation: g.Orientation, Kind: g.Kind, Position: g.Position}
		if seen[key] {
			return
		}
		seen[key] = true
		guides = append(guides, g)
	}

	for _, s := range selected {
		sc := s.Center()
		for _, o := range others {
			oc := o.Center()

			for _, sx := range [2]float64{s.X, s.Right()} {
				for _, ox := range [2]float64{o.X, o.Right()} {
					if math.Abs(sx-ox) <= tolerance {
						add(verticalGuide(ox, s, o, "edge"))
					}
				}
			}
			if math.Abs(sc.X-oc.X) <= tolerance {
				add(verticalGuide(oc.X, s, o, "center"))
			}

			for _, sy := range [2]float64{s.Y, s.Bottom()} {
				for _, oy := range [2]float64{o.Y, o.Bottom()} {
					if math.Abs(sy-oy) <= tolerance {
						add(horizontalGuide(oy, s, o, "edge"))
					}
				}
			}
			if math.Abs(sc.Y-oc.Y) <= tolerance {
				add(horizontalGuide(oc.Y, s, o, "center"))
			}
		}
	}
	return guides
}

func verticalGuide(x float64, a, b Rect, kind string) Guide {
	minY := min(a.Y, b.Y)
	maxY := max(a.Bottom(), b.Bottom())
	return Guide{
		Orientation: Vertical,
		Kind:        kind,
		Position:    x,
		From:        Point{x, minY},
		To:          Point{x, maxY},
	}
}

func horizontalGuide(y float64, a, b Rect, kind string) Guide {
	minX := min(a.X, b.X)
	maxX := max(a.Right(), b.Right())
	return Guide{
		Orientation: Horizontal,
		Kind:        kind,
		Position:    y,
		From:        Point{minX, y},
		To:          Point{maxX, y},
	}
}
