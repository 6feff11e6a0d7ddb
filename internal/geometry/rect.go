package geometry

import "math"

// Point is a position in either screen or canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(o Point) Point     { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point     { return Point{X: p.X - o.X, Y: p.Y - o.Y} }
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints returns the rect spanned by two corners in any order.
func RectFromPoints(a, b Point) Rect {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains checks if a point is inside the rect, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// ContainsRect reports whether other lies fully inside r.
func (r Rect) ContainsRect(other Rect) bool {
	return other.X >= r.X && other.Right() <= r.Right() &&
		other.Y >= r.Y && other.Bottom() <= r.Bottom()
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.Right(), other.Right())
	maxY := max(r.Bottom(), other.Bottom())

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Overlap is the separating-axis test for two axis-aligned rects: true iff
// their projections overlap on both axes. Touching edges count as overlap.
func Overlap(a, b Rect) bool {
	return a.X <= b.Right() && b.X <= a.Right() &&
		a.Y <= b.Bottom() && b.Y <= a.Bottom()
}

// Distance is the euclidean distance between two points.
func Distance(p1, p2 Point) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}

// SnapToGrid rounds value to the nearest multiple of gridSize.
func SnapToGrid(value, gridSize float64) float64 {
	if gridSize <= 0 {
		return value
	}
	return math.Round(value/gridSize) * gridSize
}
