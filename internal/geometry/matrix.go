package geometry

import "math"

// Matrix2D represents a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

// Scale returns a scale matrix.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// RotateDegrees returns a rotation matrix about the origin.
func RotateDegrees(degrees float64) Matrix2D {
	rad := degrees * math.Pi / 180.0
	cos := math.Cos(rad)
	sin := math.Sin(rad)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// RotateAbout returns a rotation by degrees around (cx, cy).
func RotateAbout(degrees, cx, cy float64) Matrix2D {
	return Translate(cx, cy).Multiply(RotateDegrees(degrees)).Multiply(Translate(-cx, -cy))
}

// Multiply multiplies this matrix by another: result = m * other
// This applies 'other' first, then 'm'.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

// TransformRect transforms a rectangle and returns its axis-aligned bounding box.
func (m Matrix2D) TransformRect(r Rect) Rect {
	corners := [4]Point{
		m.TransformPoint(Point{r.X, r.Y}),
		m.TransformPoint(Point{r.Right(), r.Y}),
		m.TransformPoint(Point{r.Right(), r.Bottom()}),
		m.TransformPoint(Point{r.X, r.Bottom()}),
	}

	minX, minY := corners[0].X, corners[0].Y
	maxX, maxY := minX, minY
	for _, c := range corners[1:] {
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Determinant returns the determinant of the matrix.
func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse of the matrix, or Identity if not invertible.
func (m Matrix2D) Invert() Matrix2D {
	det := m.Determinant()
	if det == 0 {
		return Identity()
	}

	invDet := 1.0 / det
	return Matrix2D{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}
}

// RotatedBounds is the axis-aligned box of r rotated by degrees about its center.
func RotatedBounds(r Rect, degrees float64) Rect {
	if math.Mod(degrees, 360) == 0 {
		return r
	}
	c := r.Center()
	return RotateAbout(degrees, c.X, c.Y).TransformRect(r)
}

// NormalizeDegrees folds an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
