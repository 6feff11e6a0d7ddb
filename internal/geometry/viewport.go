package geometry

// ScreenToCanvas maps a screen point into canvas space.
func ScreenToCanvas(screen, origin Point, zoom float64) Point {
	return Point{X: (screen.X - origin.X) / zoom, Y: (screen.Y - origin.Y) / zoom}
}

// CanvasToScreen is the inverse of ScreenToCanvas. With a zero origin it is
// plain canvasPoint * zoom.
func CanvasToScreen(canvas, origin Point, zoom float64) Point {
	return Point{X: canvas.X*zoom + origin.X, Y: canvas.Y*zoom + origin.Y}
}

// Viewport is the pan/zoom state of the canvas view.
type Viewport struct {
	Origin Point   `json:"origin"`
	Zoom   float64 `json:"zoom"`
}

func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

func (v Viewport) ToCanvas(screen Point) Point {
	return ScreenToCanvas(screen, v.Origin, v.zoom())
}

func (v Viewport) ToScreen(canvas Point) Point {
	return CanvasToScreen(canvas, v.Origin, v.zoom())
}

// Matrix returns the canvas-to-screen transform.
func (v Viewport) Matrix() Matrix2D {
	z := v.zoom()
	return Translate(v.Origin.X, v.Origin.Y).Multiply(Scale(z, z))
}

// ScreenRect maps a canvas rect into screen space.
func (v Viewport) ScreenRect(r Rect) Rect {
	return v.Matrix().TransformRect(r)
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}
