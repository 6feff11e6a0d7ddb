package engine

import (
	"encoding/json"
	"hash/fnv"
	"math"

	"github.com/plannr/plannr/blueprint-go/internal/collab"
	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/editor"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "path" or "text"
	Layer       string        `json:"layer"`                 // "grid", "shape" or "overlay"
	ShapeID     string        `json:"shapeId,omitempty"`     // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width in transformed units
	Dash        []float64     `json:"dash,omitempty"`
	Text        string        `json:"text,omitempty"`
	FontSize    float64       `json:"fontSize,omitempty"`
	Width       float64       `json:"width,omitempty"` // Text box size; the text is centered in it
	Height      float64       `json:"height,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []interface{}

const (
	LayerGrid    = "grid"
	LayerShape   = "shape"
	LayerOverlay = "overlay"

	selectionColor = "#3b82f6"
	guideColor     = "#ec4899"
	gridColor      = "#e5e7eb"
)

var cursorPalette = []string{"#ef4444", "#f59e0b", "#10b981", "#06b6d4", "#8b5cf6", "#ec4899"}

// Screen is the size of the drawing surface in pixels. A zero screen
// skips the grid.
type Screen struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CompileDrawCommands turns an editor view into a draw list in painter's
// order: grid, shapes by z-index, then overlays.
func CompileDrawCommands(v editor.View, screen Screen, gridSize float64) []DrawCommand {
	var commands []DrawCommand
	commands = append(commands, compileGrid(v.Viewport, screen, gridSize)...)

	var selected []document.Shape
	for _, s := range v.Shapes {
		if !s.Visible {
			continue
		}
		commands = append(commands, compileShape(v.Viewport, s))
		if s.Selected {
			selected = append(selected, s)
		}
	}

	commands = append(commands, compileSelection(v.Viewport, selected)...)
	if v.Preview != nil {
		commands = append(commands, compilePreview(v.Viewport, *v.Preview))
	}
	for _, g := range v.Guides {
		commands = append(commands, DrawCommand{
			Op:          "path",
			Layer:       LayerOverlay,
			Path:        linePath(v.Viewport.ToScreen(g.From), v.Viewport.ToScreen(g.To)),
			Stroke:      guideColor,
			StrokeWidth: 1,
			Dash:        []float64{4, 4},
		})
	}
	for _, c := range v.Collaborators {
		commands = append(commands, compileCursor(v.Viewport, c)...)
	}
	return commands
}

// shapeTransform maps shape-local coordinates (origin at the top-left
// corner) to the screen, rotating about the shape center.
func shapeTransform(vp geometry.Viewport, s document.Shape) geometry.Matrix2D {
	c := s.Bounds().Center()
	return vp.Matrix().
		Multiply(geometry.RotateAbout(s.Rotation, c.X, c.Y)).
		Multiply(geometry.Translate(s.X, s.Y))
}

func compileShape(vp geometry.Viewport, s document.Shape) DrawCommand {
	m := shapeTransform(vp, s)
	cmd := DrawCommand{
		Op:          "path",
		Layer:       LayerShape,
		ShapeID:     s.ID,
		Transform:   toSlice(m),
		Fill:        s.Fill,
		Stroke:      s.Stroke,
		StrokeWidth: s.StrokeWidth,
	}

	switch s.Kind {
	case document.KindRectangle:
		cmd.Path = rectPath(s.Width, s.Height)
	case document.KindCircle:
		cmd.Path = ellipsePath(s.Width, s.Height)
	case document.KindLine:
		cmd.Path = linePath(geometry.Point{}, geometry.Point{X: s.Width, Y: s.Height})
		cmd.Fill = ""
	case document.KindText:
		cmd.Op = "text"
		cmd.Text = s.Text
		cmd.FontSize = math.Min(math.Max(s.Height*0.6, 6), 72)
		cmd.Width, cmd.Height = s.Width, s.Height
		cmd.Stroke, cmd.StrokeWidth = "", 0
	case document.KindPolygon:
		if len(s.Points) >= 3 {
			cmd.Path = polygonPath(s.Points)
		} else {
			cmd.Path = rectPath(s.Width, s.Height)
		}
	}
	return cmd
}

func compileSelection(vp geometry.Viewport, selected []document.Shape) []DrawCommand {
	var commands []DrawCommand
	for _, s := range selected {
		m := shapeTransform(vp, s)
		corners := []geometry.Point{{}, {X: s.Width}, {X: s.Width, Y: s.Height}, {Y: s.Height}}
		for i, p := range corners {
			corners[i] = m.TransformPoint(p)
		}
		commands = append(commands, DrawCommand{
			Op:          "path",
			Layer:       LayerOverlay,
			ShapeID:     s.ID,
			Path:        polygonPath(corners),
			Stroke:      selectionColor,
			StrokeWidth: 1,
		})
	}

	if len(selected) != 1 || selected[0].Locked {
		return commands
	}
	half := editor.HandleSize / 2
	for _, p := range editor.HandlePoints(selected[0].Bounds()) {
		sp := vp.ToScreen(p)
		commands = append(commands, DrawCommand{
			Op:          "path",
			Layer:       LayerOverlay,
			ShapeID:     selected[0].ID,
			Path:        rectPathAt(sp.X-half, sp.Y-half, editor.HandleSize, editor.HandleSize),
			Fill:        "#ffffff",
			Stroke:      selectionColor,
			StrokeWidth: 1,
		})
	}
	return commands
}

func compilePreview(vp geometry.Viewport, r geometry.Rect) DrawCommand {
	sr := vp.ScreenRect(r)
	return DrawCommand{
		Op:          "path",
		Layer:       LayerOverlay,
		Path:        rectPathAt(sr.X, sr.Y, sr.Width, sr.Height),
		Fill:        "rgba(59,130,246,0.08)",
		Stroke:      selectionColor,
		StrokeWidth: 1,
		Dash:        []float64{6, 4},
	}
}

func compileCursor(vp geometry.Viewport, c collab.Collaborator) []DrawCommand {
	color := CursorColor(c.ID)
	p := vp.ToScreen(c.Cursor)
	return []DrawCommand{
		{
			Op:        "path",
			Layer:     LayerOverlay,
			Transform: toSlice(geometry.Translate(p.X, p.Y)),
			Path: []PathCommand{
				{"M", 0.0, 0.0},
				{"L", 0.0, 16.0},
				{"L", 4.5, 12.0},
				{"L", 11.0, 12.0},
				{"Z"},
			},
			Fill: color,
		},
		{
			Op:        "text",
			Layer:     LayerOverlay,
			Transform: toSlice(geometry.Translate(p.X+12, p.Y+14)),
			Text:      c.DisplayName,
			FontSize:  11,
			Fill:      color,
		},
	}
}

func compileGrid(vp geometry.Viewport, screen Screen, gridSize float64) []DrawCommand {
	if screen.Width <= 0 || screen.Height <= 0 || gridSize <= 0 {
		return nil
	}
	step := gridSize * vp.Zoom
	if step < 4 {
		return nil
	}

	topLeft := vp.ToCanvas(geometry.Point{})
	start := geometry.Point{
		X: math.Floor(topLeft.X/gridSize) * gridSize,
		Y: math.Floor(topLeft.Y/gridSize) * gridSize,
	}
	first := vp.ToScreen(start)

	var path []PathCommand
	for x := first.X; x <= screen.Width; x += step {
		path = append(path, PathCommand{"M", x, 0.0}, PathCommand{"L", x, screen.Height})
	}
	for y := first.Y; y <= screen.Height; y += step {
		path = append(path, PathCommand{"M", 0.0, y}, PathCommand{"L", screen.Width, y})
	}
	return []DrawCommand{{Op: "path", Layer: LayerGrid, Path: path, Stroke: gridColor, StrokeWidth: 1}}
}

func toSlice(m geometry.Matrix2D) []float64 { return m[:] }

func rectPath(w, h float64) []PathCommand {
	return rectPathAt(0, 0, w, h)
}

func rectPathAt(x, y, w, h float64) []PathCommand {
	return []PathCommand{
		{"M", x, y},
		{"L", x + w, y},
		{"L", x + w, y + h},
		{"L", x, y + h},
		{"Z"},
	}
}

// ellipsePath approximates the ellipse inscribed in a w x h box with four
// bezier curves.
func ellipsePath(w, h float64) []PathCommand {
	rx, ry := w/2, h/2
	cx, cy := rx, ry

	// k = 4 * (sqrt(2) - 1) / 3
	k := 0.5522847498
	kx, ky := rx*k, ry*k

	return []PathCommand{
		{"M", cx + rx, cy},
		{"C", cx + rx, cy + ky, cx + kx, cy + ry, cx, cy + ry},
		{"C", cx - kx, cy + ry, cx - rx, cy + ky, cx - rx, cy},
		{"C", cx - rx, cy - ky, cx - kx, cy - ry, cx, cy - ry},
		{"C", cx + kx, cy - ry, cx + rx, cy - ky, cx + rx, cy},
		{"Z"},
	}
}

func linePath(a, b geometry.Point) []PathCommand {
	return []PathCommand{{"M", a.X, a.Y}, {"L", b.X, b.Y}}
}

func polygonPath(pts []geometry.Point) []PathCommand {
	path := make([]PathCommand, 0, len(pts)+1)
	for i, p := range pts {
		op := "L"
		if i == 0 {
			op = "M"
		}
		path = append(path, PathCommand{op, p.X, p.Y})
	}
	return append(path, PathCommand{"Z"})
}

// CursorColor picks a stable color for a collaborator.
func CursorColor(actorID string) string {
	h := fnv.New32a()
	h.Write([]byte(actorID))
	return cursorPalette[h.Sum32()%uint32(len(cursorPalette))]
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
