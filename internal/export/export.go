// Package export renders a blueprint to PNG and PDF.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrTooLarge      = errors.New("export too large")
	ErrEmpty         = errors.New("nothing to export")
)

const maxPixels = 8192 * 8192

type Options struct {
	// Scale is output units (pixels or points) per document unit.
	Scale float64
	// Margin is added around the drawing, in document units.
	Margin     float64
	Background string
	// Grid draws a line every GridSize document units; zero disables it.
	GridSize float64
}

func DefaultOptions() Options {
	return Options{Scale: 1, Margin: 24, Background: "#ffffff", GridSize: 12}
}

// Render writes bp in the given format.
func Render(w io.Writer, bp *document.Blueprint, format Format, opts Options) error {
	switch format {
	case FormatPNG:
		return PNG(w, bp, opts)
	case FormatPDF:
		return PDF(w, bp, opts)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// layout maps document coordinates onto the output surface.
type layout struct {
	extent geometry.Rect
	scale  float64
	margin float64
}

func (l layout) width() float64  { return (l.extent.Width + 2*l.margin) * l.scale }
func (l layout) height() float64 { return (l.extent.Height + 2*l.margin) * l.scale }

func (l layout) point(p geometry.Point) geometry.Point {
	return geometry.Point{
		X: (p.X - l.extent.X + l.margin) * l.scale,
		Y: (p.Y - l.extent.Y + l.margin) * l.scale,
	}
}

func (l layout) rect(r geometry.Rect) geometry.Rect {
	o := l.point(geometry.Point{X: r.X, Y: r.Y})
	return geometry.Rect{X: o.X, Y: o.Y, Width: r.Width * l.scale, Height: r.Height * l.scale}
}

// prepare decodes the canvas and returns the visible shapes in paint order
// together with the output layout.
func prepare(bp *document.Blueprint, opts Options) ([]document.Shape, layout, error) {
	shapes, err := bp.Shapes()
	if err != nil {
		return nil, layout{}, fmt.Errorf("decode canvas: %w", err)
	}

	w, h := bp.Width, bp.Height
	if bp.Unit == document.UnitFeet {
		w, h = geometry.ToInches(w), geometry.ToInches(h)
	}
	extent := geometry.Rect{Width: w, Height: h}

	visible := shapes[:0]
	for _, s := range shapes {
		if !s.Visible {
			continue
		}
		visible = append(visible, s)
		extent = extent.Union(geometry.RotatedBounds(s.Bounds(), s.Rotation))
	}
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].ZIndex < visible[j].ZIndex })

	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	return visible, layout{extent: extent, scale: opts.Scale, margin: max(opts.Margin, 0)}, nil
}

type paint struct {
	fill, stroke       color.NRGBA
	hasFill, hasStroke bool
	width              float64
}

func paintOf(s document.Shape, scale float64) paint {
	p := paint{width: s.StrokeWidth * scale}
	p.fill, p.hasFill = ParseColor(s.Fill)
	p.stroke, p.hasStroke = ParseColor(s.Stroke)
	if p.width <= 0 {
		p.hasStroke = false
	}
	return p
}

// surface is one output backend. Coordinates are already in output space;
// rotation is applied by the surface between begin and end.
type surface interface {
	begin(degrees float64, center geometry.Point)
	end()
	rect(r geometry.Rect, p paint)
	ellipse(r geometry.Rect, p paint)
	line(a, b geometry.Point, p paint)
	polygon(pts []geometry.Point, p paint)
	text(s string, r geometry.Rect, p paint)
}

func drawGrid(sf surface, l layout, spacing float64, c color.NRGBA) {
	if spacing <= 0 {
		return
	}
	p := paint{stroke: c, hasStroke: true, width: 0.5}
	r := l.extent
	for x := geometry.SnapToGrid(r.X, spacing); x <= r.Right(); x += spacing {
		sf.line(l.point(geometry.Point{X: x, Y: r.Y}), l.point(geometry.Point{X: x, Y: r.Bottom()}), p)
	}
	for y := geometry.SnapToGrid(r.Y, spacing); y <= r.Bottom(); y += spacing {
		sf.line(l.point(geometry.Point{X: r.X, Y: y}), l.point(geometry.Point{X: r.Right(), Y: y}), p)
	}
}

func drawShape(sf surface, l layout, s document.Shape) error {
	box := l.rect(s.Bounds())
	p := paintOf(s, l.scale)

	sf.begin(s.Rotation, box.Center())
	defer sf.end()

	switch s.Kind {
	case document.KindRectangle:
		sf.rect(box, p)
	case document.KindCircle:
		sf.ellipse(box, p)
	case document.KindLine:
		sf.line(geometry.Point{X: box.X, Y: box.Y}, geometry.Point{X: box.Right(), Y: box.Bottom()}, p)
	case document.KindText:
		sf.text(s.Text, box, p)
	case document.KindPolygon:
		if len(s.Points) < 3 {
			sf.rect(box, p)
			break
		}
		pts := make([]geometry.Point, len(s.Points))
		for i, pt := range s.Points {
			pts[i] = l.point(s.Origin().Add(pt))
		}
		sf.polygon(pts, p)
	default:
		return fmt.Errorf("shape %q: %w: %q", s.ID, document.ErrUnknownKind, s.Kind)
	}
	return nil
}

func drawAll(sf surface, l layout, shapes []document.Shape, gridSize float64) error {
	drawGrid(sf, l, gridSize, color.NRGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff})
	for _, s := range shapes {
		if err := drawShape(sf, l, s); err != nil {
			return err
		}
	}
	return nil
}

// ParseColor reads #rgb, #rrggbb and #rrggbbaa colors. Empty, "none" and
// "transparent" report false.
func ParseColor(s string) (color.NRGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none", "transparent":
		return color.NRGBA{}, false
	case "black":
		return color.NRGBA{A: 0xff}, true
	case "white":
		return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, true
	}

	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.NRGBA{}, false
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return c, c.A > 0
}
