package export

import (
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

// PNG rasterizes bp at opts.Scale pixels per document unit.
func PNG(w io.Writer, bp *document.Blueprint, opts Options) error {
	shapes, l, err := prepare(bp, opts)
	if err != nil {
		return err
	}

	width, height := int(math.Ceil(l.width())), int(math.Ceil(l.height()))
	if width <= 0 || height <= 0 {
		return ErrEmpty
	}
	if width*height > maxPixels {
		return fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, width, height)
	}

	dc := gg.NewContext(width, height)
	if bg, ok := ParseColor(opts.Background); ok {
		dc.SetColor(bg)
		dc.Clear()
	}

	if err := drawAll(&rasterSurface{dc: dc}, l, shapes, opts.GridSize); err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

type rasterSurface struct {
	dc *gg.Context
}

func (s *rasterSurface) begin(degrees float64, c geometry.Point) {
	s.dc.Push()
	if degrees != 0 {
		s.dc.RotateAbout(gg.Radians(degrees), c.X, c.Y)
	}
}

func (s *rasterSurface) end() { s.dc.Pop() }

func (s *rasterSurface) finish(p paint, closed bool) {
	if closed && p.hasFill {
		s.dc.SetColor(p.fill)
		s.dc.FillPreserve()
	}
	if p.hasStroke {
		s.dc.SetColor(p.stroke)
		s.dc.SetLineWidth(p.width)
		s.dc.StrokePreserve()
	}
	s.dc.ClearPath()
}

func (s *rasterSurface) rect(r geometry.Rect, p paint) {
	s.dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	s.finish(p, true)
}

func (s *rasterSurface) ellipse(r geometry.Rect, p paint) {
	c := r.Center()
	s.dc.DrawEllipse(c.X, c.Y, r.Width/2, r.Height/2)
	s.finish(p, true)
}

func (s *rasterSurface) line(a, b geometry.Point, p paint) {
	s.dc.DrawLine(a.X, a.Y, b.X, b.Y)
	s.finish(p, false)
}

func (s *rasterSurface) polygon(pts []geometry.Point, p paint) {
	s.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, pt := range pts[1:] {
		s.dc.LineTo(pt.X, pt.Y)
	}
	s.dc.ClosePath()
	s.finish(p, true)
}

func (s *rasterSurface) text(str string, r geometry.Rect, p paint) {
	if str == "" || !p.hasFill {
		return
	}
	c := r.Center()
	s.dc.SetColor(p.fill)
	s.dc.DrawStringAnchored(str, c.X, c.Y, 0.5, 0.5)
}
