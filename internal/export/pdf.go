package export

import (
	"fmt"
	"image/color"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

// PDF writes bp as a single page sized to the drawing, opts.Scale points
// per document unit.
func PDF(w io.Writer, bp *document.Blueprint, opts Options) error {
	shapes, l, err := prepare(bp, opts)
	if err != nil {
		return err
	}

	orientation := "P"
	if l.width() > l.height() {
		orientation = "L"
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: l.width(), Ht: l.height()},
	})
	pdf.SetTitle(bp.Name, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	if bg, ok := ParseColor(opts.Background); ok {
		pdf.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
		pdf.Rect(0, 0, l.width(), l.height(), "F")
	}

	if err := drawAll(&pdfSurface{pdf: pdf}, l, shapes, opts.GridSize); err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type pdfSurface struct {
	pdf *gofpdf.Fpdf
}

func (s *pdfSurface) begin(degrees float64, c geometry.Point) {
	s.pdf.TransformBegin()
	if degrees != 0 {
		// gofpdf turns counter-clockwise; document rotation is clockwise.
		s.pdf.TransformRotate(-degrees, c.X, c.Y)
	}
}

func (s *pdfSurface) end() { s.pdf.TransformEnd() }

// style sets colors and returns the gofpdf style string, empty when there is
// nothing to paint.
func (s *pdfSurface) style(p paint, closed bool) string {
	out := ""
	if closed && p.hasFill {
		s.pdf.SetFillColor(int(p.fill.R), int(p.fill.G), int(p.fill.B))
		out += "F"
	}
	if p.hasStroke {
		s.pdf.SetDrawColor(int(p.stroke.R), int(p.stroke.G), int(p.stroke.B))
		s.pdf.SetLineWidth(p.width)
		out += "D"
	}
	return out
}

func (s *pdfSurface) rect(r geometry.Rect, p paint) {
	if st := s.style(p, true); st != "" {
		s.pdf.Rect(r.X, r.Y, r.Width, r.Height, st)
	}
}

func (s *pdfSurface) ellipse(r geometry.Rect, p paint) {
	if st := s.style(p, true); st != "" {
		c := r.Center()
		s.pdf.Ellipse(c.X, c.Y, r.Width/2, r.Height/2, 0, st)
	}
}

func (s *pdfSurface) line(a, b geometry.Point, p paint) {
	if s.style(p, false) != "" {
		s.pdf.Line(a.X, a.Y, b.X, b.Y)
	}
}

func (s *pdfSurface) polygon(pts []geometry.Point, p paint) {
	st := s.style(p, true)
	if st == "" {
		return
	}
	out := make([]gofpdf.PointType, len(pts))
	for i, pt := range pts {
		out[i] = gofpdf.PointType{X: pt.X, Y: pt.Y}
	}
	s.pdf.Polygon(out, st)
}

func (s *pdfSurface) text(str string, r geometry.Rect, p paint) {
	if str == "" || !p.hasFill {
		return
	}
	size := min(max(r.Height*0.6, 6), 72)
	s.pdf.SetFont("Helvetica", "", size)
	setTextColor(s.pdf, p.fill)
	c := r.Center()
	s.pdf.Text(c.X-s.pdf.GetStringWidth(str)/2, c.Y+size*0.35, str)
}

func setTextColor(pdf *gofpdf.Fpdf, c color.NRGBA) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}
