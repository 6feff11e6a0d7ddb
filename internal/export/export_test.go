package export

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

func solid(t *testing.T, id string, r geometry.Rect, fill string, z int) document.Shape {
	t.Helper()
	s, err := document.NewShape(id, document.KindRectangle, r)
	require.NoError(t, err)
	s.Fill = fill
	s.StrokeWidth = 0
	s.ZIndex = z
	return s
}

func blueprintWith(t *testing.T, shapes ...document.Shape) *document.Blueprint {
	t.Helper()
	bp := document.NewBlueprint("bp1", "Hall", 10, 10, document.UnitFeet)
	data, err := document.MarshalShapes(shapes)
	require.NoError(t, err)
	bp.CanvasData = data
	return bp
}

func TestPNG(t *testing.T) {
	green := solid(t, "green", geometry.Rect{X: 30, Y: 30, Width: 20, Height: 20}, "#00ff00", 1)
	red := solid(t, "red", geometry.Rect{X: 10, Y: 10, Width: 40, Height: 40}, "#f00", 0)
	hidden := solid(t, "hidden", geometry.Rect{X: 10, Y: 10, Width: 40, Height: 40}, "#0000ff", 5)
	hidden.Visible = false
	turned := solid(t, "turned", geometry.Rect{X: 60, Y: 20, Width: 40, Height: 10}, "#000000", 2)
	turned.Rotation = 90

	var buf bytes.Buffer
	err := PNG(&buf, blueprintWith(t, green, red, hidden, turned), Options{Scale: 1, Margin: 10, Background: "#ffffff"})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 140, img.Bounds().Dx(), "120in canvas plus margins")
	assert.Equal(t, 140, img.Bounds().Dy())

	at := func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	assert.Equal(t, white, at(5, 5), "background")
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, at(30, 30), "hidden shape is not painted")
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, at(50, 50), "higher z paints on top")
	assert.Equal(t, color.NRGBA{A: 255}, at(90, 50), "rotated shape covers its turned area")
	assert.Equal(t, white, at(105, 35), "rotated shape leaves its unrotated area")
}

func TestPDF(t *testing.T) {
	bp, err := document.NewSampleBlueprint("bp1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, bp, FormatPDF, DefaultOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderErrors(t *testing.T) {
	bp := blueprintWith(t)

	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, bp, Format("svg"), DefaultOptions()), ErrUnknownFormat)

	bp.CanvasData = json.RawMessage(`[{"id":"x","type":"hexagon"}]`)
	assert.ErrorIs(t, Render(&buf, bp, FormatPNG, DefaultOptions()), document.ErrUnknownKind)

	huge := document.NewBlueprint("big", "Field", 10000, 10000, document.UnitFeet)
	assert.ErrorIs(t, PNG(&buf, huge, DefaultOptions()), ErrTooLarge)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"#1e40af", color.NRGBA{R: 0x1e, G: 0x40, B: 0xaf, A: 0xff}, true},
		{"#abc", color.NRGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0xff}, true},
		{"#11223380", color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x80}, true},
		{"transparent", color.NRGBA{}, false},
		{"#zzzzzz", color.NRGBA{}, false},
		{"red", color.NRGBA{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseColor(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
