package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

func TestNewShapeDefaults(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			s, err := NewShape("shape_1", kind, geometry.Rect{X: 1, Y: 2, Width: 3, Height: 4})
			require.NoError(t, err)

			assert.Equal(t, kind, s.Kind)
			assert.True(t, s.Visible)
			assert.Equal(t, geometry.Rect{X: 1, Y: 2, Width: 3, Height: 4}, s.Bounds())
			if kind == KindText {
				assert.Equal(t, "Text", s.Text)
			} else {
				assert.Empty(t, s.Text)
			}
		})
	}

	_, err := NewShape("x", ShapeKind("hexagon"), geometry.Rect{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestShapeJSONIsFlat(t *testing.T) {
	s, err := NewShape("shape_1", KindRectangle, geometry.Rect{X: 10, Y: 20, Width: 30, Height: 40})
	require.NoError(t, err)
	s.Selected = true

	data, err := MarshalShapes([]Shape{s})
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "rectangle", raw[0]["type"])
	assert.Equal(t, 30.0, raw[0]["width"])
	assert.Equal(t, "#1e40af", raw[0]["stroke"])
	assert.NotContains(t, raw[0], "selected")
}

func TestUnmarshalShapes(t *testing.T) {
	t.Run("empty payloads", func(t *testing.T) {
		for _, in := range []string{"", "null", "  ", "[]"} {
			shapes, err := UnmarshalShapes([]byte(in))
			require.NoError(t, err)
			assert.Empty(t, shapes)
			assert.NotNil(t, shapes)
		}
	})

	t.Run("normalizes", func(t *testing.T) {
		in := `[{"id":"a","type":"circle","width":-4,"height":5,"rotation":-90,"text":"x","visible":true}]`
		shapes, err := UnmarshalShapes([]byte(in))
		require.NoError(t, err)
		require.Len(t, shapes, 1)
		assert.Equal(t, 0.0, shapes[0].Width)
		assert.Equal(t, 270.0, shapes[0].Rotation)
		assert.Empty(t, shapes[0].Text)
	})

	t.Run("rejects", func(t *testing.T) {
		bad := []string{
			`{"id":"a"}`,
			`[{"id":"","type":"line"}]`,
			`[{"id":"a","type":"line"},{"id":"a","type":"line"}]`,
			`[{"id":"a","type":"blob"}]`,
		}
		for _, in := range bad {
			_, err := UnmarshalShapes([]byte(in))
			assert.Error(t, err, in)
		}
	})
}

func TestCloneIsDeep(t *testing.T) {
	s := Shape{ID: "p", Kind: KindPolygon, Points: []geometry.Point{{X: 1, Y: 1}}}
	list := CloneShapes([]Shape{s})
	list[0].Points[0].X = 99

	assert.Equal(t, 1.0, s.Points[0].X)
	assert.NotNil(t, CloneShapes(nil))
}

func TestSampleBlueprint(t *testing.T) {
	bp, err := NewSampleBlueprint("bp_sample")
	require.NoError(t, err)
	assert.Equal(t, UnitFeet, bp.Unit)

	shapes, err := bp.Shapes()
	require.NoError(t, err)
	assert.Len(t, shapes, 19)
	for i, s := range shapes {
		assert.Equal(t, i, s.ZIndex)
	}
}

func TestNewBlueprintDefaultsUnit(t *testing.T) {
	bp := NewBlueprint("bp_1", "Hall", 10, 20, Unit("meters"))
	assert.Equal(t, UnitFeet, bp.Unit)
	assert.JSONEq(t, `[]`, string(bp.CanvasData))
}
