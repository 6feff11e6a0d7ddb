package clipboard

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

func sample(t *testing.T, k int) []document.Shape {
	t.Helper()
	out := make([]document.Shape, k)
	for i := range out {
		s, err := document.NewShape(fmt.Sprintf("src%d", i), document.KindCircle,
			geometry.Rect{X: float64(i * 10), Y: float64(i * 5), Width: 30, Height: 30})
		require.NoError(t, err)
		s.Selected = true
		out[i] = s
	}
	return out
}

func TestCopyPaste(t *testing.T) {
	cb := New(&MemorySlot{})
	src := sample(t, 3)

	require.NoError(t, cb.Copy(src))
	pasted, err := cb.Paste()
	require.NoError(t, err)
	require.Len(t, pasted, 3)

	ids := map[string]bool{}
	for i, p := range pasted {
		assert.NotEqual(t, src[i].ID, p.ID)
		assert.False(t, ids[p.ID], "ids are unique")
		ids[p.ID] = true
		assert.Equal(t, src[i].X+20, p.X)
		assert.Equal(t, src[i].Y+20, p.Y)
		assert.True(t, p.Selected)
		assert.Equal(t, src[i].Kind, p.Kind)
	}

	again, err := cb.Paste()
	require.NoError(t, err)
	assert.NotEqual(t, pasted[0].ID, again[0].ID, "every paste gets fresh ids")
}

func TestPasteEmpty(t *testing.T) {
	cb := New(&MemorySlot{})
	pasted, err := cb.Paste()
	require.NoError(t, err)
	assert.Nil(t, pasted)

	require.NoError(t, cb.Copy(nil))
	pasted, err = cb.Paste()
	require.NoError(t, err)
	assert.Nil(t, pasted)
}

func TestPasteForeign(t *testing.T) {
	slot := &MemorySlot{}
	require.NoError(t, slot.Write([]byte("hello")))

	_, err := New(slot).Paste()
	assert.ErrorIs(t, err, ErrClipboardForeign)
}

func TestDefaultSlotIsShared(t *testing.T) {
	a := New(nil)
	b := New(nil)

	require.NoError(t, a.Copy(sample(t, 1)))
	pasted, err := b.Paste()
	require.NoError(t, err)
	assert.Len(t, pasted, 1)
}

func TestDuplicateLeavesSlot(t *testing.T) {
	slot := &MemorySlot{}
	cb := New(slot)

	dup := cb.Duplicate(sample(t, 2))
	assert.Len(t, dup, 2)

	raw, err := slot.Read()
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestFileSlot(t *testing.T) {
	slot := FileSlot{Path: filepath.Join(t.TempDir(), "nested", "clip.json")}

	empty, err := New(slot).Paste()
	require.NoError(t, err)
	assert.Empty(t, empty)

	src := sample(t, 3)
	require.NoError(t, New(slot).Copy(src))

	// A second clipboard on the same file sees the copy.
	pasted, err := New(slot).Paste()
	require.NoError(t, err)
	require.Len(t, pasted, 3)
	assert.Equal(t, src[2].Y+PasteOffset, pasted[2].Y)
}
