package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannr/plannr/blueprint-go/internal/clipboard"
)

func TestCLI(t *testing.T) {
	dir := t.TempDir()
	slot := clipboard.FileSlot{Path: filepath.Join(dir, "clip.json")}
	src := filepath.Join(dir, "src.json")
	dst := filepath.Join(dir, "dst.json")

	var out bytes.Buffer
	require.NoError(t, run([]string{"sample", "-o", src}, &out, slot))
	require.NoError(t, run([]string{"sample", "-o", dst}, &out, slot))

	bp, err := readBlueprint(src)
	require.NoError(t, err)
	srcShapes, err := bp.Shapes()
	require.NoError(t, err)
	require.NotEmpty(t, srcShapes)

	t.Run("export png", func(t *testing.T) {
		png := filepath.Join(dir, "plan.png")
		require.NoError(t, run([]string{"export", "-in", src, "-o", png, "-scale", "0.5"}, &out, slot))
		data, err := os.ReadFile(png)
		require.NoError(t, err)
		assert.Equal(t, "\x89PNG", string(data[:4]))
	})

	t.Run("export pdf to stdout", func(t *testing.T) {
		var pdf bytes.Buffer
		require.NoError(t, run([]string{"export", "-in", src, "-format", "pdf", "-grid=false"}, &pdf, slot))
		assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF-")))
	})

	t.Run("copy and paste", func(t *testing.T) {
		id := srcShapes[0].ID
		require.NoError(t, run([]string{"copy", "-in", src, "-ids", id}, &out, slot))

		before, err := readBlueprint(dst)
		require.NoError(t, err)
		beforeShapes, err := before.Shapes()
		require.NoError(t, err)

		require.NoError(t, run([]string{"paste", "-in", dst}, &out, slot))

		after, err := readBlueprint(dst)
		require.NoError(t, err)
		afterShapes, err := after.Shapes()
		require.NoError(t, err)
		require.Len(t, afterShapes, len(beforeShapes)+1)

		pasted := afterShapes[len(afterShapes)-1]
		assert.NotEqual(t, id, pasted.ID)
		assert.Equal(t, srcShapes[0].X+clipboard.PasteOffset, pasted.X)
		assert.Equal(t, srcShapes[0].Kind, pasted.Kind)
		assert.False(t, pasted.Selected, "selection is not persisted")
	})

	t.Run("copy unknown id", func(t *testing.T) {
		assert.Error(t, run([]string{"copy", "-in", src, "-ids", "nope"}, &out, slot))
	})

	t.Run("usage", func(t *testing.T) {
		assert.ErrorIs(t, run(nil, &out, slot), errUsage)
		assert.ErrorIs(t, run([]string{"frobnicate"}, &out, slot), errUsage)
		assert.ErrorIs(t, run([]string{"export"}, &out, slot), errUsage)
	})
}
