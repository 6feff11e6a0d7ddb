package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannr/plannr/blueprint-go/internal/collab"
	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/typeid"
)

func TestParseNotification(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		n, err := parseNotification(`{"kind":"shapes","document_id":"bp_1","actor_id":"a"}`)
		require.NoError(t, err)
		assert.Equal(t, notification{Kind: collab.ChangeShapes, DocumentID: "bp_1", ActorID: "a"}, n)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := parseNotification(`not json`)
		assert.Error(t, err)
	})

	t.Run("missing keys", func(t *testing.T) {
		_, err := parseNotification(`{"kind":"cursor"}`)
		assert.Error(t, err)
	})
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "collab:bp_01h", Channel("bp_01h"))
}

// openTestStore connects to BLUEPRINT_TEST_DATABASE_URL or skips.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("BLUEPRINT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BLUEPRINT_TEST_DATABASE_URL not set")
	}
	s, err := Open(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id := typeid.NewBlueprintID()
	require.NoError(t, s.Create(ctx, document.NewBlueprint(id, "Hall", 40, 30, document.UnitFeet)))
	t.Cleanup(func() { s.Delete(context.Background(), id) })

	_, err := s.SaveCanvas(ctx, id, json.RawMessage(`[{"id":"a","type":"text","x":0,"y":0,"width":10,"height":10,"text":"Stage"}]`))
	require.NoError(t, err)
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	shapes, err := got.Shapes()
	require.NoError(t, err)
	assert.Equal(t, "Stage", shapes[0].Text)

	require.NoError(t, s.Probe(ctx, id))
	changes, err := s.Subscribe(ctx, id)
	require.NoError(t, err)

	require.NoError(t, s.UpsertShapes(ctx, collab.ShapesRecord{
		DocumentID: id, ActorID: "a", ShapesData: json.RawMessage(`[]`), UpdatedAt: time.Now(),
	}))
	select {
	case c := <-changes:
		assert.Equal(t, collab.ChangeShapes, c.Kind)
		assert.Equal(t, "a", c.Shapes.ActorID)
	case <-ctx.Done():
		t.Fatal("no notification")
	}

	require.NoError(t, s.UpsertCursor(ctx, collab.CursorRecord{
		DocumentID: id, ActorID: "a", CursorX: 1, CursorY: 1, UpdatedAt: time.Now().Add(-time.Hour),
	}))
	n, err := s.DeleteCursorsOlderThan(ctx, id, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
