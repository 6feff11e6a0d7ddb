package editor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannr/plannr/blueprint-go/internal/clipboard"
	"github.com/plannr/plannr/blueprint-go/internal/collab"
	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

type fakeSync struct {
	enabled bool
	shapes  [][]document.Shape
	cursors []geometry.Point
	remote  chan collab.RemoteShapes
}

func (f *fakeSync) Enabled() bool { return f.enabled }
func (f *fakeSync) BroadcastShapes(s []document.Shape) {
	f.shapes = append(f.shapes, s)
}
func (f *fakeSync) BroadcastCursor(p geometry.Point) {
	f.cursors = append(f.cursors, p)
}
func (f *fakeSync) Remote() <-chan collab.RemoteShapes { return f.remote }
func (f *fakeSync) Collaborators() []collab.Collaborator {
	return nil
}

type fakeSaver struct{ saved [][]document.Shape }

func (f *fakeSaver) Schedule(s []document.Shape) { f.saved = append(f.saved, s) }

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func down(x, y float64) Event { return Event{Type: EventPointerDown, Point: pt(x, y)} }
func move(x, y float64) Event { return Event{Type: EventPointerMove, Point: pt(x, y)} }
func up(x, y float64) Event   { return Event{Type: EventPointerUp, Point: pt(x, y)} }
func key(k string) Event      { return Event{Type: EventKeyDown, Key: k} }

func gesture(e *Editor, from, to geometry.Point) {
	e.Handle(down(from.X, from.Y))
	e.Handle(move(to.X, to.Y))
	e.Handle(up(to.X, to.Y))
}

func shape(t *testing.T, id string, kind document.ShapeKind, x, y, w, h float64) document.Shape {
	t.Helper()
	s, err := document.NewShape(id, kind, geometry.Rect{X: x, Y: y, Width: w, Height: h})
	require.NoError(t, err)
	return s
}

func newEditor(t *testing.T, opts Options) *Editor {
	t.Helper()
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.New(&clipboard.MemorySlot{})
	}
	if opts.NewID == nil {
		n := 0
		opts.NewID = func() string {
			n++
			return fmt.Sprintf("new%d", n)
		}
	}
	return New(opts)
}

func TestDrawMinimumSize(t *testing.T) {
	e := newEditor(t, Options{})
	require.NoError(t, e.SetTool(ToolRectangle))

	gesture(e, pt(0, 0), pt(3, 3))
	assert.Empty(t, e.Shapes(), "below 5x5 commits nothing")
	assert.Equal(t, ModeIdle, e.Mode())
	assert.False(t, e.View().CanUndo)

	gesture(e, pt(0, 0), pt(10, 10))
	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	s := shapes[0]
	assert.Equal(t, document.KindRectangle, s.Kind)
	assert.Equal(t, document.Geometry{X: 0, Y: 0, Width: 10, Height: 10}, s.Geometry)
	assert.NotEmpty(t, s.Fill)
	assert.NotEmpty(t, s.Stroke)
	assert.True(t, e.View().CanUndo)
}

func TestDrawPreviewAndText(t *testing.T) {
	e := newEditor(t, Options{})
	require.NoError(t, e.SetTool(ToolText))

	e.Handle(down(40, 30))
	assert.Equal(t, ModeDrawing, e.Handle(move(10, 6)))

	v := e.View()
	require.NotNil(t, v.Preview)
	assert.Equal(t, geometry.Rect{X: 10, Y: 6, Width: 30, Height: 24}, *v.Preview)
	assert.Equal(t, `2' 6" x 2'`, v.Readout)

	e.Handle(up(10, 6))
	require.Len(t, e.Shapes(), 1)
	assert.Equal(t, "Text", e.Shapes()[0].Text)
	assert.Nil(t, e.View().Preview)
}

func TestZIndexFollowsCreation(t *testing.T) {
	e := newEditor(t, Options{})
	require.NoError(t, e.SetTool(ToolCircle))
	gesture(e, pt(0, 0), pt(20, 20))
	gesture(e, pt(10, 10), pt(40, 40))

	shapes := e.Shapes()
	require.Len(t, shapes, 2)
	assert.Less(t, shapes[0].ZIndex, shapes[1].ZIndex)

	require.NoError(t, e.SetTool(ToolSelect))
	e.Handle(down(15, 15))
	e.Handle(up(15, 15))
	assert.Equal(t, []string{"new2"}, e.store.SelectedIDs(), "topmost shape wins the hit test")
}

func TestUndoRedoRoundTrip(t *testing.T) {
	e := newEditor(t, Options{})
	require.NoError(t, e.SetTool(ToolRectangle))

	const n = 4
	for i := range n {
		x := float64(i * 30)
		gesture(e, pt(x, 0), pt(x+20, 20))
	}
	final := e.Shapes()
	require.Len(t, final, n)

	for range n {
		assert.True(t, e.Undo())
	}
	assert.Empty(t, e.Shapes())
	assert.False(t, e.Undo(), "no-op at the start of history")

	for range n {
		assert.True(t, e.Redo())
	}
	assert.Equal(t, final, e.Shapes())
	assert.False(t, e.Redo(), "no-op at the end of history")
}

func TestCommitAfterUndoDiscardsRedo(t *testing.T) {
	e := newEditor(t, Options{})
	require.NoError(t, e.SetTool(ToolRectangle))
	gesture(e, pt(0, 0), pt(20, 20))
	gesture(e, pt(30, 0), pt(50, 20))

	require.True(t, e.Undo())
	gesture(e, pt(60, 0), pt(80, 20))

	assert.False(t, e.Redo())
	ids := []string{}
	for _, s := range e.Shapes() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"new1", "new3"}, ids)
}

func TestPaste(t *testing.T) {
	src := []document.Shape{
		shape(t, "a", document.KindRectangle, 0, 0, 20, 20),
		shape(t, "b", document.KindCircle, 50, 10, 30, 30),
		shape(t, "c", document.KindLine, 100, 100, 40, 10),
	}
	e := newEditor(t, Options{Shapes: src})

	t.Run("empty clipboard is a no-op", func(t *testing.T) {
		require.NoError(t, e.Paste())
		assert.Len(t, e.Shapes(), 3)
		assert.False(t, e.View().CanUndo)
	})

	e.SelectAll()
	require.NoError(t, e.Copy())
	require.NoError(t, e.Paste())

	shapes := e.Shapes()
	require.Len(t, shapes, 6)

	seen := map[string]bool{}
	for i, orig := range shapes[:3] {
		assert.False(t, orig.Selected, "originals are unselected")
		p := shapes[3+i]
		assert.True(t, p.Selected)
		assert.NotContains(t, []string{"a", "b", "c"}, p.ID)
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
		assert.Equal(t, orig.X+20, p.X)
		assert.Equal(t, orig.Y+20, p.Y)
		assert.Equal(t, orig.Kind, p.Kind)
	}

	assert.True(t, e.Undo(), "paste pushes one snapshot")
	assert.Len(t, e.Shapes(), 3)
	assert.False(t, e.Undo())
}

func TestDrag(t *testing.T) {
	s := shape(t, "s1", document.KindRectangle, 0, 0, 50, 50)
	locked := shape(t, "s2", document.KindRectangle, 200, 0, 50, 50)
	locked.Locked = true

	t.Run("moves selection snapped to the grid", func(t *testing.T) {
		e := newEditor(t, Options{Shapes: []document.Shape{s, locked}})
		e.Handle(down(10, 10))
		assert.Equal(t, ModeDragging, e.Mode())
		e.Handle(move(31, 20))
		got, _ := e.store.Get("s1")
		assert.Equal(t, 24.0, got.X)
		assert.Equal(t, 12.0, got.Y)

		e.Handle(move(34, 22))
		e.Handle(up(34, 22))
		got, _ = e.store.Get("s1")
		assert.Equal(t, 24.0, got.X)
		assert.Equal(t, 12.0, got.Y)
		assert.Equal(t, 2, e.history.Len(), "one snapshot per drag")
	})

	t.Run("click without move does not commit", func(t *testing.T) {
		e := newEditor(t, Options{Shapes: []document.Shape{s, locked}})
		e.Handle(down(10, 10))
		e.Handle(up(10, 10))
		assert.Equal(t, []string{"s1"}, e.store.SelectedIDs())
		assert.False(t, e.View().CanUndo)
	})

	t.Run("locked shapes stay put", func(t *testing.T) {
		e := newEditor(t, Options{Shapes: []document.Shape{s, locked}})
		gesture(e, pt(210, 10), pt(400, 300))
		got, _ := e.store.Get("s2")
		assert.Equal(t, 200.0, got.X)
		assert.False(t, e.View().CanUndo)
	})

	t.Run("escape restores", func(t *testing.T) {
		fs := &fakeSync{enabled: true}
		e := newEditor(t, Options{Shapes: []document.Shape{s, locked}, Sync: fs})
		e.Handle(down(10, 10))
		e.Handle(move(100, 100))
		assert.Equal(t, ModeIdle, e.Handle(key("Escape")))

		got, _ := e.store.Get("s1")
		assert.Equal(t, s.Geometry, got.Geometry)
		assert.False(t, e.View().CanUndo)
		assert.Empty(t, fs.shapes, "aborted drags are not broadcast")
		assert.Len(t, fs.cursors, 1)
	})

	t.Run("shift extends and guides appear", func(t *testing.T) {
		other := shape(t, "s3", document.KindRectangle, 100, 200, 50, 50)
		e := newEditor(t, Options{Shapes: []document.Shape{s, locked, other}})
		e.Handle(down(10, 10))
		e.Handle(up(10, 10))
		e.Handle(Event{Type: EventPointerDown, Point: pt(110, 210), Shift: true})
		assert.ElementsMatch(t, []string{"s1", "s3"}, e.store.SelectedIDs())
		e.Handle(up(110, 210))

		e.Handle(down(10, 10))
		e.Handle(move(34, 10))
		assert.NotEmpty(t, e.View().Guides, "top edge lines up with s2")
		e.Handle(up(34, 10))
		assert.Empty(t, e.View().Guides)
	})
}

func TestResizeNeverBelowMinimum(t *testing.T) {
	base := shape(t, "s1", document.KindRectangle, 96, 96, 48, 48)

	for _, h := range handles {
		for _, far := range []geometry.Point{pt(-1000, -1000), pt(1000, 1000), pt(-1000, 1000), pt(1000, -1000)} {
			t.Run(fmt.Sprintf("%s to %v", h, far), func(t *testing.T) {
				e := newEditor(t, Options{Shapes: []document.Shape{base}})
				e.Select([]string{"s1"}, false)

				a := h.anchor(base.Bounds())
				e.Handle(down(a.X, a.Y))
				require.Equal(t, ModeResizing, e.Mode())
				e.Handle(move(far.X, far.Y))

				got, _ := e.store.Get("s1")
				assert.GreaterOrEqual(t, got.Width, geometry.MinShapeSize)
				assert.GreaterOrEqual(t, got.Height, geometry.MinShapeSize)
				e.Handle(up(far.X, far.Y))
				assert.Equal(t, ModeIdle, e.Mode())
			})
		}
	}
}

func TestResizeFixedOppositeCorner(t *testing.T) {
	base := shape(t, "s1", document.KindRectangle, 0, 0, 48, 48)
	e := newEditor(t, Options{Shapes: []document.Shape{base}})
	e.Select([]string{"s1"}, false)

	gesture(e, pt(48, 48), pt(97, 70))
	got, _ := e.store.Get("s1")
	assert.Equal(t, document.Geometry{X: 0, Y: 0, Width: 96, Height: 72}, got.Geometry)

	gesture(e, pt(0, 0), pt(-25, 26))
	got, _ = e.store.Get("s1")
	assert.Equal(t, document.Geometry{X: -24, Y: 24, Width: 120, Height: 48}, got.Geometry)
	assert.Equal(t, 3, e.history.Len())

	e.Handle(down(96, 72))
	e.Handle(move(300, 300))
	e.Handle(key("Escape"))
	got, _ = e.store.Get("s1")
	assert.Equal(t, 120.0, got.Width, "escape restores the pre-resize size")
}

func TestBoxSelect(t *testing.T) {
	e := newEditor(t, Options{Shapes: []document.Shape{
		shape(t, "a", document.KindRectangle, 0, 0, 20, 20),
		shape(t, "b", document.KindRectangle, 100, 100, 20, 20),
		shape(t, "c", document.KindRectangle, 30, 30, 40, 40),
	}})

	e.Handle(down(-5, -5))
	assert.Equal(t, ModeBoxSelecting, e.Mode())
	e.Handle(move(50, 50))
	require.NotNil(t, e.View().Preview)
	e.Handle(up(50, 50))

	assert.Equal(t, []string{"a"}, e.store.SelectedIDs(), "only fully contained shapes")
	assert.False(t, e.View().CanUndo, "selection is not a commit")

	e.Handle(down(200, 200))
	e.Handle(key("Escape"))
	assert.Equal(t, ModeIdle, e.Mode())
	assert.Empty(t, e.store.SelectedIDs())
}

func TestContextMenu(t *testing.T) {
	e := newEditor(t, Options{Shapes: []document.Shape{shape(t, "a", document.KindRectangle, 0, 0, 20, 20)}})

	e.Handle(Event{Type: EventContextMenu, Point: pt(5, 5)})
	m := e.Menu()
	require.NotNil(t, m)
	assert.Equal(t, "a", m.ShapeID)
	assert.Equal(t, []MenuAction{MenuCopy, MenuDuplicate, MenuDelete}, m.Actions)
	assert.Equal(t, ModeIdle, e.Mode())

	require.NoError(t, e.RunMenuAction(MenuDuplicate))
	assert.Nil(t, e.Menu())
	shapes := e.Shapes()
	require.Len(t, shapes, 2)
	assert.Equal(t, 20.0, shapes[1].X)

	e.Handle(Event{Type: EventContextMenu, Point: pt(5, 5)})
	require.NoError(t, e.RunMenuAction(MenuDelete))
	shapes = e.Shapes()
	require.Len(t, shapes, 1)
	assert.NotEqual(t, "a", shapes[0].ID)

	t.Run("does not change the interaction state", func(t *testing.T) {
		require.NoError(t, e.SetTool(ToolRectangle))
		e.Handle(down(100, 100))
		assert.Equal(t, ModeDrawing, e.Handle(Event{Type: EventContextMenu, Point: pt(25, 25)}))
		assert.NotNil(t, e.Menu())
		e.Handle(key("Escape"))
	})

	t.Run("empty canvas closes", func(t *testing.T) {
		e.Handle(Event{Type: EventContextMenu, Point: pt(500, 500)})
		assert.Nil(t, e.Menu())
	})
}

func TestApplyRemote(t *testing.T) {
	e := newEditor(t, Options{Shapes: []document.Shape{
		shape(t, "a", document.KindRectangle, 0, 0, 20, 20),
		shape(t, "b", document.KindRectangle, 50, 0, 20, 20),
	}})
	e.Select([]string{"a", "b"}, false)
	historyLen := e.history.Len()

	moved := shape(t, "a", document.KindRectangle, 300, 300, 20, 20)
	e.ApplyRemote([]document.Shape{moved, shape(t, "c", document.KindCircle, 0, 0, 5, 5)})

	shapes := e.Shapes()
	require.Len(t, shapes, 2)
	assert.Equal(t, 300.0, shapes[0].X)
	assert.True(t, shapes[0].Selected, "local selection survives")
	assert.False(t, shapes[1].Selected)
	assert.Equal(t, historyLen, e.history.Len(), "remote replace is invisible to history")
}

func TestShortcuts(t *testing.T) {
	e := newEditor(t, Options{Shapes: []document.Shape{shape(t, "a", document.KindRectangle, 0, 0, 20, 20)}})

	e.Handle(Event{Type: EventKeyDown, Key: "a", Ctrl: true})
	e.Handle(Event{Type: EventKeyDown, Key: "d", Ctrl: true})
	assert.Len(t, e.Shapes(), 2)

	e.Handle(key("Delete"))
	assert.Len(t, e.Shapes(), 1)

	e.Handle(Event{Type: EventKeyDown, Key: "z", Ctrl: true})
	assert.Len(t, e.Shapes(), 2)
	e.Handle(Event{Type: EventKeyDown, Key: "Z", Ctrl: true, Shift: true})
	assert.Len(t, e.Shapes(), 1)
}

func TestUpdateShape(t *testing.T) {
	e := newEditor(t, Options{Shapes: []document.Shape{shape(t, "a", document.KindRectangle, 0, 0, 20, 20)}})

	w, fill, rot := -5.0, "#ff0000", 400.0
	got, err := e.UpdateShape("a", Patch{Width: &w, Fill: &fill, Rotation: &rot})
	require.NoError(t, err)
	assert.Zero(t, got.Width, "width is clamped")
	assert.Equal(t, "#ff0000", got.Fill)
	assert.Equal(t, 40.0, got.Rotation)
	assert.True(t, e.View().CanUndo)

	_, err = e.UpdateShape("missing", Patch{Fill: &fill})
	assert.Error(t, err)

	require.NoError(t, e.BringToFront("a"))
	require.NoError(t, e.SendToBack("a"))
	assert.Error(t, e.BringToFront("missing"))
}

func TestViewport(t *testing.T) {
	e := newEditor(t, Options{Shapes: []document.Shape{shape(t, "a", document.KindRectangle, 0, 0, 20, 20)}})

	e.Zoom(2, pt(100, 100))
	assert.Equal(t, 2.0, e.Viewport().Zoom)
	assert.Equal(t, pt(100, 100), e.Viewport().ToScreen(pt(100, 100)), "zoom keeps the anchor fixed")

	e.SetViewport(geometry.Viewport{Origin: pt(50, 50), Zoom: 2})
	e.Handle(down(60, 60))
	assert.Equal(t, ModeDragging, e.Mode(), "screen (60,60) is canvas (5,5)")
	e.Handle(key("Escape"))

	e.SetViewport(geometry.Viewport{Zoom: 100})
	assert.Equal(t, MaxZoom, e.Viewport().Zoom)
	e.Pan(10, -10)
	assert.Equal(t, pt(10, -10), e.Viewport().Origin)

	assert.Error(t, e.SetTool("lasso"))
}

// script exercises every local editing operation.
func script(t *testing.T, e *Editor) {
	require.NoError(t, e.SetTool(ToolRectangle))
	gesture(e, pt(0, 0), pt(48, 48))
	gesture(e, pt(100, 0), pt(160, 60))
	require.NoError(t, e.SetTool(ToolSelect))
	gesture(e, pt(10, 10), pt(40, 40))
	gesture(e, pt(72, 72), pt(120, 90))
	e.Undo()
	e.Redo()
	require.NoError(t, e.Copy())
	require.NoError(t, e.Paste())
	e.Handle(move(5, 5))
}

func geometries(shapes []document.Shape) []document.Geometry {
	out := make([]document.Geometry, len(shapes))
	for i, s := range shapes {
		out[i] = s.Geometry
	}
	return out
}

func TestCollaborationDisabledBehavesLocally(t *testing.T) {
	off := &fakeSync{enabled: false}
	on := &fakeSync{enabled: true}
	offSaver, onSaver := &fakeSaver{}, &fakeSaver{}

	local := newEditor(t, Options{Sync: off, Saver: offSaver})
	shared := newEditor(t, Options{Sync: on, Saver: onSaver})
	script(t, local)
	script(t, shared)

	assert.Empty(t, off.shapes, "no shape broadcasts while disabled")
	assert.Empty(t, off.cursors, "no cursor broadcasts while disabled")
	assert.NotEmpty(t, on.shapes)
	assert.NotEmpty(t, on.cursors)

	assert.Equal(t, geometries(shared.Shapes()), geometries(local.Shapes()))
	assert.Equal(t, len(onSaver.saved), len(offSaver.saved), "autosave runs either way")
	assert.False(t, local.View().CollaborationEnabled)
	assert.True(t, shared.View().CollaborationEnabled)

	for _, list := range on.shapes {
		for _, s := range list {
			assert.False(t, s.Selected, "selection never goes on the wire")
		}
	}
}

func TestRunLoop(t *testing.T) {
	fs := &fakeSync{enabled: true, remote: make(chan collab.RemoteShapes, 1)}
	e := newEditor(t, Options{Sync: fs})

	events := make(chan Event)
	commands := make(chan Command)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, events, commands) }()

	commands <- func(e *Editor) { _ = e.SetTool(ToolRectangle) }
	events <- down(0, 0)
	events <- move(30, 30)
	events <- up(30, 30)

	remote := shape(t, "r1", document.KindCircle, 5, 5, 5, 5)
	fs.remote <- collab.RemoteShapes{ActorID: "other", Shapes: []document.Shape{remote}}

	var got []document.Shape
	require.Eventually(t, func() bool {
		res := make(chan []document.Shape, 1)
		commands <- func(e *Editor) { res <- e.Shapes() }
		got = <-res
		return len(got) == 1 && got[0].ID == "r1"
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Len(t, fs.shapes, 1, "the drawn rectangle was broadcast once")
}

func TestPoll(t *testing.T) {
	fs := &fakeSync{enabled: true, remote: make(chan collab.RemoteShapes, 2)}
	e := newEditor(t, Options{Sync: fs})

	fs.remote <- collab.RemoteShapes{Shapes: []document.Shape{shape(t, "a", document.KindRectangle, 0, 0, 10, 10)}}
	fs.remote <- collab.RemoteShapes{Shapes: []document.Shape{shape(t, "b", document.KindRectangle, 0, 0, 10, 10)}}
	assert.Equal(t, 2, e.Poll())
	assert.Equal(t, "b", e.Shapes()[0].ID)
	assert.Zero(t, e.Poll())
}

func shapeIDs(shapes []document.Shape) []string {
	out := make([]string, len(shapes))
	for i, s := range shapes {
		out[i] = s.ID
	}
	return out
}

func TestEscapeAfterRemoteUpdate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		start Event
		mode  Mode
	}{
		{name: "dragging", start: down(10, 10), mode: ModeDragging},
		{name: "resizing", start: down(100, 100), mode: ModeResizing},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s1 := shape(t, "s1", document.KindRectangle, 0, 0, 100, 100)
			e := newEditor(t, Options{Shapes: []document.Shape{s1}})
			e.Select([]string{"s1"}, false)

			require.Equal(t, tc.mode, e.Handle(tc.start))
			e.Handle(move(140, 140))

			r1 := shape(t, "r1", document.KindCircle, 200, 200, 40, 40)
			e.ApplyRemote([]document.Shape{s1, r1})
			e.Handle(move(150, 150))

			assert.Equal(t, ModeIdle, e.Handle(key("Escape")))
			got := e.Shapes()
			assert.Equal(t, []string{"s1", "r1"}, shapeIDs(got), "the remote list survives escape")
			assert.Equal(t, s1.Geometry, got[0].Geometry)
			assert.Equal(t, 1, e.history.Len(), "nothing committed")
		})
	}
}

func TestEscapeRestoresSelectionAfterBoxSelect(t *testing.T) {
	e := newEditor(t, Options{Shapes: []document.Shape{
		shape(t, "a", document.KindRectangle, 0, 0, 50, 50),
		shape(t, "b", document.KindRectangle, 100, 0, 50, 50),
	}})
	e.Select([]string{"b"}, false)

	require.Equal(t, ModeBoxSelecting, e.Handle(down(300, 300)))
	e.Handle(move(400, 400))
	e.Handle(key("Escape"))

	assert.Equal(t, []string{"b"}, e.store.SelectedIDs())
}

func TestCtrlClickTogglesSelection(t *testing.T) {
	e := newEditor(t, Options{Shapes: []document.Shape{
		shape(t, "a", document.KindRectangle, 0, 0, 50, 50),
		shape(t, "b", document.KindRectangle, 100, 0, 50, 50),
	}})
	e.Select([]string{"a"}, false)

	ctrlDown := func(x, y float64) Mode {
		return e.Handle(Event{Type: EventPointerDown, Point: pt(x, y), Ctrl: true})
	}

	assert.Equal(t, ModeIdle, ctrlDown(120, 10), "toggling never starts a drag")
	assert.Equal(t, []string{"a", "b"}, e.store.SelectedIDs())

	assert.Equal(t, ModeIdle, ctrlDown(10, 10))
	assert.Equal(t, []string{"b"}, e.store.SelectedIDs())
}

func TestClickWithoutMoveCommitsNothing(t *testing.T) {
	saver := &fakeSaver{}
	e := newEditor(t, Options{
		Shapes: []document.Shape{shape(t, "a", document.KindRectangle, 0, 0, 50, 50)},
		Saver:  saver,
	})

	e.Handle(down(10, 10))
	e.Handle(up(10, 10))

	assert.Equal(t, []string{"a"}, e.store.SelectedIDs())
	assert.Equal(t, 1, e.history.Len())
	assert.Empty(t, saver.saved)
}
