package editor

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

// Handle feeds one event through the interaction state machine and returns
// the resulting mode. Invalid input is ignored.
func (e *Editor) Handle(ev Event) Mode {
	p := e.viewport.ToCanvas(ev.Point)

	switch ev.Type {
	case EventPointerDown:
		e.pointerDown(p, ev.Shift, ev.Ctrl)
	case EventPointerMove:
		e.pointerMove(p)
	case EventPointerUp:
		e.pointerUp(p, ev.Shift)
	case EventKeyDown:
		e.keyDown(ev)
	case EventContextMenu:
		e.openMenu(p)
	}
	return e.mode
}

func (e *Editor) pointerDown(p geometry.Point, shift, ctrl bool) {
	if e.mode != ModeIdle {
		return
	}
	e.menu = nil
	e.anchor = p
	e.cursor = p

	if _, drawing := e.tool.Kind(); drawing {
		e.preview = geometry.Rect{X: p.X, Y: p.Y}
		e.mode = ModeDrawing
		return
	}

	if id, h, ok := e.handleAt(p); ok {
		sh, _ := e.store.Get(id)
		e.target = id
		e.handle = h
		e.origin = sh.Bounds()
		e.before = e.store.Shapes()
		e.mode = ModeResizing
		return
	}

	hit, ok := e.store.HitTest(p)
	if !ok {
		e.selection = e.store.SelectedIDs()
		if !shift {
			e.store.ClearSelection()
		}
		e.preview = geometry.Rect{X: p.X, Y: p.Y}
		e.mode = ModeBoxSelecting
		return
	}

	// The command modifier toggles membership without starting a drag.
	if ctrl {
		e.store.Toggle(hit.ID)
		return
	}

	switch {
	case shift:
		e.store.Select([]string{hit.ID}, true)
	case !hit.Selected:
		e.store.SelectOnly(hit.ID)
	}

	e.before = e.store.Shapes()
	e.offsets = make(map[string]geometry.Point)
	for _, sh := range e.store.Selected() {
		if sh.Locked {
			continue
		}
		e.offsets[sh.ID] = p.Sub(sh.Origin())
	}
	e.mode = ModeDragging
}

func (e *Editor) pointerMove(p geometry.Point) {
	e.cursor = p
	if e.CollaborationEnabled() {
		e.sync.BroadcastCursor(p)
	}

	switch e.mode {
	case ModeIdle:
	case ModeDrawing, ModeBoxSelecting:
		e.preview = geometry.RectFromPoints(e.anchor, p)
	case ModeDragging:
		e.drag(p)
	case ModeResizing:
		r := e.handle.resize(e.origin, p, geometry.MinShapeSize, e.grid)
		_, err := e.store.Update(e.target, func(s *document.Shape) {
			s.X, s.Y, s.Width, s.Height = r.X, r.Y, r.Width, r.Height
		})
		if err != nil {
			// Removed by a remote replace mid-gesture.
			e.reset()
		}
	}
}

func (e *Editor) drag(p geometry.Point) {
	for _, id := range slices.Sorted(maps.Keys(e.offsets)) {
		off := e.offsets[id]
		_, err := e.store.Update(id, func(s *document.Shape) {
			s.X = geometry.SnapToGrid(p.X-off.X, e.grid)
			s.Y = geometry.SnapToGrid(p.Y-off.Y, e.grid)
		})
		if err != nil {
			delete(e.offsets, id)
		}
	}

	var moving, others []geometry.Rect
	for _, sh := range e.store.Shapes() {
		if !sh.Visible {
			continue
		}
		if _, ok := e.offsets[sh.ID]; ok {
			moving = append(moving, sh.Bounds())
		} else {
			others = append(others, sh.Bounds())
		}
	}
	e.guides = geometry.AlignmentGuides(moving, others, GuideTolerance)
}

func (e *Editor) pointerUp(p geometry.Point, shift bool) {
	switch e.mode {
	case ModeIdle:
		return
	case ModeDrawing:
		r := geometry.RectFromPoints(e.anchor, p)
		if r.Width > geometry.MinDrawSize && r.Height > geometry.MinDrawSize {
			e.addDrawn(r)
		}
	case ModeBoxSelecting:
		r := geometry.RectFromPoints(e.anchor, p)
		e.store.Select(e.store.ContainedIn(r), shift)
	case ModeDragging, ModeResizing:
		if changed(e.before, e.store.Shapes()) {
			e.commit()
		}
	}
	e.reset()
}

func (e *Editor) addDrawn(r geometry.Rect) {
	kind, ok := e.tool.Kind()
	if !ok {
		return
	}
	sh, err := document.NewShape(e.newID(), kind, r)
	if err != nil {
		slog.Warn("draw shape", "error", err)
		return
	}
	if _, err := e.store.Add(sh); err != nil {
		slog.Warn("draw shape", "error", err)
		return
	}
	e.commit()
}

func (e *Editor) keyDown(ev Event) {
	if ev.Key == "Escape" {
		e.abort()
		return
	}
	if e.mode != ModeIdle {
		return
	}

	var err error
	switch key := strings.ToLower(ev.Key); {
	case key == "delete" || key == "backspace":
		e.DeleteSelected()
	case ev.Ctrl && key == "z" && ev.Shift, ev.Ctrl && key == "y":
		e.Redo()
	case ev.Ctrl && key == "z":
		e.Undo()
	case ev.Ctrl && key == "c":
		err = e.Copy()
	case ev.Ctrl && key == "v":
		err = e.Paste()
	case ev.Ctrl && key == "d":
		err = e.Duplicate()
	case ev.Ctrl && key == "a":
		e.SelectAll()
	}
	if err != nil {
		slog.Warn("keyboard shortcut", "key", ev.Key, "error", err)
	}
}

// abort cancels the active gesture without committing. Drag and resize
// restore the shapes as they were at pointer-down; box select restores the
// selection it cleared.
func (e *Editor) abort() {
	switch e.mode {
	case ModeIdle, ModeDrawing:
	case ModeBoxSelecting:
		e.store.Select(e.selection, false)
	case ModeDragging, ModeResizing:
		e.store.Replace(e.before)
	}
	e.menu = nil
	e.reset()
}

func (e *Editor) reset() {
	e.mode = ModeIdle
	e.preview = geometry.Rect{}
	e.offsets = nil
	e.handle = HandleNone
	e.target = ""
	e.before = nil
	e.selection = nil
	e.guides = nil
}

func (e *Editor) openMenu(p geometry.Point) {
	hit, ok := e.store.HitTest(p)
	if !ok {
		e.menu = nil
		return
	}
	e.menu = &Menu{ShapeID: hit.ID, At: p, Actions: slices.Clone(menuActions)}
}

// handleAt reports the resize handle under p. Handles only exist when exactly
// one unlocked shape is selected.
func (e *Editor) handleAt(p geometry.Point) (string, Handle, bool) {
	sel := e.store.Selected()
	if len(sel) != 1 || sel[0].Locked || !sel[0].Visible {
		return "", HandleNone, false
	}

	zoom := e.viewport.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	half := HandleSize / 2 / zoom
	b := sel[0].Bounds()
	for _, h := range handles {
		a := h.anchor(b)
		box := geometry.Rect{X: a.X - half, Y: a.Y - half, Width: 2 * half, Height: 2 * half}
		if box.Contains(p) {
			return sel[0].ID, h, true
		}
	}
	return "", HandleNone, false
}

func changed(before, after []document.Shape) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i].ID != after[i].ID || before[i].Geometry != after[i].Geometry {
			return true
		}
	}
	return false
}
