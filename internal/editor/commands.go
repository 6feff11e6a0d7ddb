package editor

import (
	"fmt"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

// --- Commands (UI → editor) ---

// SetTool switches the active tool. Any gesture in progress is aborted.
func (e *Editor) SetTool(t Tool) error {
	if !t.Valid() {
		return fmt.Errorf("unknown tool %q", t)
	}
	if e.mode != ModeIdle {
		e.abort()
	}
	e.tool = t
	e.menu = nil
	return nil
}

// SetViewport replaces the pan/zoom state. Zoom is clamped to [MinZoom, MaxZoom].
func (e *Editor) SetViewport(v geometry.Viewport) {
	v.Zoom = min(max(v.Zoom, MinZoom), MaxZoom)
	e.viewport = v
}

// Zoom multiplies the zoom by factor keeping the canvas point under the
// screen point at fixed.
func (e *Editor) Zoom(factor float64, at geometry.Point) {
	if factor <= 0 {
		return
	}
	c := e.viewport.ToCanvas(at)
	zoom := min(max(e.viewport.Zoom*factor, MinZoom), MaxZoom)
	e.viewport = geometry.Viewport{
		Origin: geometry.Point{X: at.X - c.X*zoom, Y: at.Y - c.Y*zoom},
		Zoom:   zoom,
	}
}

// Pan moves the view by a screen-space delta.
func (e *Editor) Pan(dx, dy float64) {
	e.viewport.Origin = e.viewport.Origin.Add(geometry.Point{X: dx, Y: dy})
}

// Undo restores the previous snapshot and publishes it. It reports whether
// anything changed.
func (e *Editor) Undo() bool {
	if e.mode != ModeIdle {
		return false
	}
	shapes, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.restore(shapes)
	return true
}

func (e *Editor) Redo() bool {
	if e.mode != ModeIdle {
		return false
	}
	shapes, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.restore(shapes)
	return true
}

func (e *Editor) restore(shapes []document.Shape) {
	e.store.Replace(shapes)
	e.menu = nil
	e.publish(shapes)
}

// Copy puts the selection on the clipboard.
func (e *Editor) Copy() error {
	return e.clipboard.Copy(e.store.Selected())
}

// Paste adds the clipboard contents as a new selection. An empty clipboard
// is a no-op.
func (e *Editor) Paste() error {
	shapes, err := e.clipboard.Paste()
	if err != nil {
		return err
	}
	return e.insert(shapes)
}

// Duplicate copies the selection in place without touching the clipboard.
func (e *Editor) Duplicate() error {
	return e.insert(e.clipboard.Duplicate(e.store.Selected()))
}

func (e *Editor) insert(shapes []document.Shape) error {
	if len(shapes) == 0 {
		return nil
	}
	e.store.ClearSelection()
	var ids []string
	for _, sh := range shapes {
		added, err := e.store.Add(sh)
		if err != nil {
			return err
		}
		ids = append(ids, added.ID)
	}
	e.store.Select(ids, false)
	e.commit()
	return nil
}

// DeleteSelected removes every selected shape.
func (e *Editor) DeleteSelected() int {
	return e.Delete(e.store.SelectedIDs()...)
}

func (e *Editor) Delete(ids ...string) int {
	n := e.store.Delete(ids...)
	if n > 0 {
		e.commit()
	}
	return n
}

// Patch carries the properties-panel fields to change. Nil fields are left
// untouched.
type Patch struct {
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Rotation    *float64 `json:"rotation,omitempty"`
	Fill        *string  `json:"fill,omitempty"`
	Stroke      *string  `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
	Text        *string  `json:"text,omitempty"`
	Locked      *bool    `json:"locked,omitempty"`
	Visible     *bool    `json:"visible,omitempty"`
}

func (p Patch) apply(s *document.Shape) {
	set(&s.X, p.X)
	set(&s.Y, p.Y)
	set(&s.Width, p.Width)
	set(&s.Height, p.Height)
	set(&s.Rotation, p.Rotation)
	set(&s.Fill, p.Fill)
	set(&s.Stroke, p.Stroke)
	set(&s.StrokeWidth, p.StrokeWidth)
	set(&s.Text, p.Text)
	set(&s.Locked, p.Locked)
	set(&s.Visible, p.Visible)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// UpdateShape edits one shape's properties and commits.
func (e *Editor) UpdateShape(id string, p Patch) (document.Shape, error) {
	sh, err := e.store.Update(id, p.apply)
	if err != nil {
		return document.Shape{}, err
	}
	e.commit()
	return sh, nil
}

// SelectAll selects every visible shape. Selection is not a commit.
func (e *Editor) SelectAll() {
	var ids []string
	for _, sh := range e.store.Shapes() {
		if sh.Visible {
			ids = append(ids, sh.ID)
		}
	}
	e.store.Select(ids, false)
}

func (e *Editor) Select(ids []string, extend bool) {
	e.store.Select(ids, extend)
}

func (e *Editor) BringToFront(id string) error {
	if err := e.store.BringToFront(id); err != nil {
		return err
	}
	e.commit()
	return nil
}

func (e *Editor) SendToBack(id string) error {
	if err := e.store.SendToBack(id); err != nil {
		return err
	}
	e.commit()
	return nil
}

// RunMenuAction executes an entry of the open context menu and closes it.
func (e *Editor) RunMenuAction(action MenuAction) error {
	if e.menu == nil {
		return nil
	}
	id := e.menu.ShapeID
	e.menu = nil

	sh, ok := e.store.Get(id)
	if !ok {
		return nil
	}

	switch action {
	case MenuCopy:
		return e.clipboard.Copy([]document.Shape{sh})
	case MenuDuplicate:
		return e.insert(e.clipboard.Duplicate([]document.Shape{sh}))
	case MenuDelete:
		e.Delete(id)
		return nil
	default:
		return fmt.Errorf("unknown menu action %q", action)
	}
}
