package editor

import (
	"fmt"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

// Tool is the active toolbar tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolLine      Tool = "line"
	ToolText      Tool = "text"
	ToolPolygon   Tool = "polygon"
)

func (t Tool) Valid() bool {
	switch t {
	case ToolSelect, ToolRectangle, ToolCircle, ToolLine, ToolText, ToolPolygon:
		return true
	}
	return false
}

// Kind returns the shape kind a drawing tool creates. The select tool has none.
func (t Tool) Kind() (document.ShapeKind, bool) {
	switch t {
	case ToolRectangle:
		return document.KindRectangle, true
	case ToolCircle:
		return document.KindCircle, true
	case ToolLine:
		return document.KindLine, true
	case ToolText:
		return document.KindText, true
	case ToolPolygon:
		return document.KindPolygon, true
	default:
		return "", false
	}
}

// Mode is the interaction state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDrawing
	ModeDragging
	ModeResizing
	ModeBoxSelecting
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDrawing:
		return "drawing"
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	case ModeBoxSelecting:
		return "box-selecting"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	for _, candidate := range []Mode{ModeIdle, ModeDrawing, ModeDragging, ModeResizing, ModeBoxSelecting} {
		if candidate.String() == string(text) {
			*m = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// Handle is one of the eight resize grips around a selected shape.
type Handle string

const (
	HandleNone Handle = ""
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleE    Handle = "e"
	HandleW    Handle = "w"
	HandleNE   Handle = "ne"
	HandleNW   Handle = "nw"
	HandleSE   Handle = "se"
	HandleSW   Handle = "sw"
)

var handles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

// HandlePoints returns the centers of the resize grips of r in the order
// nw, n, ne, e, se, s, sw, w.
func HandlePoints(r geometry.Rect) []geometry.Point {
	out := make([]geometry.Point, len(handles))
	for i, h := range handles {
		out[i] = h.anchor(r)
	}
	return out
}

// anchor returns where the handle sits on r.
func (h Handle) anchor(r geometry.Rect) geometry.Point {
	x, y := r.X+r.Width/2, r.Y+r.Height/2
	switch h {
	case HandleN, HandleNE, HandleNW:
		y = r.Y
	case HandleS, HandleSE, HandleSW:
		y = r.Bottom()
	}
	switch h {
	case HandleW, HandleNW, HandleSW:
		x = r.X
	case HandleE, HandleNE, HandleSE:
		x = r.Right()
	}
	return geometry.Point{X: x, Y: y}
}

func (h Handle) moves() (left, right, top, bottom bool) {
	switch h {
	case HandleN:
		top = true
	case HandleS:
		bottom = true
	case HandleE:
		right = true
	case HandleW:
		left = true
	case HandleNE:
		top, right = true, true
	case HandleNW:
		top, left = true, true
	case HandleSE:
		bottom, right = true, true
	case HandleSW:
		bottom, left = true, true
	}
	return
}

// resize applies the fixed-opposite-corner rule: the edges the handle owns
// follow p, the others stay put. Size is clamped to minSize by keeping the
// fixed edge, then every value is snapped to the grid.
func (h Handle) resize(r geometry.Rect, p geometry.Point, minSize, grid float64) geometry.Rect {
	left, right, top, bottom := r.X, r.Right(), r.Y, r.Bottom()
	ml, mr, mt, mb := h.moves()

	if ml {
		left = min(p.X, right-minSize)
	}
	if mr {
		right = max(p.X, left+minSize)
	}
	if mt {
		top = min(p.Y, bottom-minSize)
	}
	if mb {
		bottom = max(p.Y, top+minSize)
	}

	out := geometry.Rect{
		X:      geometry.SnapToGrid(left, grid),
		Y:      geometry.SnapToGrid(top, grid),
		Width:  geometry.SnapToGrid(right-left, grid),
		Height: geometry.SnapToGrid(bottom-top, grid),
	}
	// A grid smaller than the minimum can round the size back under it.
	out.Width = max(out.Width, minSize)
	out.Height = max(out.Height, minSize)
	return out
}

// EventType enumerates the inputs the state machine reacts to.
type EventType int

const (
	EventPointerDown EventType = iota
	EventPointerMove
	EventPointerUp
	EventKeyDown
	EventContextMenu
)

// Event is one UI input. Point is in screen coordinates.
type Event struct {
	Type  EventType
	Point geometry.Point
	Shift bool
	// Ctrl is set for the platform command modifier (ctrl or meta).
	Ctrl bool
	Key  string
}

// MenuAction is an entry of the shape context menu.
type MenuAction string

const (
	MenuCopy      MenuAction = "copy"
	MenuDuplicate MenuAction = "duplicate"
	MenuDelete    MenuAction = "delete"
)

var menuActions = []MenuAction{MenuCopy, MenuDuplicate, MenuDelete}

// Menu is an open context menu bound to the shape under the cursor.
type Menu struct {
	ShapeID string         `json:"shapeId"`
	At      geometry.Point `json:"at"`
	Actions []MenuAction   `json:"actions"`
}
