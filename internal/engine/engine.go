// Package engine is the browser-facing facade over the editor. Every method
// takes and returns plain values or JSON strings so the WASM bridge stays a
// thin shim.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/plannr/plannr/blueprint-go/internal/clipboard"
	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/editor"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

var ErrNoDocument = errors.New("no blueprint loaded")

// Session is what Connect returns for a loaded blueprint. Any field may be nil.
type Session struct {
	Sync  editor.Syncer
	Saver editor.Saver
	Close func()
}

type Options struct {
	HistoryLimit int
	GridSize     float64
	Clipboard    *clipboard.Clipboard
	// Connect wires collaboration and persistence for a freshly loaded
	// blueprint.
	Connect func(bp *document.Blueprint) Session
}

// Engine owns the editor for one blueprint at a time.
type Engine struct {
	opts    Options
	bp      *document.Blueprint
	ed      *editor.Editor
	session Session
	screen  Screen
}

// NewEngine creates an engine with no blueprint loaded.
func NewEngine(opts Options) *Engine {
	if opts.GridSize <= 0 {
		opts.GridSize = geometry.DefaultGridSize
	}
	return &Engine{opts: opts}
}

// --- Commands (frontend → engine) ---

// LoadDocument loads a blueprint record from JSON, replacing any previous one.
func (e *Engine) LoadDocument(jsonData string) error {
	var bp document.Blueprint
	if err := json.Unmarshal([]byte(jsonData), &bp); err != nil {
		return fmt.Errorf("decode blueprint: %w", err)
	}
	return e.Load(&bp)
}

// LoadSampleDocument loads the demo banquet hall.
func (e *Engine) LoadSampleDocument(id string) error {
	bp, err := document.NewSampleBlueprint(id)
	if err != nil {
		return err
	}
	return e.Load(bp)
}

func (e *Engine) Load(bp *document.Blueprint) error {
	shapes, err := bp.Shapes()
	if err != nil {
		return err
	}

	e.Close()
	e.bp = bp
	if e.opts.Connect != nil {
		e.session = e.opts.Connect(bp)
	}
	e.ed = editor.New(editor.Options{
		Shapes:       shapes,
		HistoryLimit: e.opts.HistoryLimit,
		GridSize:     e.opts.GridSize,
		Clipboard:    e.opts.Clipboard,
		Sync:         e.session.Sync,
		Saver:        e.session.Saver,
	})
	return nil
}

// Close releases the current session.
func (e *Engine) Close() {
	if e.session.Close != nil {
		e.session.Close()
	}
	e.session = Session{}
	e.ed = nil
	e.bp = nil
}

func (e *Engine) Resize(width, height float64) {
	e.screen = Screen{Width: width, Height: height}
}

func (e *Engine) pointer(t editor.EventType, x, y float64, shift, ctrl bool) string {
	if e.ed == nil {
		return editor.ModeIdle.String()
	}
	return e.ed.Handle(editor.Event{
		Type:  t,
		Point: geometry.Point{X: x, Y: y},
		Shift: shift,
		Ctrl:  ctrl,
	}).String()
}

func (e *Engine) PointerDown(x, y float64, shift, ctrl bool) string {
	return e.pointer(editor.EventPointerDown, x, y, shift, ctrl)
}

func (e *Engine) PointerMove(x, y float64) string {
	return e.pointer(editor.EventPointerMove, x, y, false, false)
}

func (e *Engine) PointerUp(x, y float64, shift bool) string {
	return e.pointer(editor.EventPointerUp, x, y, shift, false)
}

func (e *Engine) ContextMenu(x, y float64) string {
	return e.pointer(editor.EventContextMenu, x, y, false, false)
}

func (e *Engine) KeyDown(key string, shift, ctrl bool) string {
	if e.ed == nil {
		return editor.ModeIdle.String()
	}
	return e.ed.Handle(editor.Event{Type: editor.EventKeyDown, Key: key, Shift: shift, Ctrl: ctrl}).String()
}

func (e *Engine) SetTool(name string) error {
	if e.ed == nil {
		return ErrNoDocument
	}
	return e.ed.SetTool(editor.Tool(name))
}

func (e *Engine) Zoom(factor, x, y float64) {
	if e.ed != nil {
		e.ed.Zoom(factor, geometry.Point{X: x, Y: y})
	}
}

func (e *Engine) Pan(dx, dy float64) {
	if e.ed != nil {
		e.ed.Pan(dx, dy)
	}
}

func (e *Engine) Undo() bool { return e.ed != nil && e.ed.Undo() }
func (e *Engine) Redo() bool { return e.ed != nil && e.ed.Redo() }

func (e *Engine) MenuAction(action string) error {
	if e.ed == nil {
		return ErrNoDocument
	}
	return e.ed.RunMenuAction(editor.MenuAction(action))
}

// UpdateShape applies a JSON patch from the properties panel.
func (e *Engine) UpdateShape(id, patchJSON string) error {
	if e.ed == nil {
		return ErrNoDocument
	}
	var p editor.Patch
	if err := json.Unmarshal([]byte(patchJSON), &p); err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}
	_, err := e.ed.UpdateShape(id, p)
	return err
}

func (e *Engine) Arrange(id string, toFront bool) error {
	if e.ed == nil {
		return ErrNoDocument
	}
	if toFront {
		return e.ed.BringToFront(id)
	}
	return e.ed.SendToBack(id)
}

// Tick applies pending remote updates and returns draw commands.
// This is called once per animation frame from the frontend.
func (e *Engine) Tick() string {
	if e.ed != nil {
		e.ed.Poll()
	}
	return e.Render()
}

// --- Queries (frontend ← engine) ---

// Render returns the current draw commands as JSON.
func (e *Engine) Render() string {
	if e.ed == nil {
		return "[]"
	}
	result, _ := DrawCommandsToJSON(CompileDrawCommands(e.ed.View(), e.screen, e.opts.GridSize))
	return result
}

// GetView returns the editor state (tool, mode, readout, menu,
// collaborators) as JSON.
func (e *Engine) GetView() string {
	if e.ed == nil {
		return "null"
	}
	data, err := json.Marshal(e.ed.View())
	if err != nil {
		return "null"
	}
	return string(data)
}

// GetDocument returns the blueprint with the current canvas as JSON.
func (e *Engine) GetDocument() string {
	if e.ed == nil {
		return "null"
	}
	canvas, err := document.MarshalShapes(e.ed.Shapes())
	if err != nil {
		return "null"
	}
	bp := *e.bp
	bp.CanvasData = canvas
	data, err := json.Marshal(bp)
	if err != nil {
		return "null"
	}
	return string(data)
}
