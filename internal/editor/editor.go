package editor

import (
	"context"
	"log/slog"

	"github.com/plannr/plannr/blueprint-go/internal/clipboard"
	"github.com/plannr/plannr/blueprint-go/internal/collab"
	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
	"github.com/plannr/plannr/blueprint-go/internal/history"
	"github.com/plannr/plannr/blueprint-go/internal/store"
	"github.com/plannr/plannr/blueprint-go/internal/typeid"
)

const (
	// HandleSize is the edge length of a resize grip in screen pixels.
	HandleSize = 8.0
	// GuideTolerance is how close two edges must be, in document units, to
	// produce an alignment guide while dragging.
	GuideTolerance = 5.0

	MinZoom = 0.1
	MaxZoom = 5.0
)

// Syncer is the collaboration handle the editor broadcasts through. Calls
// must not block.
type Syncer interface {
	Enabled() bool
	BroadcastShapes(shapes []document.Shape)
	BroadcastCursor(p geometry.Point)
	Remote() <-chan collab.RemoteShapes
	Collaborators() []collab.Collaborator
}

// Saver persists the committed shape list in the background.
type Saver interface {
	Schedule(shapes []document.Shape)
}

type Options struct {
	Shapes       []document.Shape
	HistoryLimit int
	GridSize     float64
	Clipboard    *clipboard.Clipboard
	Sync         Syncer
	Saver        Saver
	// NewID generates shape ids. Defaults to typeid shape ids.
	NewID func() string
}

// Editor owns the full editing state of one open blueprint. It is driven by
// a single goroutine; see Run.
type Editor struct {
	store     *store.Store
	history   *history.Manager
	clipboard *clipboard.Clipboard
	sync      Syncer
	saver     Saver
	newID     func() string
	grid      float64

	tool     Tool
	viewport geometry.Viewport
	mode     Mode

	// Bookkeeping for the active gesture.
	anchor    geometry.Point
	cursor    geometry.Point
	preview   geometry.Rect
	offsets   map[string]geometry.Point
	handle    Handle
	target    string
	origin    geometry.Rect
	before    []document.Shape
	selection []string
	guides    []geometry.Guide

	menu *Menu
}

func New(opts Options) *Editor {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.New(nil)
	}
	if opts.NewID == nil {
		opts.NewID = typeid.NewShapeID
	}
	if opts.GridSize <= 0 {
		opts.GridSize = geometry.DefaultGridSize
	}

	initial := document.CloneShapes(opts.Shapes)
	for i := range initial {
		initial[i].Selected = false
	}

	return &Editor{
		store:     store.New(initial),
		history:   history.New(initial, opts.HistoryLimit),
		clipboard: opts.Clipboard,
		sync:      opts.Sync,
		saver:     opts.Saver,
		newID:     opts.NewID,
		grid:      opts.GridSize,
		tool:      ToolSelect,
		viewport:  geometry.DefaultViewport(),
		mode:      ModeIdle,
	}
}

func (e *Editor) Mode() Mode                  { return e.mode }
func (e *Editor) Tool() Tool                  { return e.tool }
func (e *Editor) Viewport() geometry.Viewport { return e.viewport }
func (e *Editor) Shapes() []document.Shape    { return e.store.Shapes() }
func (e *Editor) Menu() *Menu                 { return e.menu }

// CollaborationEnabled is the passive indicator shown to the user.
func (e *Editor) CollaborationEnabled() bool {
	return e.sync != nil && e.sync.Enabled()
}

// View is a read-only snapshot for rendering.
type View struct {
	Shapes               []document.Shape      `json:"shapes"`
	Mode                 Mode                  `json:"mode"`
	Tool                 Tool                  `json:"tool"`
	Viewport             geometry.Viewport     `json:"viewport"`
	Preview              *geometry.Rect        `json:"preview,omitempty"`
	Readout              string                `json:"readout,omitempty"`
	Guides               []geometry.Guide      `json:"guides,omitempty"`
	Menu                 *Menu                 `json:"menu,omitempty"`
	Collaborators        []collab.Collaborator `json:"collaborators,omitempty"`
	CollaborationEnabled bool                  `json:"collaborationEnabled"`
	CanUndo              bool                  `json:"canUndo"`
	CanRedo              bool                  `json:"canRedo"`
}

func (e *Editor) View() View {
	v := View{
		Shapes:               e.store.Painted(),
		Mode:                 e.mode,
		Tool:                 e.tool,
		Viewport:             e.viewport,
		Guides:               e.guides,
		Menu:                 e.menu,
		CollaborationEnabled: e.CollaborationEnabled(),
		CanUndo:              e.history.CanUndo(),
		CanRedo:              e.history.CanRedo(),
	}
	if e.mode == ModeDrawing || e.mode == ModeBoxSelecting {
		r := e.preview
		v.Preview = &r
		if e.mode == ModeDrawing {
			v.Readout = readout(r)
		}
	}
	if e.sync != nil {
		v.Collaborators = e.sync.Collaborators()
	}
	return v
}

func readout(r geometry.Rect) string {
	return geometry.FormatMeasurement(r.Width) + " x " + geometry.FormatMeasurement(r.Height)
}

// Command is a closure executed on the editor goroutine.
type Command func(e *Editor)

// Run serializes UI events, commands and remote shape updates through one
// goroutine until ctx is done or events is closed.
func (e *Editor) Run(ctx context.Context, events <-chan Event, commands <-chan Command) error {
	var remote <-chan collab.RemoteShapes
	if e.sync != nil {
		remote = e.sync.Remote()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			e.Handle(ev)
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			cmd(e)
		case upd, ok := <-remote:
			if !ok {
				remote = nil
				continue
			}
			e.ApplyRemote(upd.Shapes)
		}
	}
}

// Poll applies every remote update already queued without blocking and
// returns how many were applied. Hosts that cannot dedicate a goroutine to
// Run call it once per frame.
func (e *Editor) Poll() int {
	if e.sync == nil {
		return 0
	}
	remote := e.sync.Remote()
	n := 0
	for {
		select {
		case upd, ok := <-remote:
			if !ok {
				return n
			}
			e.ApplyRemote(upd.Shapes)
			n++
		default:
			return n
		}
	}
}

// ApplyRemote replaces the shape list with one received from another actor.
// Local selection survives for ids that still exist. History is untouched.
func (e *Editor) ApplyRemote(shapes []document.Shape) {
	selected := make(map[string]bool)
	for _, id := range e.store.SelectedIDs() {
		selected[id] = true
	}

	incoming := document.CloneShapes(shapes)
	for i := range incoming {
		incoming[i].Normalize()
		incoming[i].Selected = selected[incoming[i].ID]
	}
	e.store.Replace(incoming)

	// Escape during a gesture returns to the remote state, not to the
	// pre-gesture one.
	if e.mode == ModeDragging || e.mode == ModeResizing {
		e.before = e.store.Shapes()
	}

	if e.menu != nil {
		if _, ok := e.store.Get(e.menu.ShapeID); !ok {
			e.menu = nil
		}
	}
	slog.Debug("applied remote shapes", "count", len(incoming), "mode", e.mode)
}

// commit records the store as a new history entry and publishes it.
func (e *Editor) commit() {
	shapes := e.store.Shapes()
	e.history.Commit(shapes)
	e.publish(shapes)
}

// publish hands the list to collaboration and autosave. Neither blocks.
func (e *Editor) publish(shapes []document.Shape) {
	wire := document.ForWire(shapes)
	if e.CollaborationEnabled() {
		e.sync.BroadcastShapes(wire)
	}
	if e.saver != nil {
		e.saver.Schedule(wire)
	}
}
