//go:build js && wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"syscall/js"
	"time"

	"github.com/plannr/plannr/blueprint-go/internal/autosave"
	"github.com/plannr/plannr/blueprint-go/internal/collab"
	"github.com/plannr/plannr/blueprint-go/internal/config"
	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/engine"
)

// settings handed over by connect(): the server's /api/editor/config
// response plus the caller's identity.
type settings struct {
	config.EditorSettings
	APIBase     string `json:"apiBase"`
	Token       string `json:"token"`
	ActorID     string `json:"actorId"`
	DisplayName string `json:"displayName"`
}

var (
	eng *engine.Engine
	cfg settings

	statusMu  sync.Mutex
	saveError string
	savedAt   time.Time
)

func main() {
	eng = engine.NewEngine(engine.Options{Connect: connectSession})

	plannrEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	plannrEngine.Set("connect", js.FuncOf(connect))
	plannrEngine.Set("loadDocument", js.FuncOf(loadDocument))
	plannrEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	plannrEngine.Set("resize", js.FuncOf(resize))
	plannrEngine.Set("pointerDown", js.FuncOf(pointerDown))
	plannrEngine.Set("pointerMove", js.FuncOf(pointerMove))
	plannrEngine.Set("pointerUp", js.FuncOf(pointerUp))
	plannrEngine.Set("contextMenu", js.FuncOf(contextMenu))
	plannrEngine.Set("keyDown", js.FuncOf(keyDown))
	plannrEngine.Set("setTool", js.FuncOf(setTool))
	plannrEngine.Set("zoom", js.FuncOf(zoom))
	plannrEngine.Set("pan", js.FuncOf(pan))
	plannrEngine.Set("undo", js.FuncOf(undo))
	plannrEngine.Set("redo", js.FuncOf(redo))
	plannrEngine.Set("menuAction", js.FuncOf(menuAction))
	plannrEngine.Set("updateShape", js.FuncOf(updateShape))
	plannrEngine.Set("arrange", js.FuncOf(arrange))
	plannrEngine.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← engine) ---
	plannrEngine.Set("render", js.FuncOf(render))
	plannrEngine.Set("getView", js.FuncOf(getView))
	plannrEngine.Set("getDocument", js.FuncOf(getDocument))
	plannrEngine.Set("getStatus", js.FuncOf(getStatus))

	js.Global().Set("plannrEngine", plannrEngine)
	js.Global().Set("plannrWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// connectSession builds the collaboration actor and autosaver for a loaded
// blueprint. Network setup runs on its own goroutine; callbacks from the
// browser must never block.
func connectSession(bp *document.Blueprint) engine.Session {
	ctx, cancel := context.WithCancel(context.Background())
	var (
		s       engine.Session
		syncer  *collab.Sync
		backend *collab.WSBackend
		saver   *autosave.Saver
	)

	if cfg.RelayURL != "" && cfg.ActorID != "" {
		backend = collab.NewWSBackend(cfg.RelayURL, cfg.Token)
		syncer = collab.NewSync(backend, collab.SyncOptions{
			DocumentID:  bp.ID,
			ActorID:     cfg.ActorID,
			DisplayName: cfg.DisplayName,
			CursorTTL:   time.Duration(cfg.CursorTTLMS) * time.Millisecond,
		})
		go func() {
			if err := syncer.Start(ctx); err != nil {
				slog.Warn("collaboration unavailable", "document", bp.ID, "error", err)
			}
		}()
		s.Sync = syncer
	}

	if cfg.APIBase != "" {
		saver = autosave.New(ctx, autosave.Options{
			DocumentID: bp.ID,
			Save:       saveOverHTTP,
			Delay:      time.Duration(cfg.AutosaveDelayMS) * time.Millisecond,
			MaxRetries: cfg.AutosaveMaxRetries,
			OnError: func(err error) {
				statusMu.Lock()
				saveError = err.Error()
				statusMu.Unlock()
			},
			OnSaved: func(at time.Time) {
				statusMu.Lock()
				saveError, savedAt = "", at
				statusMu.Unlock()
			},
		})
		s.Saver = saver
	}

	// Teardown waits on the network, so it runs off the JS callback.
	s.Close = func() {
		go func() {
			if saver != nil {
				if err := saver.Close(); err != nil {
					slog.Warn("final save failed", "document", bp.ID, "error", err)
				}
			}
			cancel()
			if syncer != nil {
				syncer.Close()
				backend.Close()
			}
		}()
	}
	return s
}

func saveOverHTTP(ctx context.Context, documentID string, canvas json.RawMessage) error {
	endpoint := fmt.Sprintf("%s/api/blueprints/%s/canvas", cfg.APIBase, url.PathEscape(documentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(canvas))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.Token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("save canvas: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return document.ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("save canvas: %s", resp.Status)
	}
	return nil
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func argFloat(args []js.Value, i int) float64 {
	if i >= len(args) || args[i].Type() != js.TypeNumber {
		return 0
	}
	return args[i].Float()
}

func argBool(args []js.Value, i int) bool {
	return i < len(args) && args[i].Truthy()
}

func argString(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

// --- Command Handlers ---

func connect(this js.Value, args []js.Value) interface{} {
	var next settings
	if err := json.Unmarshal([]byte(argString(args, 0)), &next); err != nil {
		return result(fmt.Errorf("decode settings: %w", err))
	}
	if next.AutosaveMaxRetries == 0 {
		next.AutosaveMaxRetries = autosave.DefaultMaxRetries
	}
	cfg = next

	// History limits are fixed per engine, so a new connection starts a
	// fresh one. The loaded blueprint is dropped with the old engine.
	eng.Close()
	eng = engine.NewEngine(engine.Options{
		HistoryLimit: cfg.HistoryLimit,
		Connect:      connectSession,
	})
	return result(nil)
}

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing blueprint JSON"})
	}
	return result(eng.LoadDocument(args[0].String()))
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	id := "bp_sample"
	if s := argString(args, 0); s != "" {
		id = s
	}
	return result(eng.LoadSampleDocument(id))
}

func resize(this js.Value, args []js.Value) interface{} {
	eng.Resize(argFloat(args, 0), argFloat(args, 1))
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.PointerDown(argFloat(args, 0), argFloat(args, 1), argBool(args, 2), argBool(args, 3)))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.PointerMove(argFloat(args, 0), argFloat(args, 1)))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.PointerUp(argFloat(args, 0), argFloat(args, 1), argBool(args, 2)))
}

func contextMenu(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ContextMenu(argFloat(args, 0), argFloat(args, 1)))
}

func keyDown(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.KeyDown(argString(args, 0), argBool(args, 1), argBool(args, 2)))
}

func setTool(this js.Value, args []js.Value) interface{} {
	return result(eng.SetTool(argString(args, 0)))
}

func zoom(this js.Value, args []js.Value) interface{} {
	eng.Zoom(argFloat(args, 0), argFloat(args, 1), argFloat(args, 2))
	return nil
}

func pan(this js.Value, args []js.Value) interface{} {
	eng.Pan(argFloat(args, 0), argFloat(args, 1))
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Redo())
}

func menuAction(this js.Value, args []js.Value) interface{} {
	return result(eng.MenuAction(argString(args, 0)))
}

func updateShape(this js.Value, args []js.Value) interface{} {
	return result(eng.UpdateShape(argString(args, 0), argString(args, 1)))
}

func arrange(this js.Value, args []js.Value) interface{} {
	return result(eng.Arrange(argString(args, 0), argBool(args, 1)))
}

func tick(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Tick())
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func getView(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetView())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func getStatus(this js.Value, args []js.Value) interface{} {
	statusMu.Lock()
	defer statusMu.Unlock()
	status := map[string]interface{}{"saveError": saveError}
	if !savedAt.IsZero() {
		status["savedAt"] = savedAt.Format(time.RFC3339)
	}
	return js.ValueOf(status)
}
