package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// WSBackend reaches the collaboration channel through the relay hub. One
// backend serves one document session over a single connection.
type WSBackend struct {
	baseURL string
	token   string

	mu      sync.Mutex
	conn    *websocket.Conn
	doc     string
	welcome *WelcomePayload
	closed  bool
}

// NewWSBackend targets a relay endpoint such as ws://host/ws/blueprints. The
// token is sent as a query parameter.
func NewWSBackend(baseURL, token string) *WSBackend {
	return &WSBackend{baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

func (b *WSBackend) endpoint(documentID string) string {
	u := b.baseURL + "/" + url.PathEscape(documentID)
	if b.token != "" {
		u += "?token=" + url.QueryEscape(b.token)
	}
	return u
}

// Probe connects and waits for the relay's welcome.
func (b *WSBackend) Probe(ctx context.Context, documentID string) error {
	_, err := b.connect(ctx, documentID)
	return err
}

func (b *WSBackend) connect(ctx context.Context, documentID string) (*websocket.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrRelayClosed
	}
	if b.conn != nil {
		if b.doc != documentID {
			return nil, fmt.Errorf("relay connection is bound to %q", b.doc)
		}
		return b.conn, nil
	}

	conn, _, err := websocket.Dial(ctx, b.endpoint(documentID), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	conn.SetReadLimit(maxMsgSize)

	_, data, err := conn.Read(ctx)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	var msg Message
	var welcome WelcomePayload
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != TypeWelcome {
		conn.Close(websocket.StatusProtocolError, "")
		return nil, errors.New("relay did not send a welcome")
	}
	if err := json.Unmarshal(msg.Payload, &welcome); err != nil {
		conn.Close(websocket.StatusProtocolError, "")
		return nil, fmt.Errorf("decode welcome: %w", err)
	}

	b.conn = conn
	b.doc = documentID
	b.welcome = &welcome
	return conn, nil
}

func (b *WSBackend) send(ctx context.Context, documentID, typ string, payload any) error {
	conn, err := b.connect(ctx, documentID)
	if err != nil {
		return err
	}
	msg, err := newMessage(typ, payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write %s: %w", typ, err)
	}
	return nil
}

func (b *WSBackend) UpsertShapes(ctx context.Context, rec ShapesRecord) error {
	return b.send(ctx, rec.DocumentID, TypeShapesUpsert, rec)
}

func (b *WSBackend) UpsertCursor(ctx context.Context, rec CursorRecord) error {
	return b.send(ctx, rec.DocumentID, TypeCursorUpsert, rec)
}

// DeleteCursorsOlderThan asks the relay to prune. The relay does not report
// a count, so zero is returned.
func (b *WSBackend) DeleteCursorsOlderThan(ctx context.Context, documentID string, cutoff time.Time) (int64, error) {
	return 0, b.send(ctx, documentID, TypeCursorPrune, PrunePayload{Cutoff: cutoff})
}

// Subscribe replays the welcome state and then streams relayed changes.
func (b *WSBackend) Subscribe(ctx context.Context, documentID string) (<-chan Change, error) {
	conn, err := b.connect(ctx, documentID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	welcome := b.welcome
	b.welcome = nil
	b.mu.Unlock()

	out := make(chan Change, 64)
	go func() {
		// The backend is marked closed before out is, so a queued upsert
		// fails instead of dialing a connection nobody reads.
		defer close(out)
		defer b.Close()

		if welcome != nil {
			for _, c := range welcomeChanges(welcome) {
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("relay read", "document", documentID, "error", err)
				}
				return
			}

			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				slog.Warn("invalid relay message", "error", err)
				continue
			}
			switch msg.Type {
			case TypeChange:
				var ch Change
				if err := json.Unmarshal(msg.Payload, &ch); err != nil {
					slog.Warn("invalid relay change", "error", err)
					continue
				}
				select {
				case out <- ch:
				case <-ctx.Done():
					return
				}
			case TypeError:
				slog.Warn("relay error", "document", documentID, "payload", string(msg.Payload))
			default:
				slog.Debug("ignoring relay message", "type", msg.Type)
			}
		}
	}()
	return out, nil
}

func welcomeChanges(w *WelcomePayload) []Change {
	var out []Change
	if w.Shapes != nil {
		out = append(out, Change{Kind: ChangeShapes, Shapes: w.Shapes})
	}
	for i := range w.Cursors {
		out = append(out, Change{Kind: ChangeCursor, Cursor: &w.Cursors[i]})
	}
	return out
}

// Close drops the relay connection. A closed backend never redials.
func (b *WSBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close(websocket.StatusNormalClosure, "")
	b.conn = nil
	return err
}
