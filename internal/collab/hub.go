package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const storeTimeout = 5 * time.Second

type Room struct {
	documentID string
	clients    map[string]*Client // clientID -> client
	presence   *PresenceManager
}

func NewRoom(documentID string) *Room {
	return &Room{
		documentID: documentID,
		clients:    make(map[string]*Client),
		presence:   NewPresenceManager(),
	}
}

type HubOptions struct {
	// Store persists relayed records. Nil keeps them in memory only.
	Store         RelayStore
	CacheSize     int
	CursorTTL     time.Duration
	SweepInterval time.Duration
	// OriginPatterns is passed to websocket.Accept.
	OriginPatterns []string
}

// Hub relays shape and cursor upserts between the clients editing the same
// blueprint and remembers the latest shape list per blueprint.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // documentID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	store  RelayStore
	latest *lru.Cache[string, ShapesRecord]
	opts   HubOptions
}

func NewHub(opts HubOptions) (*Hub, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CursorTTL <= 0 {
		opts.CursorTTL = DefaultCursorTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	latest, err := lru.New[string, ShapesRecord](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create shapes cache: %w", err)
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		store:      opts.Store,
		latest:     latest,
		opts:       opts,
	}, nil
}

// Run processes joins and leaves and sweeps stale cursors until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.sweep(ctx, time.Now().Add(-h.opts.CursorTTL))
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ServeWS upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, documentID, actorID, displayName string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h, conn, actorID, displayName, documentID, uuid.New().String())
	h.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// Latest returns the most recent shape record relayed for a document.
func (h *Hub) Latest(documentID string) (ShapesRecord, bool) {
	return h.latest.Get(documentID)
}

// loadLatest falls back to the store when the cache has no record.
func (h *Hub) loadLatest(documentID string) (ShapesRecord, bool) {
	if rec, ok := h.latest.Get(documentID); ok {
		return rec, true
	}
	loader, ok := h.store.(ShapesLoader)
	if !ok {
		return ShapesRecord{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	rec, found, err := loader.LatestShapes(ctx, documentID)
	if err != nil {
		slog.Error("load latest shapes", "document", documentID, "error", err)
		return ShapesRecord{}, false
	}
	if !found {
		return ShapesRecord{}, false
	}
	h.latest.Add(documentID, rec)
	return rec, true
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		room = NewRoom(client.DocumentID)
		h.rooms[client.DocumentID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	welcome := WelcomePayload{
		ClientID: client.ClientID,
		Cursors:  room.presence.Records(client.DocumentID),
	}
	if rec, ok := h.loadLatest(client.DocumentID); ok {
		welcome.Shapes = &rec
	}
	msg, err := newMessage(TypeWelcome, welcome)
	if err != nil {
		slog.Error("marshal welcome", "error", err)
	} else {
		client.Send(msg)
	}

	slog.Info("client joined", "actor", client.ActorID, "document", client.DocumentID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()

	stillHere := false
	for _, c := range room.clients {
		if c.ActorID == client.ActorID {
			stillHere = true
			break
		}
	}
	if !stillHere {
		room.presence.Remove(client.ActorID)
	}
	if len(room.clients) == 0 {
		delete(h.rooms, client.DocumentID)
	}
	h.mu.Unlock()

	if !stillHere {
		h.broadcastChange(client.DocumentID, Change{
			Kind:   ChangeCursorRemoved,
			Cursor: &CursorRecord{DocumentID: client.DocumentID, ActorID: client.ActorID},
		}, "")
	}

	slog.Info("client left", "actor", client.ActorID, "document", client.DocumentID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeShapesUpsert:
		h.handleShapes(sender, msg)
	case TypeCursorUpsert:
		h.handleCursor(sender, msg)
	case TypeCursorPrune:
		h.handlePrune(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "actor", sender.ActorID)
	}
}

func (h *Hub) handleShapes(sender *Client, msg *Message) {
	var rec ShapesRecord
	if err := json.Unmarshal(msg.Payload, &rec); err != nil || !json.Valid(rec.ShapesData) {
		slog.Warn("invalid shapes payload", "error", err, "actor", sender.ActorID)
		sender.SendError("invalid shapes payload")
		return
	}
	rec.DocumentID = sender.DocumentID
	rec.ActorID = sender.ActorID
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	h.latest.Add(rec.DocumentID, rec)
	if h.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := h.store.UpsertShapes(ctx, rec); err != nil {
			slog.Error("persist relayed shapes", "document", rec.DocumentID, "error", err)
		}
		cancel()
	}

	h.broadcastChange(sender.DocumentID, Change{Kind: ChangeShapes, Shapes: &rec}, sender.ClientID)
}

func (h *Hub) handleCursor(sender *Client, msg *Message) {
	var rec CursorRecord
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		slog.Warn("invalid cursor payload", "error", err, "actor", sender.ActorID)
		return
	}
	rec.DocumentID = sender.DocumentID
	rec.ActorID = sender.ActorID
	if rec.DisplayName == "" {
		rec.DisplayName = sender.DisplayName
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	h.mu.RLock()
	room, ok := h.rooms[sender.DocumentID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	room.presence.Update(rec)

	if h.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := h.store.UpsertCursor(ctx, rec); err != nil {
			slog.Error("persist relayed cursor", "document", rec.DocumentID, "error", err)
		}
		cancel()
	}

	h.broadcastChange(sender.DocumentID, Change{Kind: ChangeCursor, Cursor: &rec}, sender.ClientID)
}

func (h *Hub) handlePrune(sender *Client, msg *Message) {
	var p PrunePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Cutoff.IsZero() {
		slog.Warn("invalid prune payload", "error", err, "actor", sender.ActorID)
		return
	}
	h.pruneRoom(context.Background(), sender.DocumentID, p.Cutoff)
}

func (h *Hub) sweep(ctx context.Context, cutoff time.Time) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.pruneRoom(ctx, id, cutoff)
	}
}

// pruneRoom drops cursors last seen before cutoff and tells the room.
func (h *Hub) pruneRoom(ctx context.Context, documentID string, cutoff time.Time) {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	for _, actorID := range room.presence.Prune(cutoff) {
		h.broadcastChange(documentID, Change{
			Kind:   ChangeCursorRemoved,
			Cursor: &CursorRecord{DocumentID: documentID, ActorID: actorID},
		}, "")
	}

	if h.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		if _, err := h.store.DeleteCursorsOlderThan(storeCtx, documentID, cutoff); err != nil {
			slog.Error("delete stale cursors", "document", documentID, "error", err)
		}
	}
}

func (h *Hub) broadcastChange(documentID string, ch Change, excludeClientID string) {
	msg, err := newMessage(TypeChange, ch)
	if err != nil {
		slog.Error("marshal change", "error", err)
		return
	}
	msg.DocumentID = documentID
	h.broadcastToRoom(documentID, msg, excludeClientID)
}

func (h *Hub) broadcastToRoom(documentID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
