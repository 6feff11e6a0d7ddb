package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 1 << 20
)

// Client is one websocket connection to the relay.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	mu          sync.Mutex
	closed      bool
	ActorID     string
	DisplayName string
	DocumentID  string
	ClientID    string
}

func NewClient(hub *Hub, conn *websocket.Conn, actorID, displayName, documentID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		ActorID:     actorID,
		DisplayName: displayName,
		DocumentID:  documentID,
		ClientID:    clientID,
	}
}

// ReadPump decodes relay requests until the peer goes away. Identity fields
// are always overwritten with the connection's own so a client can never
// write as another actor or into another document.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if !closedByPeer(err) {
				slog.Debug("read error", "error", err, "actor", c.ActorID, "document", c.DocumentID)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "actor", c.ActorID)
			c.SendError("invalid message")
			continue
		}
		if msg.DocumentID != "" && msg.DocumentID != c.DocumentID {
			slog.Warn("message for foreign document", "actor", c.ActorID,
				"document", c.DocumentID, "target", msg.DocumentID)
			c.SendError("document mismatch")
			continue
		}

		msg.ActorID = c.ActorID
		msg.ClientID = c.ClientID
		msg.DocumentID = c.DocumentID

		c.hub.handleMessage(c, &msg)
	}
}

func closedByPeer(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "actor", c.ActorID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "actor", c.ActorID)
	}
}

// close stops the write pump. Sends after close are dropped.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) SendError(reason string) {
	msg, err := newMessage(TypeError, map[string]string{"error": reason})
	if err != nil {
		return
	}
	c.Send(msg)
}
