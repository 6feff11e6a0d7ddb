package collab

import (
	"encoding/json"
	"time"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

// ShapesRecord is the shape channel row, keyed by (DocumentID, ActorID).
// ShapesData is the full serialized shape list.
type ShapesRecord struct {
	DocumentID string          `json:"document_id"`
	ActorID    string          `json:"actor_id"`
	ShapesData json.RawMessage `json:"shapes_data"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CursorRecord is the cursor channel row, keyed by (DocumentID, ActorID).
type CursorRecord struct {
	DocumentID  string    `json:"document_id"`
	ActorID     string    `json:"actor_id"`
	DisplayName string    `json:"display_name,omitempty"`
	CursorX     float64   `json:"cursor_x"`
	CursorY     float64   `json:"cursor_y"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c CursorRecord) Point() geometry.Point {
	return geometry.Point{X: c.CursorX, Y: c.CursorY}
}

type ChangeKind string

const (
	ChangeShapes        ChangeKind = "shapes"
	ChangeCursor        ChangeKind = "cursor"
	ChangeCursorRemoved ChangeKind = "cursor_removed"
)

// Change is one event from a document subscription. Inserts and updates are
// not distinguished. Only the record matching Kind is set; a removal carries
// a CursorRecord with just the keys.
type Change struct {
	Kind   ChangeKind    `json:"kind"`
	Shapes *ShapesRecord `json:"shapes,omitempty"`
	Cursor *CursorRecord `json:"cursor,omitempty"`
}

// RemoteShapes is a decoded shape list from another actor, ready to replace
// the local store.
type RemoteShapes struct {
	ActorID   string
	Shapes    []document.Shape
	UpdatedAt time.Time
}

// Collaborator is another actor currently looking at the document.
type Collaborator struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	Cursor      geometry.Point `json:"cursor"`
	LastSeen    time.Time      `json:"lastSeen"`
}

// Message is the relay websocket envelope.
type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	ActorID    string          `json:"actorId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type WelcomePayload struct {
	ClientID string         `json:"clientId"`
	Shapes   *ShapesRecord  `json:"shapes,omitempty"`
	Cursors  []CursorRecord `json:"cursors,omitempty"`
}

type PrunePayload struct {
	Cutoff time.Time `json:"cutoff"`
}

const (
	// server → client
	TypeWelcome = "welcome"
	TypeChange  = "change"
	TypeError   = "error"

	// client → server
	TypeShapesUpsert = "shapes.upsert"
	TypeCursorUpsert = "cursor.upsert"
	TypeCursorPrune  = "cursor.prune"
)

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
