package clipboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/typeid"
)

// PasteOffset is added to x and y of every pasted or duplicated shape.
const PasteOffset = 20.0

const payloadKind = "plannr/blueprint-shapes"

// ErrClipboardForeign is returned when the slot holds something that is not
// a shape payload.
var ErrClipboardForeign = errors.New("clipboard does not contain blueprint shapes")

// Slot is the scratch storage behind the clipboard.
type Slot interface {
	Write(data []byte) error
	Read() ([]byte, error)
}

// MemorySlot keeps the payload in process memory.
type MemorySlot struct {
	mu   sync.Mutex
	data []byte
}

func (m *MemorySlot) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemorySlot) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...), nil
}

var defaultSlot = &MemorySlot{}

// Default is the process-wide slot shared by every editor session.
func Default() Slot { return defaultSlot }

type payload struct {
	Kind   string          `json:"kind"`
	Shapes json.RawMessage `json:"shapes"`
}

// Clipboard copies and pastes shape selections through a Slot.
type Clipboard struct {
	slot  Slot
	newID func() string
}

func New(slot Slot) *Clipboard {
	if slot == nil {
		slot = Default()
	}
	return &Clipboard{slot: slot, newID: typeid.NewShapeID}
}

// Copy serializes shapes into the slot. Copying nothing leaves the slot as is.
func (c *Clipboard) Copy(shapes []document.Shape) error {
	if len(shapes) == 0 {
		return nil
	}
	data, err := document.MarshalShapes(shapes)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(payload{Kind: payloadKind, Shapes: data})
	if err != nil {
		return fmt.Errorf("marshal clipboard payload: %w", err)
	}
	return c.slot.Write(raw)
}

// Paste reads the slot and returns fresh copies ready to be added: new ids,
// offset by PasteOffset and marked selected. An empty slot yields nil.
func (c *Clipboard) Paste() ([]document.Shape, error) {
	raw, err := c.slot.Read()
	if err != nil {
		return nil, fmt.Errorf("read clipboard: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil || p.Kind != payloadKind {
		return nil, ErrClipboardForeign
	}
	shapes, err := document.UnmarshalShapes(p.Shapes)
	if err != nil {
		return nil, fmt.Errorf("decode clipboard: %w", err)
	}
	if len(shapes) == 0 {
		return nil, nil
	}
	return c.Duplicate(shapes), nil
}

// Duplicate applies the paste transform without touching the slot.
func (c *Clipboard) Duplicate(shapes []document.Shape) []document.Shape {
	out := document.CloneShapes(shapes)
	for i := range out {
		out[i].ID = c.newID()
		out[i].X += PasteOffset
		out[i].Y += PasteOffset
		out[i].Selected = true
	}
	return out
}
