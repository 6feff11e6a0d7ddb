package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalShapes serializes a shape list for canvas_data / shapes_data.
// The selected flag is never written.
func MarshalShapes(shapes []Shape) (json.RawMessage, error) {
	data, err := json.Marshal(ForWire(shapes))
	if err != nil {
		return nil, fmt.Errorf("marshal shapes: %w", err)
	}
	return data, nil
}

// UnmarshalShapes decodes and validates a shape list. Unknown kinds and
// duplicate or empty ids are rejected; sizes are clamped.
func UnmarshalShapes(data []byte) ([]Shape, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Shape{}, nil
	}

	var shapes []Shape
	if err := json.Unmarshal(trimmed, &shapes); err != nil {
		return nil, fmt.Errorf("unmarshal shapes: %w", err)
	}

	seen := make(map[string]bool, len(shapes))
	for i := range shapes {
		s := &shapes[i]
		if s.ID == "" {
			return nil, fmt.Errorf("shape %d: missing id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("shape %d: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		if !s.Kind.Valid() {
			return nil, fmt.Errorf("shape %q: %w: %q", s.ID, ErrUnknownKind, s.Kind)
		}
		s.Normalize()
	}
	if shapes == nil {
		shapes = []Shape{}
	}
	return shapes, nil
}
