package collab

import (
	"context"
	"errors"
	"time"
)

var ErrCollaborationDisabled = errors.New("collaboration disabled")

// ErrRelayClosed is returned by a WSBackend after Close or after its
// subscription ended.
var ErrRelayClosed = errors.New("relay connection closed")

// Backend is what realtime collaboration needs from the persistence layer.
type Backend interface {
	// Probe is a cheap read that fails when the collaboration channel for
	// the document does not exist or cannot be reached.
	Probe(ctx context.Context, documentID string) error
	UpsertShapes(ctx context.Context, rec ShapesRecord) error
	UpsertCursor(ctx context.Context, rec CursorRecord) error
	// Subscribe streams changes for one document until ctx is done. The
	// channel is closed when the subscription ends; a close before ctx is
	// done means the transport failed.
	Subscribe(ctx context.Context, documentID string) (<-chan Change, error)
	DeleteCursorsOlderThan(ctx context.Context, documentID string, cutoff time.Time) (int64, error)
}

// RelayStore is the subset of Backend the relay hub persists through.
type RelayStore interface {
	UpsertShapes(ctx context.Context, rec ShapesRecord) error
	UpsertCursor(ctx context.Context, rec CursorRecord) error
	DeleteCursorsOlderThan(ctx context.Context, documentID string, cutoff time.Time) (int64, error)
}

// ShapesLoader is implemented by relay stores that can recall the latest
// shape record after a restart or cache eviction.
type ShapesLoader interface {
	LatestShapes(ctx context.Context, documentID string) (ShapesRecord, bool, error)
}
