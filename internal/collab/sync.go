package collab

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plannr/plannr/blueprint-go/internal/document"
	"github.com/plannr/plannr/blueprint-go/internal/geometry"
)

const (
	DefaultCursorTTL     = 5 * time.Minute
	DefaultSweepInterval = time.Minute

	callTimeout  = 10 * time.Second
	remoteBuffer = 16
)

type SyncOptions struct {
	DocumentID  string
	ActorID     string
	DisplayName string

	CursorTTL     time.Duration
	SweepInterval time.Duration

	Now func() time.Time
}

// Sync is the background collaboration actor for one open document. The
// editor hands it broadcasts without waiting and reads remote shape lists
// from Remote. The first transport error turns it off for good.
type Sync struct {
	backend Backend
	opts    SyncOptions

	enabled  atomic.Bool
	shapes   chan ShapesRecord // mailbox of size one, latest wins
	cursors  chan CursorRecord // mailbox of size one, latest wins
	remote   chan RemoteShapes
	presence *PresenceManager

	startOnce   sync.Once
	disableOnce sync.Once
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewSync(backend Backend, opts SyncOptions) *Sync {
	if opts.CursorTTL <= 0 {
		opts.CursorTTL = DefaultCursorTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sync{
		backend:  backend,
		opts:     opts,
		shapes:   make(chan ShapesRecord, 1),
		cursors:  make(chan CursorRecord, 1),
		remote:   make(chan RemoteShapes, remoteBuffer),
		presence: NewPresenceManager(),
		cancel:   func() {},
		done:     make(chan struct{}),
	}
}

// Start probes the backend once and, if it answers, subscribes and starts
// the actor. On failure collaboration stays off for the session and the
// returned error wraps ErrCollaborationDisabled.
func (s *Sync) Start(ctx context.Context) error {
	err := ErrCollaborationDisabled
	s.startOnce.Do(func() { err = s.start(ctx) })
	return err
}

func (s *Sync) start(ctx context.Context) error {
	if s.backend == nil {
		close(s.done)
		return ErrCollaborationDisabled
	}

	probeCtx, cancel := context.WithTimeout(ctx, callTimeout)
	err := s.backend.Probe(probeCtx, s.opts.DocumentID)
	cancel()
	if err != nil {
		close(s.done)
		s.disable("probe", err)
		return fmt.Errorf("%w: probe: %v", ErrCollaborationDisabled, err)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	changes, err := s.backend.Subscribe(runCtx, s.opts.DocumentID)
	if err != nil {
		runCancel()
		close(s.done)
		s.disable("subscribe", err)
		return fmt.Errorf("%w: subscribe: %v", ErrCollaborationDisabled, err)
	}

	s.cancel = runCancel
	s.enabled.Store(true)
	go s.run(runCtx, changes)

	slog.Info("collaboration enabled", "document", s.opts.DocumentID, "actor", s.opts.ActorID)
	return nil
}

func (s *Sync) Enabled() bool { return s.enabled.Load() }

// Remote delivers shape lists from other actors. It is closed when the actor
// stops.
func (s *Sync) Remote() <-chan RemoteShapes { return s.remote }

func (s *Sync) Collaborators() []Collaborator { return s.presence.All() }

// BroadcastShapes queues the full list for upsert. It never blocks; an
// unsent older list is replaced.
func (s *Sync) BroadcastShapes(shapes []document.Shape) {
	if !s.Enabled() {
		return
	}
	data, err := document.MarshalShapes(shapes)
	if err != nil {
		slog.Error("encode shapes for broadcast", "error", err)
		return
	}
	offer(s.shapes, ShapesRecord{
		DocumentID: s.opts.DocumentID,
		ActorID:    s.opts.ActorID,
		ShapesData: data,
		UpdatedAt:  s.opts.Now().UTC(),
	})
}

func (s *Sync) BroadcastCursor(p geometry.Point) {
	if !s.Enabled() {
		return
	}
	offer(s.cursors, CursorRecord{
		DocumentID:  s.opts.DocumentID,
		ActorID:     s.opts.ActorID,
		DisplayName: s.opts.DisplayName,
		CursorX:     p.X,
		CursorY:     p.Y,
		UpdatedAt:   s.opts.Now().UTC(),
	})
}

// Close stops the actor and waits for it.
func (s *Sync) Close() {
	s.startOnce.Do(func() { close(s.done) })
	s.enabled.Store(false)
	s.cancel()
	<-s.done
}

// offer queues v without blocking, evicting the oldest queued value when
// the channel is full. Every value is a full state so only the newest matters.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (s *Sync) run(ctx context.Context, changes <-chan Change) {
	defer close(s.done)
	defer close(s.remote)

	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case rec := <-s.shapes:
			err = s.call(ctx, "upsert shapes", func(ctx context.Context) error {
				return s.backend.UpsertShapes(ctx, rec)
			})
		case rec := <-s.cursors:
			err = s.call(ctx, "upsert cursor", func(ctx context.Context) error {
				return s.backend.UpsertCursor(ctx, rec)
			})
		case <-ticker.C:
			err = s.sweep(ctx)
		case ch, ok := <-changes:
			if !ok {
				if ctx.Err() == nil {
					s.disable("subscription", fmt.Errorf("subscription closed"))
				}
				return
			}
			s.apply(ch)
		}
		if err != nil {
			return
		}
	}
}

func (s *Sync) call(ctx context.Context, op string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := fn(callCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.disable(op, err)
		return err
	}
	return nil
}

func (s *Sync) sweep(ctx context.Context) error {
	cutoff := s.opts.Now().Add(-s.opts.CursorTTL)
	for _, id := range s.presence.Prune(cutoff) {
		slog.Debug("collaborator timed out", "document", s.opts.DocumentID, "actor", id)
	}
	return s.call(ctx, "delete stale cursors", func(ctx context.Context) error {
		n, err := s.backend.DeleteCursorsOlderThan(ctx, s.opts.DocumentID, cutoff)
		if err == nil && n > 0 {
			slog.Debug("deleted stale cursors", "document", s.opts.DocumentID, "count", n)
		}
		return err
	})
}

// apply handles one subscription event. Own echoes and events for other
// documents are ignored; malformed payloads are logged and dropped.
func (s *Sync) apply(ch Change) {
	switch ch.Kind {
	case ChangeShapes:
		rec := ch.Shapes
		if rec == nil {
			slog.Warn("malformed change", "document", s.opts.DocumentID, "kind", ch.Kind)
			return
		}
		if rec.DocumentID != s.opts.DocumentID || rec.ActorID == s.opts.ActorID {
			return
		}
		shapes, err := document.UnmarshalShapes(rec.ShapesData)
		if err != nil {
			slog.Warn("discard remote shapes", "document", s.opts.DocumentID, "actor", rec.ActorID, "error", err)
			return
		}
		offer(s.remote, RemoteShapes{ActorID: rec.ActorID, Shapes: shapes, UpdatedAt: rec.UpdatedAt})

	case ChangeCursor:
		rec := ch.Cursor
		if rec == nil {
			slog.Warn("malformed change", "document", s.opts.DocumentID, "kind", ch.Kind)
			return
		}
		if rec.DocumentID != s.opts.DocumentID || rec.ActorID == s.opts.ActorID {
			return
		}
		s.presence.Update(*rec)

	case ChangeCursorRemoved:
		if ch.Cursor != nil {
			s.presence.Remove(ch.Cursor.ActorID)
		}

	default:
		slog.Warn("unknown change kind", "document", s.opts.DocumentID, "kind", ch.Kind)
	}
}

func (s *Sync) disable(op string, err error) {
	s.disableOnce.Do(func() {
		s.enabled.Store(false)
		s.cancel()
		slog.Warn("collaboration unavailable, continuing local-only",
			"document", s.opts.DocumentID, "op", op, "error", err)
	})
}
