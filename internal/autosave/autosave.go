// Package autosave persists the editor canvas in the background. Schedules
// are debounced, writes are retried with exponential backoff and failures
// are reported without touching the in-memory document.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/plannr/plannr/blueprint-go/internal/document"
)

const (
	DefaultDelay      = 2 * time.Second
	DefaultMaxRetries = 3
	saveTimeout       = 10 * time.Second
)

var ErrClosed = errors.New("autosave closed")

// SaveFunc writes one serialized shape list for a document.
type SaveFunc func(ctx context.Context, documentID string, canvas json.RawMessage) error

type Options struct {
	DocumentID string
	Save       SaveFunc
	Delay      time.Duration
	MaxRetries uint64
	// InitialInterval is the first backoff wait; zero uses the library default.
	InitialInterval time.Duration
	// OnError is told about a save that failed after every retry.
	OnError func(error)
	// OnSaved is told when a canvas reached storage.
	OnSaved func(time.Time)
}

// Saver implements the editor's persistence hook.
type Saver struct {
	opts Options

	mu      sync.Mutex
	pending json.RawMessage
	dirty   bool

	kick  chan struct{}
	flush chan chan error

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a saver that runs until ctx is done or Close is called.
func New(ctx context.Context, opts Options) *Saver {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Saver{
		opts:   opts,
		kick:   make(chan struct{}, 1),
		flush:  make(chan chan error),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Schedule records the latest canvas; it is written once no newer canvas
// arrives for the configured delay.
func (s *Saver) Schedule(shapes []document.Shape) {
	data, err := document.MarshalShapes(shapes)
	if err != nil {
		s.report(err)
		return
	}

	s.mu.Lock()
	s.pending = data
	s.dirty = true
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Flush writes any pending canvas now and returns the outcome.
func (s *Saver) Flush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.flush <- reply:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending work and stops the saver.
func (s *Saver) Close() error {
	err := ErrClosed
	s.closeOnce.Do(func() {
		err = s.Flush(context.Background())
		s.cancel()
		<-s.done
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (s *Saver) run(ctx context.Context) {
	defer close(s.done)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			fire = time.After(s.opts.Delay)
		case <-fire:
			fire = nil
			s.save(ctx)
		case reply := <-s.flush:
			fire = nil
			reply <- s.save(ctx)
		}
	}
}

func (s *Saver) save(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	data := s.pending
	s.dirty = false
	s.mu.Unlock()

	b := backoff.NewExponentialBackOff()
	if s.opts.InitialInterval > 0 {
		b.InitialInterval = s.opts.InitialInterval
	}
	retries := backoff.WithMaxRetries(b, s.opts.MaxRetries)

	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, saveTimeout)
		defer cancel()

		err := s.opts.Save(callCtx, s.opts.DocumentID, data)
		if errors.Is(err, document.ErrNotFound) {
			return backoff.Permanent(err)
		}
		if err != nil {
			slog.Warn("autosave attempt failed", "document", s.opts.DocumentID, "attempt", attempt, "error", err)
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(retries, ctx)); err != nil {
		s.mu.Lock()
		if !s.dirty {
			s.pending = data
			s.dirty = true
		}
		s.mu.Unlock()

		err = fmt.Errorf("save document %s: %w", s.opts.DocumentID, err)
		s.report(err)
		return err
	}

	if s.opts.OnSaved != nil {
		s.opts.OnSaved(time.Now())
	}
	return nil
}

func (s *Saver) report(err error) {
	slog.Error("autosave failed", "document", s.opts.DocumentID, "error", err)
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}
