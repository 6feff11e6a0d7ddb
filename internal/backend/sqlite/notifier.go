package sqlite

import (
	"context"
	"log/slog"
	"sync"

	"github.com/plannr/plannr/blueprint-go/internal/collab"
)

const subscriberBuffer = 64

// notifier fans collaboration changes out to in-process subscribers. SQLite
// has no change feed of its own, so only writers sharing this Store are seen.
type notifier struct {
	mu     sync.Mutex
	subs   map[string]map[chan collab.Change]struct{} // documentID -> subscribers
	closed bool
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[chan collab.Change]struct{})}
}

func (n *notifier) subscribe(ctx context.Context, documentID string) <-chan collab.Change {
	ch := make(chan collab.Change, subscriberBuffer)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch
	}
	if n.subs[documentID] == nil {
		n.subs[documentID] = make(map[chan collab.Change]struct{})
	}
	n.subs[documentID][ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.remove(documentID, ch)
	}()
	return ch
}

func (n *notifier) remove(documentID string, ch chan collab.Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.subs[documentID][ch]; !ok {
		return
	}
	delete(n.subs[documentID], ch)
	if len(n.subs[documentID]) == 0 {
		delete(n.subs, documentID)
	}
	close(ch)
}

func (n *notifier) publish(documentID string, c collab.Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[documentID] {
		select {
		case ch <- c:
		default:
			slog.Warn("subscriber buffer full, dropping change", "document", documentID, "kind", c.Kind)
		}
	}
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for doc, subs := range n.subs {
		for ch := range subs {
			close(ch)
		}
		delete(n.subs, doc)
	}
}
