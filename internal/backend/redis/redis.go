package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/plannr/plannr/blueprint-go/internal/collab"
)

var _ collab.Backend = (*Backend)(nil)

// Backend implements the collaboration channels on Redis: one hash per
// document for shapes and cursors, a sorted set of cursor timestamps for
// pruning and a pub/sub channel per document for change events.
type Backend struct {
	client *goredis.Client
}

func New(client *goredis.Client) *Backend {
	return &Backend{client: client}
}

// Dial connects to addr and verifies it answers.
func Dial(ctx context.Context, addr string) (*Backend, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return New(client), nil
}

func (b *Backend) Close() error { return b.client.Close() }

func Channel(documentID string) string    { return "blueprint:" + documentID }
func shapesKey(documentID string) string  { return "blueprint:" + documentID + ":shapes" }
func cursorsKey(documentID string) string { return "blueprint:" + documentID + ":cursors" }
func timesKey(documentID string) string   { return "blueprint:" + documentID + ":cursor_times" }

func (b *Backend) Probe(ctx context.Context, documentID string) error {
	_, err := b.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Ping(ctx)
		pipe.Exists(ctx, shapesKey(documentID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("probe redis: %w", err)
	}
	return nil
}

func (b *Backend) UpsertShapes(ctx context.Context, rec collab.ShapesRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal shapes record: %w", err)
	}
	change, err := json.Marshal(collab.Change{Kind: collab.ChangeShapes, Shapes: &rec})
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, shapesKey(rec.DocumentID), rec.ActorID, data)
		pipe.Publish(ctx, Channel(rec.DocumentID), change)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert shapes: %w", err)
	}
	return nil
}

func (b *Backend) UpsertCursor(ctx context.Context, rec collab.CursorRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cursor record: %w", err)
	}
	change, err := json.Marshal(collab.Change{Kind: collab.ChangeCursor, Cursor: &rec})
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, cursorsKey(rec.DocumentID), rec.ActorID, data)
		pipe.ZAdd(ctx, timesKey(rec.DocumentID), &goredis.Z{
			Score:  float64(rec.UpdatedAt.UnixMilli()),
			Member: rec.ActorID,
		})
		pipe.Publish(ctx, Channel(rec.DocumentID), change)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert cursor: %w", err)
	}
	return nil
}

func (b *Backend) DeleteCursorsOlderThan(ctx context.Context, documentID string, cutoff time.Time) (int64, error) {
	stale, err := b.client.ZRangeByScore(ctx, timesKey(documentID), &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("find stale cursors: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	_, err = b.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		members := make([]any, len(stale))
		for i, actor := range stale {
			members[i] = actor
		}
		pipe.HDel(ctx, cursorsKey(documentID), stale...)
		pipe.ZRem(ctx, timesKey(documentID), members...)
		for _, actor := range stale {
			change, err := json.Marshal(collab.Change{
				Kind:   collab.ChangeCursorRemoved,
				Cursor: &collab.CursorRecord{DocumentID: documentID, ActorID: actor},
			})
			if err != nil {
				return err
			}
			pipe.Publish(ctx, Channel(documentID), change)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete stale cursors: %w", err)
	}
	return int64(len(stale)), nil
}

// Subscribe listens on the document channel until ctx is done.
func (b *Backend) Subscribe(ctx context.Context, documentID string) (<-chan collab.Change, error) {
	ps := b.client.Subscribe(ctx, Channel(documentID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel(documentID), err)
	}

	msgs := ps.Channel()
	out := make(chan collab.Change, 64)
	go func() {
		defer close(out)
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c collab.Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					slog.Warn("discard redis message", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// LatestShapes returns the newest shape record stored for a document.
func (b *Backend) LatestShapes(ctx context.Context, documentID string) (collab.ShapesRecord, bool, error) {
	all, err := b.client.HGetAll(ctx, shapesKey(documentID)).Result()
	if err != nil {
		return collab.ShapesRecord{}, false, fmt.Errorf("latest shapes: %w", err)
	}

	var (
		latest collab.ShapesRecord
		found  bool
	)
	for actor, raw := range all {
		var rec collab.ShapesRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			slog.Warn("skip malformed shapes record", "document", documentID, "actor", actor, "error", err)
			continue
		}
		if !found || rec.UpdatedAt.After(latest.UpdatedAt) {
			latest, found = rec, true
		}
	}
	return latest, found, nil
}
