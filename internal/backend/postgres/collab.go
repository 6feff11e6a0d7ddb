package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/plannr/plannr/blueprint-go/internal/collab"
)

var _ collab.Backend = (*Store)(nil)

// Notifications only carry keys; rows are read back on receipt because
// NOTIFY payloads are capped at 8000 bytes.
type notification struct {
	Kind       collab.ChangeKind `json:"kind"`
	DocumentID string            `json:"document_id"`
	ActorID    string            `json:"actor_id"`
}

// Channel is the LISTEN/NOTIFY channel for one document.
func Channel(documentID string) string {
	return "collab:" + documentID
}

func parseNotification(payload string) (notification, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, fmt.Errorf("decode notification: %w", err)
	}
	if n.DocumentID == "" || n.ActorID == "" {
		return n, errors.New("decode notification: missing keys")
	}
	return n, nil
}

func (s *Store) Probe(ctx context.Context, documentID string) error {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM collab_shapes WHERE document_id = $1 LIMIT 1`, documentID,
	).Scan(&one)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("probe collab_shapes: %w", err)
	}
	return nil
}

func (s *Store) UpsertShapes(ctx context.Context, rec collab.ShapesRecord) error {
	_, err := s.pool.Exec(ctx,
		`WITH up AS (
			INSERT INTO collab_shapes (document_id, actor_id, shapes_data, updated_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (document_id, actor_id) DO UPDATE SET shapes_data = EXCLUDED.shapes_data, updated_at = EXCLUDED.updated_at
			RETURNING document_id, actor_id
		)
		SELECT pg_notify('collab:' || document_id, json_build_object('kind', 'shapes', 'document_id', document_id, 'actor_id', actor_id)::text) FROM up`,
		rec.DocumentID, rec.ActorID, string(rec.ShapesData), rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert shapes: %w", err)
	}
	return nil
}

func (s *Store) UpsertCursor(ctx context.Context, rec collab.CursorRecord) error {
	_, err := s.pool.Exec(ctx,
		`WITH up AS (
			INSERT INTO collab_cursors (document_id, actor_id, display_name, cursor_x, cursor_y, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (document_id, actor_id) DO UPDATE SET display_name = EXCLUDED.display_name,
				cursor_x = EXCLUDED.cursor_x, cursor_y = EXCLUDED.cursor_y, updated_at = EXCLUDED.updated_at
			RETURNING document_id, actor_id
		)
		SELECT pg_notify('collab:' || document_id, json_build_object('kind', 'cursor', 'document_id', document_id, 'actor_id', actor_id)::text) FROM up`,
		rec.DocumentID, rec.ActorID, rec.DisplayName, rec.CursorX, rec.CursorY, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cursor: %w", err)
	}
	return nil
}

func (s *Store) DeleteCursorsOlderThan(ctx context.Context, documentID string, cutoff time.Time) (int64, error) {
	rows, err := s.pool.Query(ctx,
		`WITH del AS (
			DELETE FROM collab_cursors WHERE document_id = $1 AND updated_at < $2 RETURNING document_id, actor_id
		)
		SELECT pg_notify('collab:' || document_id, json_build_object('kind', 'cursor_removed', 'document_id', document_id, 'actor_id', actor_id)::text) FROM del`,
		documentID, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale cursors: %w", err)
	}
	defer rows.Close()

	var n int64
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("delete stale cursors: %w", err)
	}
	return n, nil
}

// Subscribe holds one pooled connection in LISTEN until ctx is done.
func (s *Store) Subscribe(ctx context.Context, documentID string) (<-chan collab.Change, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener: %w", err)
	}
	channel := pgx.Identifier{Channel(documentID)}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}

	out := make(chan collab.Change, 64)
	go func() {
		defer close(out)
		defer func() {
			// The connection still listens; drop it rather than return it.
			conn.Conn().Close(context.Background())
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("collaboration listener stopped", "document", documentID, "error", err)
				}
				return
			}

			note, err := parseNotification(n.Payload)
			if err != nil {
				slog.Warn("discard notification", "document", documentID, "error", err)
				continue
			}
			change, err := s.load(ctx, note)
			if err != nil {
				slog.Warn("load changed row", "document", documentID, "kind", note.Kind, "error", err)
				continue
			}

			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *Store) load(ctx context.Context, n notification) (collab.Change, error) {
	switch n.Kind {
	case collab.ChangeShapes:
		rec := collab.ShapesRecord{DocumentID: n.DocumentID, ActorID: n.ActorID}
		var data []byte
		err := s.pool.QueryRow(ctx,
			`SELECT shapes_data, updated_at FROM collab_shapes WHERE document_id = $1 AND actor_id = $2`,
			n.DocumentID, n.ActorID,
		).Scan(&data, &rec.UpdatedAt)
		if err != nil {
			return collab.Change{}, err
		}
		rec.ShapesData = data
		return collab.Change{Kind: n.Kind, Shapes: &rec}, nil

	case collab.ChangeCursor:
		rec := collab.CursorRecord{DocumentID: n.DocumentID, ActorID: n.ActorID}
		err := s.pool.QueryRow(ctx,
			`SELECT display_name, cursor_x, cursor_y, updated_at FROM collab_cursors WHERE document_id = $1 AND actor_id = $2`,
			n.DocumentID, n.ActorID,
		).Scan(&rec.DisplayName, &rec.CursorX, &rec.CursorY, &rec.UpdatedAt)
		if err != nil {
			return collab.Change{}, err
		}
		return collab.Change{Kind: n.Kind, Cursor: &rec}, nil

	case collab.ChangeCursorRemoved:
		return collab.Change{Kind: n.Kind, Cursor: &collab.CursorRecord{DocumentID: n.DocumentID, ActorID: n.ActorID}}, nil

	default:
		return collab.Change{}, fmt.Errorf("unknown change kind %q", n.Kind)
	}
}

func (s *Store) LatestShapes(ctx context.Context, documentID string) (collab.ShapesRecord, bool, error) {
	rec := collab.ShapesRecord{DocumentID: documentID}
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT actor_id, shapes_data, updated_at FROM collab_shapes WHERE document_id = $1 ORDER BY updated_at DESC LIMIT 1`,
		documentID,
	).Scan(&rec.ActorID, &data, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return collab.ShapesRecord{}, false, nil
	}
	if err != nil {
		return collab.ShapesRecord{}, false, fmt.Errorf("latest shapes: %w", err)
	}
	rec.ShapesData = data
	return rec, true, nil
}
