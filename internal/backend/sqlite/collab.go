package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/plannr/plannr/blueprint-go/internal/collab"
)

var _ collab.Backend = (*Store)(nil)

// Probe checks that the collaboration table is readable.
func (s *Store) Probe(ctx context.Context, documentID string) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT 1 FROM collab_shapes WHERE document_id = ? LIMIT 1`, documentID,
	)
	if err != nil {
		return fmt.Errorf("probe collab_shapes: %w", err)
	}
	return rows.Close()
}

func (s *Store) UpsertShapes(ctx context.Context, rec collab.ShapesRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collab_shapes (document_id, actor_id, shapes_data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (document_id, actor_id) DO UPDATE SET shapes_data = excluded.shapes_data, updated_at = excluded.updated_at`,
		rec.DocumentID, rec.ActorID, string(rec.ShapesData), rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert shapes: %w", err)
	}
	s.notify.publish(rec.DocumentID, collab.Change{Kind: collab.ChangeShapes, Shapes: &rec})
	return nil
}

func (s *Store) UpsertCursor(ctx context.Context, rec collab.CursorRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collab_cursors (document_id, actor_id, display_name, cursor_x, cursor_y, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (document_id, actor_id) DO UPDATE SET display_name = excluded.display_name,
		   cursor_x = excluded.cursor_x, cursor_y = excluded.cursor_y, updated_at = excluded.updated_at`,
		rec.DocumentID, rec.ActorID, rec.DisplayName, rec.CursorX, rec.CursorY, rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert cursor: %w", err)
	}
	s.notify.publish(rec.DocumentID, collab.Change{Kind: collab.ChangeCursor, Cursor: &rec})
	return nil
}

// Subscribe streams upserts made through this Store until ctx is done.
func (s *Store) Subscribe(ctx context.Context, documentID string) (<-chan collab.Change, error) {
	return s.notify.subscribe(ctx, documentID), nil
}

func (s *Store) DeleteCursorsOlderThan(ctx context.Context, documentID string, cutoff time.Time) (int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`DELETE FROM collab_cursors WHERE document_id = ? AND updated_at < ? RETURNING actor_id`,
		documentID, cutoff.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale cursors: %w", err)
	}
	defer rows.Close()

	var removed []string
	for rows.Next() {
		var actor string
		if err := rows.Scan(&actor); err != nil {
			return 0, fmt.Errorf("scan removed cursor: %w", err)
		}
		removed = append(removed, actor)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("delete stale cursors: %w", err)
	}

	for _, actor := range removed {
		s.notify.publish(documentID, collab.Change{
			Kind:   collab.ChangeCursorRemoved,
			Cursor: &collab.CursorRecord{DocumentID: documentID, ActorID: actor},
		})
	}
	return int64(len(removed)), nil
}

// LatestShapes returns the most recent shape record for a document, if any.
func (s *Store) LatestShapes(ctx context.Context, documentID string) (collab.ShapesRecord, bool, error) {
	var (
		rec     collab.ShapesRecord
		data    string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT document_id, actor_id, shapes_data, updated_at FROM collab_shapes WHERE document_id = ? ORDER BY updated_at DESC LIMIT 1`,
		documentID,
	).Scan(&rec.DocumentID, &rec.ActorID, &data, &updated)
	if err != nil {
		if isNoRows(err) {
			return collab.ShapesRecord{}, false, nil
		}
		return collab.ShapesRecord{}, false, fmt.Errorf("latest shapes: %w", err)
	}
	rec.ShapesData = []byte(data)
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return rec, true, nil
}
