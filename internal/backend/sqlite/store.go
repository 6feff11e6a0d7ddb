package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/plannr/plannr/blueprint-go/internal/document"
)

// Store keeps blueprints and the collaboration channels in one SQLite file.
type Store struct {
	db     *sql.DB
	notify *notifier
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open blueprint db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate blueprint db: %w", err)
	}
	return &Store{db: db, notify: newNotifier()}, nil
}

func (s *Store) Close() error {
	s.notify.closeAll()
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, bp *document.Blueprint) error {
	canvas := bp.CanvasData
	if len(canvas) == 0 {
		canvas = json.RawMessage(`[]`)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blueprints (id, name, width, height, unit, canvas_data, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bp.ID, bp.Name, bp.Width, bp.Height, string(bp.Unit), string(canvas), bp.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert blueprint: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*document.Blueprint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, width, height, unit, canvas_data, updated_at FROM blueprints WHERE id = ?`, id,
	)
	bp, err := scanBlueprint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get blueprint %q: %w", id, document.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get blueprint %q: %w", id, err)
	}
	return bp, nil
}

// List returns every blueprint, most recently updated first.
func (s *Store) List(ctx context.Context) ([]document.Blueprint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, width, height, unit, canvas_data, updated_at FROM blueprints ORDER BY updated_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}
	defer rows.Close()

	out := []document.Blueprint{}
	for rows.Next() {
		bp, err := scanBlueprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blueprint: %w", err)
		}
		out = append(out, *bp)
	}
	return out, rows.Err()
}

// SaveCanvas replaces the stored shape list and returns the new timestamp.
func (s *Store) SaveCanvas(ctx context.Context, id string, canvas json.RawMessage) (time.Time, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE blueprints SET canvas_data = ?, updated_at = ? WHERE id = ?`,
		string(canvas), now.UnixNano(), id,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("save canvas %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return time.Time{}, fmt.Errorf("save canvas %q: %w", id, document.ErrNotFound)
	}
	return now, nil
}

// Delete removes the blueprint together with its collaboration rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM blueprints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete blueprint %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete blueprint %q: %w", id, document.ErrNotFound)
	}
	for _, q := range []string{
		`DELETE FROM collab_shapes WHERE document_id = ?`,
		`DELETE FROM collab_cursors WHERE document_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete collaboration rows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBlueprint(row scanner) (*document.Blueprint, error) {
	var (
		bp      document.Blueprint
		unit    string
		canvas  string
		updated int64
	)
	if err := row.Scan(&bp.ID, &bp.Name, &bp.Width, &bp.Height, &unit, &canvas, &updated); err != nil {
		return nil, err
	}
	bp.Unit = document.Unit(unit)
	bp.CanvasData = json.RawMessage(canvas)
	bp.UpdatedAt = time.Unix(0, updated).UTC()
	return &bp, nil
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }
