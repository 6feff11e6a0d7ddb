package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plannr/plannr/blueprint-go/internal/document"
)

// Store keeps blueprints and the collaboration channels in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Create(ctx context.Context, bp *document.Blueprint) error {
	canvas := bp.CanvasData
	if len(canvas) == 0 {
		canvas = json.RawMessage(`[]`)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO blueprints (id, name, width, height, unit, canvas_data, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		bp.ID, bp.Name, bp.Width, bp.Height, string(bp.Unit), string(canvas), bp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert blueprint: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*document.Blueprint, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, width, height, unit, canvas_data, updated_at FROM blueprints WHERE id = $1`, id,
	)
	bp, err := scanBlueprint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get blueprint %q: %w", id, document.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get blueprint %q: %w", id, err)
	}
	return bp, nil
}

func (s *Store) List(ctx context.Context) ([]document.Blueprint, error) {
	rows, err := s.pool.Query(ctx,
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

func (s *Store) SaveCanvas(ctx context.Context, id string, canvas json.RawMessage) (time.Time, error) {
	var updated time.Time
	err := s.pool.QueryRow(ctx,
		`UPDATE blueprints SET canvas_data = $1, updated_at = now() WHERE id = $2 RETURNING updated_at`,
		string(canvas), id,
	).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("save canvas %q: %w", id, document.ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("save canvas %q: %w", id, err)
	}
	return updated.UTC(), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM blueprints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blueprint %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete blueprint %q: %w", id, document.ErrNotFound)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM collab_shapes WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete collaboration rows: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM collab_cursors WHERE document_id = $1`, id); err != nil {
		return fmt.Errorf("delete collaboration rows: %w", err)
	}
	return tx.Commit(ctx)
}

func scanBlueprint(row pgx.Row) (*document.Blueprint, error) {
	var (
		bp     document.Blueprint
		unit   string
		canvas []byte
	)
	if err := row.Scan(&bp.ID, &bp.Name, &bp.Width, &bp.Height, &unit, &canvas, &bp.UpdatedAt); err != nil {
		return nil, err
	}
	bp.Unit = document.Unit(unit)
	bp.CanvasData = json.RawMessage(canvas)
	bp.UpdatedAt = bp.UpdatedAt.UTC()
	return &bp, nil
}
