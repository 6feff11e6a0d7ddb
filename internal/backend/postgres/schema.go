package postgres

const Schema = `
CREATE TABLE IF NOT EXISTS blueprints (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    width       DOUBLE PRECISION NOT NULL,
    height      DOUBLE PRECISION NOT NULL,
    unit        TEXT NOT NULL CHECK (unit IN ('feet', 'inches')),
    canvas_data JSONB NOT NULL DEFAULT '[]',
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS collab_shapes (
    document_id TEXT NOT NULL,
    actor_id    TEXT NOT NULL,
    shapes_data JSONB NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (document_id, actor_id)
);

CREATE TABLE IF NOT EXISTS collab_cursors (
    document_id  TEXT NOT NULL,
    actor_id     TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    cursor_x     DOUBLE PRECISION NOT NULL,
    cursor_y     DOUBLE PRECISION NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (document_id, actor_id)
);

CREATE INDEX IF NOT EXISTS idx_collab_cursors_updated ON collab_cursors (document_id, updated_at);
`
