package sqlite

// Schema creates the blueprint table and the two collaboration channels.
// Timestamps are unix nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS blueprints (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    width       REAL NOT NULL,
    height      REAL NOT NULL,
    unit        TEXT NOT NULL CHECK(unit IN ('feet', 'inches')),
    canvas_data TEXT NOT NULL DEFAULT '[]',
    updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS collab_shapes (
    document_id TEXT NOT NULL,
    actor_id    TEXT NOT NULL,
    shapes_data TEXT NOT NULL,
    updated_at  INTEGER NOT NULL,
    PRIMARY KEY (document_id, actor_id)
);

CREATE TABLE IF NOT EXISTS collab_cursors (
    document_id  TEXT NOT NULL,
    actor_id     TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    cursor_x     REAL NOT NULL,
    cursor_y     REAL NOT NULL,
    updated_at   INTEGER NOT NULL,
    PRIMARY KEY (document_id, actor_id)
);

CREATE INDEX IF NOT EXISTS idx_collab_cursors_updated ON collab_cursors(document_id, updated_at);
`
