// Package store provides SQLite-backed persistence for the gallery engine.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS artworks (
	artwork_id        TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	artist_id         TEXT NOT NULL,
	media_type        TEXT NOT NULL DEFAULT 'application/octet-stream',
	encrypted_content BLOB NOT NULL,
	is_revealed       INTEGER NOT NULL DEFAULT 0,
	view_count        INTEGER NOT NULL DEFAULT 0,
	created_at_unix   INTEGER NOT NULL DEFAULT 0,
	updated_at_unix   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_artworks_artist ON artworks(artist_id);
CREATE INDEX IF NOT EXISTS idx_artworks_revealed ON artworks(is_revealed);

CREATE TABLE IF NOT EXISTS reveal_conditions (
	condition_id    TEXT PRIMARY KEY,
	artwork_id      TEXT NOT NULL REFERENCES artworks(artwork_id) ON DELETE CASCADE,
	kind            TEXT NOT NULL,
	params_json     TEXT NOT NULL DEFAULT '{}',
	is_met          INTEGER NOT NULL DEFAULT 0,
	created_at_unix INTEGER NOT NULL DEFAULT 0,
	updated_at_unix INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_conditions_artwork_met ON reveal_conditions(artwork_id, is_met);

CREATE TABLE IF NOT EXISTS interactions (
	interaction_id  TEXT PRIMARY KEY,
	artwork_id      TEXT NOT NULL REFERENCES artworks(artwork_id) ON DELETE CASCADE,
	viewer_id       TEXT NOT NULL DEFAULT '',
	kind            TEXT NOT NULL,
	ip_address      TEXT NOT NULL DEFAULT '',
	device_json     TEXT NOT NULL DEFAULT '{}',
	content         TEXT NOT NULL DEFAULT '',
	created_at_unix INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_interactions_artwork_kind ON interactions(artwork_id, kind);
`

// NewDB opens a SQLite database at the given path with recommended pragmas
// and runs the V1 schema migration.
func NewDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Limit connections to 1 for SQLite (WAL allows concurrent reads but single writer).
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaV1)
	return err
}
