// Package sitedb stores build results in SQLite with optional FTS5 full-text search.
package sitedb

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS builds (
	id           TEXT PRIMARY KEY,
	generated_at DATETIME NOT NULL,
	documents    INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	diagnostics  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS documents (
	path        TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	slug_info   TEXT NOT NULL DEFAULT '{}',
	title       TEXT NOT NULL DEFAULT '',
	public      INTEGER NOT NULL DEFAULT 0,
	tags        TEXT NOT NULL DEFAULT '[]',
	frontmatter TEXT NOT NULL DEFAULT '{}',
	html        TEXT NOT NULL DEFAULT '',
	excerpt     TEXT NOT NULL DEFAULT '',
	plain_text  TEXT NOT NULL DEFAULT '',
	toc         TEXT NOT NULL DEFAULT '[]',
	headings    TEXT NOT NULL DEFAULT '[]',
	digest      TEXT NOT NULL DEFAULT '',
	failed      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME
);

CREATE TABLE IF NOT EXISTS links (
	source TEXT NOT NULL,
	target TEXT NOT NULL DEFAULT '',
	uri    TEXT NOT NULL,
	kind   TEXT NOT NULL,
	text   TEXT NOT NULL DEFAULT '',
	broken INTEGER NOT NULL DEFAULT 0,
	UNIQUE(source, uri, kind)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);

CREATE TABLE IF NOT EXISTS diagnostics (
	document_path TEXT NOT NULL,
	kind          TEXT NOT NULL,
	raw           TEXT NOT NULL DEFAULT '',
	resolved_as   TEXT NOT NULL DEFAULT '',
	detail        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_diagnostics_path ON diagnostics(document_path);

CREATE TABLE IF NOT EXISTS media (
	path     TEXT PRIMARY KEY,
	hash     TEXT NOT NULL DEFAULT '',
	type     TEXT NOT NULL DEFAULT '',
	variants TEXT NOT NULL DEFAULT '{}'
);
`

// DB wraps a sql.DB with build-result operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sitedb: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sitedb: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sitedb: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sitedb: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
