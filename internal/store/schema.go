package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS specimens (
    name TEXT PRIMARY KEY,
    snr_mult REAL NOT NULL,
    frame_width INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fibres (
    specimen TEXT NOT NULL REFERENCES specimens(name) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    x INTEGER NOT NULL,
    y INTEGER NOT NULL,
    alive INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (specimen, idx)
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    specimen TEXT NOT NULL,
    electrode TEXT,
    created_at TEXT NOT NULL,
    correlation TEXT NOT NULL,
    detector TEXT NOT NULL,
    objective TEXT NOT NULL,
    threshold REAL NOT NULL,
    resolution REAL NOT NULL,
    seed INTEGER NOT NULL,
    communities INTEGER NOT NULL,
    labels TEXT NOT NULL,       -- JSON array, -1 for unlabeled fibres
    activity_path TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_specimen ON runs(specimen);

CREATE TABLE IF NOT EXISTS motor_units (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    unit INTEGER NOT NULL,
    size INTEGER NOT NULL,
    fibres TEXT NOT NULL,       -- JSON array of fibre indices
    area REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, unit)
);

CREATE TABLE IF NOT EXISTS coactivations (
    specimen TEXT NOT NULL,
    electrode TEXT NOT NULL,
    pulse INTEGER NOT NULL,
    fibre_a INTEGER NOT NULL,
    fibre_b INTEGER NOT NULL,
    weight REAL NOT NULL,
    PRIMARY KEY (specimen, electrode, pulse, fibre_a, fibre_b)
);
CREATE INDEX IF NOT EXISTS idx_coact_pair ON coactivations(specimen, fibre_a, fibre_b);

CREATE TABLE IF NOT EXISTS schema_meta (
    version INTEGER NOT NULL
);
`

// InitSchema creates the schema if missing and records the version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_meta`).Scan(&count); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_meta (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	}
	return nil
}
