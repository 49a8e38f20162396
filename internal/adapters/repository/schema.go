package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// The DDL is shared by SQLite and PostgreSQL. Dates are unix seconds and
// archived is 0 or 1 so both engines scan them the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS elections (
		code          TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		held_on       BIGINT NOT NULL,
		source        TEXT NOT NULL DEFAULT '',
		election_type TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS parties (
		id    TEXT PRIMARY KEY,
		code  TEXT NOT NULL UNIQUE,
		name  TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS regions (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prefectures (
		code        TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		region_code TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prefectures_region ON prefectures(region_code)`,
	`CREATE TABLE IF NOT EXISTS municipalities (
		code            TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		prefecture_code TEXT NOT NULL,
		archived        INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS municipality_lineage (
		ancestor   TEXT NOT NULL,
		descendant TEXT NOT NULL,
		PRIMARY KEY (ancestor, descendant)
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		election_code TEXT NOT NULL,
		party_id      TEXT NOT NULL,
		unit          TEXT NOT NULL,
		area_code     TEXT NOT NULL,
		vote_count    DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (election_code, party_id, unit, area_code)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_party_unit ON votes(party_id, unit, area_code)`,
	`CREATE TABLE IF NOT EXISTS vote_totals (
		election_code TEXT NOT NULL,
		unit          TEXT NOT NULL,
		area_code     TEXT NOT NULL,
		total_count   DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (election_code, unit, area_code)
	)`,
}

// CreateSchema creates all tables. Safe to call multiple times.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create schema: %w", ErrStore, err)
		}
	}
	return nil
}
