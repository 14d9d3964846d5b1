package db

import (
	"context"
	"fmt"
)

// The schema sticks to types both Postgres and SQLite accept: TEXT ids,
// BIGINT unix seconds, JSON as TEXT.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	image_url   TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL DEFAULT 0,
	updated_at  BIGINT NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS questions (
	id               TEXT PRIMARY KEY,
	text             TEXT NOT NULL,
	question_type    TEXT NOT NULL,
	sort_order       INTEGER NOT NULL DEFAULT 0,
	is_root          BOOLEAN NOT NULL DEFAULT FALSE,
	parent_id        TEXT,
	parent_option_id TEXT,
	scale_min        INTEGER,
	scale_max        INTEGER,
	scale_steps      INTEGER
)`,
	`CREATE TABLE IF NOT EXISTS question_options (
	question_id   TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	option_id     TEXT NOT NULL,
	text          TEXT NOT NULL DEFAULT '',
	position      INTEGER NOT NULL DEFAULT 0,
	scent_weights TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (question_id, option_id)
)`,
	`CREATE TABLE IF NOT EXISTS participants (
	id         TEXT PRIMARY KEY,
	full_name  TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	created_at BIGINT NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS quiz_sessions (
	id             TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL REFERENCES participants(id),
	state          TEXT NOT NULL,
	status         TEXT NOT NULL,
	created_at     BIGINT NOT NULL DEFAULT 0,
	updated_at     BIGINT NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS idx_quiz_sessions_participant ON quiz_sessions(participant_id)`,
	`CREATE TABLE IF NOT EXISTS quiz_results (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL UNIQUE,
	participant_id TEXT NOT NULL,
	product_id     TEXT NOT NULL,
	zodiac_sign    TEXT NOT NULL DEFAULT '',
	fallback       BOOLEAN NOT NULL DEFAULT FALSE,
	raw_answers    TEXT NOT NULL DEFAULT '{}',
	scores         TEXT NOT NULL DEFAULT '{}',
	created_at     BIGINT NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS idx_quiz_results_product ON quiz_results(product_id)`,
}

// Migrate applies the schema in one transaction. Every statement is
// idempotent.
func Migrate(ctx context.Context, d *DB) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrate: %w", err)
	}
	return nil
}
