package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		source TEXT NOT NULL,
		link TEXT NOT NULL,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		ts BIGINT NOT NULL,
		UNIQUE (source, link)
	)`,
	`CREATE INDEX IF NOT EXISTS articles_link_idx ON articles (link)`,
	`CREATE INDEX IF NOT EXISTS articles_ts_idx ON articles (ts DESC)`,
	`CREATE TABLE IF NOT EXISTS source_timestamps (
		source TEXT PRIMARY KEY,
		ts BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS collector_config (
		id SMALLINT PRIMARY KEY,
		body JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS source_configs (
		name TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		config JSONB NOT NULL,
		requires_filtering BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS publisher_config (
		id SMALLINT PRIMARY KEY,
		body JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS publisher_offset (
		id SMALLINT PRIMARY KEY,
		value BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS heartbeat_records (
		record_id BIGSERIAL PRIMARY KEY,
		group_name TEXT NOT NULL,
		ord BIGINT NOT NULL,
		instance_id TEXT NOT NULL,
		ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS heartbeat_records_group_ts_idx ON heartbeat_records (group_name, ts)`,
}

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
