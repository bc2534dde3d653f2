package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

// HeartbeatRepository stores coordinator heartbeats.
type HeartbeatRepository struct {
	db *sqlx.DB
}

var (
	_ ports.HeartbeatStore  = (*HeartbeatRepository)(nil)
	_ ports.HeartbeatPruner = (*HeartbeatRepository)(nil)
)

// NewHeartbeatRepository wires the pool.
func NewHeartbeatRepository(db *sqlx.DB) *HeartbeatRepository {
	return &HeartbeatRepository{db: db}
}

func (r *HeartbeatRepository) AddRecord(ctx context.Context, record domain.HeartbeatRecord) error {
	query, args, err := psql.Insert("heartbeat_records").
		Columns("group_name", "ord", "instance_id", "ts").
		Values(record.Group, record.Order, record.InstanceID, record.Timestamp).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert heartbeat: %w", err)
	}
	return nil
}

// LeastAfter compares instance ids bytewise through the C collation.
func (r *HeartbeatRepository) LeastAfter(ctx context.Context, group string, cutoff int64) (string, bool, error) {
	query, args, err := psql.Select("instance_id").
		From("heartbeat_records").
		Where(sq.Eq{"group_name": group}).
		Where(sq.Gt{"ts": cutoff}).
		OrderBy("ord ASC", `instance_id COLLATE "C" ASC`).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}

	var id string
	err = sqlx.GetContext(ctx, r.db, &id, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query least heartbeat: %w", err)
	}
	return id, true, nil
}

func (r *HeartbeatRepository) PruneBefore(ctx context.Context, group string, cutoff int64) error {
	query, args, err := psql.Delete("heartbeat_records").
		Where(sq.Eq{"group_name": group}).
		Where(sq.Lt{"ts": cutoff}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune heartbeats: %w", err)
	}
	return nil
}
