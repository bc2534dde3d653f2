package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

// singletonID keys the single-row tables.
const singletonID = 1

// ConfigRepository keeps config documents and the publisher offset.
type ConfigRepository struct {
	db *sqlx.DB
}

var (
	_ ports.ConfigStore          = (*ConfigRepository)(nil)
	_ ports.PublisherConfigStore = (*ConfigRepository)(nil)
	_ ports.OffsetStore          = (*ConfigRepository)(nil)
)

// NewConfigRepository wires the pool.
func NewConfigRepository(db *sqlx.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

type sourceConfigRow struct {
	Name              string `db:"name"`
	Type              string `db:"type"`
	Config            []byte `db:"config"`
	RequiresFiltering bool   `db:"requires_filtering"`
}

func (r *ConfigRepository) GetCollectorConfig(ctx context.Context) (json.RawMessage, bool, error) {
	return r.getDocument(ctx, "collector_config")
}

func (r *ConfigRepository) SetCollectorConfig(ctx context.Context, raw json.RawMessage) error {
	return r.setDocument(ctx, "collector_config", raw)
}

func (r *ConfigRepository) GetPublisherConfig(ctx context.Context) (json.RawMessage, bool, error) {
	return r.getDocument(ctx, "publisher_config")
}

func (r *ConfigRepository) SetPublisherConfig(ctx context.Context, raw json.RawMessage) error {
	return r.setDocument(ctx, "publisher_config", raw)
}

func (r *ConfigRepository) GetNewsSourceConfigs(ctx context.Context) (map[string]domain.SourceConfig, error) {
	query, args, err := psql.Select("name", "type", "config", "requires_filtering").
		From("source_configs").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []sourceConfigRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select source configs: %w", err)
	}

	cfgs := make(map[string]domain.SourceConfig, len(rows))
	for _, row := range rows {
		cfgs[row.Name] = domain.SourceConfig{
			Type:              row.Type,
			Config:            json.RawMessage(row.Config),
			RequiresFiltering: row.RequiresFiltering,
		}
	}
	return cfgs, nil
}

func (r *ConfigRepository) SetNewsSourceConfig(ctx context.Context, source string, cfg domain.SourceConfig) error {
	return upsertSourceConfig(ctx, r.db, source, cfg)
}

func (r *ConfigRepository) ReplaceNewsSourceConfigs(ctx context.Context, cfgs map[string]domain.SourceConfig) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query, args, err := psql.Delete("source_configs").ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear source configs: %w", err)
		}
		for name, cfg := range cfgs {
			if err := upsertSourceConfig(ctx, tx, name, cfg); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ConfigRepository) RemoveNewsSourceConfig(ctx context.Context, source string) error {
	query, args, err := psql.Delete("source_configs").Where(sq.Eq{"name": source}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove source config %s: %w", source, err)
	}
	return nil
}

func (r *ConfigRepository) GetOffset(ctx context.Context) (int64, error) {
	query, args, err := psql.Select("value").From("publisher_offset").Where(sq.Eq{"id": singletonID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var offset int64
	err = sqlx.GetContext(ctx, r.db, &offset, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get publisher offset: %w", err)
	}
	return offset, nil
}

func (r *ConfigRepository) SetOffset(ctx context.Context, offset int64) error {
	query, args, err := psql.Insert("publisher_offset").
		Columns("id", "value").
		Values(singletonID, offset).
		Suffix("ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set publisher offset: %w", err)
	}
	return nil
}

func (r *ConfigRepository) getDocument(ctx context.Context, table string) (json.RawMessage, bool, error) {
	query, args, err := psql.Select("body").From(table).Where(sq.Eq{"id": singletonID}).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build query: %w", err)
	}

	var body []byte
	err = sqlx.GetContext(ctx, r.db, &body, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", table, err)
	}
	return json.RawMessage(body), true, nil
}

func (r *ConfigRepository) setDocument(ctx context.Context, table string, raw json.RawMessage) error {
	query, args, err := psql.Insert(table).
		Columns("id", "body").
		Values(singletonID, []byte(raw)).
		Suffix("ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set %s: %w", table, err)
	}
	return nil
}

func upsertSourceConfig(ctx context.Context, db sqlx.ExecerContext, name string, cfg domain.SourceConfig) error {
	query, args, err := psql.Insert("source_configs").
		Columns("name", "type", "config", "requires_filtering").
		Values(name, cfg.Type, []byte(cfg.Config), cfg.RequiresFiltering).
		Suffix("ON CONFLICT (name) DO UPDATE SET type = EXCLUDED.type, config = EXCLUDED.config, requires_filtering = EXCLUDED.requires_filtering").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store source config %s: %w", name, err)
	}
	return nil
}
