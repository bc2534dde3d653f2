package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"NewsCollector/internal/ports"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections.
	DefaultMaxOpenConns = 10

	// DefaultMaxIdleConns is the default maximum number of idle connections.
	DefaultMaxIdleConns = 5

	// DefaultConnMaxLifetime is the default maximum lifetime of a connection.
	DefaultConnMaxLifetime = 5 * time.Minute

	// DefaultPingTimeout bounds the connectivity check in Connect.
	DefaultPingTimeout = 5 * time.Second
)

// psql builds Postgres flavoured statements.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Connect opens a pooled connection and verifies it.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Postgres bundles every repository over one pool.
type Postgres struct {
	*ArticleRepository
	*ConfigRepository
	*HeartbeatRepository

	db *sqlx.DB
}

var (
	_ ports.ArticleStore         = (*Postgres)(nil)
	_ ports.Transactor           = (*Postgres)(nil)
	_ ports.ConfigStore          = (*Postgres)(nil)
	_ ports.PublisherConfigStore = (*Postgres)(nil)
	_ ports.OffsetStore          = (*Postgres)(nil)
	_ ports.HeartbeatStore       = (*Postgres)(nil)
	_ ports.HeartbeatPruner      = (*Postgres)(nil)
)

// NewPostgres wires the repositories.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{
		ArticleRepository:   NewArticleRepository(db),
		ConfigRepository:    NewConfigRepository(db),
		HeartbeatRepository: NewHeartbeatRepository(db),
		db:                  db,
	}
}

// WithinTransaction runs fn against a transaction-bound article repository.
func (p *Postgres) WithinTransaction(ctx context.Context, fn func(ctx context.Context, store ports.ArticleStore) error) error {
	return withTx(ctx, p.db, func(tx *sqlx.Tx) error {
		return fn(ctx, NewArticleRepository(tx))
	})
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close releases the pool.
func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
