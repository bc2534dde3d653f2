package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

var articleColumns = []string{"id", "source", "link", "title", "text", "ts"}

// ArticleRepository persists articles and per-source timestamps.
// It runs on a pool or inside a transaction.
type ArticleRepository struct {
	db sqlx.ExtContext
}

var _ ports.ArticleStore = (*ArticleRepository)(nil)

// NewArticleRepository wires a pool or a transaction.
func NewArticleRepository(db sqlx.ExtContext) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) GetLastTimestampOfSource(ctx context.Context, source string) (int64, error) {
	query, args, err := psql.Select("ts").From("source_timestamps").Where(sq.Eq{"source": source}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var ts int64
	err = sqlx.GetContext(ctx, r.db, &ts, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get last timestamp of %s: %w", source, err)
	}
	return ts, nil
}

func (r *ArticleRepository) SetLastTimestampOfSource(ctx context.Context, source string, timestamp int64) error {
	query, args, err := psql.Insert("source_timestamps").
		Columns("source", "ts").
		Values(source, timestamp).
		Suffix("ON CONFLICT (source) DO UPDATE SET ts = EXCLUDED.ts").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set last timestamp of %s: %w", source, err)
	}
	return nil
}

func (r *ArticleRepository) Has(ctx context.Context, source, link string) (bool, error) {
	where := sq.Eq{"link": link}
	if source != "" {
		where["source"] = source
	}
	sub, args, err := psql.Select("1").From("articles").Where(where).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	query := "SELECT EXISTS (" + sub + ")"

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check link %s: %w", link, err)
	}
	return exists, nil
}

func (r *ArticleRepository) AddJustCollected(ctx context.Context, source string, item domain.CollectedItem) error {
	query, args, err := psql.Insert("articles").
		Columns("source", "link", "title", "text", "ts").
		Values(source, item.Link, item.Title, item.Text, item.Timestamp).
		Suffix("ON CONFLICT (source, link) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article %s: %w", item.Link, err)
	}
	return nil
}

func (r *ArticleRepository) GetMaxID(ctx context.Context) (int64, bool, error) {
	query, args, err := psql.Select("MAX(id)").From("articles").ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build query: %w", err)
	}

	var maxID sql.NullInt64
	if err := sqlx.GetContext(ctx, r.db, &maxID, query, args...); err != nil {
		return 0, false, fmt.Errorf("get max id: %w", err)
	}
	return maxID.Int64, maxID.Valid, nil
}

func (r *ArticleRepository) GetAfter(ctx context.Context, boundID int64, limit int) ([]domain.Article, error) {
	builder := psql.Select(articleColumns...).
		From("articles").
		Where(sq.Gt{"id": boundID}).
		OrderBy("id ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return r.selectArticles(ctx, builder)
}

func (r *ArticleRepository) GetPage(ctx context.Context, boundID int64, page, count int) ([]domain.Article, error) {
	if page < 0 || count <= 0 || int64(page) > math.MaxInt64/int64(count) {
		return []domain.Article{}, nil
	}
	builder := psql.Select(articleColumns...).
		From("articles").
		Where(sq.LtOrEq{"id": boundID}).
		OrderBy("ts DESC", "id DESC").
		Limit(uint64(count)).
		Offset(uint64(page) * uint64(count))
	return r.selectArticles(ctx, builder)
}

func (r *ArticleRepository) selectArticles(ctx context.Context, builder sq.SelectBuilder) ([]domain.Article, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	articles := []domain.Article{}
	if err := sqlx.SelectContext(ctx, r.db, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	return articles, nil
}
