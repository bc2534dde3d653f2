package usecase

import (
	"context"
	"fmt"
	"math"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

const articleIDBeforeAll int64 = 0

// ArticleService serves incremental reads of stored articles.
type ArticleService struct {
	store ports.ArticleStore
}

var _ ports.ArticleFeed = (*ArticleService)(nil)

// NewArticleService wires article storage.
func NewArticleService(store ports.ArticleStore) *ArticleService {
	return &ArticleService{store: store}
}

// GetAfter returns up to limit articles with id > boundID in id order.
// NoBoundID reads from the beginning. The returned bound is the last id read,
// or the current max id when nothing new exists.
func (s *ArticleService) GetAfter(ctx context.Context, boundID int64, limit int) (domain.ArticlesPage, error) {
	if boundID == domain.NoBoundID {
		boundID = articleIDBeforeAll
	}

	articles, err := s.store.GetAfter(ctx, boundID, limit)
	if err != nil {
		return domain.ArticlesPage{}, fmt.Errorf("get articles after %d: %w", boundID, err)
	}
	if len(articles) > 0 {
		return domain.ArticlesPage{Articles: articles, BoundID: articles[len(articles)-1].ID}, nil
	}

	current, err := s.currentBound(ctx)
	if err != nil {
		return domain.ArticlesPage{}, err
	}
	return domain.ArticlesPage{Articles: articles, BoundID: current}, nil
}

// GetPage returns the 0-based page of articles with id <= boundID, newest first.
// NoBoundID pins the bound to the current max id, which is returned for later pages.
func (s *ArticleService) GetPage(ctx context.Context, boundID int64, page, count int) (domain.ArticlesPage, error) {
	if page < 0 || count <= 0 {
		return domain.ArticlesPage{}, fmt.Errorf("invalid page %d of size %d", page, count)
	}

	if boundID == domain.NoBoundID {
		current, err := s.currentBound(ctx)
		if err != nil {
			return domain.ArticlesPage{}, err
		}
		boundID = current
	}

	// offset past any addressable row
	if page > math.MaxInt/count {
		return domain.ArticlesPage{Articles: []domain.Article{}, BoundID: boundID}, nil
	}

	articles, err := s.store.GetPage(ctx, boundID, page, count)
	if err != nil {
		return domain.ArticlesPage{}, fmt.Errorf("get articles page %d: %w", page, err)
	}
	return domain.ArticlesPage{Articles: articles, BoundID: boundID}, nil
}

func (s *ArticleService) currentBound(ctx context.Context) (int64, error) {
	maxID, ok, err := s.store.GetMaxID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get max article id: %w", err)
	}
	if !ok {
		return articleIDBeforeAll, nil
	}
	return maxID, nil
}
