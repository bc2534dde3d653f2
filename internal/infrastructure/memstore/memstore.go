// Package memstore keeps every storage contract in process memory.
// It backs the "memory" database driver and the use case tests.
package memstore

import (
	"context"
	"encoding/json"
	"maps"
	"sort"
	"sync"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

type linkKey struct {
	source string
	link   string
}

type state struct {
	articles        []domain.Article
	links           map[linkKey]struct{}
	globalLinks     map[string]int
	lastTimestamps  map[string]int64
	nextID          int64
	collectorConfig json.RawMessage
	sourceConfigs   map[string]domain.SourceConfig
	publisherConfig json.RawMessage
	offset          int64
	heartbeats      map[string][]domain.HeartbeatRecord
}

func newState() state {
	return state{
		links:          map[linkKey]struct{}{},
		globalLinks:    map[string]int{},
		lastTimestamps: map[string]int64{},
		nextID:         1,
		sourceConfigs:  map[string]domain.SourceConfig{},
		heartbeats:     map[string][]domain.HeartbeatRecord{},
	}
}

func (s state) clone() state {
	c := s
	c.articles = append([]domain.Article(nil), s.articles...)
	c.links = maps.Clone(s.links)
	c.globalLinks = maps.Clone(s.globalLinks)
	c.lastTimestamps = maps.Clone(s.lastTimestamps)
	return c
}

// Store is a mutex guarded implementation of the storage ports.
type Store struct {
	mu sync.Mutex
	st state
}

var (
	_ ports.ArticleStore         = (*Store)(nil)
	_ ports.Transactor           = (*Store)(nil)
	_ ports.ConfigStore          = (*Store)(nil)
	_ ports.PublisherConfigStore = (*Store)(nil)
	_ ports.OffsetStore          = (*Store)(nil)
	_ ports.HeartbeatStore       = (*Store)(nil)
	_ ports.HeartbeatPruner      = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// WithinTransaction runs fn under the store lock and restores the previous
// article state when fn fails.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, store ports.ArticleStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, &txView{st: &s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) view() *txView {
	return &txView{st: &s.st}
}

func (s *Store) GetLastTimestampOfSource(ctx context.Context, source string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetLastTimestampOfSource(ctx, source)
}

func (s *Store) SetLastTimestampOfSource(ctx context.Context, source string, timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().SetLastTimestampOfSource(ctx, source, timestamp)
}

func (s *Store) Has(ctx context.Context, source, link string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().Has(ctx, source, link)
}

func (s *Store) AddJustCollected(ctx context.Context, source string, item domain.CollectedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().AddJustCollected(ctx, source, item)
}

func (s *Store) GetMaxID(ctx context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetMaxID(ctx)
}

func (s *Store) GetAfter(ctx context.Context, boundID int64, limit int) ([]domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetAfter(ctx, boundID, limit)
}

func (s *Store) GetPage(ctx context.Context, boundID int64, page, count int) ([]domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetPage(ctx, boundID, page, count)
}

// txView operates on state without locking; the owner holds the lock.
type txView struct {
	st *state
}

func (v *txView) GetLastTimestampOfSource(_ context.Context, source string) (int64, error) {
	return v.st.lastTimestamps[source], nil
}

func (v *txView) SetLastTimestampOfSource(_ context.Context, source string, timestamp int64) error {
	v.st.lastTimestamps[source] = timestamp
	return nil
}

func (v *txView) Has(_ context.Context, source, link string) (bool, error) {
	if source == "" {
		return v.st.globalLinks[link] > 0, nil
	}
	_, ok := v.st.links[linkKey{source: source, link: link}]
	return ok, nil
}

func (v *txView) AddJustCollected(_ context.Context, source string, item domain.CollectedItem) error {
	key := linkKey{source: source, link: item.Link}
	if _, ok := v.st.links[key]; ok {
		return nil
	}

	article := item.Article(source)
	article.ID = v.st.nextID
	v.st.nextID++
	v.st.articles = append(v.st.articles, article)
	v.st.links[key] = struct{}{}
	v.st.globalLinks[item.Link]++
	return nil
}

func (v *txView) GetMaxID(context.Context) (int64, bool, error) {
	if len(v.st.articles) == 0 {
		return 0, false, nil
	}
	return v.st.articles[len(v.st.articles)-1].ID, true, nil
}

func (v *txView) GetAfter(_ context.Context, boundID int64, limit int) ([]domain.Article, error) {
	idx := sort.Search(len(v.st.articles), func(i int) bool {
		return v.st.articles[i].ID > boundID
	})
	end := len(v.st.articles)
	if limit > 0 && idx+limit < end {
		end = idx + limit
	}
	return append([]domain.Article{}, v.st.articles[idx:end]...), nil
}

func (v *txView) GetPage(_ context.Context, boundID int64, page, count int) ([]domain.Article, error) {
	var bounded []domain.Article
	for _, a := range v.st.articles {
		if a.ID <= boundID {
			bounded = append(bounded, a)
		}
	}
	sort.Slice(bounded, func(i, j int) bool {
		if bounded[i].Timestamp != bounded[j].Timestamp {
			return bounded[i].Timestamp > bounded[j].Timestamp
		}
		return bounded[i].ID > bounded[j].ID
	})

	if page < 0 || count <= 0 || len(bounded) == 0 || page > (len(bounded)-1)/count {
		return []domain.Article{}, nil
	}
	start := page * count
	end := start + min(count, len(bounded)-start)
	return bounded[start:end], nil
}
