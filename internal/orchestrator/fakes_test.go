package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/mkarvo/reelscout/internal/catalog"
	"github.com/mkarvo/reelscout/internal/models"
)

// fakeCatalog implements Catalog with per-operation hooks and call counting.
type fakeCatalog struct {
	mu sync.Mutex

	searchTitlesFn    func(mt models.MediaType, query string, year, page int) ([]models.MediaItem, error)
	discoverFn        func(mt models.MediaType, p catalog.DiscoverParams) ([]models.MediaItem, error)
	trendingFn        func(mt models.MediaType, window models.TimeWindow) ([]models.MediaItem, error)
	recommendationsFn func(mt models.MediaType, id int) ([]models.MediaItem, error)
	itemKeywordsFn    func(mt models.MediaType, id int) ([]models.Keyword, error)
	searchKeywordFn   func(term string) ([]models.Keyword, error)
	searchPersonFn    func(name string) ([]models.Person, error)
	personDetailsFn   func(id int) (*models.Person, error)
	detailsFn         func(mt models.MediaType, id int) (*models.ItemDetails, error)

	discoverCalls      []catalog.DiscoverParams
	searchKeywordCalls []string
	recommendationIDs  []int
}

var errNotConfigured = errors.New("fake operation not configured")

func (f *fakeCatalog) SearchTitles(ctx context.Context, mt models.MediaType, query string, year, page int) ([]models.MediaItem, error) {
	if f.searchTitlesFn == nil {
		return nil, errNotConfigured
	}
	return f.searchTitlesFn(mt, query, year, page)
}

func (f *fakeCatalog) Discover(ctx context.Context, mt models.MediaType, p catalog.DiscoverParams) ([]models.MediaItem, error) {
	f.mu.Lock()
	f.discoverCalls = append(f.discoverCalls, p)
	f.mu.Unlock()
	if f.discoverFn == nil {
		return nil, errNotConfigured
	}
	return f.discoverFn(mt, p)
}

func (f *fakeCatalog) Trending(ctx context.Context, mt models.MediaType, window models.TimeWindow) ([]models.MediaItem, error) {
	if f.trendingFn == nil {
		return nil, errNotConfigured
	}
	return f.trendingFn(mt, window)
}

func (f *fakeCatalog) Recommendations(ctx context.Context, mt models.MediaType, id int) ([]models.MediaItem, error) {
	f.mu.Lock()
	f.recommendationIDs = append(f.recommendationIDs, id)
	f.mu.Unlock()
	if f.recommendationsFn == nil {
		return nil, errNotConfigured
	}
	return f.recommendationsFn(mt, id)
}

func (f *fakeCatalog) ItemKeywords(ctx context.Context, mt models.MediaType, id int) ([]models.Keyword, error) {
	if f.itemKeywordsFn == nil {
		return nil, errNotConfigured
	}
	return f.itemKeywordsFn(mt, id)
}

func (f *fakeCatalog) SearchKeyword(ctx context.Context, term string) ([]models.Keyword, error) {
	f.mu.Lock()
	f.searchKeywordCalls = append(f.searchKeywordCalls, term)
	f.mu.Unlock()
	if f.searchKeywordFn == nil {
		return nil, errNotConfigured
	}
	return f.searchKeywordFn(term)
}

func (f *fakeCatalog) SearchPerson(ctx context.Context, name string) ([]models.Person, error) {
	if f.searchPersonFn == nil {
		return nil, errNotConfigured
	}
	return f.searchPersonFn(name)
}

func (f *fakeCatalog) PersonDetails(ctx context.Context, id int) (*models.Person, error) {
	if f.personDetailsFn == nil {
		return nil, errNotConfigured
	}
	return f.personDetailsFn(id)
}

func (f *fakeCatalog) Details(ctx context.Context, mt models.MediaType, id int) (*models.ItemDetails, error) {
	if f.detailsFn == nil {
		return nil, errNotConfigured
	}
	return f.detailsFn(mt, id)
}

func (f *fakeCatalog) discoverCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.discoverCalls)
}

func (f *fakeCatalog) discoverParams() []catalog.DiscoverParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]catalog.DiscoverParams, len(f.discoverCalls))
	copy(cp, f.discoverCalls)
	return cp
}

// fakeClassifier returns a fixed intent or error.
type fakeClassifier struct {
	intent *models.Intent
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, query string) (*models.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

// fakeReranker returns fixed id lists or an error, and records the candidate
// counts it was handed.
type fakeReranker struct {
	mu             sync.Mutex
	ids            []int
	err            error
	candidateSizes []int
}

func (f *fakeReranker) RerankByReferences(ctx context.Context, refs []models.ResolvedReference, emphasis []string, candidates []models.MediaItem, limit int) ([]int, error) {
	f.mu.Lock()
	f.candidateSizes = append(f.candidateSizes, len(candidates))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

func (f *fakeReranker) RerankByCriteria(ctx context.Context, queryText string, candidates []models.MediaItem, limit int) ([]int, error) {
	f.mu.Lock()
	f.candidateSizes = append(f.candidateSizes, len(candidates))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

// fakeAnswerCache is an in-memory AnswerCache.
type fakeAnswerCache struct {
	mu      sync.Mutex
	entries map[string]*models.Answer
	stale   map[string]*models.Answer
}

func newFakeAnswerCache() *fakeAnswerCache {
	return &fakeAnswerCache{
		entries: map[string]*models.Answer{},
		stale:   map[string]*models.Answer{},
	}
}

func (f *fakeAnswerCache) Get(ctx context.Context, query string) (*models.Answer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.entries[query]
	return a, ok
}

func (f *fakeAnswerCache) GetStale(ctx context.Context, query string) (*models.Answer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.stale[query]
	return a, ok
}

func (f *fakeAnswerCache) Set(ctx context.Context, query string, answer *models.Answer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[query] = answer
}
