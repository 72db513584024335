package orchestrator

import (
	"context"

	"github.com/mkarvo/reelscout/internal/catalog"
	"github.com/mkarvo/reelscout/internal/models"
)

// Catalog is the slice of the media-catalog client the orchestrator uses.
type Catalog interface {
	SearchTitles(ctx context.Context, mt models.MediaType, query string, year, page int) ([]models.MediaItem, error)
	Discover(ctx context.Context, mt models.MediaType, p catalog.DiscoverParams) ([]models.MediaItem, error)
	Trending(ctx context.Context, mt models.MediaType, window models.TimeWindow) ([]models.MediaItem, error)
	Recommendations(ctx context.Context, mt models.MediaType, id int) ([]models.MediaItem, error)
	ItemKeywords(ctx context.Context, mt models.MediaType, id int) ([]models.Keyword, error)
	SearchKeyword(ctx context.Context, term string) ([]models.Keyword, error)
	SearchPerson(ctx context.Context, name string) ([]models.Person, error)
	PersonDetails(ctx context.Context, id int) (*models.Person, error)
	Details(ctx context.Context, mt models.MediaType, id int) (*models.ItemDetails, error)
}

// IntentClassifier turns a free-text query into a validated Intent.
type IntentClassifier interface {
	Classify(ctx context.Context, query string) (*models.Intent, error)
}

// CandidateReranker reorders a bounded candidate set by fit. A failed or
// empty rerank is never fatal; callers fall back to original order.
type CandidateReranker interface {
	RerankByReferences(ctx context.Context, refs []models.ResolvedReference, emphasis []string, candidates []models.MediaItem, limit int) ([]int, error)
	RerankByCriteria(ctx context.Context, queryText string, candidates []models.MediaItem, limit int) ([]int, error)
}

// AnswerCache holds formatted answers keyed by query. GetStale serves a
// longer-lived copy when live execution fails.
type AnswerCache interface {
	Get(ctx context.Context, query string) (*models.Answer, bool)
	GetStale(ctx context.Context, query string) (*models.Answer, bool)
	Set(ctx context.Context, query string, answer *models.Answer)
}

// AnalyticsWriter records one event per completed search.
type AnalyticsWriter interface {
	WriteSearchEvent(ctx context.Context, event *models.SearchEvent) error
}
