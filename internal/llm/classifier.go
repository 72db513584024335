package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
)

// ErrClassification marks any failure of the remote intent classification:
// unreachable service, unparseable payload, or a value outside the closed
// sets. It is surfaced to the caller once and never retried.
var ErrClassification = errors.New("classification failed")

// ExampleProvider supplies recent training examples for few-shot prompting.
type ExampleProvider interface {
	RecentExamples(ctx context.Context, limit int) ([]models.TrainingExample, error)
}

type Classifier struct {
	client   *Client
	vocab    *models.Vocabulary
	examples ExampleProvider
	logger   *zap.Logger
	now      func() time.Time
}

// NewClassifier builds the intent classifier. examples may be nil, in which
// case the prompt carries only the built-in examples.
func NewClassifier(client *Client, vocab *models.Vocabulary, examples ExampleProvider, logger *zap.Logger) *Classifier {
	return &Classifier{
		client:   client,
		vocab:    vocab,
		examples: examples,
		logger:   logger,
		now:      time.Now,
	}
}

// rawIntent is the flat wire shape the model emits. The tagged union is
// assembled from it after validation.
type rawIntent struct {
	Kind             string   `json:"kind"`
	MediaType        string   `json:"media_type"`
	Confidence       string   `json:"confidence"`
	Genres           []string `json:"genres"`
	Keywords         []string `json:"keywords"`
	Year             int      `json:"year"`
	YearFrom         int      `json:"year_from"`
	YearTo           int      `json:"year_to"`
	MinRating        float64  `json:"min_rating"`
	OriginalLanguage string   `json:"original_language"`
	SortOrder        string   `json:"sort_order"`
	MinVoteCount     int      `json:"min_vote_count"`
	AiringNow        bool     `json:"airing_now"`
	BothTypes        bool     `json:"both_types"`
	ActorOrDirector  string   `json:"actor_or_director_name"`
	WatchProviders   []string `json:"watch_providers"`
	ReferenceTitles  []string `json:"reference_titles"`
	Title            string   `json:"title"`
	PersonName       string   `json:"person_name"`
	FranchiseQuery   string   `json:"franchise_query"`
	TimeWindow       string   `json:"time_window"`
}

// Classify sends the query plus vocabulary context to the model and parses
// its output into a validated Intent.
func (c *Classifier) Classify(ctx context.Context, query string) (*models.Intent, error) {
	prompt := c.buildPrompt(ctx, query)

	text, err := c.client.generate(ctx, "classify", c.client.cfg.ClassifierModel, prompt)
	if err != nil {
		observability.ClassificationFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		observability.ClassificationFailures.Inc()
		return nil, fmt.Errorf("%w: unparseable model output: %v", ErrClassification, err)
	}

	intent, err := buildIntent(raw)
	if err != nil {
		observability.ClassificationFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}

	c.logger.Debug("query classified",
		zap.String("kind", string(intent.Kind)),
		zap.String("media_type", string(intent.MediaType)),
		zap.String("confidence", string(intent.Confidence)),
	)
	return intent, nil
}

// buildIntent validates the closed sets and assembles the tagged union. Any
// value outside the documented sets fails the classification instead of
// propagating silently.
func buildIntent(raw rawIntent) (*models.Intent, error) {
	kind := models.Kind(raw.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid kind %q", raw.Kind)
	}
	mt := models.MediaType(raw.MediaType)
	if !mt.Valid() {
		return nil, fmt.Errorf("invalid media type %q", raw.MediaType)
	}
	conf := models.Confidence(raw.Confidence)
	if !conf.Valid() {
		return nil, fmt.Errorf("invalid confidence %q", raw.Confidence)
	}

	intent := &models.Intent{Kind: kind, MediaType: mt, Confidence: conf}

	switch kind {
	case models.KindDiscover:
		sort := raw.SortOrder
		if sort == "" {
			sort = models.DefaultSortOrder
		}
		minVotes := raw.MinVoteCount
		if minVotes == 0 {
			minVotes = models.DefaultMinVoteCount
		}
		intent.Discover = &models.DiscoverIntent{
			Genres:           emptyIfNil(raw.Genres),
			Keywords:         emptyIfNil(raw.Keywords),
			Year:             raw.Year,
			YearFrom:         raw.YearFrom,
			YearTo:           raw.YearTo,
			MinRating:        raw.MinRating,
			OriginalLanguage: raw.OriginalLanguage,
			SortOrder:        sort,
			MinVoteCount:     minVotes,
			AiringNow:        raw.AiringNow,
			BothTypes:        raw.BothTypes,
			ActorOrDirector:  raw.ActorOrDirector,
			WatchProviders:   emptyIfNil(raw.WatchProviders),
		}
	case models.KindSimilarTo:
		if len(raw.ReferenceTitles) == 0 {
			return nil, fmt.Errorf("similar_to intent without reference titles")
		}
		intent.Similar = &models.SimilarIntent{
			ReferenceTitles:  raw.ReferenceTitles,
			Genres:           emptyIfNil(raw.Genres),
			Keywords:         emptyIfNil(raw.Keywords),
			YearFrom:         raw.YearFrom,
			YearTo:           raw.YearTo,
			MinRating:        raw.MinRating,
			OriginalLanguage: raw.OriginalLanguage,
			WatchProviders:   emptyIfNil(raw.WatchProviders),
		}
	case models.KindFranchise:
		if raw.FranchiseQuery == "" {
			return nil, fmt.Errorf("franchise intent without franchise query")
		}
		intent.Franchise = &models.FranchiseIntent{Query: raw.FranchiseQuery}
	case models.KindLookup:
		if raw.Title == "" {
			return nil, fmt.Errorf("lookup intent without title")
		}
		intent.Lookup = &models.LookupIntent{Title: raw.Title, Year: raw.Year}
	case models.KindPerson:
		if raw.PersonName == "" {
			return nil, fmt.Errorf("person intent without person name")
		}
		intent.Person = &models.PersonIntent{Name: raw.PersonName}
	case models.KindTrending:
		window := models.TimeWindow(raw.TimeWindow)
		if window == "" {
			window = models.WindowWeek
		}
		if window != models.WindowDay && window != models.WindowWeek {
			return nil, fmt.Errorf("invalid time window %q", raw.TimeWindow)
		}
		intent.Trending = &models.TrendingIntent{TimeWindow: window}
	}

	return intent, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
