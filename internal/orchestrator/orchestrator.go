package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/config"
	"github.com/mkarvo/reelscout/internal/llm"
	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
)

type Orchestrator struct {
	catalog    Catalog
	classifier IntentClassifier
	reranker   CandidateReranker
	resolver   *KeywordResolver
	vocab      *models.Vocabulary
	cache      AnswerCache
	analytics  AnalyticsWriter
	slowSearch *observability.SlowSearchDetector
	cfg        config.SearchConfig
	pipeline   config.PipelineConfig
	logger     *zap.Logger

	now func() time.Time
}

func New(
	cat Catalog,
	classifier IntentClassifier,
	reranker CandidateReranker,
	resolver *KeywordResolver,
	vocab *models.Vocabulary,
	answerCache AnswerCache,
	analytics AnalyticsWriter,
	slowSearch *observability.SlowSearchDetector,
	cfg config.SearchConfig,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		catalog:    cat,
		classifier: classifier,
		reranker:   reranker,
		resolver:   resolver,
		vocab:      vocab,
		cache:      answerCache,
		analytics:  analytics,
		slowSearch: slowSearch,
		cfg:        cfg,
		pipeline:   cfg.Pipeline,
		logger:     logger,
		now:        time.Now,
	}
}

// Search runs one query end to end: cache check, classification, rule
// correction, routing, execution, formatting.
func (o *Orchestrator) Search(ctx context.Context, query, requestID string, forceFresh bool) (*models.Answer, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "orchestrator.search",
		attribute.String("query", query),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.QueryTimeout)
	defer cancel()

	// Step 1: cached answer for the same query text.
	if !forceFresh && o.cache != nil {
		if cached, ok := o.cache.Get(ctx, query); ok {
			observability.CacheHits.Inc()
			cached.CacheHit = true
			cached.TookMs = time.Since(start).Milliseconds()
			cached.RequestID = requestID
			observability.SearchRequestsTotal.WithLabelValues(cached.Kind, "success").Inc()
			observability.SearchRequestDuration.WithLabelValues(cached.Kind, "cache", "success").Observe(time.Since(start).Seconds())
			o.recordEvent(ctx, query, cached, time.Since(start), "cache")
			return cached, nil
		}
		observability.CacheMisses.Inc()
	}

	// Step 2: classify. A failed classification is the one error that
	// surfaces to the user as-is; it is never retried.
	intent, err := o.classifier.Classify(ctx, query)
	if err != nil {
		observability.SearchRequestsTotal.WithLabelValues("unknown", "classification_failed").Inc()
		if errors.Is(err, llm.ErrClassification) {
			o.logger.Warn("classification failed", zap.String("query", query), zap.Error(err))
			return &models.Answer{
				Query:     query,
				Kind:      "unknown",
				Text:      fmt.Sprintf("Error interpreting the query: %v", err),
				TookMs:    time.Since(start).Milliseconds(),
				RequestID: requestID,
			}, nil
		}
		return nil, err
	}

	// Step 3: deterministic correction against the raw query text.
	intent = Postprocess(intent, query)

	// Step 4: route and execute.
	path := Route(intent)
	o.logger.Debug("query routed",
		zap.String("query", query),
		zap.String("kind", string(intent.Kind)),
		zap.String("path", path.String()),
	)

	answer, err := o.execute(ctx, path, intent, query)
	if err != nil {
		// A stale cached answer beats an error page.
		if o.cache != nil {
			if stale, ok := o.cache.GetStale(ctx, query); ok {
				o.logger.Warn("serving stale answer after execution failure", zap.Error(err))
				stale.CacheHit = true
				stale.TookMs = time.Since(start).Milliseconds()
				stale.RequestID = requestID
				observability.SearchRequestsTotal.WithLabelValues(stale.Kind, "stale").Inc()
				return stale, nil
			}
		}
		observability.SearchRequestsTotal.WithLabelValues(string(intent.Kind), "error").Inc()
		observability.SearchRequestDuration.WithLabelValues(string(intent.Kind), "live", "error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	answer.Query = query
	answer.TookMs = time.Since(start).Milliseconds()
	answer.RequestID = requestID

	// Step 5: cache and account for the answer.
	if o.cache != nil {
		o.cache.Set(ctx, query, answer)
	}
	observability.SearchRequestsTotal.WithLabelValues(answer.Kind, "success").Inc()
	observability.SearchRequestDuration.WithLabelValues(answer.Kind, "live", "success").Observe(time.Since(start).Seconds())
	if o.slowSearch != nil {
		o.slowSearch.Intercept(ctx, query, answer.Kind, time.Since(start), len(answer.Items), false)
	}
	o.recordEvent(ctx, query, answer, time.Since(start), "live")

	return answer, nil
}

func (o *Orchestrator) execute(ctx context.Context, path ExecutionPath, in *models.Intent, query string) (*models.Answer, error) {
	switch path {
	case PathLowConfidence:
		return o.executeLowConfidence(ctx, in, query)
	case PathTrending:
		return o.executeTrending(ctx, in, query)
	case PathPerson:
		return o.executePerson(ctx, in, query)
	case PathLookup:
		return o.executeLookup(ctx, in, query)
	case PathSimilar:
		return o.executeSimilar(ctx, in, query)
	case PathFranchise:
		return o.executeFranchise(ctx, in, query)
	case PathBothTypes:
		return o.executeBothTypes(ctx, in, query)
	case PathActorDiscover:
		return o.executeActorDiscover(ctx, in, query)
	default:
		return o.executeDiscover(ctx, in, query)
	}
}

// recordEvent writes one analytics row per completed search without ever
// blocking the response path.
func (o *Orchestrator) recordEvent(ctx context.Context, query string, answer *models.Answer, took time.Duration, source string) {
	if o.analytics == nil {
		return
	}
	event := &models.SearchEvent{
		EventType:   "search",
		QueryHash:   observability.HashQuery(query),
		Kind:        answer.Kind,
		DurationMs:  float64(took.Milliseconds()),
		ResultCount: len(answer.Items),
		CacheHit:    source == "cache",
		Timestamp:   o.now().UTC(),
		TraceID:     observability.TraceIDFromContext(ctx),
		Source:      source,
	}
	go func() {
		wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := o.analytics.WriteSearchEvent(wctx, event); err != nil {
			o.logger.Warn("analytics write failed", zap.Error(err))
		}
	}()
}
