package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
)

// executeFranchise pulls two pages of title matches concurrently, narrows to
// items whose title actually mentions the franchise, and reranks by fit.
func (o *Orchestrator) executeFranchise(ctx context.Context, in *models.Intent, query string) (*models.Answer, error) {
	fq := in.Franchise.Query
	mt := in.MediaType

	branches := []branch[[]models.MediaItem]{
		{
			name: "search:page1",
			run: func(ctx context.Context) ([]models.MediaItem, error) {
				return o.catalog.SearchTitles(ctx, mt, fq, 0, 1)
			},
		},
		{
			name: "search:page2",
			run: func(ctx context.Context) ([]models.MediaItem, error) {
				return o.catalog.SearchTitles(ctx, mt, fq, 0, 2)
			},
		},
	}
	streams, errs := gather(ctx, branches)
	for _, be := range errs {
		observability.FanoutBranchFailures.WithLabelValues("franchise").Inc()
		o.logger.Warn("franchise search page failed", zap.String("branch", be.name), zap.Error(be.err))
	}

	candidates := mergeCandidates(streams, nil)
	if len(candidates) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: fmt.Sprintf("Could not find any %q titles in the catalog.", fq),
		}, nil
	}

	// Title search is fuzzy; keep entries whose title mentions the franchise.
	// An over-aggressive filter falls back to the unfiltered set.
	filtered := filterByTitle(candidates, fq)
	if len(filtered) > 0 {
		candidates = filtered
	}

	items := o.rankByCriteria(ctx, query, candidates)
	return &models.Answer{
		Kind:  string(in.Kind),
		Text:  o.formatItems(fmt.Sprintf("%s titles:", fq), mt, items),
		Items: items,
	}, nil
}

// rankByCriteria reranks a bounded candidate slice against the raw query
// text, falling back to original order when reranking yields nothing usable.
func (o *Orchestrator) rankByCriteria(ctx context.Context, queryText string, candidates []models.MediaItem) []models.MediaItem {
	bounded := candidates
	if len(bounded) > o.pipeline.RerankCandidateCap {
		bounded = bounded[:o.pipeline.RerankCandidateCap]
	}

	ids, err := o.reranker.RerankByCriteria(ctx, queryText, bounded, o.pipeline.RerankResultCap)
	if err != nil {
		observability.RerankFallbacksTotal.WithLabelValues("error").Inc()
		o.logger.Warn("criteria rerank failed, using original order", zap.Error(err))
		return truncateItems(bounded, o.pipeline.FallbackResultCap)
	}

	ranked := itemsByID(bounded, ids, o.pipeline.RerankResultCap)
	if len(ranked) == 0 {
		observability.RerankFallbacksTotal.WithLabelValues("empty").Inc()
		return truncateItems(bounded, o.pipeline.FallbackResultCap)
	}
	return ranked
}

func filterByTitle(items []models.MediaItem, q string) []models.MediaItem {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return items
	}
	var out []models.MediaItem
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), needle) ||
			strings.Contains(strings.ToLower(it.Name), needle) ||
			strings.Contains(strings.ToLower(it.OriginalTitle), needle) ||
			strings.Contains(strings.ToLower(it.OriginalName), needle) {
			out = append(out, it)
		}
	}
	return out
}
