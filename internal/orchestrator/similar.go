package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/catalog"
	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
)

// genericKeywordTerms are reference keywords too common to discriminate
// between titles. They are dropped before building discover filters.
var genericKeywordTerms = map[string]bool{
	"anime":                   true,
	"based on light novel":    true,
	"based on manga":          true,
	"based on novel":          true,
	"based on web novel":      true,
	"based on a video game":   true,
	"based on comic book":     true,
	"magic":                   true,
	"adventure":               true,
	"romance":                 true,
	"superhero":               true,
	"shounen":                 true,
	"shoujo":                  true,
	"josei":                   true,
	"seinen":                  true,
}

func (o *Orchestrator) executeSimilar(ctx context.Context, in *models.Intent, query string) (*models.Answer, error) {
	sim := in.Similar
	mt := in.MediaType

	// Intents without providers may still name one in the raw text.
	providers := sim.WatchProviders
	if len(providers) == 0 {
		providers = o.scanProviders(query)
	}

	// Step 1: resolve every reference title concurrently, keep successes.
	refBranches := make([]branch[*models.ResolvedReference], 0, len(sim.ReferenceTitles))
	for _, title := range sim.ReferenceTitles {
		title := title
		refBranches = append(refBranches, branch[*models.ResolvedReference]{
			name: "resolve:" + title,
			run: func(ctx context.Context) (*models.ResolvedReference, error) {
				return o.resolveReference(ctx, mt, title)
			},
		})
	}
	refs, refErrs := gather(ctx, refBranches)
	for _, be := range refErrs {
		observability.FanoutBranchFailures.WithLabelValues("reference").Inc()
		o.logger.Warn("reference not resolved", zap.String("branch", be.name), zap.Error(be.err))
	}
	if len(refs) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: "Could not find any of the referenced titles in the catalog. Check the spelling or try another title.",
		}, nil
	}

	// Step 2: primary language and genre come from the first resolved
	// reference, not an average across all of them.
	primary := refs[0]
	language := sim.OriginalLanguage
	if language == "" {
		language = primary.OriginalLanguage
	}
	genreIDs := o.genreIDsFor(mt, sim.Genres)
	if len(genreIDs) == 0 && primary.PrimaryGenreID != 0 {
		genreIDs = []int{primary.PrimaryGenreID}
	}

	// Step 3: the user's own descriptive keywords.
	userKeywordIDs := o.resolver.ResolveMany(ctx, sim.Keywords)

	// Step 4: reference keywords, fetched concurrently, generic terms dropped.
	o.attachReferenceKeywords(ctx, mt, refs)

	// Per-reference discovery favors quality over raw popularity: rating
	// order with a vote floor keeps obscure exact-keyword matches out.
	base := catalog.DiscoverParams{
		GenreIDs:  genreIDs,
		Language:  language,
		YearFrom:  sim.YearFrom,
		YearTo:    sim.YearTo,
		MinRating: sim.MinRating,
		MinVotes:  models.DefaultMinVoteCount,
		SortBy:    "vote_average.desc",
	}

	// Steps 5-6: fan out per reference (and per provider when providers are
	// named; the recommendation endpoint cannot filter by provider).
	var fanout []branch[[]models.MediaItem]
	providerIDs := o.providerIDsFor(providers)
	if len(providerIDs) > 0 {
		for _, ref := range refs {
			ref := ref
			combined := mergeKeywordIDs(userKeywordIDs, ref.KeywordIDs)
			for _, pid := range providerIDs {
				pid := pid
				fanout = append(fanout, branch[[]models.MediaItem]{
					name: fmt.Sprintf("discover:%s:provider:%d", ref.Name, pid),
					run: func(ctx context.Context) ([]models.MediaItem, error) {
						p := base
						p.ProviderIDs = []int{pid}
						return o.discoverBroadening(ctx, mt, p, combined)
					},
				})
			}
		}
	} else {
		for _, ref := range refs {
			ref := ref
			combined := mergeKeywordIDs(userKeywordIDs, ref.KeywordIDs)
			fanout = append(fanout, branch[[]models.MediaItem]{
				name: "discover:" + ref.Name,
				run: func(ctx context.Context) ([]models.MediaItem, error) {
					return o.discoverBroadening(ctx, mt, base, combined)
				},
			})
		}
		// Recommendation branches run after all discover branches so that
		// discover results keep first-seen priority in the merge.
		primaryLang := primary.OriginalLanguage
		for _, ref := range refs {
			ref := ref
			fanout = append(fanout, branch[[]models.MediaItem]{
				name: "recommendations:" + ref.Name,
				run: func(ctx context.Context) ([]models.MediaItem, error) {
					items, err := o.catalog.Recommendations(ctx, mt, ref.ID)
					if err != nil {
						return nil, err
					}
					return filterByLanguage(items, primaryLang), nil
				},
			})
		}
	}

	streams, fanErrs := gather(ctx, fanout)
	for _, be := range fanErrs {
		observability.FanoutBranchFailures.WithLabelValues("fanout").Inc()
		o.logger.Warn("fan-out branch failed", zap.String("branch", be.name), zap.Error(be.err))
	}

	// Step 7: merge, excluding the references themselves.
	exclude := make(map[int]bool, len(refs))
	for _, ref := range refs {
		exclude[ref.ID] = true
	}
	candidates := mergeCandidates(streams, exclude)
	if len(candidates) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: fmt.Sprintf("No similar titles found for %s. Try loosening the filters.", referenceNames(refs)),
		}, nil
	}

	// Steps 8-9: rerank a bounded slice, fall back to original order.
	items := o.rankByReferences(ctx, refs, sim.Keywords, candidates)
	return &models.Answer{
		Kind:  string(in.Kind),
		Text:  o.formatItems(fmt.Sprintf("Because you liked %s:", referenceNames(refs)), mt, items),
		Items: items,
	}, nil
}

// resolveReference searches the catalog for one named title and picks the
// best match among the top five by vote count.
func (o *Orchestrator) resolveReference(ctx context.Context, mt models.MediaType, title string) (*models.ResolvedReference, error) {
	matches, err := o.catalog.SearchTitles(ctx, mt, title, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no catalog match for %q", title)
	}
	if len(matches) > 5 {
		matches = matches[:5]
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.VoteCount > best.VoteCount {
			best = m
		}
	}

	ref := &models.ResolvedReference{
		ID:               best.ID,
		Name:             best.DisplayTitle(),
		Overview:         best.Overview,
		OriginalLanguage: best.OriginalLanguage,
	}
	if len(best.GenreIDs) > 0 {
		ref.PrimaryGenreID = best.GenreIDs[0]
	}
	return ref, nil
}

// attachReferenceKeywords fetches and filters catalog keywords for each
// resolved reference concurrently. A failed fetch leaves that reference
// without keywords; it still participates in the fan-out.
func (o *Orchestrator) attachReferenceKeywords(ctx context.Context, mt models.MediaType, refs []*models.ResolvedReference) {
	branches := make([]branch[struct{}], 0, len(refs))
	for _, ref := range refs {
		ref := ref
		branches = append(branches, branch[struct{}]{
			name: "keywords:" + ref.Name,
			run: func(ctx context.Context) (struct{}, error) {
				kws, err := o.catalog.ItemKeywords(ctx, mt, ref.ID)
				if err != nil {
					return struct{}{}, err
				}
				// Back-fill the shared cache with everything fetched, so
				// later user queries for these terms skip the live search.
				for _, kw := range kws {
					o.resolver.CacheKeyword(kw.Name, kw.ID)
				}
				for _, kw := range kws {
					if genericKeywordTerms[strings.ToLower(kw.Name)] {
						continue
					}
					ref.KeywordIDs = append(ref.KeywordIDs, kw.ID)
					ref.KeywordNames = append(ref.KeywordNames, kw.Name)
					if len(ref.KeywordIDs) >= o.pipeline.RefKeywordCap {
						break
					}
				}
				return struct{}{}, nil
			},
		})
	}
	_, errs := gather(ctx, branches)
	for _, be := range errs {
		observability.FanoutBranchFailures.WithLabelValues("keywords").Inc()
		o.logger.Warn("reference keyword fetch failed", zap.String("branch", be.name), zap.Error(be.err))
	}
}

// discoverBroadening issues a strict AND discover over the top keyword ids,
// widening to an OR over all ids when the strict call comes back thin.
// AND-ing many keywords starves results; OR-ing everything dilutes them.
func (o *Orchestrator) discoverBroadening(ctx context.Context, mt models.MediaType, base catalog.DiscoverParams, keywordIDs []int) ([]models.MediaItem, error) {
	if len(keywordIDs) < o.pipeline.StrictKeywordCount {
		p := base
		p.KeywordIDs = keywordIDs
		return o.catalog.Discover(ctx, mt, p)
	}

	strict := base
	strict.KeywordIDs = keywordIDs[:o.pipeline.StrictKeywordCount]
	strict.KeywordsAll = true
	items, err := o.catalog.Discover(ctx, mt, strict)
	if err != nil {
		return nil, err
	}
	if uniqueIDCount(items) >= o.pipeline.BroadenThreshold {
		return items, nil
	}

	observability.BroadFallbacksTotal.Inc()
	broad := base
	broad.KeywordIDs = keywordIDs
	broadItems, err := o.catalog.Discover(ctx, mt, broad)
	if err != nil {
		o.logger.Warn("broad discover failed, keeping strict results", zap.Error(err))
		return items, nil
	}

	seen := make(map[int]bool, len(items))
	for _, it := range items {
		seen[it.ID] = true
	}
	for _, it := range broadItems {
		if !seen[it.ID] {
			seen[it.ID] = true
			items = append(items, it)
		}
	}
	return items, nil
}

// rankByReferences hands a bounded candidate slice to the reranker and maps
// the returned ids back to items. Unknown ids are dropped; a failed or empty
// rerank falls back to the first candidates in original order.
func (o *Orchestrator) rankByReferences(ctx context.Context, refs []*models.ResolvedReference, emphasis []string, candidates []models.MediaItem) []models.MediaItem {
	bounded := candidates
	if len(bounded) > o.pipeline.RerankCandidateCap {
		bounded = bounded[:o.pipeline.RerankCandidateCap]
	}

	refVals := make([]models.ResolvedReference, len(refs))
	for i, r := range refs {
		refVals[i] = *r
	}

	ids, err := o.reranker.RerankByReferences(ctx, refVals, emphasis, bounded, o.pipeline.RerankResultCap)
	if err != nil {
		observability.RerankFallbacksTotal.WithLabelValues("error").Inc()
		o.logger.Warn("rerank failed, using original order", zap.Error(err))
		return truncateItems(bounded, o.pipeline.FallbackResultCap)
	}

	ranked := itemsByID(bounded, ids, o.pipeline.RerankResultCap)
	if len(ranked) == 0 {
		observability.RerankFallbacksTotal.WithLabelValues("empty").Inc()
		return truncateItems(bounded, o.pipeline.FallbackResultCap)
	}
	return ranked
}

// scanProviders matches the raw query text against the loaded provider
// vocabulary and returns any provider names it mentions.
func (o *Orchestrator) scanProviders(query string) []string {
	lower := strings.ToLower(query)
	var names []string
	for _, p := range o.vocab.Providers() {
		if p.Name != "" && strings.Contains(lower, strings.ToLower(p.Name)) {
			names = append(names, p.Name)
		}
	}
	return names
}

// knownProviders resolves provider names against the loaded vocabulary,
// dropping names the catalog does not know.
func (o *Orchestrator) knownProviders(names []string) []models.Provider {
	var out []models.Provider
	for _, name := range names {
		if id := o.vocab.ProviderID(name); id != 0 {
			out = append(out, models.Provider{ID: id, Name: name})
		} else {
			o.logger.Debug("unknown watch provider, skipping", zap.String("provider", name))
		}
	}
	return out
}

func (o *Orchestrator) providerIDsFor(names []string) []int {
	providers := o.knownProviders(names)
	ids := make([]int, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}
	return ids
}

func (o *Orchestrator) genreIDsFor(mt models.MediaType, names []string) []int {
	var ids []int
	for _, name := range names {
		if id := o.vocab.GenreID(mt, name); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// mergeCandidates flattens fan-out result streams into one deduplicated
// slice, preserving first-seen order and skipping excluded ids.
func mergeCandidates(streams [][]models.MediaItem, exclude map[int]bool) []models.MediaItem {
	seen := make(map[int]bool)
	var out []models.MediaItem
	for _, stream := range streams {
		for _, it := range stream {
			if exclude[it.ID] || seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			out = append(out, it)
		}
	}
	return out
}

func mergeKeywordIDs(user, ref []int) []int {
	seen := make(map[int]bool, len(user)+len(ref))
	out := make([]int, 0, len(user)+len(ref))
	for _, id := range user {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range ref {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func filterByLanguage(items []models.MediaItem, lang string) []models.MediaItem {
	if lang == "" {
		return items
	}
	out := items[:0:0]
	for _, it := range items {
		if it.OriginalLanguage == lang {
			out = append(out, it)
		}
	}
	return out
}

func uniqueIDCount(items []models.MediaItem) int {
	seen := make(map[int]bool, len(items))
	for _, it := range items {
		seen[it.ID] = true
	}
	return len(seen)
}

func itemsByID(candidates []models.MediaItem, ids []int, limit int) []models.MediaItem {
	byID := make(map[int]models.MediaItem, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	var out []models.MediaItem
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

func truncateItems(items []models.MediaItem, n int) []models.MediaItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func referenceNames(refs []*models.ResolvedReference) string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}
