package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
)

// VerifiedKeyword is one curated mapping entry. A single term may map to
// several catalog keyword ids.
type VerifiedKeyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// KeywordResolver maps free-text descriptive terms to catalog keyword ids
// through three tiers: the curated verified mapping, the process-wide runtime
// cache, and a live catalog keyword search as last resort.
type KeywordResolver struct {
	verified map[string][]VerifiedKeyword
	cache    *models.KeywordCache
	catalog  Catalog
	logger   *zap.Logger
}

func NewKeywordResolver(verified map[string][]VerifiedKeyword, cache *models.KeywordCache, cat Catalog, logger *zap.Logger) *KeywordResolver {
	if verified == nil {
		verified = map[string][]VerifiedKeyword{}
	}
	return &KeywordResolver{
		verified: verified,
		cache:    cache,
		catalog:  cat,
		logger:   logger,
	}
}

// LoadVerifiedKeywords reads the curated term-to-id mapping from a JSON file
// of the form {"term": [{"id": 123, "name": "canonical name"}, ...]}.
func LoadVerifiedKeywords(path string) (map[string][]VerifiedKeyword, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading verified keywords %s: %w", path, err)
	}
	var raw map[string][]VerifiedKeyword
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing verified keywords: %w", err)
	}
	verified := make(map[string][]VerifiedKeyword, len(raw))
	for term, entries := range raw {
		verified[strings.ToLower(term)] = entries
	}
	return verified, nil
}

// Resolve maps one term to zero or more catalog keyword ids. A term that
// matches nothing is silently dropped; this never fails the caller.
func (r *KeywordResolver) Resolve(ctx context.Context, term string) []int {
	key := strings.ToLower(strings.TrimSpace(term))
	if key == "" {
		return nil
	}

	// Tier 1: curated mapping, multi-id capable. Back-fill the runtime
	// cache under the canonical names so later lookups hit tier 2.
	if entries, ok := r.verified[key]; ok && len(entries) > 0 {
		observability.KeywordResolutions.WithLabelValues("verified").Inc()
		ids := make([]int, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
			if e.Name != "" {
				r.cache.Put(e.Name, e.ID)
			}
		}
		return ids
	}

	// Tier 2: runtime cache from prior lookups.
	if id, ok := r.cache.Get(key); ok {
		observability.KeywordResolutions.WithLabelValues("cache").Inc()
		return []int{id}
	}

	// Tier 3: live catalog search, first hit cached for reuse.
	results, err := r.catalog.SearchKeyword(ctx, key)
	if err != nil {
		r.logger.Warn("keyword search failed, dropping term",
			zap.String("term", key),
			zap.Error(err),
		)
		return nil
	}
	if len(results) == 0 {
		observability.KeywordResolutions.WithLabelValues("miss").Inc()
		return nil
	}

	observability.KeywordResolutions.WithLabelValues("live").Inc()
	r.cache.Put(key, results[0].ID)
	return []int{results[0].ID}
}

// CacheKeyword back-fills the runtime cache with a keyword fetched from the
// catalog outside the resolve path, such as a reference title's keyword list.
func (r *KeywordResolver) CacheKeyword(name string, id int) {
	if name == "" || id == 0 {
		return
	}
	r.cache.Put(name, id)
}

// ResolveMany resolves terms in order, skipping unresolvable ones and
// deduplicating ids while preserving first-seen order.
func (r *KeywordResolver) ResolveMany(ctx context.Context, terms []string) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, term := range terms {
		for _, id := range r.Resolve(ctx, term) {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
