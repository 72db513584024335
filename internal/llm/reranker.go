package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/models"
)

// Reranker reorders a bounded candidate set by fit. Callers treat any error
// or empty result as a signal to fall back to the original order.
type Reranker struct {
	client *Client
	logger *zap.Logger
}

func NewReranker(client *Client, logger *zap.Logger) *Reranker {
	return &Reranker{client: client, logger: logger}
}

// RerankByReferences orders candidates by thematic fit with the resolved
// reference works. Returns at most limit ids; ids the model invents are the
// caller's problem to drop.
func (r *Reranker) RerankByReferences(ctx context.Context, refs []models.ResolvedReference, emphasis []string, candidates []models.MediaItem, limit int) ([]int, error) {
	prompt := fmt.Sprintf(rerankByReferencesTemplate,
		formatReferences(refs),
		strings.Join(emphasis, ", "),
		formatCandidates(candidates),
		limit,
	)
	return r.rerank(ctx, prompt, limit)
}

// RerankByCriteria orders candidates against the raw request text. Used for
// franchise queries where there is no reference context.
func (r *Reranker) RerankByCriteria(ctx context.Context, queryText string, candidates []models.MediaItem, limit int) ([]int, error) {
	prompt := fmt.Sprintf(rerankByCriteriaTemplate,
		queryText,
		formatCandidates(candidates),
		limit,
	)
	return r.rerank(ctx, prompt, limit)
}

func (r *Reranker) rerank(ctx context.Context, prompt string, limit int) ([]int, error) {
	text, err := r.client.generate(ctx, "rerank", r.client.cfg.RerankerModel, prompt)
	if err != nil {
		return nil, err
	}

	var ids []int
	if err := json.Unmarshal([]byte(extractJSON(text)), &ids); err != nil {
		return nil, fmt.Errorf("unparseable rerank output: %w", err)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
