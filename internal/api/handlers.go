package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/models"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Searcher runs one query end to end.
type Searcher interface {
	Search(ctx context.Context, query, requestID string, forceFresh bool) (*models.Answer, error)
}

// ExampleSaver persists corrected training examples.
type ExampleSaver interface {
	SaveExample(ctx context.Context, query string, intentJSON []byte) error
}

// StatsProvider reports aggregate search activity.
type StatsProvider interface {
	TopQueries(ctx context.Context, days, limit int) (map[string]uint64, error)
}

type Handler struct {
	searcher Searcher
	examples ExampleSaver
	stats    StatsProvider
	vocab    *models.Vocabulary
	logger   *zap.Logger
}

func NewHandler(searcher Searcher, examples ExampleSaver, stats StatsProvider, vocab *models.Vocabulary, logger *zap.Logger) *Handler {
	return &Handler{
		searcher: searcher,
		examples: examples,
		stats:    stats,
		vocab:    vocab,
		logger:   logger,
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	ForceFresh bool   `json:"force_fresh"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)

	req, err := h.parseSearchRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "A non-empty query is required")
		return
	}

	answer, err := h.searcher.Search(ctx, req.Query, requestID, req.ForceFresh)
	if err != nil {
		h.logger.Error("search failed",
			zap.String("request_id", requestID),
			zap.String("query", req.Query),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "search_error", "Search service temporarily unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, answer)
}

type exampleRequest struct {
	Query  string          `json:"query"`
	Intent json.RawMessage `json:"intent"`
}

// SaveExample accepts a (query, corrected intent) pair. The intent must
// parse under the closed value sets; it is stored in canonical form.
func (h *Handler) SaveExample(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.examples == nil {
		h.writeError(w, http.StatusServiceUnavailable, "examples_disabled", "Training example storage is not configured")
		return
	}

	var req exampleRequest
	limited := io.LimitReader(r.Body, maxRequestBodySize)
	if err := json.NewDecoder(limited).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "missing_query", "A non-empty query is required")
		return
	}

	intent, err := models.ParseIntent(req.Intent)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_intent", err.Error())
		return
	}
	canonical, err := intent.Canonical()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_intent", err.Error())
		return
	}

	if err := h.examples.SaveExample(ctx, req.Query, canonical); err != nil {
		h.logger.Error("example save failed",
			zap.String("request_id", RequestIDFromContext(ctx)),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "save_error", "Could not store the example")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}

// TopQueries reports the most frequent query hashes over a trailing window.
func (h *Handler) TopQueries(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeError(w, http.StatusServiceUnavailable, "stats_disabled", "Search analytics is not configured")
		return
	}

	days := queryInt(r, "days", 7)
	limit := queryInt(r, "limit", 20)

	counts, err := h.stats.TopQueries(r.Context(), days, limit)
	if err != nil {
		h.logger.Error("top queries lookup failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "stats_error", "Could not load search statistics")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"days":    days,
		"queries": counts,
	})
}

// Vocab exposes the loaded catalog vocabularies for client-side tooling.
func (h *Handler) Vocab(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"genres": map[string]any{
			"movie": h.vocab.Genres(models.MediaMovie),
			"tv":    h.vocab.Genres(models.MediaTV),
		},
		"providers": h.vocab.Providers(),
		"certifications": map[string]any{
			"movie": h.vocab.Certifications(models.MediaMovie),
			"tv":    h.vocab.Certifications(models.MediaTV),
		},
	})
}

func (h *Handler) parseSearchRequest(r *http.Request) (*searchRequest, error) {
	if r.Method == http.MethodPost {
		var req searchRequest
		limited := io.LimitReader(r.Body, maxRequestBodySize)
		if err := json.NewDecoder(limited).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	// GET request
	return &searchRequest{
		Query:      r.URL.Query().Get("q"),
		ForceFresh: r.URL.Query().Get("force_fresh") == "true",
	}, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("writing json response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
