package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/config"
	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
	"github.com/mkarvo/reelscout/internal/resilience"
)

// Client talks to the external media-catalog HTTP API. All calls go through
// one circuit breaker; a failed call is never retried here.
type Client struct {
	http   *http.Client
	cb     *gobreaker.CircuitBreaker
	cfg    config.CatalogConfig
	logger *zap.Logger
}

func NewClient(cfg config.CatalogConfig, searchCfg config.SearchConfig, logger *zap.Logger) *Client {
	cb := resilience.NewCircuitBreaker("catalog", searchCfg.CircuitBreaker, logger)

	return &Client{
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		cb:     cb,
		cfg:    cfg,
		logger: logger,
	}
}

type pagedResponse struct {
	Page         int                `json:"page"`
	Results      []models.MediaItem `json:"results"`
	TotalPages   int                `json:"total_pages"`
	TotalResults int                `json:"total_results"`
}

// SearchTitles runs a title search for one media type. year of 0 means any.
func (c *Client) SearchTitles(ctx context.Context, mt models.MediaType, query string, year, page int) ([]models.MediaItem, error) {
	params := url.Values{}
	params.Set("query", query)
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if year > 0 {
		if mt == models.MediaTV {
			params.Set("first_air_date_year", strconv.Itoa(year))
		} else {
			params.Set("primary_release_year", strconv.Itoa(year))
		}
	}

	var resp pagedResponse
	if err := c.get(ctx, "search", fmt.Sprintf("/search/%s", mt), params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// DiscoverParams are the filter conditions of one discover call.
type DiscoverParams struct {
	GenreIDs    []int
	KeywordIDs  []int
	KeywordsAll bool // AND the keyword ids together instead of OR
	Language    string
	YearFrom    int
	YearTo      int
	MinRating   float64
	MinVotes    int
	SortBy      string
	ProviderIDs []int
	CastID      int
	AirDateFrom string
	AirDateTo   string
	Page        int
}

func (c *Client) Discover(ctx context.Context, mt models.MediaType, p DiscoverParams) ([]models.MediaItem, error) {
	params := url.Values{}
	params.Set("include_adult", "false")

	if len(p.GenreIDs) > 0 {
		params.Set("with_genres", joinIDs(p.GenreIDs, ","))
	}
	if len(p.KeywordIDs) > 0 {
		sep := "|"
		if p.KeywordsAll {
			sep = ","
		}
		params.Set("with_keywords", joinIDs(p.KeywordIDs, sep))
	}
	if p.Language != "" {
		params.Set("with_original_language", p.Language)
	}
	if p.YearFrom > 0 {
		params.Set(dateGTEKey(mt), fmt.Sprintf("%d-01-01", p.YearFrom))
	}
	if p.YearTo > 0 {
		params.Set(dateLTEKey(mt), fmt.Sprintf("%d-12-31", p.YearTo))
	}
	if p.MinRating > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(p.MinRating, 'f', 1, 64))
	}
	if p.MinVotes > 0 {
		params.Set("vote_count.gte", strconv.Itoa(p.MinVotes))
	}
	if p.SortBy != "" {
		params.Set("sort_by", p.SortBy)
	}
	if len(p.ProviderIDs) > 0 {
		params.Set("with_watch_providers", joinIDs(p.ProviderIDs, "|"))
		params.Set("watch_region", c.cfg.Region)
	}
	if p.CastID > 0 {
		params.Set("with_people", strconv.Itoa(p.CastID))
	}
	if p.AirDateFrom != "" && mt == models.MediaTV {
		params.Set("air_date.gte", p.AirDateFrom)
	}
	if p.AirDateTo != "" && mt == models.MediaTV {
		params.Set("air_date.lte", p.AirDateTo)
	}
	if p.Page > 0 {
		params.Set("page", strconv.Itoa(p.Page))
	}

	var resp pagedResponse
	if err := c.get(ctx, "discover", fmt.Sprintf("/discover/%s", mt), params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) Trending(ctx context.Context, mt models.MediaType, window models.TimeWindow) ([]models.MediaItem, error) {
	var resp pagedResponse
	path := fmt.Sprintf("/trending/%s/%s", mt, window)
	if err := c.get(ctx, "trending", path, url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) Recommendations(ctx context.Context, mt models.MediaType, id int) ([]models.MediaItem, error) {
	var resp pagedResponse
	path := fmt.Sprintf("/%s/%d/recommendations", mt, id)
	if err := c.get(ctx, "recommendations", path, url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ItemKeywords fetches the catalog keywords attached to one item. The
// envelope key differs between movies and series.
func (c *Client) ItemKeywords(ctx context.Context, mt models.MediaType, id int) ([]models.Keyword, error) {
	var resp struct {
		Keywords []models.Keyword `json:"keywords"`
		Results  []models.Keyword `json:"results"`
	}
	path := fmt.Sprintf("/%s/%d/keywords", mt, id)
	if err := c.get(ctx, "item_keywords", path, url.Values{}, &resp); err != nil {
		return nil, err
	}
	if mt == models.MediaTV {
		return resp.Results, nil
	}
	return resp.Keywords, nil
}

func (c *Client) SearchKeyword(ctx context.Context, term string) ([]models.Keyword, error) {
	params := url.Values{}
	params.Set("query", term)

	var resp struct {
		Results []models.Keyword `json:"results"`
	}
	if err := c.get(ctx, "search_keyword", "/search/keyword", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) SearchPerson(ctx context.Context, name string) ([]models.Person, error) {
	params := url.Values{}
	params.Set("query", name)

	var resp struct {
		Results []models.Person `json:"results"`
	}
	if err := c.get(ctx, "search_person", "/search/person", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) PersonDetails(ctx context.Context, id int) (*models.Person, error) {
	var p models.Person
	if err := c.get(ctx, "person_details", fmt.Sprintf("/person/%d", id), url.Values{}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Details(ctx context.Context, mt models.MediaType, id int) (*models.ItemDetails, error) {
	var d models.ItemDetails
	if err := c.get(ctx, "details", fmt.Sprintf("/%s/%d", mt, id), url.Values{}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Genres(ctx context.Context, mt models.MediaType) ([]models.Genre, error) {
	var resp struct {
		Genres []models.Genre `json:"genres"`
	}
	if err := c.get(ctx, "genres", fmt.Sprintf("/genre/%s/list", mt), url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Genres, nil
}

func (c *Client) Providers(ctx context.Context, mt models.MediaType) ([]models.Provider, error) {
	params := url.Values{}
	params.Set("watch_region", c.cfg.Region)

	var resp struct {
		Results []models.Provider `json:"results"`
	}
	if err := c.get(ctx, "providers", fmt.Sprintf("/watch/providers/%s", mt), params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) Certifications(ctx context.Context, mt models.MediaType) ([]models.Certification, error) {
	var resp struct {
		Certifications map[string][]models.Certification `json:"certifications"`
	}
	if err := c.get(ctx, "certifications", fmt.Sprintf("/certification/%s/list", mt), url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Certifications[c.cfg.Region], nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	ctx, span := observability.StartSpan(ctx, "catalog."+endpoint,
		attribute.String("catalog.path", path),
	)
	defer span.End()

	params.Set("api_key", c.cfg.APIKey)
	if params.Get("language") == "" {
		params.Set("language", c.cfg.Language)
	}
	reqURL := c.cfg.BaseURL + path + "?" + params.Encode()

	start := time.Now()
	body, err := c.cb.Execute(func() (any, error) {
		return c.execute(ctx, reqURL)
	})

	duration := time.Since(start)
	if err != nil {
		observability.CatalogRequestDuration.WithLabelValues(endpoint, "error").Observe(duration.Seconds())
		return fmt.Errorf("catalog %s: %w", endpoint, err)
	}
	observability.CatalogRequestDuration.WithLabelValues(endpoint, "success").Observe(duration.Seconds())

	raw, ok := body.([]byte)
	if !ok {
		return fmt.Errorf("catalog %s: unexpected result from circuit breaker", endpoint)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("catalog %s: decoding response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, truncateBody(raw))
	}
	return raw, nil
}

func dateGTEKey(mt models.MediaType) string {
	if mt == models.MediaTV {
		return "first_air_date.gte"
	}
	return "primary_release_date.gte"
}

func dateLTEKey(mt models.MediaType) string {
	if mt == models.MediaTV {
		return "first_air_date.lte"
	}
	return "primary_release_date.lte"
}

func joinIDs(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}

func truncateBody(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
