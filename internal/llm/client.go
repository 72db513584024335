package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mkarvo/reelscout/internal/config"
	"github.com/mkarvo/reelscout/internal/observability"
	"github.com/mkarvo/reelscout/internal/resilience"
)

// Client wraps the language-model service. One breaker covers both the
// classification and reranking calls; neither is ever retried.
type Client struct {
	genai  *genai.Client
	cb     *gobreaker.CircuitBreaker
	cfg    config.LLMConfig
	logger *zap.Logger
}

func NewClient(ctx context.Context, cfg config.LLMConfig, cbCfg config.CircuitBreakerConfig, logger *zap.Logger) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{
		genai:  gc,
		cb:     resilience.NewCircuitBreaker("llm", cbCfg, logger),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// generate sends one prompt and returns the concatenated text parts of the
// first candidate.
func (c *Client) generate(ctx context.Context, operation, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.cb.Execute(func() (any, error) {
		content := genai.NewContentFromText(prompt, genai.RoleUser)
		resp, err := c.genai.Models.GenerateContent(ctx, model, []*genai.Content{content}, nil)
		if err != nil {
			return nil, fmt.Errorf("generating content: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("no response candidates")
		}

		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		return sb.String(), nil
	})

	duration := time.Since(start)
	if err != nil {
		observability.LLMRequestDuration.WithLabelValues(operation, "error").Observe(duration.Seconds())
		return "", err
	}
	observability.LLMRequestDuration.WithLabelValues(operation, "success").Observe(duration.Seconds())

	text, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result from circuit breaker")
	}
	return text, nil
}

// extractJSON pulls the first valid JSON value out of a model response,
// tolerating markdown code fences and surrounding prose.
func extractJSON(response string) string {
	s := strings.TrimSpace(response)
	if s == "" {
		return s
	}

	s = stripCodeFences(s)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '{' && ch != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		dec.UseNumber()
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			trimmed := strings.TrimSpace(string(raw))
			if trimmed != "" {
				return trimmed
			}
		}
	}

	return strings.TrimSpace(response)
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if strings.HasPrefix(strings.TrimSpace(ln), "```") {
			continue
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}
