package trainstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/mkarvo/reelscout/internal/config"
	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
)

// Store persists (query, corrected intent) pairs for offline tuning and
// serves the most recent ones back as few-shot prompt examples.
type Store struct {
	client *firestore.Client
	cfg    config.FirestoreConfig
	logger *zap.Logger
}

func NewStore(ctx context.Context, cfg config.FirestoreConfig, logger *zap.Logger) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	logger.Info("training example store connected", zap.String("project", cfg.ProjectID))

	return &Store{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// SaveExample stores one training example. The document id is the query
// hash, so resubmitting a correction for the same query replaces it.
func (s *Store) SaveExample(ctx context.Context, query string, intentJSON []byte) error {
	ctx, span := observability.StartSpan(ctx, "trainstore.save_example",
		attribute.String("query_hash", observability.HashQuery(query)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	docID := observability.HashQuery(query)
	_, err := s.client.Collection(s.cfg.Collection).Doc(docID).Set(ctx, map[string]any{
		"query":      query,
		"intent":     string(intentJSON),
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("firestore save example: %w", err)
	}
	return nil
}

// RecentExamples returns the latest examples, newest first.
func (s *Store) RecentExamples(ctx context.Context, limit int) ([]models.TrainingExample, error) {
	ctx, span := observability.StartSpan(ctx, "trainstore.recent_examples",
		attribute.Int("limit", limit),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	iter := s.client.Collection(s.cfg.Collection).
		OrderBy("updated_at", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var examples []models.TrainingExample
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iterate examples: %w", err)
		}

		data := doc.Data()
		ex := models.TrainingExample{}
		if q, ok := data["query"].(string); ok {
			ex.Query = q
		}
		if in, ok := data["intent"].(string); ok {
			ex.Intent = []byte(in)
		}
		if ts, ok := data["updated_at"].(time.Time); ok {
			ex.UpdatedAt = ts
		}
		if ex.Query != "" && len(ex.Intent) > 0 {
			examples = append(examples, ex)
		}
	}

	return examples, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	iter := s.client.Collection(s.cfg.Collection).Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore health check: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
