package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/config"
	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
)

// RedisCache stores formatted answers keyed by hashed query text. Every
// answer is written twice: once under its kind-dependent TTL and once under
// a longer stale key used when live execution fails.
type RedisCache struct {
	client redis.UniversalClient
	ttl    config.CacheTTLConfig
	logger *zap.Logger
}

func NewRedisCache(cfg config.RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	var client redis.UniversalClient

	if len(cfg.Addresses) > 1 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addresses,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Addresses[0],
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis cache connected", zap.Strings("addresses", cfg.Addresses))
	observability.ActiveConnections.WithLabelValues("redis").Set(1)

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// Get returns the cached answer for a query, or false on a miss. Transport
// errors are logged and reported as misses; the cache never fails a search.
func (rc *RedisCache) Get(ctx context.Context, query string) (*models.Answer, bool) {
	return rc.getAnswer(ctx, answerKey(query))
}

// GetStale returns the long-TTL copy of the answer, set aside for when live
// execution fails.
func (rc *RedisCache) GetStale(ctx context.Context, query string) (*models.Answer, bool) {
	return rc.getAnswer(ctx, staleKey(query))
}

func (rc *RedisCache) Set(ctx context.Context, query string, answer *models.Answer) {
	data, err := json.Marshal(answer)
	if err != nil {
		rc.logger.Warn("cache marshal error", zap.Error(err))
		return
	}
	if err := rc.client.Set(ctx, answerKey(query), data, rc.ttlForKind(answer.Kind)).Err(); err != nil {
		rc.logger.Warn("cache set error", zap.Error(err))
		return
	}
	if err := rc.client.Set(ctx, staleKey(query), data, rc.ttl.StaleFallback).Err(); err != nil {
		rc.logger.Warn("stale cache set error", zap.Error(err))
	}
}

func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	observability.ActiveConnections.WithLabelValues("redis").Set(0)
	return rc.client.Close()
}

func (rc *RedisCache) getAnswer(ctx context.Context, key string) (*models.Answer, bool) {
	val, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		rc.logger.Warn("cache get error", zap.Error(err))
		return nil, false
	}

	var answer models.Answer
	if err := json.Unmarshal([]byte(val), &answer); err != nil {
		rc.logger.Warn("cache unmarshal error", zap.Error(err))
		return nil, false
	}
	return &answer, true
}

func (rc *RedisCache) ttlForKind(kind string) time.Duration {
	switch kind {
	case "trending":
		return rc.ttl.Trending
	case "similar_to", "franchise":
		return rc.ttl.Similar
	case "lookup", "person":
		return rc.ttl.Lookup
	default:
		return rc.ttl.Discover
	}
}

func answerKey(query string) string {
	return "answer:" + hashString(query)
}

func staleKey(query string) string {
	return "answer:stale:" + hashString(query)
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}
