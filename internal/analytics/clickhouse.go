package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/config"
	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
)

// Client writes one row per completed search to ClickHouse. Writers never
// block the response path; callers invoke WriteSearchEvent from a goroutine.
type Client struct {
	conn   driver.Conn
	logger *zap.Logger
}

func NewClient(cfg config.ClickHouseConfig, logger *zap.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addresses,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": int(cfg.QueryTimeout.Seconds()),
		},
		DialTimeout:  cfg.DialTimeout,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("opening clickhouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging clickhouse: %w", err)
	}

	logger.Info("clickhouse analytics connected", zap.Strings("addresses", cfg.Addresses))
	observability.ActiveConnections.WithLabelValues("clickhouse").Set(1)

	return &Client{
		conn:   conn,
		logger: logger,
	}, nil
}

func (c *Client) WriteSearchEvent(ctx context.Context, event *models.SearchEvent) error {
	start := time.Now()

	query := `
		INSERT INTO search_events (
			event_type, query_hash, kind, media_type, duration_ms,
			result_count, cache_hit, broadened, timestamp, trace_id, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := c.conn.Exec(ctx, query,
		event.EventType,
		event.QueryHash,
		event.Kind,
		event.MediaType,
		event.DurationMs,
		event.ResultCount,
		event.CacheHit,
		event.Broadened,
		event.Timestamp,
		event.TraceID,
		event.Source,
	)
	if err != nil {
		observability.CHQueryDuration.WithLabelValues("insert_event", "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("ch insert search event: %w", err)
	}

	observability.CHQueryDuration.WithLabelValues("insert_event", "success").Observe(time.Since(start).Seconds())
	return nil
}

// TopQueries returns the most frequent query hashes of the past n days.
// Used by the stats endpoint; failures there are non-fatal.
func (c *Client) TopQueries(ctx context.Context, days, limit int) (map[string]uint64, error) {
	ctx, span := observability.StartSpan(ctx, "ch.top_queries")
	defer span.End()

	start := time.Now()

	query := `
		SELECT query_hash, count() AS cnt
		FROM search_events
		WHERE timestamp >= now() - INTERVAL ? DAY
		GROUP BY query_hash
		ORDER BY cnt DESC
		LIMIT ?
	`
	rows, err := c.conn.Query(ctx, query, days, limit)
	if err != nil {
		observability.CHQueryDuration.WithLabelValues("top_queries", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("ch top queries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var hash string
		var cnt uint64
		if err := rows.Scan(&hash, &cnt); err != nil {
			return nil, fmt.Errorf("scanning top query row: %w", err)
		}
		counts[hash] = cnt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top query rows: %w", err)
	}

	observability.CHQueryDuration.WithLabelValues("top_queries", "success").Observe(time.Since(start).Seconds())
	return counts, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Client) Close() error {
	observability.ActiveConnections.WithLabelValues("clickhouse").Set(0)
	return c.conn.Close()
}

func (c *Client) EnsureTables(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS search_events (
		event_type String,
		query_hash String,
		kind String,
		media_type String,
		duration_ms Float64,
		result_count Int32,
		cache_hit Bool,
		broadened Bool,
		timestamp DateTime,
		trace_id String,
		source String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (timestamp, query_hash)`

	if err := c.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating search_events table: %w", err)
	}

	c.logger.Info("clickhouse tables ensured")
	return nil
}
