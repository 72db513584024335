package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	LLM           LLMConfig           `yaml:"llm"`
	Redis         RedisConfig         `yaml:"redis"`
	ClickHouse    ClickHouseConfig    `yaml:"clickhouse"`
	Firestore     FirestoreConfig     `yaml:"firestore"`
	Search        SearchConfig        `yaml:"search"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type CatalogConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Language       string        `yaml:"language"`
	Region         string        `yaml:"region"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LLMConfig struct {
	APIKey          string        `yaml:"api_key"`
	ClassifierModel string        `yaml:"classifier_model"`
	RerankerModel   string        `yaml:"reranker_model"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type RedisConfig struct {
	Addresses    []string       `yaml:"addresses"`
	Password     string         `yaml:"password"`
	DB           int            `yaml:"db"`
	PoolSize     int            `yaml:"pool_size"`
	MinIdleConns int            `yaml:"min_idle_conns"`
	DialTimeout  time.Duration  `yaml:"dial_timeout"`
	ReadTimeout  time.Duration  `yaml:"read_timeout"`
	WriteTimeout time.Duration  `yaml:"write_timeout"`
	TTL          CacheTTLConfig `yaml:"ttl"`
}

type CacheTTLConfig struct {
	Trending      time.Duration `yaml:"trending"`
	Discover      time.Duration `yaml:"discover"`
	Similar       time.Duration `yaml:"similar"`
	Lookup        time.Duration `yaml:"lookup"`
	StaleFallback time.Duration `yaml:"stale_fallback"`
}

type ClickHouseConfig struct {
	Addresses    []string      `yaml:"addresses"`
	Database     string        `yaml:"database"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
}

type FirestoreConfig struct {
	ProjectID       string        `yaml:"project_id"`
	CredentialsFile string        `yaml:"credentials_file"`
	Collection      string        `yaml:"collection"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type SearchConfig struct {
	QueryTimeout   time.Duration        `yaml:"query_timeout"`
	KeywordsFile   string               `yaml:"keywords_file"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	SlowSearch     SlowSearchConfig     `yaml:"slow_search"`
	Pipeline       PipelineConfig       `yaml:"pipeline"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

type SlowSearchConfig struct {
	WarningThreshold  time.Duration `yaml:"warning_threshold"`
	CriticalThreshold time.Duration `yaml:"critical_threshold"`
}

// PipelineConfig carries the empirically tuned constants of the similar-to
// pipeline. The defaults come from production tuning; change with care.
type PipelineConfig struct {
	StrictKeywordCount int `yaml:"strict_keyword_count"`
	BroadenThreshold   int `yaml:"broaden_threshold"`
	RefKeywordCap      int `yaml:"ref_keyword_cap"`
	RerankCandidateCap int `yaml:"rerank_candidate_cap"`
	RerankResultCap    int `yaml:"rerank_result_cap"`
	FallbackResultCap  int `yaml:"fallback_result_cap"`
}

type ObservabilityConfig struct {
	MetricsPort     int    `yaml:"metrics_port"`
	TracingEndpoint string `yaml:"tracing_endpoint"`
	LogLevel        string `yaml:"log_level"`
	ServiceName     string `yaml:"service_name"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL:        "https://api.themoviedb.org/3",
			Language:       "en-US",
			Region:         "US",
			RequestTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			ClassifierModel: "gemini-2.5-flash",
			RerankerModel:   "gemini-2.5-flash",
			RequestTimeout:  30 * time.Second,
		},
		Redis: RedisConfig{
			Addresses:    []string{"localhost:6379"},
			PoolSize:     100,
			MinIdleConns: 10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
			TTL: CacheTTLConfig{
				Trending:      60 * time.Second,
				Discover:      10 * time.Minute,
				Similar:       30 * time.Minute,
				Lookup:        1 * time.Hour,
				StaleFallback: 1 * time.Hour,
			},
		},
		ClickHouse: ClickHouseConfig{
			Addresses:    []string{"localhost:9000"},
			Database:     "search_analytics",
			DialTimeout:  5 * time.Second,
			QueryTimeout: 2 * time.Second,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Firestore: FirestoreConfig{
			Collection:     "training_examples",
			RequestTimeout: 2 * time.Second,
		},
		Search: SearchConfig{
			QueryTimeout: 60 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests:      100,
				Interval:         30 * time.Second,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
			SlowSearch: SlowSearchConfig{
				WarningThreshold:  5 * time.Second,
				CriticalThreshold: 15 * time.Second,
			},
			Pipeline: PipelineConfig{
				StrictKeywordCount: 2,
				BroadenThreshold:   10,
				RefKeywordCap:      8,
				RerankCandidateCap: 30,
				RerankResultCap:    12,
				FallbackResultCap:  12,
			},
		},
		Observability: ObservabilityConfig{
			MetricsPort: 9090,
			LogLevel:    "info",
			ServiceName: "reelscout",
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base url required")
	}
	if len(c.Redis.Addresses) == 0 {
		return fmt.Errorf("at least one redis address required")
	}
	if c.Search.Pipeline.StrictKeywordCount <= 0 {
		return fmt.Errorf("strict keyword count must be positive")
	}
	if c.Search.Pipeline.BroadenThreshold <= 0 {
		return fmt.Errorf("broaden threshold must be positive")
	}
	if c.Search.Pipeline.RerankCandidateCap < c.Search.Pipeline.RerankResultCap {
		return fmt.Errorf("rerank candidate cap %d below result cap %d",
			c.Search.Pipeline.RerankCandidateCap, c.Search.Pipeline.RerankResultCap)
	}
	return nil
}
