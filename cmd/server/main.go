package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/analytics"
	"github.com/mkarvo/reelscout/internal/api"
	"github.com/mkarvo/reelscout/internal/cache"
	"github.com/mkarvo/reelscout/internal/catalog"
	"github.com/mkarvo/reelscout/internal/config"
	"github.com/mkarvo/reelscout/internal/llm"
	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
	"github.com/mkarvo/reelscout/internal/orchestrator"
	"github.com/mkarvo/reelscout/internal/trainstore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize logger
	logger, err := observability.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting media search service",
		zap.String("service", cfg.Observability.ServiceName),
	)

	// Initialize tracing
	tracerShutdown, err := observability.InitTracer(cfg.Observability.ServiceName)
	if err != nil {
		logger.Warn("tracing initialization failed, continuing without tracing", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients
	redisCache, err := cache.NewRedisCache(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("initializing redis: %w", err)
	}
	defer redisCache.Close()
	logger.Info("redis cache initialized")

	var chClient *analytics.Client
	chClient, err = analytics.NewClient(cfg.ClickHouse, logger)
	if err != nil {
		logger.Warn("clickhouse initialization failed, analytics will be unavailable", zap.Error(err))
		chClient = nil
	} else {
		defer chClient.Close()
		if err := chClient.EnsureTables(ctx); err != nil {
			logger.Warn("clickhouse table creation failed", zap.Error(err))
		}
		logger.Info("clickhouse analytics initialized")
	}

	var exampleStore *trainstore.Store
	if cfg.Firestore.ProjectID != "" {
		exampleStore, err = trainstore.NewStore(ctx, cfg.Firestore, logger)
		if err != nil {
			logger.Warn("firestore initialization failed, training examples will be unavailable", zap.Error(err))
			exampleStore = nil
		} else {
			defer exampleStore.Close()
			logger.Info("training example store initialized")
		}
	}

	// Catalog client and vocabularies. The vocabularies must be loaded
	// before the first request; classification prompts depend on them.
	catalogClient := catalog.NewClient(cfg.Catalog, cfg.Search, logger)
	vocab := models.NewVocabulary()
	if err := catalogClient.LoadVocabulary(ctx, vocab); err != nil {
		return fmt.Errorf("loading catalog vocabulary: %w", err)
	}

	// LLM adapters
	llmClient, err := llm.NewClient(ctx, cfg.LLM, cfg.Search.CircuitBreaker, logger)
	if err != nil {
		return fmt.Errorf("initializing llm client: %w", err)
	}
	var exampleProvider llm.ExampleProvider
	if exampleStore != nil {
		exampleProvider = exampleStore
	}
	classifier := llm.NewClassifier(llmClient, vocab, exampleProvider, logger)
	reranker := llm.NewReranker(llmClient, logger)

	// Keyword resolver with optional curated mapping
	var verified map[string][]orchestrator.VerifiedKeyword
	if cfg.Search.KeywordsFile != "" {
		verified, err = orchestrator.LoadVerifiedKeywords(cfg.Search.KeywordsFile)
		if err != nil {
			logger.Warn("verified keyword file load failed, resolver starts empty", zap.Error(err))
		} else {
			logger.Info("verified keywords loaded", zap.Int("terms", len(verified)))
		}
	}
	resolver := orchestrator.NewKeywordResolver(verified, models.NewKeywordCache(), catalogClient, logger)

	// Slow search detector
	var analyticsWriter observability.AnalyticsWriter
	if chClient != nil {
		analyticsWriter = chClient
	}
	slowSearch := observability.NewSlowSearchDetector(
		cfg.Search.SlowSearch.WarningThreshold,
		cfg.Search.SlowSearch.CriticalThreshold,
		logger,
		analyticsWriter,
	)

	// Orchestrator
	var eventWriter orchestrator.AnalyticsWriter
	if chClient != nil {
		eventWriter = chClient
	}
	orch := orchestrator.New(
		catalogClient, classifier, reranker, resolver, vocab,
		redisCache, eventWriter, slowSearch, cfg.Search, logger,
	)

	// HTTP server
	var exampleSaver api.ExampleSaver
	if exampleStore != nil {
		exampleSaver = exampleStore
	}
	var statsProvider api.StatsProvider
	if chClient != nil {
		statsProvider = chClient
	}
	handler := api.NewHandler(orch, exampleSaver, statsProvider, vocab, logger)

	healthHandler := api.NewHealthHandler(logger)
	healthHandler.Register("redis", redisCache)
	if chClient != nil {
		healthHandler.Register("clickhouse", chClient)
	}
	if exampleStore != nil {
		healthHandler.Register("firestore", exampleStore)
	}

	router := api.NewRouter(handler, healthHandler, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	// Graceful shutdown
	logger.Info("starting graceful shutdown", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new requests
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	// Cancel background operations
	cancel()

	// Shutdown tracing
	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}
