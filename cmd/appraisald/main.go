package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkurata/appraisal/internal/appraisal"
	"github.com/mkurata/appraisal/internal/catalog/postgres"
	"github.com/mkurata/appraisal/internal/config"
	"github.com/mkurata/appraisal/internal/embedder"
	"github.com/mkurata/appraisal/internal/pricing"
	"github.com/mkurata/appraisal/internal/rerank"
	"github.com/mkurata/appraisal/internal/retrieval"
	"github.com/mkurata/appraisal/internal/server"
	"github.com/mkurata/appraisal/internal/similarity"
	"github.com/mkurata/appraisal/internal/trend"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting appraisal service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
	)

	// PostgreSQL catalog
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	listingRepo := postgres.NewListingRepo(db)
	slog.Info("connected to PostgreSQL")

	// Qdrant listing index
	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()
	slog.Info("connected to Qdrant", "collection", cfg.QdrantCollection)

	// Ollama embedder
	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})
	slog.Info("initialized Ollama embedder", "model", cfg.OllamaEmbeddingModel)

	// Retrieval strategies: vector index first, catalog scan as fallback
	reranker, err := rerank.New(rerank.Kind(cfg.RerankerKind), embed)
	if err != nil {
		return fmt.Errorf("failed to build reranker: %w", err)
	}

	retriever := retrieval.New(embed, vectorStore, retrieval.Config{
		MinScore: cfg.MinVectorScore,
	})
	embeddingSource := appraisal.NewEmbeddingSource(retriever, reranker, cfg.RetrievalTopK)

	classicSource, err := appraisal.NewClassicSource(listingRepo, similarity.DefaultWeights)
	if err != nil {
		return fmt.Errorf("failed to build classic source: %w", err)
	}

	trends, err := buildTrendProvider(cfg)
	if err != nil {
		return fmt.Errorf("failed to build trend provider: %w", err)
	}

	aggregator := pricing.NewAggregator(pricing.AggregatorConfig{
		MinSimilarity:        cfg.MinSimilarity,
		ExactMatchSimilarity: cfg.ExactMatchSimilarity,
		MinComparables:       cfg.MinComparables,
	})

	estimator, err := appraisal.New(
		[]appraisal.CandidateSource{embeddingSource, classicSource},
		aggregator,
		trends,
		appraisal.WithTrendTimeout(cfg.TrendTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to build estimator: %w", err)
	}

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		APIKey:         cfg.APIKey,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
	}, estimator, trends)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildTrendProvider assembles the configured trend backend behind the TTL
// cache. Order of preference: remote HTTP service, static file, neutral
// fallback.
func buildTrendProvider(cfg *config.Config) (trend.Provider, error) {
	var inner trend.Provider
	switch {
	case cfg.TrendBaseURL != "":
		inner = trend.NewHTTPProvider(trend.HTTPConfig{
			BaseURL: cfg.TrendBaseURL,
			Timeout: cfg.TrendTimeout,
		})
		slog.Info("using remote trend provider", "base_url", cfg.TrendBaseURL)
	case cfg.TrendFile != "":
		static, err := trend.LoadStaticProvider(cfg.TrendFile)
		if err != nil {
			return nil, err
		}
		inner = static
		slog.Info("using static trend provider", "file", cfg.TrendFile)
	default:
		inner = trend.NewStaticProvider(nil)
		slog.Warn("no trend backend configured, every lookup returns the neutral score")
	}

	return trend.NewCachedProvider(inner, cfg.TrendCacheTTL), nil
}
