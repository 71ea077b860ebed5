// Command indexer builds the pricing corpus from a cleaned listings JSON file:
// listings are written to PostgreSQL and their embeddings to the Qdrant index.
// It is a maintenance tool and must not run concurrently with serving.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mkurata/appraisal/internal/catalog"
	"github.com/mkurata/appraisal/internal/catalog/postgres"
	"github.com/mkurata/appraisal/internal/config"
	"github.com/mkurata/appraisal/internal/embedder"
	"github.com/mkurata/appraisal/internal/ingest"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		inputPath = flag.String("input", "", "path to the cleaned listings JSON file (required)")
		batchSize = flag.Int("batch", ingest.DefaultBatchSize, "embedding batch size")
		skipDB    = flag.Bool("skip-db", false, "only rebuild the vector index, skip PostgreSQL writes")
	)
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		return fmt.Errorf("-input is required")
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	records, err := ingest.LoadFile(*inputPath)
	if err != nil {
		return err
	}
	slog.Info("loaded listings file", "path", *inputPath, "records", len(records))

	var repo catalog.ListingRepository
	if !*skipDB {
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		repo = postgres.NewListingRepo(db)
		slog.Info("connected to PostgreSQL")
	}

	store, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()
	slog.Info("connected to Qdrant", "collection", cfg.QdrantCollection)

	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})

	indexer := ingest.NewIndexer(repo, embed, store, ingest.IndexerConfig{
		BatchSize: *batchSize,
	})

	stats, err := indexer.Run(ctx, records)
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d listings (%d dropped) in %s\n",
		stats.Indexed, stats.Dropped, stats.Duration.Round(time.Millisecond))
	return nil
}
