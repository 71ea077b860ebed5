package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkurata/appraisal/internal/catalog"
	"github.com/mkurata/appraisal/internal/embedder"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

// DefaultBatchSize is the number of listings embedded and upserted per batch.
const DefaultBatchSize = 64

// Stats summarizes one indexing run.
type Stats struct {
	Loaded   int
	Dropped  int
	Stored   int
	Indexed  int
	Duration time.Duration
}

// Indexer builds the pricing corpus from raw listing records.
type Indexer struct {
	repo      catalog.ListingRepository
	embedder  embedder.Embedder
	store     vectorstore.VectorStore
	batchSize int
	logger    *slog.Logger
}

// IndexerConfig holds optional indexer settings.
type IndexerConfig struct {
	BatchSize int
	Logger    *slog.Logger
}

// NewIndexer creates an indexer. repo may be nil when only the vector index
// is being rebuilt.
func NewIndexer(repo catalog.ListingRepository, emb embedder.Embedder, store vectorstore.VectorStore, cfg IndexerConfig) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Indexer{
		repo:      repo,
		embedder:  emb,
		store:     store,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
	}
}

// Run normalizes the records, stores them, and indexes their embeddings.
// Records that fail normalization are dropped and counted, never zeroed.
func (ix *Indexer) Run(ctx context.Context, records []Record) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Loaded: len(records)}

	var listings []*catalog.ComparableListing
	for _, rec := range records {
		listing, err := Normalize(rec)
		if err != nil {
			ix.logger.Warn("dropping record",
				"listing_name", rec.ListingName, "error", err)
			stats.Dropped++
			continue
		}
		listings = append(listings, listing)
	}

	if len(listings) == 0 {
		return stats, fmt.Errorf("no usable listings after normalization (%d dropped)", stats.Dropped)
	}

	if ix.repo != nil {
		for _, l := range listings {
			if err := ix.repo.Create(ctx, l); err != nil {
				return stats, fmt.Errorf("store listing %s: %w", l.ID, err)
			}
			stats.Stored++
		}
	}

	exists, err := ix.store.CollectionExists(ctx)
	if err != nil {
		return stats, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		if err := ix.store.CreateCollection(ctx, ix.embedder.Dimension()); err != nil {
			return stats, fmt.Errorf("create collection: %w", err)
		}
		ix.logger.Info("created vector collection",
			"dimension", ix.embedder.Dimension(), "model", ix.embedder.ModelName())
	}

	for i := 0; i < len(listings); i += ix.batchSize {
		end := i + ix.batchSize
		if end > len(listings) {
			end = len(listings)
		}
		batch := listings[i:end]

		texts := make([]string, len(batch))
		for j, l := range batch {
			texts[j] = ListingText(l)
		}

		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed batch at %d: %w", i, err)
		}

		indexed := make([]vectorstore.IndexedListing, len(batch))
		for j, l := range batch {
			indexed[j] = vectorstore.IndexedListing{Listing: l, Vector: vectors[j]}
		}
		if err := ix.store.Upsert(ctx, indexed); err != nil {
			return stats, fmt.Errorf("upsert batch at %d: %w", i, err)
		}
		stats.Indexed += len(batch)

		ix.logger.Debug("indexed batch", "from", i, "count", len(batch))
	}

	stats.Duration = time.Since(start)
	ix.logger.Info("indexing complete",
		"loaded", stats.Loaded,
		"dropped", stats.Dropped,
		"stored", stats.Stored,
		"indexed", stats.Indexed,
		"duration", stats.Duration,
	)
	return stats, nil
}
