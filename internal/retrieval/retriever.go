// Package retrieval finds comparable listings for a target item by embedding a
// query derived from its attributes and searching the listing vector index.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkurata/appraisal/internal/catalog"
	"github.com/mkurata/appraisal/internal/embedder"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

// ErrUnavailable signals that the embedding backend or the listing index is
// down or empty. Callers should fall back to the attribute-similarity path.
var ErrUnavailable = errors.New("retrieval backend unavailable")

// DefaultTopK is the default number of candidates fetched from the index.
const DefaultTopK = 10

// Retriever performs embedding-based candidate retrieval.
type Retriever struct {
	embedder embedder.Embedder
	store    vectorstore.VectorStore
	minScore float32
	logger   *slog.Logger
}

// Config holds Retriever configuration.
type Config struct {
	// MinScore filters index results below this similarity.
	MinScore float32

	// Logger receives retrieval observability output. Defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a Retriever over the given embedder and vector store.
func New(emb embedder.Embedder, store vectorstore.VectorStore, cfg Config) *Retriever {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: emb,
		store:    store,
		minScore: cfg.MinScore,
		logger:   logger,
	}
}

// BuildQuery concatenates the non-empty target attributes into a search string,
// in priority order: designer, model, material, color, size.
func BuildQuery(target *catalog.TargetItem) string {
	var parts []string
	for _, p := range []string{target.Designer, target.Model, target.Material, target.Color} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if size := strings.TrimSpace(target.Size); size != "" {
		parts = append(parts, "size "+size)
	}
	return strings.Join(parts, " ")
}

// Retrieve returns up to k listings ordered by index similarity. An empty or
// unavailable index yields ErrUnavailable so the caller can degrade instead of
// failing the whole estimate.
func (r *Retriever) Retrieve(ctx context.Context, target *catalog.TargetItem, k int) ([]vectorstore.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	query := BuildQuery(target)
	if query == "" {
		return nil, fmt.Errorf("target item has no searchable attributes")
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", "query", query, "error", err)
		return nil, fmt.Errorf("%w: embed: %v", ErrUnavailable, err)
	}

	results, err := r.store.Search(ctx, vector, k, r.minScore)
	if err != nil {
		r.logger.Warn("index search failed", "query", query, "error", err)
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}
	if len(results) == 0 {
		r.logger.Info("index returned no candidates", "query", query)
		return nil, ErrUnavailable
	}

	// Score/price samples are logged for tuning, not correctness.
	r.logger.Debug("retrieved candidates",
		"query", query,
		"count", len(results),
		"samples", sampleScores(results, 3),
	)

	return results, nil
}

func sampleScores(results []vectorstore.SearchResult, n int) []string {
	if len(results) < n {
		n = len(results)
	}
	samples := make([]string, n)
	for i := 0; i < n; i++ {
		samples[i] = fmt.Sprintf("%.3f/%.2f", results[i].Score, results[i].Listing.Price)
	}
	return samples
}
