package rerank

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

// originalScoreWeight is the share of the raw retrieval score retained in the
// combined ensemble score; the retrieval score still carries match quality.
const originalScoreWeight = 0.2

// EnsembleReranker combines the boosts of several sub-rerankers. Each
// sub-reranker contributes its weighted boost over the retrieval score,
// keyed by candidate identity; candidates a sub-reranker drops are left
// unboosted by it, not penalized. The retrieval score itself enters the
// combined score only through originalScoreWeight.
type EnsembleReranker struct {
	rerankers []Reranker
	weights   []float32
}

// NewEnsembleReranker creates an ensemble over the given sub-rerankers.
// Weights must be non-negative and are normalized to sum to 1.
func NewEnsembleReranker(rerankers []Reranker, weights []float32) (*EnsembleReranker, error) {
	if len(rerankers) == 0 {
		return nil, fmt.Errorf("ensemble requires at least one reranker")
	}
	if len(weights) != len(rerankers) {
		return nil, fmt.Errorf("got %d weights for %d rerankers", len(weights), len(rerankers))
	}

	var total float32
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("ensemble weights must be non-negative, got %f", w)
		}
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("ensemble weights must not all be zero")
	}

	normalized := make([]float32, len(weights))
	for i, w := range weights {
		normalized[i] = w / total
	}

	return &EnsembleReranker{rerankers: rerankers, weights: normalized}, nil
}

// Rerank runs every sub-reranker and accumulates weighted boosts per candidate.
func (r *EnsembleReranker) Rerank(ctx context.Context, query string, results []vectorstore.SearchResult, topK int) ([]ScoredResult, error) {
	if len(results) == 0 {
		return nil, nil
	}

	// Accumulated boost per candidate identity; missing entries contribute zero.
	combined := make(map[uuid.UUID]float32, len(results))

	for i, sub := range r.rerankers {
		subResults, err := sub.Rerank(ctx, query, results, 0)
		if err != nil {
			return nil, fmt.Errorf("sub-reranker %d failed: %w", i, err)
		}
		// Sub-rerankers seed their scores with the retrieval score; only
		// the boost on top of it belongs to the ensemble sum.
		for _, sr := range subResults {
			combined[sr.Listing.ID] += r.weights[i] * (sr.RerankScore - sr.Score)
		}
	}

	scored := make([]ScoredResult, len(results))
	for i, res := range results {
		scored[i] = ScoredResult{
			SearchResult: res,
			RerankScore:  combined[res.Listing.ID] + originalScoreWeight*res.Score,
		}
	}

	return sortAndLimit(scored, topK), nil
}

// Ensure EnsembleReranker implements Reranker.
var _ Reranker = (*EnsembleReranker)(nil)
