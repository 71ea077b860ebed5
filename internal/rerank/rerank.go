// Package rerank re-orders retrieved listing candidates using secondary
// relevance signals before price aggregation.
//
// Three flavors exist: keyword match, semantic re-scoring, and a weighted
// ensemble of the two. All rerankers are deterministic for identical input,
// never mutate the input slice, and cap output at topK when topK > 0.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/mkurata/appraisal/internal/embedder"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

// ScoredResult is a search result with its post-reranking score.
type ScoredResult struct {
	vectorstore.SearchResult
	RerankScore float32
}

// Reranker defines the interface for re-ranking search results. Passing
// topK <= 0 returns all results.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []vectorstore.SearchResult, topK int) ([]ScoredResult, error)
}

// Kind selects a reranker flavor at construction time.
type Kind string

const (
	KindKeyword  Kind = "keyword"
	KindSemantic Kind = "semantic"
	KindEnsemble Kind = "ensemble"
)

// New builds a reranker of the given kind. The embedder is required for the
// semantic and ensemble kinds.
func New(kind Kind, emb embedder.Embedder) (Reranker, error) {
	switch kind {
	case KindKeyword:
		return NewKeywordReranker(), nil
	case KindSemantic:
		if emb == nil {
			return nil, fmt.Errorf("semantic reranker requires an embedder")
		}
		return NewSemanticReranker(emb), nil
	case KindEnsemble:
		if emb == nil {
			return nil, fmt.Errorf("ensemble reranker requires an embedder")
		}
		return NewEnsembleReranker(
			[]Reranker{NewKeywordReranker(), NewSemanticReranker(emb)},
			[]float32{0.5, 0.5},
		)
	default:
		return nil, fmt.Errorf("unknown reranker kind %q", kind)
	}
}

// sortAndLimit produces a stable descending order by score, ties broken by the
// original input position, then truncates to topK.
func sortAndLimit(results []ScoredResult, topK int) []ScoredResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RerankScore > results[j].RerankScore
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// copyScored converts search results to scored results, seeding the reranker
// score with the retrieval score.
func copyScored(results []vectorstore.SearchResult) []ScoredResult {
	out := make([]ScoredResult, len(results))
	for i, r := range results {
		out[i] = ScoredResult{SearchResult: r, RerankScore: r.Score}
	}
	return out
}
