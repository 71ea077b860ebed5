package rerank

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mkurata/appraisal/internal/catalog"
	"github.com/mkurata/appraisal/internal/embedder"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

// semanticScale dampens the cosine similarity before it is added to the
// retrieval score, so the semantic signal refines rather than dominates.
const semanticScale = 0.5

// SemanticReranker re-scores candidates by the cosine similarity between the
// query embedding and a synthetic description built from each listing.
type SemanticReranker struct {
	embedder embedder.Embedder
}

// NewSemanticReranker creates a semantic reranker over the given embedder.
func NewSemanticReranker(emb embedder.Embedder) *SemanticReranker {
	return &SemanticReranker{embedder: emb}
}

// Rerank adds a scaled cosine similarity to each candidate's score. If the
// query cannot be embedded the original order is returned unchanged.
func (r *SemanticReranker) Rerank(ctx context.Context, query string, results []vectorstore.SearchResult, topK int) ([]ScoredResult, error) {
	if len(results) == 0 {
		return nil, nil
	}

	scored := copyScored(results)

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		// Degrade to retrieval order rather than failing the estimate.
		return sortAndLimit(scored, topK), nil
	}

	texts := make([]string, len(scored))
	for i := range scored {
		texts[i] = listingText(&scored[i].Listing)
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return sortAndLimit(scored, topK), nil
	}
	if len(vectors) != len(scored) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(scored))
	}

	for i := range scored {
		scored[i].RerankScore += semanticScale * cosineSimilarity(queryVec, vectors[i])
	}

	return sortAndLimit(scored, topK), nil
}

// listingText builds the short synthetic description that gets embedded.
func listingText(l *catalog.ComparableListing) string {
	var sb strings.Builder
	if l.Designer != "" {
		sb.WriteString("Brand: " + l.Designer + " ")
	}
	if l.Model != "" {
		sb.WriteString("Model: " + l.Model + " ")
	}
	if l.Description != "" {
		sb.WriteString("Description: " + l.Description)
	}
	return strings.TrimSpace(sb.String())
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Ensure SemanticReranker implements Reranker.
var _ Reranker = (*SemanticReranker)(nil)
