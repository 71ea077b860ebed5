package rerank

import (
	"context"
	"strings"

	"github.com/mkurata/appraisal/internal/catalog"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

// Default keyword boost increments.
const (
	DefaultBrandBoost    = 0.2
	DefaultModelBoost    = 0.15
	DefaultMaterialBoost = 0.1
)

// KeywordReranker boosts candidates whose brand, model, or material tokens
// appear in the query text.
type KeywordReranker struct {
	brandBoost    float32
	modelBoost    float32
	materialBoost float32
}

// KeywordOption is a functional option for configuring KeywordReranker.
type KeywordOption func(*KeywordReranker)

// WithBoosts overrides the brand, model, and material boost increments.
func WithBoosts(brand, model, material float32) KeywordOption {
	return func(r *KeywordReranker) {
		r.brandBoost = brand
		r.modelBoost = model
		r.materialBoost = material
	}
}

// NewKeywordReranker creates a keyword-match reranker with default boosts.
func NewKeywordReranker(opts ...KeywordOption) *KeywordReranker {
	r := &KeywordReranker{
		brandBoost:    DefaultBrandBoost,
		modelBoost:    DefaultModelBoost,
		materialBoost: DefaultMaterialBoost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank boosts each candidate by its keyword overlap with the query.
func (r *KeywordReranker) Rerank(_ context.Context, query string, results []vectorstore.SearchResult, topK int) ([]ScoredResult, error) {
	if len(results) == 0 {
		return nil, nil
	}

	queryLower := strings.ToLower(query)
	queryWords := wordIndex(queryLower)

	scored := copyScored(results)
	for i := range scored {
		scored[i].RerankScore += r.boost(queryLower, queryWords, &scored[i].Listing)
	}

	return sortAndLimit(scored, topK), nil
}

func (r *KeywordReranker) boost(queryLower string, queryWords map[string]struct{}, listing *catalog.ComparableListing) float32 {
	var boost float32

	if brand := strings.ToLower(listing.Designer); brand != "" && strings.Contains(queryLower, brand) {
		boost += r.brandBoost
		// exact word match is stronger than a substring hit
		if _, ok := queryWords[brand]; ok {
			boost += r.brandBoost / 2
		}
	}

	if model := strings.ToLower(listing.Model); model != "" {
		if strings.Contains(queryLower, model) {
			boost += r.modelBoost
		}
		// partial word overlap contributes proportionally
		modelWords := strings.Fields(model)
		if len(modelWords) > 0 {
			matched := 0
			for _, w := range modelWords {
				if _, ok := queryWords[w]; ok {
					matched++
				}
			}
			if matched > 0 {
				boost += r.modelBoost * float32(matched) / float32(len(modelWords))
			}
		}
	}

	if material := strings.ToLower(listing.Material); material != "" {
		for _, token := range strings.Fields(material) {
			if strings.Contains(queryLower, token) {
				boost += r.materialBoost
				break
			}
		}
	}

	return boost
}

func wordIndex(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Ensure KeywordReranker implements Reranker.
var _ Reranker = (*KeywordReranker)(nil)
