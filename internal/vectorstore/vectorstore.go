// Package vectorstore provides interfaces and implementations for vector
// similarity search over the comparable-listing corpus.
package vectorstore

import (
	"context"

	"github.com/mkurata/appraisal/internal/catalog"
)

// IndexedListing pairs a listing with its embedding vector for indexing.
type IndexedListing struct {
	Listing *catalog.ComparableListing
	Vector  []float32
}

// SearchResult is a listing returned from the index with its similarity score.
// Scores are cosine similarity in [0,1], higher is more similar.
type SearchResult struct {
	Listing catalog.ComparableListing
	Score   float32
}

// VectorStore defines the interface for listing index operations. Index
// construction is a maintenance operation; the appraisal engine only searches.
type VectorStore interface {
	// CreateCollection creates the listing collection with the given vector dimension.
	CreateCollection(ctx context.Context, dimension int) error

	// CollectionExists checks if the listing collection exists.
	CollectionExists(ctx context.Context) (bool, error)

	// Upsert inserts or updates listings in the index.
	Upsert(ctx context.Context, listings []IndexedListing) error

	// Search returns up to topK listings nearest to the query vector with
	// similarity at or above minScore.
	Search(ctx context.Context, vector []float32, topK int, minScore float32) ([]SearchResult, error)
}
