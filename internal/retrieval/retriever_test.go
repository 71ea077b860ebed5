package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/mkurata/appraisal/internal/catalog"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, f.err
}

func (f *fakeEmbedder) Dimension() int    { return len(f.vector) }
func (f *fakeEmbedder) ModelName() string { return "fake" }

type fakeStore struct {
	results []vectorstore.SearchResult
	err     error
}

func (f *fakeStore) CreateCollection(context.Context, int) error { return nil }
func (f *fakeStore) CollectionExists(context.Context) (bool, error) {
	return true, nil
}
func (f *fakeStore) Upsert(context.Context, []vectorstore.IndexedListing) error { return nil }
func (f *fakeStore) Search(context.Context, []float32, int, float32) ([]vectorstore.SearchResult, error) {
	return f.results, f.err
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name   string
		target catalog.TargetItem
		want   string
	}{
		{
			"all fields",
			catalog.TargetItem{Designer: "Chanel", Model: "Classic Flap", Material: "Lambskin", Color: "Black", Size: "Medium"},
			"Chanel Classic Flap Lambskin Black size Medium",
		},
		{
			"sparse fields",
			catalog.TargetItem{Designer: "Gucci", Model: "Horsebit 1955"},
			"Gucci Horsebit 1955",
		},
		{
			"whitespace trimmed",
			catalog.TargetItem{Designer: "  Fendi ", Model: "Baguette"},
			"Fendi Baguette",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildQuery(&tt.target); got != tt.want {
				t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetrieve_EmptyIndexDegrades(t *testing.T) {
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, &fakeStore{}, Config{})

	_, err := r.Retrieve(context.Background(), &catalog.TargetItem{Designer: "Chanel", Model: "Classic Flap"}, 5)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for empty index, got %v", err)
	}
}

func TestRetrieve_EmbedderFailureDegrades(t *testing.T) {
	r := New(&fakeEmbedder{err: errors.New("connection refused")}, &fakeStore{}, Config{})

	_, err := r.Retrieve(context.Background(), &catalog.TargetItem{Designer: "Chanel", Model: "Classic Flap"}, 5)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable on embed failure, got %v", err)
	}
}

func TestRetrieve_ReturnsResults(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		{Listing: catalog.ComparableListing{Designer: "Chanel", Price: 7200}, Score: 0.91},
		{Listing: catalog.ComparableListing{Designer: "Chanel", Price: 8500}, Score: 0.84},
	}}
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, store, Config{})

	results, err := r.Retrieve(context.Background(), &catalog.TargetItem{Designer: "Chanel", Model: "Classic Flap"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestRetrieve_NoSearchableAttributes(t *testing.T) {
	r := New(&fakeEmbedder{vector: []float32{1, 0}}, &fakeStore{}, Config{})

	_, err := r.Retrieve(context.Background(), &catalog.TargetItem{}, 5)
	if err == nil {
		t.Error("expected error for empty target")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("empty target is an input problem, not backend unavailability")
	}
}
