package rerank

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/mkurata/appraisal/internal/catalog"
	"github.com/mkurata/appraisal/internal/vectorstore"
)

type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 1}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int    { return 2 }
func (s *stubEmbedder) ModelName() string { return "stub" }

func makeResults() []vectorstore.SearchResult {
	return []vectorstore.SearchResult{
		{
			Listing: catalog.ComparableListing{
				ID:       uuid.MustParse("00000000-0000-0000-0000-000000000001"),
				Designer: "Gucci",
				Model:    "Jackie 1961",
				Material: "Leather",
				Price:    2400,
			},
			Score: 0.8,
		},
		{
			Listing: catalog.ComparableListing{
				ID:       uuid.MustParse("00000000-0000-0000-0000-000000000002"),
				Designer: "Chanel",
				Model:    "Classic Flap",
				Material: "Lambskin",
				Price:    7800,
			},
			Score: 0.7,
		},
	}
}

func TestKeywordReranker_BoostsMatches(t *testing.T) {
	r := NewKeywordReranker()
	results := makeResults()

	scored, err := r.Rerank(context.Background(), "chanel classic flap lambskin", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if scored[0].Listing.Designer != "Chanel" {
		t.Errorf("expected Chanel listing boosted to top, got %s", scored[0].Listing.Designer)
	}

	// brand 0.2 + exact word 0.1 + model contains 0.15 + full word overlap 0.15 + material 0.1
	wantBoost := float32(0.2 + 0.1 + 0.15 + 0.15 + 0.1)
	got := scored[0].RerankScore - 0.7
	if math.Abs(float64(got-wantBoost)) > 1e-6 {
		t.Errorf("expected boost %f, got %f", wantBoost, got)
	}
}

func TestKeywordReranker_PartialModelOverlap(t *testing.T) {
	r := NewKeywordReranker()
	results := makeResults()

	// only "classic" of "classic flap" appears; no substring match on full model
	scored, err := r.Rerank(context.Background(), "chanel classic", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// brand 0.2 + exact word 0.1 + half the model words matched: 0.15 * 1/2
	wantBoost := float32(0.2 + 0.1 + 0.15*0.5)
	var chanel ScoredResult
	for _, sr := range scored {
		if sr.Listing.Designer == "Chanel" {
			chanel = sr
		}
	}
	got := chanel.RerankScore - 0.7
	if math.Abs(float64(got-wantBoost)) > 1e-6 {
		t.Errorf("expected boost %f, got %f", wantBoost, got)
	}
}

func TestKeywordReranker_CustomBoosts(t *testing.T) {
	r := NewKeywordReranker(WithBoosts(0.4, 0.3, 0.2))
	results := makeResults()

	scored, err := r.Rerank(context.Background(), "chanel classic flap lambskin", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// brand 0.4 + exact word 0.2 + model contains 0.3 + full word overlap 0.3 + material 0.2
	wantBoost := float32(0.4 + 0.2 + 0.3 + 0.3 + 0.2)
	got := scored[0].RerankScore - 0.7
	if math.Abs(float64(got-wantBoost)) > 1e-6 {
		t.Errorf("expected boost %f, got %f", wantBoost, got)
	}
}

func TestKeywordReranker_DoesNotMutateInput(t *testing.T) {
	r := NewKeywordReranker()
	results := makeResults()
	original := make([]vectorstore.SearchResult, len(results))
	copy(original, results)

	if _, err := r.Rerank(context.Background(), "chanel classic flap", results, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(results, original) {
		t.Error("reranker mutated its input slice")
	}
}

func TestKeywordReranker_TopK(t *testing.T) {
	r := NewKeywordReranker()
	scored, err := r.Rerank(context.Background(), "chanel", makeResults(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scored) != 1 {
		t.Errorf("expected 1 result with topK=1, got %d", len(scored))
	}
}

func TestKeywordReranker_Deterministic(t *testing.T) {
	r := NewKeywordReranker()

	first, err := r.Rerank(context.Background(), "gucci jackie", makeResults(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Rerank(context.Background(), "gucci jackie", makeResults(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs should produce identical output")
	}
}

func TestSemanticReranker_AddsCosineScore(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"chanel flap": {1, 0},
		"Brand: Chanel Model: Classic Flap": {1, 0}, // cosine 1 with query
		"Brand: Gucci Model: Jackie 1961":   {0, 1}, // cosine 0 with query
	}}
	r := NewSemanticReranker(emb)

	scored, err := r.Rerank(context.Background(), "chanel flap", makeResults(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if scored[0].Listing.Designer != "Chanel" {
		t.Errorf("expected Chanel first after semantic boost, got %s", scored[0].Listing.Designer)
	}
	// 0.7 retrieval + 0.5 * cosine(1.0)
	want := float32(0.7 + 0.5)
	if math.Abs(float64(scored[0].RerankScore-want)) > 1e-6 {
		t.Errorf("expected score %f, got %f", want, scored[0].RerankScore)
	}
}

func TestEnsembleReranker_NormalizesWeights(t *testing.T) {
	kw := NewKeywordReranker()
	ens, err := NewEnsembleReranker([]Reranker{kw, kw}, []float32{2, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ens.weights[0] != 0.5 || ens.weights[1] != 0.5 {
		t.Errorf("expected normalized weights [0.5 0.5], got %v", ens.weights)
	}
}

func TestEnsembleReranker_RejectsNegativeWeights(t *testing.T) {
	kw := NewKeywordReranker()
	if _, err := NewEnsembleReranker([]Reranker{kw}, []float32{-1}); err == nil {
		t.Error("expected error for negative weight")
	}
}

type droppingReranker struct {
	keepID uuid.UUID
	score  float32
}

func (d *droppingReranker) Rerank(_ context.Context, _ string, results []vectorstore.SearchResult, _ int) ([]ScoredResult, error) {
	var out []ScoredResult
	for _, r := range results {
		if r.Listing.ID == d.keepID {
			out = append(out, ScoredResult{SearchResult: r, RerankScore: d.score})
		}
	}
	return out, nil
}

func TestEnsembleReranker_MissingCandidatesUnboosted(t *testing.T) {
	results := makeResults()
	sub := &droppingReranker{keepID: results[1].Listing.ID, score: 1.0}

	ens, err := NewEnsembleReranker([]Reranker{sub}, []float32{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scored, err := ens.Rerank(context.Background(), "anything", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := make(map[uuid.UUID]float32)
	for _, sr := range scored {
		byID[sr.Listing.ID] = sr.RerankScore
	}

	// dropped candidate keeps only the retained share of its retrieval score
	wantDropped := originalScoreWeight * results[0].Score
	if math.Abs(float64(byID[results[0].Listing.ID]-wantDropped)) > 1e-6 {
		t.Errorf("dropped candidate score = %f, want %f", byID[results[0].Listing.ID], wantDropped)
	}
	// sub boost is its score minus the retrieval score it was seeded with
	wantKept := (1.0 - results[1].Score) + originalScoreWeight*results[1].Score
	if math.Abs(float64(byID[results[1].Listing.ID]-wantKept)) > 1e-6 {
		t.Errorf("kept candidate score = %f, want %f", byID[results[1].Listing.ID], wantKept)
	}
}

func TestEnsembleReranker_RetrievalScoreShare(t *testing.T) {
	results := []vectorstore.SearchResult{
		{
			Listing: catalog.ComparableListing{
				ID:       uuid.MustParse("00000000-0000-0000-0000-000000000003"),
				Designer: "Prada",
				Model:    "Galleria",
			},
			Score: 0.5,
		},
	}

	// no keyword overlap, so the sub-reranker contributes zero boost and the
	// combined score is exactly the retained retrieval share
	ens, err := NewEnsembleReranker([]Reranker{NewKeywordReranker()}, []float32{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scored, err := ens.Rerank(context.Background(), "hermes birkin togo", results, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := originalScoreWeight * results[0].Score
	if math.Abs(float64(scored[0].RerankScore-want)) > 1e-6 {
		t.Errorf("combined score = %f, want %f", scored[0].RerankScore, want)
	}
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New(Kind("bogus"), nil); err == nil {
		t.Error("expected error for unknown reranker kind")
	}
}

func TestNew_SemanticRequiresEmbedder(t *testing.T) {
	if _, err := New(KindSemantic, nil); err == nil {
		t.Error("expected error when no embedder is provided")
	}
}
