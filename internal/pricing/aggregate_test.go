package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/mkurata/appraisal/internal/catalog"
)

func listing(price float64, condition int) *catalog.ComparableListing {
	return &catalog.ComparableListing{
		Designer:       "Chanel",
		Model:          "Classic Flap",
		Price:          price,
		ConditionScore: condition,
	}
}

func TestAggregate_WeightedBasePrice(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MinComparables: 2})

	candidates := []WeightedCandidate{
		{Listing: listing(1000, 4), Similarity: 0.8, Reliability: 1.0},
		{Listing: listing(2000, 2), Similarity: 0.4, Reliability: 1.0},
	}

	result, err := agg.Aggregate(candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// weights 0.8 and 0.4: (1000*0.8 + 2000*0.4) / 1.2
	wantBase := (1000*0.8 + 2000*0.4) / 1.2
	if math.Abs(result.BasePrice-wantBase) > 1e-9 {
		t.Errorf("base price = %f, want %f", result.BasePrice, wantBase)
	}

	wantCond := (4*0.8 + 2*0.4) / 1.2
	if math.Abs(result.AvgCondition-wantCond) > 1e-9 {
		t.Errorf("avg condition = %f, want %f", result.AvgCondition, wantCond)
	}

	if result.QualifyingCount != 2 {
		t.Errorf("qualifying count = %d, want 2", result.QualifyingCount)
	}
	if result.MinSimilarityUsed != 0.4 || result.MaxSimilarityUsed != 0.8 {
		t.Errorf("similarity bounds = [%f, %f], want [0.4, 0.8]",
			result.MinSimilarityUsed, result.MaxSimilarityUsed)
	}
}

func TestAggregate_InsufficientComparables(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})

	candidates := []WeightedCandidate{
		{Listing: listing(1000, 3), Similarity: 0.9, Reliability: 0.9},
	}

	_, err := agg.Aggregate(candidates)
	var insufficient *InsufficientComparablesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientComparablesError, got %v", err)
	}
	if insufficient.Found != 1 || insufficient.Required != DefaultMinComparables {
		t.Errorf("error counts = %d/%d, want 1/%d",
			insufficient.Found, insufficient.Required, DefaultMinComparables)
	}
}

func TestAggregate_NoCandidates(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})

	_, err := agg.Aggregate(nil)
	var insufficient *InsufficientComparablesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientComparablesError, got %v", err)
	}
	if insufficient.Found != 0 {
		t.Errorf("found = %d, want 0", insufficient.Found)
	}
}

func TestAggregate_ExcludesBelowThreshold(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MinComparables: 2})

	candidates := []WeightedCandidate{
		{Listing: listing(1000, 3), Similarity: 0.9, Reliability: 1.0},
		{Listing: listing(9999, 3), Similarity: 0.39, Reliability: 1.0}, // below 0.4
		{Listing: listing(1100, 3), Similarity: 0.8, Reliability: 1.0},
	}

	result, err := agg.Aggregate(candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.QualifyingCount != 2 {
		t.Errorf("qualifying count = %d, want 2", result.QualifyingCount)
	}
	if result.Stats.Max > 1100 {
		t.Errorf("excluded candidate leaked into the sample: max %f", result.Stats.Max)
	}
}

func TestAggregate_DropsInvalidPrices(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MinComparables: 2})

	candidates := []WeightedCandidate{
		{Listing: listing(1000, 3), Similarity: 0.9, Reliability: 1.0},
		{Listing: listing(0, 3), Similarity: 0.9, Reliability: 1.0},
		{Listing: listing(-50, 3), Similarity: 0.9, Reliability: 1.0},
		{Listing: listing(math.NaN(), 3), Similarity: 0.9, Reliability: 1.0},
		{Listing: listing(1200, 3), Similarity: 0.9, Reliability: 1.0},
	}

	result, err := agg.Aggregate(candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.QualifyingCount != 2 {
		t.Errorf("qualifying count = %d, want 2 (invalid prices dropped)", result.QualifyingCount)
	}
}

func TestAggregate_TracksExactMatches(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MinComparables: 2})

	candidates := []WeightedCandidate{
		{Listing: listing(7200, 4), Similarity: 1.0, Reliability: 0.95},
		{Listing: listing(8500, 4), Similarity: 0.97, Reliability: 0.95},
		{Listing: listing(9100, 4), Similarity: 0.6, Reliability: 0.75},
	}

	result, err := agg.Aggregate(candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ExactMatchCount != 2 {
		t.Errorf("exact match count = %d, want 2", result.ExactMatchCount)
	}
	if result.ExactMatchMinPrice != 7200 || result.ExactMatchMaxPrice != 8500 {
		t.Errorf("exact match range = [%f, %f], want [7200, 8500]",
			result.ExactMatchMinPrice, result.ExactMatchMaxPrice)
	}
}

func TestAggregate_NearZeroWeightsExcluded(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MinComparables: 1, MinSimilarity: 1e-12})

	candidates := []WeightedCandidate{
		{Listing: listing(1000, 3), Similarity: 1e-12, Reliability: 1e-12},
	}

	_, err := agg.Aggregate(candidates)
	var insufficient *InsufficientComparablesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientComparablesError for degenerate weights, got %v", err)
	}
	if insufficient.Considered != 1 {
		t.Errorf("considered = %d, want 1", insufficient.Considered)
	}
}

func TestAggregate_CoefficientOfVariation(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MinComparables: 2})

	candidates := []WeightedCandidate{
		{Listing: listing(1000, 3), Similarity: 1.0, Reliability: 1.0},
		{Listing: listing(2000, 3), Similarity: 1.0, Reliability: 1.0},
	}

	result, err := agg.Aggregate(candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// sample stdev of [1000,2000] is ~707.1, base price 1500
	wantCV := result.Stats.StdDev / result.BasePrice
	if math.Abs(result.CoeffVariation-wantCV) > 1e-9 {
		t.Errorf("CV = %f, want %f", result.CoeffVariation, wantCV)
	}
	if result.CoeffVariation <= 0 {
		t.Error("expected positive CV for a dispersed sample")
	}
}

func TestComputeStatistics(t *testing.T) {
	stats := ComputeStatistics([]float64{7200, 7800, 8500, 9100, 9600})

	if stats.Median != 8500 {
		t.Errorf("median = %f, want 8500", stats.Median)
	}
	if math.Abs(stats.Mean-8440) > 1e-9 {
		t.Errorf("mean = %f, want 8440", stats.Mean)
	}
	if stats.Min != 7200 || stats.Max != 9600 {
		t.Errorf("min/max = %f/%f, want 7200/9600", stats.Min, stats.Max)
	}
	if stats.Count != 5 {
		t.Errorf("count = %d, want 5", stats.Count)
	}
	if stats.StdDev <= 0 {
		t.Error("expected positive stdev")
	}
}

func TestComputeStatistics_Empty(t *testing.T) {
	stats := ComputeStatistics(nil)
	if stats.Count != 0 {
		t.Errorf("count = %d, want 0", stats.Count)
	}
}

func TestComputeStatistics_EvenCount(t *testing.T) {
	stats := ComputeStatistics([]float64{100, 200, 300, 400})
	if stats.Median != 250 {
		t.Errorf("median = %f, want 250", stats.Median)
	}
}
