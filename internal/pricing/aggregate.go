// Package pricing turns weighted comparable listings into a price estimate.
//
// Aggregation computes a reliability-and-similarity weighted base price plus
// dispersion statistics; the adjustment pipeline then applies condition, trend,
// and variance multipliers within clamped bounds.
package pricing

import (
	"github.com/mkurata/appraisal/internal/catalog"
)

// Aggregation thresholds and their defaults.
const (
	// DefaultMinSimilarity excludes weak matches from the weighted average.
	DefaultMinSimilarity = 0.4

	// DefaultExactMatchSimilarity marks a candidate as an exact match.
	DefaultExactMatchSimilarity = 0.95

	// DefaultMinComparables is the minimum qualifying candidate count.
	DefaultMinComparables = 3

	// weightEpsilon guards the weighted-average division.
	weightEpsilon = 1e-9
)

// WeightedCandidate pairs a listing with the signals that weight its price.
type WeightedCandidate struct {
	Listing     *catalog.ComparableListing
	Similarity  float64 // [0,1]
	Reliability float64 // (0,1]
}

// AggregatorConfig holds aggregation thresholds.
type AggregatorConfig struct {
	MinSimilarity        float64
	ExactMatchSimilarity float64
	MinComparables       int
}

// Aggregator computes weighted price statistics from candidate listings.
type Aggregator struct {
	cfg AggregatorConfig
}

// NewAggregator creates an aggregator, applying defaults for zero values.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = DefaultMinSimilarity
	}
	if cfg.ExactMatchSimilarity <= 0 {
		cfg.ExactMatchSimilarity = DefaultExactMatchSimilarity
	}
	if cfg.MinComparables <= 0 {
		cfg.MinComparables = DefaultMinComparables
	}
	return &Aggregator{cfg: cfg}
}

// Aggregation is the result of weighting and averaging candidate prices.
type Aggregation struct {
	BasePrice      float64
	AvgCondition   float64
	CoeffVariation float64
	Stats          Statistics

	QualifyingCount   int
	MinSimilarityUsed float64
	MaxSimilarityUsed float64

	// Exact-match tracking; Min/Max prices are meaningful when Count > 0.
	ExactMatchCount    int
	ExactMatchMinPrice float64
	ExactMatchMaxPrice float64
}

// Aggregate computes the weighted base price over qualifying candidates.
// Candidates below the similarity threshold or without a usable price are
// excluded; exact matches are tracked separately for the diagnostics.
func (a *Aggregator) Aggregate(candidates []WeightedCandidate) (*Aggregation, error) {
	agg := &Aggregation{MinSimilarityUsed: 1.0}

	var (
		totalWeight       float64
		weightedPriceSum  float64
		weightedCondSum   float64
		pricesForVariance []float64
	)

	considered := 0
	for _, c := range candidates {
		if c.Listing == nil || !c.Listing.ValidPrice() {
			continue
		}
		considered++

		if c.Similarity >= a.cfg.ExactMatchSimilarity-weightEpsilon {
			price := c.Listing.Price
			if agg.ExactMatchCount == 0 || price < agg.ExactMatchMinPrice {
				agg.ExactMatchMinPrice = price
			}
			if agg.ExactMatchCount == 0 || price > agg.ExactMatchMaxPrice {
				agg.ExactMatchMaxPrice = price
			}
			agg.ExactMatchCount++
		}

		if c.Similarity < a.cfg.MinSimilarity {
			continue
		}

		weight := c.Similarity * c.Reliability
		if weight <= weightEpsilon {
			continue
		}

		totalWeight += weight
		weightedPriceSum += c.Listing.Price * weight
		weightedCondSum += float64(c.Listing.ConditionScore) * weight
		pricesForVariance = append(pricesForVariance, c.Listing.Price)

		if c.Similarity < agg.MinSimilarityUsed {
			agg.MinSimilarityUsed = c.Similarity
		}
		if c.Similarity > agg.MaxSimilarityUsed {
			agg.MaxSimilarityUsed = c.Similarity
		}
	}

	agg.QualifyingCount = len(pricesForVariance)
	if agg.QualifyingCount < a.cfg.MinComparables {
		return nil, &InsufficientComparablesError{
			Found:         agg.QualifyingCount,
			Required:      a.cfg.MinComparables,
			Considered:    considered,
			MinSimilarity: a.cfg.MinSimilarity,
		}
	}
	if totalWeight <= weightEpsilon {
		return nil, ErrZeroCombinedWeight
	}

	agg.BasePrice = weightedPriceSum / totalWeight
	agg.AvgCondition = weightedCondSum / totalWeight
	agg.Stats = ComputeStatistics(pricesForVariance)

	// Coefficient of variation from the unweighted sample; zero variance
	// when fewer than two prices are present.
	if agg.Stats.Count >= 2 && agg.BasePrice > weightEpsilon {
		agg.CoeffVariation = agg.Stats.StdDev / agg.BasePrice
	}

	return agg, nil
}

// MinComparables exposes the configured minimum qualifying count.
func (a *Aggregator) MinComparables() int {
	return a.cfg.MinComparables
}

// MinSimilarity exposes the configured similarity threshold.
func (a *Aggregator) MinSimilarity() float64 {
	return a.cfg.MinSimilarity
}
