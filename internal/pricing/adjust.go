package pricing

import (
	"math"
)

// Adjustment factor bounds and tunables.
const (
	// Condition factor clamp.
	MinConditionFactor = 0.7
	MaxConditionFactor = 1.2

	// Trend factor range: trend score 0 maps to 0.85, 1 maps to 1.15.
	TrendMinFactor = 0.85
	TrendMaxFactor = 1.15

	// Variance penalty: dispersion can only discount, never inflate.
	VarianceCap          = 0.5
	VariancePenaltyScale = 0.4
	VarianceFloorFactor  = 0.7

	// PriceRangeSpread is the fixed band around the final estimate.
	PriceRangeSpread = 0.1

	// Confidence bucket thresholds on qualifying candidate count.
	HighConfidenceCount   = 10
	MediumConfidenceCount = 5
)

// Confidence is a coarse label for how much comparable evidence backed an
// estimate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Factors holds the multiplicative adjustments with their input signals
// retained for explainability.
type Factors struct {
	Condition float64 `json:"condition"`
	Trend     float64 `json:"trend"`
	Variance  float64 `json:"variance"`

	TargetCondition float64 `json:"target_condition"`
	AvgCondition    float64 `json:"avg_condition"`
	TrendScore      float64 `json:"trend_score"`
	CoeffVariation  float64 `json:"coeff_variation"`
}

// PriceRange bounds the estimate; Min <= Max always holds.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Diagnostics carries everything a caller needs to judge an estimate.
type Diagnostics struct {
	Stats             Statistics `json:"price_stats"`
	Factors           Factors    `json:"factors"`
	CandidateCount    int        `json:"candidate_count"`
	MinSimilarityUsed float64    `json:"min_similarity_used"`
	MaxSimilarityUsed float64    `json:"max_similarity_used"`
	ExactMatchCount   int        `json:"exact_match_count"`
	ExactMatchMin     float64    `json:"exact_match_min,omitempty"`
	ExactMatchMax     float64    `json:"exact_match_max,omitempty"`
	TrendDegraded     bool       `json:"trend_degraded,omitempty"`
	RetrievalMode     string     `json:"retrieval_mode,omitempty"`
}

// Estimate is the final appraisal output, constructed once per call and never
// persisted by this subsystem.
type Estimate struct {
	EstimatedPrice float64     `json:"estimated_price"`
	BasePrice      float64     `json:"base_price"`
	Confidence     Confidence  `json:"confidence"`
	PriceRange     PriceRange  `json:"price_range"`
	Diagnostics    Diagnostics `json:"diagnostics"`
}

// Adjust applies the condition, trend, and variance factors to an aggregation.
// targetCondition <= 0 means unknown; the condition factor is then a no-op.
// trendDegraded lowers the confidence bucket one step, never below low.
func Adjust(agg *Aggregation, targetCondition, trendScore float64, trendDegraded bool) *Estimate {
	factors := Factors{
		Condition:       conditionFactor(targetCondition, agg.AvgCondition),
		Trend:           trendFactor(trendScore),
		Variance:        varianceFactor(agg.CoeffVariation),
		TargetCondition: targetCondition,
		AvgCondition:    agg.AvgCondition,
		TrendScore:      trendScore,
		CoeffVariation:  agg.CoeffVariation,
	}

	estimated := agg.BasePrice * factors.Condition * factors.Trend * factors.Variance

	confidence := confidenceBucket(agg.QualifyingCount)
	if trendDegraded && confidence != ConfidenceLow {
		confidence = lowerConfidence(confidence)
	}

	return &Estimate{
		EstimatedPrice: estimated,
		BasePrice:      agg.BasePrice,
		Confidence:     confidence,
		PriceRange: PriceRange{
			Min: estimated * (1 - PriceRangeSpread),
			Max: estimated * (1 + PriceRangeSpread),
		},
		Diagnostics: Diagnostics{
			Stats:             agg.Stats,
			Factors:           factors,
			CandidateCount:    agg.QualifyingCount,
			MinSimilarityUsed: agg.MinSimilarityUsed,
			MaxSimilarityUsed: agg.MaxSimilarityUsed,
			ExactMatchCount:   agg.ExactMatchCount,
			ExactMatchMin:     agg.ExactMatchMinPrice,
			ExactMatchMax:     agg.ExactMatchMaxPrice,
			TrendDegraded:     trendDegraded,
		},
	}
}

// conditionFactor rewards or penalizes the target's condition relative to the
// average condition of the comparables, clamped so condition alone can move
// the price at most -30%/+20%.
func conditionFactor(target, avg float64) float64 {
	if target <= 0 || avg <= weightEpsilon {
		return 1.0
	}
	return clamp(target/avg, MinConditionFactor, MaxConditionFactor)
}

// trendFactor maps a [0,1] trend score linearly onto the factor range.
func trendFactor(score float64) float64 {
	score = clamp(score, 0, 1)
	return TrendMinFactor + score*(TrendMaxFactor-TrendMinFactor)
}

// varianceFactor discounts the price when the comparable sample is dispersed.
func varianceFactor(coeffVariation float64) float64 {
	penalty := math.Min(coeffVariation, VarianceCap) * VariancePenaltyScale
	return clamp(1.0-penalty, VarianceFloorFactor, 1.0)
}

func confidenceBucket(count int) Confidence {
	switch {
	case count >= HighConfidenceCount:
		return ConfidenceHigh
	case count >= MediumConfidenceCount:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func lowerConfidence(c Confidence) Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	case ConfidenceMedium:
		return ConfidenceLow
	default:
		return c
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
