// Package appraisal orchestrates the full estimation pipeline: candidate
// retrieval, similarity weighting, price aggregation, and the adjustment
// factors that produce the final estimate.
package appraisal

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mkurata/appraisal/internal/catalog"
	"github.com/mkurata/appraisal/internal/pricing"
	"github.com/mkurata/appraisal/internal/rerank"
	"github.com/mkurata/appraisal/internal/retrieval"
	"github.com/mkurata/appraisal/internal/similarity"
	"github.com/mkurata/appraisal/internal/trend"
)

// Retrieval mode labels surfaced in estimate diagnostics.
const (
	ModeEmbedding = "embedding"
	ModeClassic   = "classic"
)

// DefaultTrendTimeout bounds the trend lookup so a slow provider cannot
// stall an estimate.
const DefaultTrendTimeout = 5 * time.Second

// CandidateSource produces weighted pricing candidates for a target item.
// Sources are tried in order; the first non-empty result is used.
type CandidateSource interface {
	Name() string
	Candidates(ctx context.Context, target *catalog.TargetItem) ([]pricing.WeightedCandidate, error)
}

// Service ties the retrieval strategies, aggregator, and trend provider into
// a single estimation pipeline. It holds no per-call state and is safe for
// concurrent use.
type Service struct {
	sources    []CandidateSource
	aggregator *pricing.Aggregator
	trends     trend.Provider

	trendTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTrendTimeout overrides the trend lookup deadline.
func WithTrendTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.trendTimeout = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an estimation service. At least one candidate source is
// required; sources are consulted in the order given.
func New(sources []CandidateSource, aggregator *pricing.Aggregator, trends trend.Provider, opts ...Option) (*Service, error) {
	if len(sources) == 0 {
		return nil, errors.New("at least one candidate source is required")
	}
	if aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	if trends == nil {
		return nil, errors.New("trend provider is required")
	}

	s := &Service{
		sources:      sources,
		aggregator:   aggregator,
		trends:       trends,
		trendTimeout: DefaultTrendTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Estimate appraises the target item. It returns InvalidInputError when the
// target lacks required attributes, and InsufficientComparablesError when no
// source yields enough qualifying listings. Trend failures never fail the
// estimate; they substitute the neutral score and lower confidence.
func (s *Service) Estimate(ctx context.Context, target *catalog.TargetItem) (*pricing.Estimate, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	candidates, mode, err := s.gatherCandidates(ctx, target)
	if err != nil {
		return nil, err
	}

	agg, err := s.aggregator.Aggregate(candidates)
	if err != nil {
		return nil, err
	}

	trendScore, degraded := s.lookupTrend(ctx, target)

	est := pricing.Adjust(agg, float64(catalog.ConditionScore(target.Condition)), trendScore, degraded)
	est.Diagnostics.RetrievalMode = mode

	s.logger.Info("estimate produced",
		"designer", target.Designer,
		"model", target.Model,
		"mode", mode,
		"candidates", agg.QualifyingCount,
		"confidence", est.Confidence,
		"estimated_price", est.EstimatedPrice,
	)

	return est, nil
}

// gatherCandidates walks the configured sources in order and returns the
// first non-empty candidate set together with the source name.
func (s *Service) gatherCandidates(ctx context.Context, target *catalog.TargetItem) ([]pricing.WeightedCandidate, string, error) {
	var lastErr error
	for _, src := range s.sources {
		candidates, err := src.Candidates(ctx, target)
		if err != nil {
			s.logger.Warn("candidate source failed, trying next",
				"source", src.Name(), "error", err)
			lastErr = err
			continue
		}
		if len(candidates) == 0 {
			s.logger.Debug("candidate source returned nothing",
				"source", src.Name())
			continue
		}
		return candidates, src.Name(), nil
	}

	if lastErr != nil {
		s.logger.Warn("all candidate sources failed", "error", lastErr)
	}
	return nil, "", &pricing.InsufficientComparablesError{
		Found:         0,
		Required:      s.aggregator.MinComparables(),
		MinSimilarity: s.aggregator.MinSimilarity(),
	}
}

// lookupTrend resolves the market trend score under a bounded deadline.
// The second return reports degradation: the neutral default was substituted.
func (s *Service) lookupTrend(ctx context.Context, target *catalog.TargetItem) (float64, bool) {
	tctx, cancel := context.WithTimeout(ctx, s.trendTimeout)
	defer cancel()

	score, err := s.trends.TrendScore(tctx, target.Designer, target.Model)
	if err != nil {
		s.logger.Warn("trend lookup degraded",
			"designer", target.Designer, "model", target.Model, "error", err)
		return trend.DefaultScore, true
	}
	return score, false
}

func validateTarget(target *catalog.TargetItem) error {
	if target == nil {
		return &pricing.InvalidInputError{Reason: "target item is required"}
	}
	if strings.TrimSpace(target.Designer) == "" {
		return &pricing.InvalidInputError{Reason: "designer is required"}
	}
	if strings.TrimSpace(target.Model) == "" {
		return &pricing.InvalidInputError{Reason: "model is required"}
	}
	return nil
}

// EmbeddingSource retrieves candidates from the vector index and reranks
// them; the rerank score, clamped to [0,1], becomes the candidate similarity.
type EmbeddingSource struct {
	retriever *retrieval.Retriever
	reranker  rerank.Reranker
	topK      int
}

// NewEmbeddingSource wires the vector retrieval path. reranker may be nil,
// in which case raw index scores are used directly.
func NewEmbeddingSource(r *retrieval.Retriever, rr rerank.Reranker, topK int) *EmbeddingSource {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &EmbeddingSource{retriever: r, reranker: rr, topK: topK}
}

func (s *EmbeddingSource) Name() string { return ModeEmbedding }

func (s *EmbeddingSource) Candidates(ctx context.Context, target *catalog.TargetItem) ([]pricing.WeightedCandidate, error) {
	results, err := s.retriever.Retrieve(ctx, target, s.topK)
	if err != nil {
		return nil, err
	}

	scored := make([]rerank.ScoredResult, 0, len(results))
	if s.reranker != nil {
		scored, err = s.reranker.Rerank(ctx, retrieval.BuildQuery(target), results, s.topK)
		if err != nil {
			return nil, err
		}
	} else {
		for _, r := range results {
			scored = append(scored, rerank.ScoredResult{SearchResult: r, RerankScore: r.Score})
		}
	}

	candidates := make([]pricing.WeightedCandidate, 0, len(scored))
	for i := range scored {
		listing := scored[i].Listing
		candidates = append(candidates, pricing.WeightedCandidate{
			Listing:     &listing,
			Similarity:  clamp01(float64(scored[i].RerankScore)),
			Reliability: catalog.SourceReliability(listing.SourcePlatform),
		})
	}
	return candidates, nil
}

// ClassicSource scans the catalog for the target designer and scores each
// listing with the attribute-weighted similarity function. It needs no
// vector index and serves as the fallback retrieval path.
type ClassicSource struct {
	repo    catalog.ListingRepository
	weights similarity.Weights
}

// NewClassicSource wires the attribute-similarity fallback path.
func NewClassicSource(repo catalog.ListingRepository, weights similarity.Weights) (*ClassicSource, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &ClassicSource{repo: repo, weights: weights}, nil
}

func (s *ClassicSource) Name() string { return ModeClassic }

func (s *ClassicSource) Candidates(ctx context.Context, target *catalog.TargetItem) ([]pricing.WeightedCandidate, error) {
	listings, err := s.repo.ListByDesigner(ctx, target.Designer)
	if err != nil {
		return nil, err
	}

	candidates := make([]pricing.WeightedCandidate, 0, len(listings))
	for _, l := range listings {
		candidates = append(candidates, pricing.WeightedCandidate{
			Listing:     l,
			Similarity:  similarity.Score(target, l, s.weights),
			Reliability: catalog.SourceReliability(l.SourcePlatform),
		})
	}
	return candidates, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	_ CandidateSource = (*EmbeddingSource)(nil)
	_ CandidateSource = (*ClassicSource)(nil)
)
