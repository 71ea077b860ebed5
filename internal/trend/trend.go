// Package trend resolves market-trend scores for a brand and model.
//
// A trend score is a scalar in [0,1] expressing current market desirability.
// Lookups may be backed by a static table, a remote service, or a caching
// wrapper; all of them substitute DefaultScore rather than blocking pricing.
package trend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultScore is used when no trend data is available for an item.
const DefaultScore = 0.5

// Provider resolves a trend score for a designer and model.
type Provider interface {
	// TrendScore returns a score in [0,1]. Implementations return DefaultScore
	// together with a non-nil error when the lookup failed or timed out; the
	// caller may use the score and should record the degradation.
	TrendScore(ctx context.Context, designer, model string) (float64, error)
}

// Entry is a single record in a static trend table.
type Entry struct {
	Designer string  `json:"designer"`
	Model    string  `json:"model"`
	Score    float64 `json:"trend_score"`
}

// StaticProvider resolves scores from a fixed in-memory table.
type StaticProvider struct {
	scores map[string]float64
}

// NewStaticProvider builds a provider from trend entries. Scores outside [0,1]
// are clamped.
func NewStaticProvider(entries []Entry) *StaticProvider {
	scores := make(map[string]float64, len(entries))
	for _, e := range entries {
		scores[trendKey(e.Designer, e.Model)] = clamp01(e.Score)
	}
	return &StaticProvider{scores: scores}
}

// LoadStaticProvider reads a JSON array of trend entries from a file.
func LoadStaticProvider(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trend file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse trend file: %w", err)
	}

	return NewStaticProvider(entries), nil
}

// TrendScore looks up the score, returning DefaultScore with a nil error on a
// plain miss (a miss is expected, not a failure).
func (p *StaticProvider) TrendScore(_ context.Context, designer, model string) (float64, error) {
	if score, ok := p.scores[trendKey(designer, model)]; ok {
		return score, nil
	}
	return DefaultScore, nil
}

func trendKey(designer, model string) string {
	return strings.ToLower(strings.TrimSpace(designer)) + "\x00" + strings.ToLower(strings.TrimSpace(model))
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

// Ensure StaticProvider implements Provider.
var _ Provider = (*StaticProvider)(nil)
