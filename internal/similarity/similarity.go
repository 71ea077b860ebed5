// Package similarity computes weighted attribute similarity between a target
// item and a comparable listing. Scores are in [0,1] where 1 is a perfect match.
package similarity

import (
	"fmt"
	"math"
	"strings"

	"github.com/mkurata/appraisal/internal/catalog"
)

// Weights maps matching fields to their share of the total score.
// The fields must sum to 1.0.
type Weights struct {
	Designer float64
	Model    float64
	Size     float64
	Material float64
	Color    float64
}

// DefaultWeights is the tuned production weighting.
var DefaultWeights = Weights{
	Designer: 0.30,
	Model:    0.30,
	Size:     0.15,
	Material: 0.15,
	Color:    0.10,
}

// Validate checks that the weights sum to 1.0 within floating point tolerance.
func (w Weights) Validate() error {
	sum := w.Designer + w.Model + w.Size + w.Material + w.Color
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("similarity weights must sum to 1.0, got %f", sum)
	}
	return nil
}

// Score computes the weighted similarity between target and candidate.
func Score(target *catalog.TargetItem, candidate *catalog.ComparableListing, weights Weights) float64 {
	total := 0.0

	if designerMatch(target.Designer, candidate.Designer) {
		total += weights.Designer
	}
	total += weights.Model * modelScore(target.Model, candidate.Model)
	total += weights.Size * sizeScore(target.Size, candidate.Size)
	total += weights.Material * materialScore(target.Material, candidate.Material)
	total += weights.Color * colorScore(target.Color, candidate.Color)

	return total
}

func designerMatch(a, b string) bool {
	a, b = normalize(a), normalize(b)
	return a != "" && a == b
}

// modelScore is exact-match first, then Jaccard word overlap scaled by a
// length-ratio penalty so short names don't match long descriptions.
func modelScore(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	wordsA := wordSet(a)
	wordsB := wordSet(b)

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 || intersection == 0 {
		return 0
	}

	overlap := float64(intersection) / float64(union)
	lenA, lenB := float64(len(wordsA)), float64(len(wordsB))
	lengthRatio := math.Min(lenA, lenB) / math.Max(lenA, lenB)

	return overlap * (0.5 + 0.5*lengthRatio)
}

// sizeScore treats sizes as token lists; any cross match scores full. Absence
// on both sides is a non-discriminating match, absence on one side is not.
func sizeScore(a, b string) float64 {
	tokensA := sizeTokens(a)
	tokensB := sizeTokens(b)

	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if ta == tb {
				return 1
			}
		}
	}
	return 0
}

func materialScore(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if substringMatch(a, b, 2) {
		return 0.5
	}
	return 0
}

func colorScore(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if substringMatch(a, b, 2) {
		return 0.7
	}
	return 0
}

// substringMatch reports whether one string contains the other and the shorter
// string is longer than minLen, which filters out junk like "a" in "black".
func substringMatch(a, b string, minLen int) bool {
	shorter := a
	if len(b) < len(a) {
		shorter = b
	}
	if len(shorter) <= minLen {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// sizeTokens normalizes a size value to a token list. Values like "N/A" count
// as absent.
func sizeTokens(s string) []string {
	s = normalize(s)
	if s == "" || s == "n/a" {
		return nil
	}
	return strings.Fields(s)
}
