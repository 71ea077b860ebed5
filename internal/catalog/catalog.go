// Package catalog defines domain models and data access interfaces for comparable listings.
package catalog

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TargetItem describes the item a caller wants appraised. Designer and Model
// are required; the remaining attributes sharpen matching when present.
type TargetItem struct {
	Designer  string `json:"designer"`
	Model     string `json:"model"`
	Size      string `json:"size,omitempty"`
	Material  string `json:"material,omitempty"`
	Color     string `json:"color,omitempty"`
	Condition string `json:"condition,omitempty"` // label, see ConditionScore
	Year      int    `json:"year,omitempty"`
}

// ComparableListing is a historical sold/offered item used as pricing reference.
// Listings are produced by an external ingestion process and never mutated here.
type ComparableListing struct {
	ID             uuid.UUID
	SourcePlatform string
	ListingName    string
	Price          float64 // reference currency
	Designer       string
	Model          string
	Size           string
	Material       string
	Color          string
	ConditionScore int // 1 (fair) .. 5 (new)
	Description    string
	CreatedAt      time.Time
}

// ValidPrice reports whether the listing carries a price usable for aggregation.
// Records failing this check are dropped, never defaulted to zero.
func (l *ComparableListing) ValidPrice() bool {
	return l.Price > 0 && !math.IsNaN(l.Price) && !math.IsInf(l.Price, 0)
}

// Condition scale. The original data mixes 0-5 integers and labels; the
// canonical scale is 1-5 and the label mapping lives here only.
const (
	ConditionFair      = 1
	ConditionGood      = 2
	ConditionVeryGood  = 3
	ConditionExcellent = 4
	ConditionNew       = 5

	// DefaultConditionScore is used for unmappable or unknown labels.
	DefaultConditionScore = ConditionGood
)

var conditionScores = map[string]int{
	"new":       ConditionNew,
	"excellent": ConditionExcellent,
	"very good": ConditionVeryGood,
	"good":      ConditionGood,
	"fair":      ConditionFair,
	"unknown":   DefaultConditionScore,
}

// ConditionScore maps a free-text condition label to the 1-5 scale.
func ConditionScore(label string) int {
	if score, ok := conditionScores[strings.ToLower(strings.TrimSpace(label))]; ok {
		return score
	}
	return DefaultConditionScore
}

// Source reliability expresses how much a platform's asking prices can be
// trusted, roughly the B2C vs C2C split.
var sourceReliability = map[string]float64{
	"Fashionphile":         0.95,
	"Vestiaire Collective": 0.75,
}

// DefaultReliability applies to platforms without an explicit entry.
const DefaultReliability = 0.6

// SourceReliability returns the reliability weight for a platform name.
func SourceReliability(platform string) float64 {
	if r, ok := sourceReliability[platform]; ok {
		return r
	}
	return DefaultReliability
}

// ListingRepository provides read/write access to the comparable listing corpus.
// The appraisal engine only reads; writes happen in the separate indexing tool.
type ListingRepository interface {
	// Create stores a listing.
	Create(ctx context.Context, listing *ComparableListing) error

	// ListByDesigner returns all listings for a designer (case-insensitive).
	ListByDesigner(ctx context.Context, designer string) ([]*ComparableListing, error)

	// Count returns the total number of listings in the corpus.
	Count(ctx context.Context) (int, error)
}
