package pricing

import (
	"errors"
	"fmt"
)

// ErrZeroCombinedWeight is returned when the combined similarity-reliability
// weight of all qualifying candidates collapses to zero.
var ErrZeroCombinedWeight = errors.New("total combined candidate weight is zero")

// InvalidInputError reports a target item missing required attributes.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid target item: %s", e.Reason)
}

// InsufficientComparablesError reports too few qualifying comparable listings.
// It carries the counts so callers can decide whether to relax the query or
// disclose reduced confidence; no numeric price accompanies it.
type InsufficientComparablesError struct {
	Found         int
	Required      int
	Considered    int     // listings scored before thresholding
	MinSimilarity float64 // threshold that was applied
}

func (e *InsufficientComparablesError) Error() string {
	return fmt.Sprintf("insufficient comparable listings: found %d, need %d (considered %d at similarity >= %.2f)",
		e.Found, e.Required, e.Considered, e.MinSimilarity)
}
