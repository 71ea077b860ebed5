// Package ingest loads cleaned listing data and builds the pricing corpus:
// listings go to the repository, their embedding vectors to the vector index.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkurata/appraisal/internal/catalog"
)

// Record is one raw listing as produced by the external scraping/cleaning
// process. Prices may arrive as numbers or strings like "$7,200".
type Record struct {
	ID             string          `json:"id"`
	SourcePlatform string          `json:"source_platform"`
	ListingName    string          `json:"listing_name"`
	Price          json.RawMessage `json:"price"`
	Designer       string          `json:"designer"`
	Model          string          `json:"model"`
	Size           string          `json:"size"`
	Material       string          `json:"material"`
	Color          string          `json:"color"`
	Condition      string          `json:"condition"`
	Description    string          `json:"description"`
}

// LoadFile reads a JSON array of listing records.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read listings file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse listings file: %w", err)
	}
	return records, nil
}

// ParsePrice converts a raw price value to a float. Currency symbols,
// thousands separators, and surrounding whitespace are stripped. A zero,
// negative, or unparseable price returns an error; callers drop the record.
func ParsePrice(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("price missing")
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num <= 0 {
			return 0, fmt.Errorf("non-positive price %v", num)
		}
		return num, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("price is neither number nor string")
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', '€', '£', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	cleaned = strings.TrimPrefix(cleaned, "USD")

	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q", s)
	}
	if num <= 0 {
		return 0, fmt.Errorf("non-positive price %q", s)
	}
	return num, nil
}

// Normalize converts a raw record to a catalog listing. Records without a
// usable price, designer, or model are rejected.
func Normalize(rec Record) (*catalog.ComparableListing, error) {
	price, err := ParsePrice(rec.Price)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.Designer) == "" {
		return nil, fmt.Errorf("designer missing")
	}
	if strings.TrimSpace(rec.Model) == "" {
		return nil, fmt.Errorf("model missing")
	}

	id, err := uuid.Parse(rec.ID)
	if err != nil {
		id = uuid.New()
	}

	return &catalog.ComparableListing{
		ID:             id,
		SourcePlatform: strings.TrimSpace(rec.SourcePlatform),
		ListingName:    strings.TrimSpace(rec.ListingName),
		Price:          price,
		Designer:       strings.TrimSpace(rec.Designer),
		Model:          strings.TrimSpace(rec.Model),
		Size:           strings.TrimSpace(rec.Size),
		Material:       strings.TrimSpace(rec.Material),
		Color:          strings.TrimSpace(rec.Color),
		ConditionScore: catalog.ConditionScore(rec.Condition),
		Description:    strings.TrimSpace(rec.Description),
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ListingText builds the text embedded for a listing. Attribute lines are
// labeled so the embedding captures field structure, empty fields are
// skipped.
func ListingText(l *catalog.ComparableListing) string {
	var lines []string
	add := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			lines = append(lines, label+": "+v)
		}
	}

	add("Listing", l.ListingName)
	add("Designer", l.Designer)
	add("Model", l.Model)
	add("Material", l.Material)
	add("Color", l.Color)
	add("Size", l.Size)
	add("Description", l.Description)
	add("Platform", l.SourcePlatform)

	return strings.Join(lines, "\n")
}
