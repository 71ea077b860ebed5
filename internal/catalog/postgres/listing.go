package postgres

import (
	"context"
	"fmt"

	"github.com/mkurata/appraisal/internal/catalog"
)

// ListingRepo implements catalog.ListingRepository
type ListingRepo struct {
	db *DB
}

// NewListingRepo creates a new listing repository
func NewListingRepo(db *DB) *ListingRepo {
	return &ListingRepo{db: db}
}

// Create stores a comparable listing
func (r *ListingRepo) Create(ctx context.Context, listing *catalog.ComparableListing) error {
	query := `
		INSERT INTO listings (id, source_platform, listing_name, price, designer, model, size, material, color, condition_score, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Pool.Exec(ctx, query,
		listing.ID, listing.SourcePlatform, listing.ListingName, listing.Price,
		listing.Designer, listing.Model, listing.Size, listing.Material,
		listing.Color, listing.ConditionScore, listing.Description, listing.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// ListByDesigner returns all listings for a designer, case-insensitively
func (r *ListingRepo) ListByDesigner(ctx context.Context, designer string) ([]*catalog.ComparableListing, error) {
	query := `
		SELECT id, source_platform, listing_name, price, designer, model, size, material, color, condition_score, description, created_at
		FROM listings
		WHERE LOWER(designer) = LOWER($1)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, designer)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []*catalog.ComparableListing
	for rows.Next() {
		var l catalog.ComparableListing
		if err := rows.Scan(
			&l.ID, &l.SourcePlatform, &l.ListingName, &l.Price,
			&l.Designer, &l.Model, &l.Size, &l.Material,
			&l.Color, &l.ConditionScore, &l.Description, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}

	return listings, nil
}

// Count returns the total number of listings in the corpus
func (r *ListingRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

// Ensure ListingRepo implements catalog.ListingRepository
var _ catalog.ListingRepository = (*ListingRepo)(nil)
