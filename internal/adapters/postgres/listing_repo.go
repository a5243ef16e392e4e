package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

const listingColumns = `
	id, title, COALESCE(description, ''), category, condition,
	estimated_value, COALESCE(owner_id, ''), owner_rating,
	lat, lng, COALESCE(looking_for, '{}'), created_at`

// ListingRepo implements ports.ListingRepository with pgx.
type ListingRepo struct {
	db *DB
}

// NewListingRepo creates a new ListingRepo.
func NewListingRepo(db *DB) *ListingRepo {
	return &ListingRepo{db: db}
}

// UpsertBatch inserts or replaces many listings using pgx.Batch.
func (r *ListingRepo) UpsertBatch(ctx context.Context, listings []domain.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(`
			INSERT INTO listings (id, title, description, category, condition,
			                      estimated_value, owner_id, owner_rating, lat, lng, looking_for, created_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), $8, $9, $10, COALESCE($11::text[], '{}'), $12)
			ON CONFLICT (id) DO UPDATE
			SET title = EXCLUDED.title, description = EXCLUDED.description,
			    category = EXCLUDED.category, condition = EXCLUDED.condition,
			    estimated_value = EXCLUDED.estimated_value, owner_id = EXCLUDED.owner_id,
			    owner_rating = EXCLUDED.owner_rating, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
			    looking_for = EXCLUDED.looking_for
		`, l.ID, l.Title, l.Description, l.Category, string(l.Condition),
			l.EstimatedValue, l.OwnerID, l.OwnerRating,
			l.Coordinates.Lat, l.Coordinates.Lng, l.LookingFor, l.CreatedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, l := range listings {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec %s: %w", l.ID, err)
		}
	}
	return nil
}

// GetByID returns a listing or domain.ErrListingNotFound.
func (r *ListingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// List returns a page of listings, newest first, with the total count.
func (r *ListingRepo) List(ctx context.Context, limit, offset int) ([]domain.Listing, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM listings`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	listings, err := collectListings(rows)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// All loads every listing in insertion order.
func (r *ListingRepo) All(ctx context.Context) ([]domain.Listing, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

func collectListings(rows pgx.Rows) ([]domain.Listing, error) {
	defer rows.Close()
	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	var condition string
	if err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Category, &condition,
		&l.EstimatedValue, &l.OwnerID, &l.OwnerRating,
		&l.Coordinates.Lat, &l.Coordinates.Lng, &l.LookingFor, &l.CreatedAt,
	); err != nil {
		return nil, err
	}
	l.Condition = domain.Condition(condition)
	return &l, nil
}
