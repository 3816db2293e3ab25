package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/civic-archive-api/internal/models"
)

// LocationRepository resolves locations by their natural key.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository constructs the repository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// FindByNaturalKey returns sql.ErrNoRows when no location matches.
func (r *LocationRepository) FindByNaturalKey(ctx context.Context, city, zipCode, address string) (*models.Location, error) {
	const query = `SELECT id, city, zip_code, address, latitude, longitude, created_at
	FROM locations WHERE city = $1 AND zip_code = $2 AND address = $3`
	var loc models.Location
	if err := r.db.GetContext(ctx, &loc, query, strings.TrimSpace(city), strings.TrimSpace(zipCode), strings.TrimSpace(address)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find location: %w", err)
	}
	return &loc, nil
}

// upsertLocation inserts loc or adopts the row already holding its natural key.
// Existing coordinates win so concurrent submissions converge on one row.
func upsertLocation(ctx context.Context, q sqlx.QueryerContext, loc *models.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO locations (id, city, zip_code, address, latitude, longitude, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (city, zip_code, address) DO UPDATE SET city = EXCLUDED.city
	RETURNING id, latitude, longitude, created_at`
	row := q.QueryRowxContext(ctx, query, loc.ID, loc.City, loc.ZipCode, loc.Address, loc.Latitude, loc.Longitude, loc.CreatedAt)
	if err := row.Scan(&loc.ID, &loc.Latitude, &loc.Longitude, &loc.CreatedAt); err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}
	return nil
}
