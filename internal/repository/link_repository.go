package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/civic-archive-api/internal/models"
)

// upsertLink inserts link or adopts the existing row with the same URL.
func upsertLink(ctx context.Context, q sqlx.QueryerContext, link *models.Link) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO links (id, url, created_at) VALUES ($1, $2, $3)
	ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
	RETURNING id, created_at`
	if err := q.QueryRowxContext(ctx, query, link.ID, link.URL, link.CreatedAt).Scan(&link.ID, &link.CreatedAt); err != nil {
		return fmt.Errorf("upsert link: %w", err)
	}
	return nil
}
