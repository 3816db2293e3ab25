package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/civic-archive-api/internal/models"
	"github.com/noah-isme/civic-archive-api/pkg/tags"
)

// TagRepository exposes the shared tag vocabulary.
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository constructs the repository.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

// List returns every known tag ordered by name.
func (r *TagRepository) List(ctx context.Context) ([]models.Tag, error) {
	const query = `SELECT id, name, slug, created_at FROM tags ORDER BY name`
	var out []models.Tag
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

// CountMatches returns, for each name carried by at least one entry, how many entries carry it.
// Names without matches are absent from the result.
func (r *TagRepository) CountMatches(ctx context.Context, names []string) ([]models.TagMatch, error) {
	const query = `SELECT t.name, COUNT(et.entry_id) AS match_count
	FROM tags t JOIN entry_tags et ON et.tag_id = t.id
	WHERE t.name = ANY($1)
	GROUP BY t.name`
	var out []models.TagMatch
	if err := r.db.SelectContext(ctx, &out, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("count tag matches: %w", err)
	}
	return out, nil
}

// upsertTags resolves names to tag rows, creating missing ones. Result order follows names.
func upsertTags(ctx context.Context, q sqlx.QueryerContext, names []string) ([]models.Tag, error) {
	const query = `INSERT INTO tags (id, name, slug, created_at) VALUES ($1, $2, $3, $4)
	ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
	RETURNING id, name, slug, created_at`
	out := make([]models.Tag, 0, len(names))
	now := time.Now().UTC()
	for _, name := range names {
		var tag models.Tag
		if err := q.QueryRowxContext(ctx, query, uuid.NewString(), name, tags.Slug(name), now).StructScan(&tag); err != nil {
			return nil, fmt.Errorf("upsert tag %q: %w", name, err)
		}
		out = append(out, tag)
	}
	return out, nil
}

func linkTags(ctx context.Context, e sqlx.ExecerContext, entryID string, list []models.Tag) error {
	const query = `INSERT INTO entry_tags (entry_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, tag := range list {
		if _, err := e.ExecContext(ctx, query, entryID, tag.ID); err != nil {
			return fmt.Errorf("link tag %q: %w", tag.Name, err)
		}
	}
	return nil
}
