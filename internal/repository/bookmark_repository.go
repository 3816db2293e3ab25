package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/civic-archive-api/internal/models"
)

// BookmarkRepository stores per-user bookmarks of entries.
type BookmarkRepository struct {
	db *sqlx.DB
}

// NewBookmarkRepository constructs the repository.
func NewBookmarkRepository(db *sqlx.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// Create inserts a bookmark. Duplicates raise a unique violation and
// unknown entries a foreign key violation.
func (r *BookmarkRepository) Create(ctx context.Context, bookmark *models.Bookmark) error {
	if bookmark.ID == "" {
		bookmark.ID = uuid.NewString()
	}
	if bookmark.CreatedAt.IsZero() {
		bookmark.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO bookmarks (id, user_id, entry_id, created_at) VALUES (:id, :user_id, :entry_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, bookmark); err != nil {
		return fmt.Errorf("create bookmark: %w", err)
	}
	return nil
}

// GetByID fetches a bookmark.
func (r *BookmarkRepository) GetByID(ctx context.Context, id string) (*models.Bookmark, error) {
	const query = `SELECT id, user_id, entry_id, created_at FROM bookmarks WHERE id = $1`
	var bookmark models.Bookmark
	if err := r.db.GetContext(ctx, &bookmark, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	return &bookmark, nil
}

// ListByUser returns the user's bookmarks newest first.
func (r *BookmarkRepository) ListByUser(ctx context.Context, userID string) ([]models.Bookmark, error) {
	const query = `SELECT id, user_id, entry_id, created_at FROM bookmarks WHERE user_id = $1 ORDER BY created_at DESC, id`
	out := []models.Bookmark{}
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return out, nil
}

// Delete removes a bookmark, returning sql.ErrNoRows when it does not exist.
func (r *BookmarkRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check bookmark delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
