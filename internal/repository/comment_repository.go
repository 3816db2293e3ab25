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

// CommentRepository stores comments on archive entries.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment. A missing entry surfaces as a foreign key violation.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO comments (id, entry_id, user_id, text, created_at) VALUES (:id, :entry_id, :user_id, :text, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListByEntry returns the entry's comments oldest first.
func (r *CommentRepository) ListByEntry(ctx context.Context, entryID string) ([]models.Comment, error) {
	const query = `SELECT id, entry_id, user_id, text, created_at FROM comments WHERE entry_id = $1 ORDER BY created_at ASC, id`
	out := []models.Comment{}
	if err := r.db.SelectContext(ctx, &out, query, entryID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}

// GetByID fetches a comment.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	const query = `SELECT id, entry_id, user_id, text, created_at FROM comments WHERE id = $1`
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &comment, nil
}

// Delete removes a comment, returning sql.ErrNoRows when it does not exist.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check comment delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
