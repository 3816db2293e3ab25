package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/civic-archive-api/internal/dto"
	"github.com/noah-isme/civic-archive-api/internal/models"
	"github.com/noah-isme/civic-archive-api/internal/repository"
	appErrors "github.com/noah-isme/civic-archive-api/pkg/errors"
)

type commentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByEntry(ctx context.Context, entryID string) ([]models.Comment, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	Delete(ctx context.Context, id string) error
}

type entryLookup interface {
	GetByID(ctx context.Context, id string) (*models.ArchiveEntryDetail, error)
}

// CommentService manages comments on entries.
type CommentService struct {
	repo      commentRepository
	entries   entryLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(repo commentRepository, entries entryLookup, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{repo: repo, entries: entries, validator: newValidator(), logger: logger}
}

// Create adds a comment authored by actor.
func (s *CommentService) Create(ctx context.Context, entryID string, req dto.CreateCommentRequest, actor *models.JWTClaims) (*models.Comment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(entryID); err != nil {
		return nil, appErrors.ErrNotFound
	}
	comment := &models.Comment{EntryID: entryID, UserID: actor.UserID, Text: req.Text}
	if err := s.repo.Create(ctx, comment); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Internal(err, "failed to create comment")
	}
	return comment, nil
}

// List returns the comments of an entry oldest first.
func (s *CommentService) List(ctx context.Context, entryID string) ([]models.Comment, error) {
	if _, err := uuid.Parse(entryID); err != nil {
		return nil, appErrors.ErrNotFound
	}
	if _, err := s.entries.GetByID(ctx, entryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Internal(err, "failed to load archive entry")
	}
	out, err := s.repo.ListByEntry(ctx, entryID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list comments")
	}
	return out, nil
}

// Delete removes a comment. Only its author or an admin may do so.
func (s *CommentService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.ErrNotFound
	}
	comment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Internal(err, "failed to load comment")
	}
	if !canModify(actor, comment.UserID) {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Internal(err, "failed to delete comment")
	}
	return nil
}
