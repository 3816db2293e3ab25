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

type bookmarkRepository interface {
	Create(ctx context.Context, bookmark *models.Bookmark) error
	GetByID(ctx context.Context, id string) (*models.Bookmark, error)
	ListByUser(ctx context.Context, userID string) ([]models.Bookmark, error)
	Delete(ctx context.Context, id string) error
}

// BookmarkService manages users' saved entries.
type BookmarkService struct {
	repo      bookmarkRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookmarkService constructs the service.
func NewBookmarkService(repo bookmarkRepository, logger *zap.Logger) *BookmarkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookmarkService{repo: repo, validator: newValidator(), logger: logger}
}

// Create bookmarks an entry for actor.
func (s *BookmarkService) Create(ctx context.Context, req dto.CreateBookmarkRequest, actor *models.JWTClaims) (*models.Bookmark, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	bookmark := &models.Bookmark{UserID: actor.UserID, EntryID: req.Upload}
	if err := s.repo.Create(ctx, bookmark); err != nil {
		switch {
		case repository.IsUniqueViolation(err):
			return nil, appErrors.Clone(appErrors.ErrConflict, "entry already bookmarked")
		case repository.IsForeignKeyViolation(err):
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Internal(err, "failed to create bookmark")
	}
	return bookmark, nil
}

// Get returns a bookmark visible to its owner or an admin.
func (s *BookmarkService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Bookmark, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	bookmark, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, bookmark.UserID) {
		return nil, appErrors.ErrForbidden
	}
	return bookmark, nil
}

// ListMine returns the caller's bookmarks.
func (s *BookmarkService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.Bookmark, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	out, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list bookmarks")
	}
	return out, nil
}

// Delete removes a bookmark owned by actor (or any bookmark for admins).
func (s *BookmarkService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	bookmark, err := s.Get(ctx, id, actor)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, bookmark.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Internal(err, "failed to delete bookmark")
	}
	return nil
}

func (s *BookmarkService) load(ctx context.Context, id string) (*models.Bookmark, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.ErrNotFound
	}
	bookmark, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Internal(err, "failed to load bookmark")
	}
	return bookmark, nil
}
