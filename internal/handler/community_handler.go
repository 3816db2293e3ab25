package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civic-archive-api/internal/dto"
	"github.com/noah-isme/civic-archive-api/internal/models"
	appErrors "github.com/noah-isme/civic-archive-api/pkg/errors"
	"github.com/noah-isme/civic-archive-api/pkg/response"
)

type commentService interface {
	Create(ctx context.Context, entryID string, req dto.CreateCommentRequest, actor *models.JWTClaims) (*models.Comment, error)
	List(ctx context.Context, entryID string) ([]models.Comment, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

type bookmarkService interface {
	Create(ctx context.Context, req dto.CreateBookmarkRequest, actor *models.JWTClaims) (*models.Bookmark, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Bookmark, error)
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.Bookmark, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// CommunityHandler serves comments and bookmarks.
type CommunityHandler struct {
	comments  commentService
	bookmarks bookmarkService
}

// NewCommunityHandler constructs the handler.
func NewCommunityHandler(comments commentService, bookmarks bookmarkService) *CommunityHandler {
	return &CommunityHandler{comments: comments, bookmarks: bookmarks}
}

// ListComments godoc
// @Summary List comments of an entry
// @Tags Community
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /archive/upload/{id}/comments [get]
func (h *CommunityHandler) ListComments(c *gin.Context) {
	list, err := h.comments.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// CreateComment godoc
// @Summary Comment on an entry
// @Tags Community
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /archive/upload/{id}/comments [post]
func (h *CommunityHandler) CreateComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid comment payload"))
		return
	}
	comment, err := h.comments.Create(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// DeleteComment godoc
// @Summary Delete a comment
// @Tags Community
// @Param id path string true "Comment ID"
// @Success 204
// @Router /archive/upload/comments/{id} [delete]
func (h *CommunityHandler) DeleteComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.comments.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateBookmark godoc
// @Summary Bookmark an entry
// @Tags Community
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookmarkRequest true "Entry to bookmark"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /archive/upload/bookmark/create/ [post]
func (h *CommunityHandler) CreateBookmark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid bookmark payload"))
		return
	}
	bookmark, err := h.bookmarks.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, bookmark, nil)
}

// GetBookmark godoc
// @Summary Get a bookmark
// @Tags Community
// @Produce json
// @Param id path string true "Bookmark ID"
// @Success 200 {object} response.Envelope
// @Router /archive/upload/bookmark/{id}/ [get]
func (h *CommunityHandler) GetBookmark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	bookmark, err := h.bookmarks.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bookmark)
}

// ListBookmarks godoc
// @Summary List the caller's bookmarks
// @Tags Community
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /archive/upload/bookmarks/ [get]
func (h *CommunityHandler) ListBookmarks(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	list, err := h.bookmarks.ListMine(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// DeleteBookmark godoc
// @Summary Delete a bookmark
// @Tags Community
// @Param id path string true "Bookmark ID"
// @Success 204
// @Router /archive/upload/bookmark/{id}/ [delete]
func (h *CommunityHandler) DeleteBookmark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.bookmarks.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
