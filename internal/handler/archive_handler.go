package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civic-archive-api/internal/dto"
	"github.com/noah-isme/civic-archive-api/internal/middleware"
	"github.com/noah-isme/civic-archive-api/internal/models"
	"github.com/noah-isme/civic-archive-api/internal/service"
	appErrors "github.com/noah-isme/civic-archive-api/pkg/errors"
	"github.com/noah-isme/civic-archive-api/pkg/response"
)

// multipartOverhead is allowed on top of the file limit for form fields and boundaries.
const multipartOverhead = 1 << 20

type archiveService interface {
	Upload(ctx context.Context, req dto.UploadRequest, file service.UploadFile, actor *models.JWTClaims) (*dto.EntryResponse, error)
	List(ctx context.Context, query dto.ListEntriesQuery) ([]dto.EntryResponse, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.EntryResponse, error)
	Update(ctx context.Context, id string, req dto.UpdateEntryRequest, partial bool, actor *models.JWTClaims) (*dto.EntryResponse, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	SearchByTags(ctx context.Context, req dto.TagSearchRequest) (dto.TagSearchResponse, error)
	ListTags(ctx context.Context) ([]dto.TagResponse, bool, error)
	Download(ctx context.Context, id, token string, actor *models.JWTClaims) (*service.FileDownload, error)
	Thumbnail(ctx context.Context, id string) (*service.FileDownload, error)
}

// ArchiveHandler manages archive entry endpoints.
type ArchiveHandler struct {
	service     archiveService
	maxFileSize int64
}

// NewArchiveHandler constructs the handler. maxFileSize bounds the multipart body.
func NewArchiveHandler(service archiveService, maxFileSize int64) *ArchiveHandler {
	return &ArchiveHandler{service: service, maxFileSize: maxFileSize}
}

// List godoc
// @Summary List archive entries
// @Tags Archive
// @Produce json
// @Param limit query int false "Page size (default 10, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /archive/ [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	var query dto.ListEntriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid pagination parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Upload godoc
// @Summary Upload a file with its metadata
// @Tags Archive
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File"
// @Param location formData string true "City"
// @Param zip_code formData string true "Zip code"
// @Param address formData string false "Street address"
// @Param link formData string true "Related URL"
// @Param tags formData string true "Comma separated tags"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /archive/upload/ [post]
func (h *ArchiveHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.maxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+multipartOverhead)
	}

	var req dto.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid upload payload"))
		return
	}

	var file service.UploadFile
	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		src, openErr := fileHeader.Open()
		if openErr != nil {
			response.Error(c, appErrors.Internal(openErr, "failed to open uploaded file"))
			return
		}
		defer src.Close() //nolint:errcheck
		file = service.UploadFile{Filename: fileHeader.Filename, Size: fileHeader.Size, Content: src}
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.Error(c, bindError(err, "invalid upload payload"))
		return
	}

	entry, err := h.service.Upload(c.Request.Context(), req, file, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Get godoc
// @Summary Get an archive entry
// @Tags Archive
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /archive/upload/{id} [get]
func (h *ArchiveHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Replace godoc
// @Summary Replace an entry's metadata
// @Tags Archive
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.UpdateEntryRequest true "All fields, user must equal the owner"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /archive/upload/{id} [put]
func (h *ArchiveHandler) Replace(c *gin.Context) {
	h.update(c, false)
}

// Patch godoc
// @Summary Partially update an entry's metadata
// @Tags Archive
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.UpdateEntryRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /archive/upload/{id} [patch]
func (h *ArchiveHandler) Patch(c *gin.Context) {
	h.update(c, true)
}

func (h *ArchiveHandler) update(c *gin.Context, partial bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid update payload"))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req, partial, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Delete godoc
// @Summary Delete an entry and its file
// @Tags Archive
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /archive/upload/{id} [delete]
func (h *ArchiveHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download the stored file
// @Description Authenticated callers may omit the token; anonymous callers need the signed token from download_url.
// @Tags Archive
// @Produce octet-stream
// @Param id path string true "Entry ID"
// @Param token query string false "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /archive/upload/download/{id} [get]
func (h *ArchiveHandler) Download(c *gin.Context) {
	file, err := h.service.Download(c.Request.Context(), c.Param("id"), c.Query("token"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, file.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.Filename),
	})
}

// Thumbnail godoc
// @Summary Get the JPEG preview of an image entry
// @Tags Archive
// @Produce jpeg
// @Param id path string true "Entry ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /archive/upload/thumbnail/{id} [get]
func (h *ArchiveHandler) Thumbnail(c *gin.Context) {
	file, err := h.service.Thumbnail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	c.Header("Cache-Control", "public, max-age=3600")
	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, file.Body, nil)
}

// Tags godoc
// @Summary List all tags
// @Tags Archive
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /archive/uploads/tags/ [get]
func (h *ArchiveHandler) Tags(c *gin.Context) {
	list, hit, err := h.service.ListTags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, list, nil, middleware.ExtractMeta(c))
}

// SearchTags godoc
// @Summary Search entries by tags
// @Description Each term without results maps to a notice; search_results holds every entry matching any remaining term.
// @Tags Archive
// @Accept json
// @Produce json
// @Param payload body dto.TagSearchRequest true "Comma separated terms"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /archive/upload/tags/search/ [post]
func (h *ArchiveHandler) SearchTags(c *gin.Context) {
	var req dto.TagSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid search payload"))
		return
	}
	out, err := h.service.SearchByTags(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
