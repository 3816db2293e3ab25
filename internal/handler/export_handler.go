package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civic-archive-api/internal/dto"
	"github.com/noah-isme/civic-archive-api/internal/models"
	"github.com/noah-isme/civic-archive-api/internal/service"
	"github.com/noah-isme/civic-archive-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, query dto.ExportQuery, actor *models.JWTClaims) (*service.ExportResult, error)
}

// ExportHandler streams tabular exports of the archive.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export entries as CSV or PDF
// @Tags Archive
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param limit query int false "Maximum rows (default 1000, max 5000)"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /archive/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid export parameters"))
		return
	}
	result, err := h.service.Export(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
