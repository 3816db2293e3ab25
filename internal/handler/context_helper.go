package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civic-archive-api/internal/middleware"
	"github.com/noah-isme/civic-archive-api/internal/models"
	appErrors "github.com/noah-isme/civic-archive-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

// bindError maps a request decoding failure to an API error.
func bindError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, "request body too large")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
