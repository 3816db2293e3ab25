package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("load entry: %w", ErrNotFound)
	appErr := FromError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneMatchesOriginalCode(t *testing.T) {
	clone := Clone(ErrValidation, "file is required")
	assert.Equal(t, "file is required", clone.Message)
	assert.True(t, errors.Is(clone, ErrValidation))
	assert.False(t, errors.Is(clone, ErrNotFound))
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation(map[string]string{"zip_code": "required"})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "required", err.Fields["zip_code"])
	assert.Nil(t, ErrValidation.Fields)
}
