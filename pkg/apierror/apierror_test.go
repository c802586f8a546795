package apierror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BAD_REQUEST: invalid id (abc)", BadRequest("invalid id", "abc").Error())
	assert.Equal(t, "INTERNAL_ERROR: session unavailable", Internal("session unavailable").Error())

	var nilErr *APIError
	assert.Empty(t, nilErr.Error())
}

func TestConstructorsSetStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, BadRequest("x", "").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, Internal("x").HTTPStatus)
}

func TestCodeOf(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("donate: %w", BadRequest("amount must be positive", ""))
	assert.Equal(t, CodeBadRequest, CodeOf(wrapped))
	assert.Empty(t, CodeOf(fmt.Errorf("plain")))
	assert.Empty(t, CodeOf(nil))
}
