package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/fleetvault/internal/errors"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		errorCode  string
	}{
		{"not found", fmt.Errorf("event: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict", apperrors.Wrap(apperrors.ErrConflict, "purge"), http.StatusConflict, "conflict"},
		{"integrity", apperrors.Wrap(apperrors.ErrIntegrity, "chain"), http.StatusConflict, "integrity_violation"},
		{"invalid input", apperrors.Wrap(apperrors.ErrInvalidInput, "bad"), http.StatusUnprocessableEntity, "invalid_input"},
		{"unavailable", apperrors.Wrap(apperrors.ErrUnavailable, "kms"), http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext()
			HandleErrorGin(c, tt.err, nil)

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Contains(t, w.Body.String(), `"error":"`+tt.errorCode+`"`)
		})
	}
}

func TestHandleErrorGin_NilError(t *testing.T) {
	c, w := newTestContext()
	HandleErrorGin(c, nil, nil)
	assert.False(t, c.Writer.Written())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleErrorGin_HidesInternalDetails(t *testing.T) {
	c, w := newTestContext()
	HandleErrorGin(c, errors.New("dsn password=hunter2"), nil)
	assert.NotContains(t, w.Body.String(), "hunter2")

	c, w = newTestContext()
	HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnavailable, "awskms://arn:aws:kms:eu-west-1:1111"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "awskms")
}

func TestHandleErrorGin_EchoesInputErrors(t *testing.T) {
	c, w := newTestContext()
	HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "authentication failure"), nil)
	assert.JSONEq(t, `{"error":"invalid_input","message":"authentication failure: invalid input"}`, w.Body.String())
}

func TestHandleBadRequestGin(t *testing.T) {
	c, w := newTestContext()
	HandleBadRequestGin(c, errors.New("invalid json"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"bad_request","message":"invalid json"}`, w.Body.String())
}

func TestHandleValidationErrorGin(t *testing.T) {
	c, w := newTestContext()
	HandleValidationErrorGin(c, errors.New("classification: cannot be blank."), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(
		t,
		`{"error":"validation_error","message":"classification: cannot be blank."}`,
		w.Body.String(),
	)
}
