package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/fleetvault/internal/errors"
	"github.com/allisson/fleetvault/internal/httputil"
)

func TestParsePage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		url         string
		expected    httputil.Page
		expectError bool
	}{
		{name: "defaults", url: "/", expected: httputil.Page{Offset: 0, Limit: httputil.DefaultPageLimit}},
		{name: "empty values use defaults", url: "/?offset=&limit=", expected: httputil.Page{Limit: httputil.DefaultPageLimit}},
		{name: "custom window", url: "/?offset=10&limit=20", expected: httputil.Page{Offset: 10, Limit: 20}},
		{name: "max limit", url: "/?limit=200", expected: httputil.Page{Limit: httputil.MaxPageLimit}},
		{name: "negative offset", url: "/?offset=-1", expectError: true},
		{name: "offset not an integer", url: "/?offset=abc", expectError: true},
		{name: "zero limit", url: "/?limit=0", expectError: true},
		{name: "limit above max", url: "/?limit=201", expectError: true},
		{name: "limit not an integer", url: "/?limit=xyz", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request, _ = http.NewRequest(http.MethodGet, tt.url, nil)

			page, err := httputil.ParsePage(c)

			if tt.expectError {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				assert.Equal(t, httputil.Page{}, page)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, page)
		})
	}
}
