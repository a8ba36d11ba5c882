package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/fleetvault/internal/errors"
)

// Listing window bounds.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Page is a window over a sequence-ordered listing.
type Page struct {
	Offset int
	Limit  int
}

// ParsePage reads the offset and limit query parameters. Absent values fall back to
// 0 and DefaultPageLimit.
func ParsePage(c *gin.Context) (Page, error) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return Page{}, fmt.Errorf("%w: offset must be a non-negative integer", apperrors.ErrInvalidInput)
	}

	limit, err := queryInt(c, "limit", DefaultPageLimit)
	if err != nil || limit < 1 || limit > MaxPageLimit {
		return Page{}, fmt.Errorf("%w: limit must be between 1 and %d", apperrors.ErrInvalidInput, MaxPageLimit)
	}

	return Page{Offset: offset, Limit: limit}, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
