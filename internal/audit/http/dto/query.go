package dto

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	apperrors "github.com/allisson/fleetvault/internal/errors"
	"github.com/allisson/fleetvault/internal/httputil"
)

// ParseEventID parses an event id path parameter.
func ParseEventID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid event id %q", apperrors.ErrInvalidInput, s)
	}
	return id, nil
}

// ParseFilter reads the list query: type, actor, from, to (RFC 3339, inclusive),
// offset and limit.
func ParseFilter(c *gin.Context) (auditDomain.Filter, error) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		return auditDomain.Filter{}, err
	}

	filter := auditDomain.Filter{
		EventType: auditDomain.EventType(c.Query("type")),
		ActorID:   c.Query("actor"),
		Offset:    page.Offset,
		Limit:     page.Limit,
	}

	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		return auditDomain.Filter{}, err
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		return auditDomain.Filter{}, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return auditDomain.Filter{}, fmt.Errorf("from must be before or equal to to")
	}
	return filter, nil
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: must be RFC3339 (e.g., 2026-02-01T00:00:00Z)", key)
	}
	utc := parsed.UTC()
	return &utc, nil
}
