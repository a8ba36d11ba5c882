package httputil

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Headers set by the upstream identity layer.
const (
	ActorIDHeader  = "X-Actor-Id"
	TenantIDHeader = "X-Tenant-Id"
)

// AnonymousActor is recorded when a request arrives without an actor header.
const AnonymousActor = "anonymous"

// Identity is the caller as asserted by the identity layer in front of the service.
type Identity struct {
	ActorID  string
	TenantID string
}

// GetIdentity reads the caller identity headers. The service does not authenticate them.
func GetIdentity(c *gin.Context) Identity {
	actor := strings.TrimSpace(c.GetHeader(ActorIDHeader))
	if actor == "" {
		actor = AnonymousActor
	}
	return Identity{
		ActorID:  actor,
		TenantID: strings.TrimSpace(c.GetHeader(TenantIDHeader)),
	}
}
