package httputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIdentity(t *testing.T) {
	t.Run("Success_ReadsBothHeaders", func(t *testing.T) {
		c, _ := newTestContext()
		c.Request.Header.Set(ActorIDHeader, " dispatcher-7 ")
		c.Request.Header.Set(TenantIDHeader, "fleet-eu")

		assert.Equal(t, Identity{ActorID: "dispatcher-7", TenantID: "fleet-eu"}, GetIdentity(c))
	})

	t.Run("Success_MissingActorIsAnonymous", func(t *testing.T) {
		c, _ := newTestContext()
		assert.Equal(t, Identity{ActorID: AnonymousActor}, GetIdentity(c))
	})
}
