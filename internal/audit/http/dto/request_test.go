package dto

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	apperrors "github.com/allisson/fleetvault/internal/errors"
	"github.com/allisson/fleetvault/internal/httputil"
)

func TestCreateEventRequest_Validate(t *testing.T) {
	valid := func() CreateEventRequest {
		return CreateEventRequest{EventType: "vehicle.unlock", Status: "success", Severity: "low"}
	}

	tests := []struct {
		name    string
		mutate  func(r *CreateEventRequest)
		wantErr bool
	}{
		{name: "valid", mutate: func(*CreateEventRequest) {}},
		{name: "missing type", mutate: func(r *CreateEventRequest) { r.EventType = "" }, wantErr: true},
		{name: "undotted type", mutate: func(r *CreateEventRequest) { r.EventType = "unlock" }, wantErr: true},
		{name: "reserved type", mutate: func(r *CreateEventRequest) { r.EventType = "crypto.encrypt" }, wantErr: true},
		{name: "unknown status", mutate: func(r *CreateEventRequest) { r.Status = "maybe" }, wantErr: true},
		{name: "missing severity", mutate: func(r *CreateEventRequest) { r.Severity = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateEventRequest_ToInput(t *testing.T) {
	req := CreateEventRequest{
		EventType: "vehicle.unlock",
		Resource:  "vehicle:VIN1",
		Action:    "unlock",
		Status:    "failure",
		Severity:  "high",
		Details:   map[string]any{"reason": "bad pin"},
	}

	input := req.ToInput(httputil.Identity{ActorID: "driver-9", TenantID: "fleet-us"})

	assert.Equal(t, auditDomain.EventType("vehicle.unlock"), input.EventType)
	assert.Equal(t, "driver-9", input.ActorID)
	assert.Equal(t, "fleet-us", input.TenantID)
	assert.Equal(t, auditDomain.StatusFailure, input.Status)
	assert.Equal(t, auditDomain.SeverityHigh, input.Severity)
	assert.NoError(t, input.Validate())
}

func TestDeleteEventRequest_ToInput(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	req := DeleteEventRequest{Reason: "retention expired"}

	input, err := req.ToInput(httputil.Identity{ActorID: "ops"}, id.String())
	require.NoError(t, err)
	assert.Equal(t, id, input.TargetID)
	assert.Equal(t, "retention expired", input.Reason)

	_, err = req.ToInput(httputil.Identity{ActorID: "ops"}, "not-a-uuid")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newContext := func(url string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, url, nil)
		return c
	}

	t.Run("Success_FullQuery", func(t *testing.T) {
		filter, err := ParseFilter(newContext(
			"/?type=vehicle.unlock&actor=d1&from=2026-02-01T00:00:00Z&to=2026-02-02T01:00:00%2B01:00&offset=5&limit=10",
		))
		require.NoError(t, err)
		assert.Equal(t, auditDomain.EventType("vehicle.unlock"), filter.EventType)
		assert.Equal(t, "d1", filter.ActorID)
		assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *filter.From)
		assert.Equal(t, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), *filter.To)
		assert.Equal(t, 5, filter.Offset)
		assert.Equal(t, 10, filter.Limit)
	})

	t.Run("Success_Defaults", func(t *testing.T) {
		filter, err := ParseFilter(newContext("/"))
		require.NoError(t, err)
		assert.Nil(t, filter.From)
		assert.Nil(t, filter.To)
		assert.Equal(t, 50, filter.Limit)
	})

	t.Run("Error_InvalidLimit", func(t *testing.T) {
		_, err := ParseFilter(newContext("/?limit=500"))
		assert.Error(t, err)
	})

	t.Run("Error_ReversedRange", func(t *testing.T) {
		_, err := ParseFilter(newContext("/?from=2026-02-02T00:00:00Z&to=2026-02-01T00:00:00Z"))
		assert.Error(t, err)
	})
}
