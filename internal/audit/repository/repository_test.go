package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
)

var eventColumnNames = []string{
	"sequence", "id", "occurred_at", "event_type", "actor_id", "tenant_id", "resource", "action",
	"status", "details", "severity", "hash", "previous_hash",
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func newTestEvent(sequence uint64) *auditDomain.AuditEvent {
	return &auditDomain.AuditEvent{
		ID:           uuid.Must(uuid.NewV7()),
		Sequence:     sequence,
		Timestamp:    time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC),
		EventType:    auditDomain.EventTypeKeyRotate,
		ActorID:      "ops-1",
		TenantID:     "acme",
		Resource:     "keys:CONFIDENTIAL",
		Action:       "rotate",
		Status:       auditDomain.StatusSuccess,
		Details:      map[string]any{"version": "2"},
		Severity:     auditDomain.SeverityHigh,
		Hash:         "h1",
		PreviousHash: "h0",
	}
}
