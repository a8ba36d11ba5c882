package service

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
)

func newEvent(t *testing.T) *auditDomain.AuditEvent {
	t.Helper()
	return &auditDomain.AuditEvent{
		ID:        uuid.Must(uuid.NewV7()),
		Sequence:  4,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 123000, time.UTC),
		EventType: auditDomain.EventTypeDecrypt,
		ActorID:   "dispatcher-7",
		TenantID:  "acme-logistics",
		Resource:  "driver:42",
		Action:    "read",
		Status:    auditDomain.StatusSuccess,
		Details:   map[string]any{"fields": []any{"driver.ssn"}, "count": 1},
		Severity:  auditDomain.SeverityMedium,
	}
}

func TestSHA256Hasher_Hash(t *testing.T) {
	h := NewSHA256Hasher()
	event := newEvent(t)

	t.Run("MatchesDefinition", func(t *testing.T) {
		event.PreviousHash = "abc"
		canonical, err := h.Canonical(event)
		require.NoError(t, err)

		sum := sha256.Sum256(append(canonical, []byte("abc")...))
		got, err := h.Hash(event)
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(sum[:]), got)
		assert.Len(t, got, 64)
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := h.Hash(event)
		require.NoError(t, err)
		b, err := h.Hash(event.Clone())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("IgnoresStoredHash", func(t *testing.T) {
		a, err := h.Hash(event)
		require.NoError(t, err)
		event.Hash = "anything"
		b, err := h.Hash(event)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("DependsOnEveryField", func(t *testing.T) {
		base, err := h.Hash(event)
		require.NoError(t, err)

		mutations := map[string]func(e *auditDomain.AuditEvent){
			"ID":           func(e *auditDomain.AuditEvent) { e.ID = uuid.Must(uuid.NewV7()) },
			"Sequence":     func(e *auditDomain.AuditEvent) { e.Sequence++ },
			"Timestamp":    func(e *auditDomain.AuditEvent) { e.Timestamp = e.Timestamp.Add(time.Microsecond) },
			"EventType":    func(e *auditDomain.AuditEvent) { e.EventType = auditDomain.EventTypeEncrypt },
			"ActorID":      func(e *auditDomain.AuditEvent) { e.ActorID = "dispatcher-8" },
			"TenantID":     func(e *auditDomain.AuditEvent) { e.TenantID = "" },
			"Resource":     func(e *auditDomain.AuditEvent) { e.Resource = "driver:43" },
			"Action":       func(e *auditDomain.AuditEvent) { e.Action = "write" },
			"Status":       func(e *auditDomain.AuditEvent) { e.Status = auditDomain.StatusFailure },
			"Severity":     func(e *auditDomain.AuditEvent) { e.Severity = auditDomain.SeverityHigh },
			"Details":      func(e *auditDomain.AuditEvent) { e.Details = map[string]any{"count": 2} },
			"PreviousHash": func(e *auditDomain.AuditEvent) { e.PreviousHash = "abd" },
		}
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				e := event.Clone()
				mutate(e)
				got, err := h.Hash(e)
				require.NoError(t, err)
				assert.NotEqual(t, base, got)
			})
		}
	})

	t.Run("FieldBoundariesAreUnambiguous", func(t *testing.T) {
		a := newEvent(t)
		a.ActorID, a.TenantID = "ab", "c"
		b := a.Clone()
		b.ActorID, b.TenantID = "a", "bc"
		ha, err := h.Hash(a)
		require.NoError(t, err)
		hb, err := h.Hash(b)
		require.NoError(t, err)
		assert.NotEqual(t, ha, hb)
	})

	t.Run("NormalizedDetailsHashEqually", func(t *testing.T) {
		a := newEvent(t)
		b := a.Clone()
		normalized, err := auditDomain.NormalizeDetails(a.Details)
		require.NoError(t, err)
		b.Details = normalized
		ha, err := h.Hash(a)
		require.NoError(t, err)
		hb, err := h.Hash(b)
		require.NoError(t, err)
		assert.Equal(t, ha, hb)
	})
}

func TestSHA256Hasher_Verify(t *testing.T) {
	h := NewSHA256Hasher()
	event := newEvent(t)
	hash, err := h.Hash(event)
	require.NoError(t, err)
	event.Hash = hash

	ok, err := h.Verify(event)
	require.NoError(t, err)
	assert.True(t, ok)

	event.Details = map[string]any{"count": 99}
	ok, err = h.Verify(event)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSHA256Hasher_Canonical_UnencodableDetails(t *testing.T) {
	event := newEvent(t)
	event.Details = map[string]any{"fn": func() {}}
	_, err := NewSHA256Hasher().Hash(event)
	assert.ErrorIs(t, err, auditDomain.ErrEventSerialization)
}
