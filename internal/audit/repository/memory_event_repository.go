// Package repository implements audit event persistence for the memory, PostgreSQL and
// MySQL drivers. Stores are append-only: there is no update or delete path.
package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

// MemoryEventRepository keeps events in process memory. It backs the "memory" database
// driver used for development and tests; nothing survives a restart.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events []*auditDomain.AuditEvent
	byID   map[uuid.UUID]int
}

// NewMemoryEventRepository creates an empty MemoryEventRepository.
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{byID: make(map[uuid.UUID]int)}
}

// Create appends event. The sequence must be the next free one.
func (m *MemoryEventRepository) Create(_ context.Context, event *auditDomain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := uint64(len(m.events))
	switch {
	case event.Sequence < next:
		return apperrors.Wrapf(apperrors.ErrConflict, "sequence %d already stored", event.Sequence)
	case event.Sequence > next:
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "sequence %d leaves a gap after %d", event.Sequence, next)
	}
	if _, ok := m.byID[event.ID]; ok {
		return apperrors.Wrapf(apperrors.ErrConflict, "event %s already stored", event.ID)
	}

	m.byID[event.ID] = len(m.events)
	m.events = append(m.events, event.Clone())
	return nil
}

// GetByID returns a copy of the stored event.
func (m *MemoryEventRepository) GetByID(_ context.Context, id uuid.UUID) (*auditDomain.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, auditDomain.ErrEventNotFound
	}
	return m.events[i].Clone(), nil
}

// ListBySequence returns copies of up to limit events starting at from.
func (m *MemoryEventRepository) ListBySequence(
	_ context.Context,
	from uint64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*auditDomain.AuditEvent, 0)
	for i := from; i < uint64(len(m.events)) && len(result) < limit; i++ {
		result = append(result, m.events[i].Clone())
	}
	return result, nil
}

// Count returns the number of stored events.
func (m *MemoryEventRepository) Count(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.events)), nil
}
