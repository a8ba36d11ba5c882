// Package usecase implements the audit ledger: the single-writer hash chain, its
// verifier, and the forwarder that streams committed events to a SIEM sink.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
)

// EventRepository is the durable, append-only event store. Implementations never
// update or delete committed rows and return events in sequence order.
type EventRepository interface {
	// Create persists a finalized event. A second event at an existing sequence must
	// fail with an error wrapping errors.ErrConflict.
	Create(ctx context.Context, event *auditDomain.AuditEvent) error

	// GetByID returns auditDomain.ErrEventNotFound when the id is unknown.
	GetByID(ctx context.Context, id uuid.UUID) (*auditDomain.AuditEvent, error)

	// ListBySequence returns up to limit events with sequence >= from, ascending.
	ListBySequence(ctx context.Context, from uint64, limit int) ([]*auditDomain.AuditEvent, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (uint64, error)
}

// DeletionInput describes the logical deletion of a committed event.
type DeletionInput struct {
	ActorID  string
	TenantID string
	TargetID uuid.UUID
	Reason   string
}

// AuditChain is the append-only ledger. Appends are serialized; queries run
// concurrently with them and are served from in-memory indices.
type AuditChain interface {
	// Append assigns id, sequence and timestamp, links the event to the current tail,
	// persists it and moves the tail. On error the tail is unchanged.
	Append(ctx context.Context, input *auditDomain.EventInput) (*auditDomain.AuditEvent, error)

	// LogEvent is Append under its public API name.
	LogEvent(ctx context.Context, input *auditDomain.EventInput) (*auditDomain.AuditEvent, error)

	// RecordDeletion appends a record.deleted event referencing an existing event.
	RecordDeletion(ctx context.Context, input *DeletionInput) (*auditDomain.AuditEvent, error)

	GetEventByID(ctx context.Context, id uuid.UUID) (*auditDomain.AuditEvent, error)
	GetEventsByType(ctx context.Context, eventType auditDomain.EventType) ([]*auditDomain.AuditEvent, error)
	GetEventsByUser(ctx context.Context, actorID string) ([]*auditDomain.AuditEvent, error)

	// GetEventsByDateRange returns events with from <= timestamp <= to.
	GetEventsByDateRange(ctx context.Context, from, to time.Time) ([]*auditDomain.AuditEvent, error)

	// ListEvents applies filter over the indices, ascending by sequence.
	ListEvents(ctx context.Context, filter auditDomain.Filter) ([]*auditDomain.AuditEvent, error)

	// GetEventChain walks previousHash links back from id to the genesis event and
	// returns the events in chain order.
	GetEventChain(ctx context.Context, id uuid.UUID) ([]*auditDomain.AuditEvent, error)

	// Load rebuilds the tail and indices from the repository.
	Load(ctx context.Context) error

	// Subscribe streams every committed event with sequence >= from, in order and
	// without gaps. The channel is closed once ctx is done.
	Subscribe(ctx context.Context, from uint64) <-chan *auditDomain.AuditEvent

	// Length is the number of committed events.
	Length() uint64
}

// ChainVerifier recomputes chain hashes against the repository. It never mutates.
type ChainVerifier interface {
	VerifyChain(ctx context.Context) (*VerificationReport, error)

	// DetectTamper reports true when the stored event no longer matches its stored hash.
	DetectTamper(ctx context.Context, id uuid.UUID) (bool, error)
}

// Sink receives forwarded events.
type Sink interface {
	Emit(ctx context.Context, event *auditDomain.AuditEvent) error
}

// VerificationReport is the outcome of a full chain verification.
type VerificationReport struct {
	Valid        bool
	Length       uint64
	BreakIndex   int64 // -1 when Valid
	BreakEventID *uuid.UUID
	Reason       string
	VerifiedAt   time.Time
}
