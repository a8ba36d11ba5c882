package domain

import (
	"github.com/allisson/fleetvault/internal/errors"
)

// Audit ledger error definitions.
var (
	// ErrEventNotFound indicates no committed event has the requested id.
	ErrEventNotFound = errors.Wrap(errors.ErrNotFound, "audit event not found")

	// ErrInvalidEvent indicates an event input failed validation.
	ErrInvalidEvent = errors.Wrap(errors.ErrInvalidInput, "invalid audit event")

	// ErrEventSerialization indicates event details or a stored record could not be
	// encoded or decoded.
	ErrEventSerialization = errors.Wrap(errors.ErrInvalidInput, "audit event serialization failure")

	// ErrChainIntegrityViolation indicates a recomputed hash or a previousHash link does
	// not match what is stored. It is reported, never repaired.
	//
	// HTTP Status: 409 Conflict
	ErrChainIntegrityViolation = errors.Wrap(errors.ErrIntegrity, "chain integrity violation")

	// ErrConcurrentAppendConflict indicates the store already holds an event at the
	// sequence being appended, meaning another writer extended the chain.
	ErrConcurrentAppendConflict = errors.Wrap(errors.ErrConflict, "concurrent append conflict")
)
