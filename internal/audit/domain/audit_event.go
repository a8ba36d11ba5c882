// Package domain defines the audit ledger models.
//
// Every AuditEvent is linked to its predecessor through PreviousHash, so the ledger forms
// a hash chain: rewriting any committed event changes its hash and breaks the link held
// by its successor. Events are never updated or removed; a deletion is recorded as a new
// EventTypeRecordDeleted event.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the PreviousHash of the first event in a chain.
const GenesisHash = ""

// Severity ranks how urgently an event needs attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Status is the outcome of the audited action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusSuccess || s == StatusFailure
}

// EventType names the audited action, dot separated ("keys.rotate").
type EventType string

// Event types emitted by FleetVault itself. Callers may log their own types.
const (
	EventTypeEncrypt       EventType = "crypto.encrypt"
	EventTypeDecrypt       EventType = "crypto.decrypt"
	EventTypeEncryptObject EventType = "crypto.encrypt_object"
	EventTypeDecryptObject EventType = "crypto.decrypt_object"
	EventTypeKeyRotate     EventType = "keys.rotate"
	EventTypeKeyPurge      EventType = "keys.purge"
	EventTypeRecordDeleted EventType = "record.deleted"
	EventTypeChainVerify   EventType = "audit.verify"
)

// reservedPrefixes are the namespaces of the types above.
var reservedPrefixes = []string{"crypto.", "keys.", "record.", "audit."}

// Reserved reports whether t belongs to a namespace only FleetVault itself writes.
func (t EventType) Reserved() bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(string(t), p) {
			return true
		}
	}
	return false
}

// AuditEvent is one committed, immutable ledger entry.
type AuditEvent struct {
	ID           uuid.UUID
	Sequence     uint64 // zero-based position in the chain
	Timestamp    time.Time
	EventType    EventType
	ActorID      string
	TenantID     string
	Resource     string
	Action       string
	Status       Status
	Details      map[string]any
	Severity     Severity
	Hash         string
	PreviousHash string
}

// Clone returns a copy that shares nothing mutable with e at the top level of Details.
func (e *AuditEvent) Clone() *AuditEvent {
	c := *e
	if e.Details != nil {
		c.Details = maps.Clone(e.Details)
	}
	return &c
}

// EventInput carries the caller-supplied part of an event. Identity, sequence, timestamp
// and hashes are assigned by the chain.
type EventInput struct {
	EventType EventType
	ActorID   string
	TenantID  string
	Resource  string
	Action    string
	Status    Status
	Details   map[string]any
	Severity  Severity
}

// Validate checks the input before it is admitted to the chain.
func (in *EventInput) Validate() error {
	if strings.TrimSpace(string(in.EventType)) == "" {
		return fmt.Errorf("%w: event type is required", ErrInvalidEvent)
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, in.Status)
	}
	if !in.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidEvent, in.Severity)
	}
	return nil
}

// Filter narrows event listings. Zero fields do not filter.
type Filter struct {
	EventType EventType
	ActorID   string
	From      *time.Time
	To        *time.Time
	Offset    int
	Limit     int
}

// NormalizeDetails converts details into the form they take after a trip through JSON
// storage: numbers become json.Number and nested values become maps and slices. Hashes
// are computed over normalized details so a reloaded event hashes identically.
func NormalizeDetails(details map[string]any) (map[string]any, error) {
	if details == nil {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventSerialization, err)
	}
	return DecodeDetails(data)
}

// DecodeDetails parses stored details JSON. Empty input and JSON null decode to nil.
func DecodeDetails(data []byte) (map[string]any, error) {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var details map[string]any
	if err := dec.Decode(&details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventSerialization, err)
	}
	return details, nil
}
