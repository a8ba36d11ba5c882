// Package service provides the hashing primitives of the audit chain.
package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
)

// Hasher links audit events into a chain.
type Hasher interface {
	// Canonical returns the unambiguous byte encoding of the event body, excluding
	// Hash and PreviousHash.
	Canonical(event *auditDomain.AuditEvent) ([]byte, error)

	// Hash computes the chain hash of event against its PreviousHash.
	Hash(event *auditDomain.AuditEvent) (string, error)

	// Verify recomputes the hash of event from its stored PreviousHash and reports
	// whether it equals the stored Hash.
	Verify(event *auditDomain.AuditEvent) (bool, error)
}

type sha256Hasher struct{}

// NewSHA256Hasher returns the Hasher used by FleetVault chains:
// hex(SHA-256(canonical(body) || previousHash)).
func NewSHA256Hasher() Hasher {
	return sha256Hasher{}
}

// Canonical layout: id (16) || sequence (8) || timestamp unix nanos (8) || then the
// length-prefixed event type, actor, tenant, resource, action, status, severity and
// details JSON. Details are normalized first so stored and freshly built events agree.
func (sha256Hasher) Canonical(event *auditDomain.AuditEvent) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, event.ID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, event.Sequence)
	buf = binary.BigEndian.AppendUint64(buf, uint64(event.Timestamp.UnixNano()))

	buf = appendLengthPrefixed(buf, []byte(event.EventType))
	buf = appendLengthPrefixed(buf, []byte(event.ActorID))
	buf = appendLengthPrefixed(buf, []byte(event.TenantID))
	buf = appendLengthPrefixed(buf, []byte(event.Resource))
	buf = appendLengthPrefixed(buf, []byte(event.Action))
	buf = appendLengthPrefixed(buf, []byte(event.Status))
	buf = appendLengthPrefixed(buf, []byte(event.Severity))

	details, err := auditDomain.NormalizeDetails(event.Details)
	if err != nil {
		return nil, err
	}
	var detailsJSON []byte
	if details != nil {
		// encoding/json sorts map keys, which makes the encoding deterministic.
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", auditDomain.ErrEventSerialization, err)
		}
	}
	buf = appendLengthPrefixed(buf, detailsJSON)

	return buf, nil
}

func (h sha256Hasher) Hash(event *auditDomain.AuditEvent) (string, error) {
	canonical, err := h.Canonical(event)
	if err != nil {
		return "", err
	}

	digest := sha256.New()
	digest.Write(canonical)
	digest.Write([]byte(event.PreviousHash))
	return hex.EncodeToString(digest.Sum(nil)), nil
}

func (h sha256Hasher) Verify(event *auditDomain.AuditEvent) (bool, error) {
	expected, err := h.Hash(event)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(event.Hash)) == 1, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length followed by data.
func appendLengthPrefixed(buf, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}
