// Package domain defines the core cryptographic domain models for field-level envelope
// encryption.
//
// Keys are derived per (classification, version) from a classification-scoped master
// secret. Each version moves through ACTIVE → RETIRED → DESTROYED; only the purge
// process reaches DESTROYED, after which envelopes under that version can never be
// decrypted again.
package domain

import (
	"fmt"
	"time"
)

// KeyMaterial is a derived 256-bit data key. It is immutable once derived and is never
// persisted. The Key Manager keeps the original in memory and zeroes it on purge or
// close; callers receive clones they may zero when done.
type KeyMaterial struct {
	Classification Classification
	Version        uint
	Key            []byte
	DerivedAt      time.Time
}

// Clone returns a copy with its own key bytes. Zeroing the copy leaves the original intact.
func (k *KeyMaterial) Clone() *KeyMaterial {
	clone := *k
	clone.Key = append([]byte(nil), k.Key...)
	return &clone
}

// CacheKey identifies the material in single-flight groups and caches.
func (k *KeyMaterial) CacheKey() string {
	return KeyID(k.Classification, k.Version)
}

// KeyID builds the canonical "CLASSIFICATION:version" identifier.
func KeyID(c Classification, version uint) string {
	return fmt.Sprintf("%s:%d", c, version)
}

// KeyState is the lifecycle state of a key version.
type KeyState string

const (
	// KeyStateActive marks the version used for new encryptions. Exactly one per classification.
	KeyStateActive KeyState = "active"
	// KeyStateRetired marks a decrypt-only version.
	KeyStateRetired KeyState = "retired"
	// KeyStateDestroyed marks a purged version. Terminal.
	KeyStateDestroyed KeyState = "destroyed"
)

// KeyVersion is the persisted lifecycle record of one key version. It never holds key bytes.
type KeyVersion struct {
	Classification Classification
	Version        uint
	State          KeyState
	CreatedAt      time.Time
	RetiredAt      *time.Time
	DestroyedAt    *time.Time
}

// Decryptable reports whether envelopes under this version can still be opened.
func (v *KeyVersion) Decryptable() bool {
	return v.State == KeyStateActive || v.State == KeyStateRetired
}

// Retire moves an ACTIVE version to RETIRED.
func (v *KeyVersion) Retire(at time.Time) error {
	if v.State != KeyStateActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidKeyTransition, v.State, KeyStateRetired)
	}
	v.State = KeyStateRetired
	v.RetiredAt = &at
	return nil
}

// Destroy moves a RETIRED version to DESTROYED. The active version must be rotated out
// before it can be destroyed.
func (v *KeyVersion) Destroy(at time.Time) error {
	switch v.State {
	case KeyStateActive:
		return ErrActiveKeyPurge
	case KeyStateRetired:
		v.State = KeyStateDestroyed
		v.DestroyedAt = &at
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidKeyTransition, v.State, KeyStateDestroyed)
	}
}
