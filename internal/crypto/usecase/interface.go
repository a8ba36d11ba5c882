// Package usecase defines the business logic interfaces for field-level encryption.
//
// The Key Manager owns the lifecycle of classification key versions and hands out
// derived key material; the Object Transformer walks structured records and seals
// or opens the fields the classification registry names.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// KeyVersionRepository persists key version lifecycle records. No key bytes pass
// through it.
//
// Implementations support transaction context through database.GetTx so rotation can
// retire the previous version and create the next one atomically.
//
// Available implementations:
//   - MemoryKeyVersionRepository
//   - PostgreSQLKeyVersionRepository
//   - MySQLKeyVersionRepository
type KeyVersionRepository interface {
	// Create stores a new version. A duplicate (classification, version) returns an
	// error wrapping ErrConflict.
	Create(ctx context.Context, version *cryptoDomain.KeyVersion) error

	// Update persists the state and timestamps of an existing version.
	Update(ctx context.Context, version *cryptoDomain.KeyVersion) error

	// Get returns one version or ErrKeyVersionNotFound.
	Get(ctx context.Context, classification cryptoDomain.Classification, version uint) (*cryptoDomain.KeyVersion, error)

	// GetActive returns the active version or ErrKeyVersionNotFound when none exists yet.
	GetActive(ctx context.Context, classification cryptoDomain.Classification) (*cryptoDomain.KeyVersion, error)

	// List returns every version of a classification ordered by version descending.
	List(ctx context.Context, classification cryptoDomain.Classification) ([]*cryptoDomain.KeyVersion, error)
}

// KeyManager derives, caches and rotates classification keys.
//
// Derivation for a given (classification, version) runs at most once concurrently and
// the result is memoized. Rotation is serialized but never blocks callers using keys
// that are already cached.
type KeyManager interface {
	// DeriveKey returns the key material for a classification and version. Version 0
	// selects the active version. Fails with ErrKeyUnavailable when the secret cannot
	// be retrieved or the version is unknown or destroyed.
	DeriveKey(ctx context.Context, classification cryptoDomain.Classification, version uint) (*cryptoDomain.KeyMaterial, error)

	// ActiveVersion returns the version used for new encryptions, creating version 1
	// on first use.
	ActiveVersion(ctx context.Context, classification cryptoDomain.Classification) (uint, error)

	// Rotate retires the active version and activates a new one. Retired versions
	// stay decryptable.
	Rotate(ctx context.Context, classification cryptoDomain.Classification) (*cryptoDomain.KeyVersion, error)

	// RotateAll rotates every keyed classification.
	RotateAll(ctx context.Context) (map[cryptoDomain.Classification]*cryptoDomain.KeyVersion, error)

	// Purge destroys a retired version and wipes its cached key. Envelopes sealed
	// under it become permanently undecryptable.
	Purge(ctx context.Context, classification cryptoDomain.Classification, version uint) error

	// ListVersions returns the lifecycle records of a classification, newest first.
	ListVersions(ctx context.Context, classification cryptoDomain.Classification) ([]*cryptoDomain.KeyVersion, error)

	// Close zeroes every cached key. The manager is unusable afterwards.
	Close() error
}

// ObjectTransformer encrypts and decrypts the classified fields of a structured record.
type ObjectTransformer interface {
	// EncryptObject returns a deep copy of obj in which every field selected for
	// classification holds an envelope. obj is never modified.
	EncryptObject(ctx context.Context, obj map[string]any, classification cryptoDomain.Classification) (map[string]any, error)

	// DecryptObject reverses EncryptObject, restoring the original value types.
	DecryptObject(ctx context.Context, obj map[string]any, classification cryptoDomain.Classification) (map[string]any, error)

	// EncryptValue seals a single raw value under the active key of classification.
	EncryptValue(ctx context.Context, classification cryptoDomain.Classification, plaintext, aad []byte) (*cryptoDomain.EncryptedEnvelope, error)

	// DecryptValue opens a single envelope produced by EncryptValue.
	DecryptValue(ctx context.Context, envelope *cryptoDomain.EncryptedEnvelope, aad []byte) ([]byte, error)
}
