package domain

import (
	"github.com/allisson/fleetvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. All errors are mapped to
// appropriate HTTP status codes by the error handling layer.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	//
	// All data keys must be exactly 32 bytes (256 bits).
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidClassification indicates an unknown classification name or value.
	ErrInvalidClassification = errors.Wrap(errors.ErrInvalidInput, "invalid classification")

	// ErrUnkeyedClassification is returned when a key is requested for PUBLIC data.
	ErrUnkeyedClassification = errors.Wrap(errors.ErrInvalidInput, "classification has no encryption key")

	// ErrAuthenticationFailure indicates the AEAD tag did not verify.
	//
	// This covers corrupted ciphertext, a tampered IV, and decryption under the wrong
	// key alike. The specific cause is never disclosed and no plaintext is returned.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrAuthenticationFailure = errors.Wrap(errors.ErrInvalidInput, "authentication failure")

	// ErrSerializationFailure indicates a malformed envelope or payload.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrSerializationFailure = errors.Wrap(errors.ErrInvalidInput, "serialization failure")

	// ErrSecretUnavailable indicates the secret provider could not return the master
	// secret for a classification.
	ErrSecretUnavailable = errors.Wrap(errors.ErrUnavailable, "secret unavailable")

	// ErrKeyUnavailable indicates a key could not be produced. Callers that were about
	// to encrypt must refuse the write.
	//
	// HTTP Status: 503 Service Unavailable
	ErrKeyUnavailable = errors.Wrap(errors.ErrUnavailable, "key unavailable")

	// ErrKeyVersionNotFound indicates the requested key version was never created.
	ErrKeyVersionNotFound = errors.Wrap(ErrKeyUnavailable, "key version not found")

	// ErrKeyDestroyed indicates the key version was purged. Data encrypted under it is
	// permanently unrecoverable.
	ErrKeyDestroyed = errors.Wrap(ErrKeyUnavailable, "key version destroyed")

	// ErrInvalidKeyTransition indicates a lifecycle transition that the state machine
	// does not allow (for example DESTROYED back to RETIRED).
	ErrInvalidKeyTransition = errors.Wrap(errors.ErrConflict, "invalid key state transition")

	// ErrActiveKeyPurge is returned when a purge targets the active version.
	ErrActiveKeyPurge = errors.Wrap(errors.ErrConflict, "cannot purge the active key version")
)
