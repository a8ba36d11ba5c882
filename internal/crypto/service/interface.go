// Package service provides the cryptographic primitives behind field-level envelope
// encryption: AEAD ciphers, the cipher engine that produces envelopes, PBKDF2 key
// derivation, and the master secret providers.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and a fresh nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD. It returns
	// ErrAuthenticationFailure when the tag does not verify.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// CipherEngine seals plaintext into envelopes and opens them again.
// Implementations are stateless and safe for concurrent use.
type CipherEngine interface {
	// Encrypt seals plaintext under key. aad is bound to the envelope and must be
	// supplied again on decryption.
	Encrypt(key *cryptoDomain.KeyMaterial, plaintext, aad []byte) (*cryptoDomain.EncryptedEnvelope, error)

	// Decrypt opens an envelope. It never returns unauthenticated plaintext.
	Decrypt(envelope *cryptoDomain.EncryptedEnvelope, key *cryptoDomain.KeyMaterial, aad []byte) ([]byte, error)
}

// KeyDeriver stretches a classification master secret into a versioned data key.
type KeyDeriver interface {
	Derive(secret []byte, classification cryptoDomain.Classification, version uint) ([]byte, error)
}

// SecretProvider is the contract of the external secret/KMS provider. It is the sole
// source of classification master secrets. Failures wrap ErrSecretUnavailable.
type SecretProvider interface {
	GetSecret(ctx context.Context, classification cryptoDomain.Classification) ([]byte, error)
}
