package service

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// PBKDF2Deriver derives data keys with PBKDF2-HMAC-SHA256.
//
// The salt is the application salt followed by the classification name and the
// version, so every (classification, version) pair yields an independent key while
// the derivation stays deterministic for a given secret.
type PBKDF2Deriver struct {
	iterations int
	salt       []byte
}

// NewPBKDF2Deriver creates a deriver. iterations below MinPBKDF2Iterations and an empty
// salt are rejected.
func NewPBKDF2Deriver(iterations int, salt []byte) (*PBKDF2Deriver, error) {
	if iterations < cryptoDomain.MinPBKDF2Iterations {
		return nil, fmt.Errorf(
			"pbkdf2 iterations must be at least %d, got %d",
			cryptoDomain.MinPBKDF2Iterations,
			iterations,
		)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("pbkdf2 salt must not be empty")
	}
	return &PBKDF2Deriver{iterations: iterations, salt: append([]byte(nil), salt...)}, nil
}

// Derive returns a 32-byte key for the classification and version.
func (d *PBKDF2Deriver) Derive(
	secret []byte,
	classification cryptoDomain.Classification,
	version uint,
) ([]byte, error) {
	if !classification.Keyed() {
		return nil, cryptoDomain.ErrUnkeyedClassification
	}
	if version == 0 {
		return nil, cryptoDomain.ErrKeyVersionNotFound
	}
	if len(secret) == 0 {
		return nil, cryptoDomain.ErrSecretUnavailable
	}

	return pbkdf2.Key(secret, d.Salt(classification, version), d.iterations, cryptoDomain.KeySize, sha256.New), nil
}

// Salt returns the salt used for a classification and version.
func (d *PBKDF2Deriver) Salt(classification cryptoDomain.Classification, version uint) []byte {
	name := classification.String()
	salt := make([]byte, 0, len(d.salt)+len(name)+10)
	salt = append(salt, d.salt...)
	salt = append(salt, '|')
	salt = append(salt, name...)
	salt = append(salt, '|')
	return binary.BigEndian.AppendUint64(salt, uint64(version))
}

// Iterations returns the configured work factor.
func (d *PBKDF2Deriver) Iterations() int {
	return d.iterations
}
