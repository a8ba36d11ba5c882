package service

import (
	"encoding/binary"
	"fmt"
	"time"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// envelopeAADPrefix versions the associated-data layout.
const envelopeAADPrefix = "fleetvault/envelope/v1"

// cipherEngine implements CipherEngine on top of an AEADManager.
type cipherEngine struct {
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
	now         func() time.Time
}

// NewCipherEngine creates a CipherEngine that seals new envelopes with algorithm.
// Decryption always follows the algorithm recorded in the envelope.
func NewCipherEngine(aeadManager AEADManager, algorithm cryptoDomain.Algorithm) (CipherEngine, error) {
	if _, err := cryptoDomain.ParseAlgorithm(string(algorithm)); err != nil {
		return nil, err
	}
	return &cipherEngine{
		aeadManager: aeadManager,
		algorithm:   algorithm,
		now:         time.Now,
	}, nil
}

// Encrypt seals plaintext under key with a fresh random IV.
func (c *cipherEngine) Encrypt(
	key *cryptoDomain.KeyMaterial,
	plaintext, aad []byte,
) (*cryptoDomain.EncryptedEnvelope, error) {
	if key == nil || !key.Classification.Keyed() {
		return nil, cryptoDomain.ErrUnkeyedClassification
	}

	aead, err := c.aeadManager.CreateCipher(key.Key, c.algorithm)
	if err != nil {
		return nil, err
	}

	ciphertext, iv, err := aead.Encrypt(plaintext, boundAAD(key.Classification, key.Version, c.algorithm, aad))
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.EncryptedEnvelope{
		Ciphertext:     ciphertext,
		IV:             iv,
		KeyVersion:     key.Version,
		Classification: key.Classification,
		Algorithm:      c.algorithm,
		EncryptedAt:    c.now().UTC(),
	}, nil
}

// Decrypt opens an envelope with key. A structurally invalid envelope yields
// ErrSerializationFailure; any authentication problem yields ErrAuthenticationFailure.
func (c *cipherEngine) Decrypt(
	envelope *cryptoDomain.EncryptedEnvelope,
	key *cryptoDomain.KeyMaterial,
	aad []byte,
) ([]byte, error) {
	if envelope == nil {
		return nil, fmt.Errorf("%w: nil envelope", cryptoDomain.ErrSerializationFailure)
	}
	if err := envelope.Validate(); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, cryptoDomain.ErrAuthenticationFailure
	}

	aead, err := c.aeadManager.CreateCipher(key.Key, envelope.Algorithm)
	if err != nil {
		return nil, err
	}

	// The header recorded in the envelope is authenticated, so a key of another
	// classification or version fails the tag check just like a corrupted ciphertext.
	return aead.Decrypt(
		envelope.Ciphertext,
		envelope.IV,
		boundAAD(envelope.Classification, envelope.KeyVersion, envelope.Algorithm, aad),
	)
}

// boundAAD prefixes the caller AAD with the envelope header so that none of
// classification, version or algorithm can be swapped without detection.
func boundAAD(c cryptoDomain.Classification, version uint, alg cryptoDomain.Algorithm, aad []byte) []byte {
	buf := make([]byte, 0, len(envelopeAADPrefix)+len(alg)+len(aad)+32)
	buf = appendLengthPrefixed(buf, []byte(envelopeAADPrefix))
	buf = appendLengthPrefixed(buf, []byte(c.String()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(version))
	buf = appendLengthPrefixed(buf, []byte(alg))
	buf = appendLengthPrefixed(buf, aad)
	return buf
}

// appendLengthPrefixed appends a 4-byte big-endian length followed by data.
func appendLengthPrefixed(buf, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}
