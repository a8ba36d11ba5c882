package service

import (
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

type aeadFactory func(key []byte) (AEAD, error)

// AEADManagerService builds AEAD instances by the algorithm name recorded in an envelope.
type AEADManagerService struct {
	factories map[cryptoDomain.Algorithm]aeadFactory
}

// NewAEADManager registers AES-256-GCM and ChaCha20-Poly1305.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{
		factories: map[cryptoDomain.Algorithm]aeadFactory{
			cryptoDomain.AESGCM:   NewAESGCM,
			cryptoDomain.ChaCha20: NewChaCha20Poly1305,
		},
	}
}

// CreateCipher returns ErrInvalidKeySize unless key is KeySize bytes, and
// ErrUnsupportedAlgorithm for names that were never registered.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	factory, ok := am.factories[alg]
	if !ok {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
	return factory(key)
}
