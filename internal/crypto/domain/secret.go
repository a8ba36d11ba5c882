package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/allisson/fleetvault/internal/errors"
)

// MinSecretSize is the minimum length of a classification master secret.
const MinSecretSize = 32

var (
	// ErrInvalidSecretsFormat indicates a malformed CLASSIFICATION_SECRETS entry.
	ErrInvalidSecretsFormat = errors.Wrap(errors.ErrInvalidInput, "invalid classification secrets format")

	// ErrDuplicateSecret indicates a classification listed twice.
	ErrDuplicateSecret = errors.Wrap(errors.ErrInvalidInput, "duplicate classification secret")
)

// KMSKeeper is the subset of *secrets.Keeper used to wrap and unwrap master secrets.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// ParseClassificationSecrets parses entries in the form
//
//	INTERNAL:base64,CONFIDENTIAL:base64,RESTRICTED:base64
//
// into raw (still possibly KMS-wrapped) secret bytes per classification. PUBLIC entries
// are rejected because PUBLIC data is never encrypted. When minSize is positive every
// decoded value must be at least that long; wrapped secrets pass 0 because their
// ciphertext length says nothing about the plaintext.
func ParseClassificationSecrets(raw string, minSize int) (map[Classification][]byte, error) {
	secrets := make(map[Classification][]byte)
	if strings.TrimSpace(raw) == "" {
		return secrets, nil
	}

	for part := range strings.SplitSeq(raw, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSecretsFormat, part)
		}

		c, err := ParseClassification(p[0])
		if err != nil {
			return nil, err
		}
		if !c.Keyed() {
			return nil, fmt.Errorf("%w: %s", ErrUnkeyedClassification, c)
		}
		if _, exists := secrets[c]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSecret, c)
		}

		value, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSecretsFormat, c, err)
		}
		if minSize > 0 && len(value) < minSize {
			Zero(value)
			return nil, fmt.Errorf(
				"%w: secret for %s must be at least %d bytes, got %d",
				ErrInvalidKeySize,
				c,
				minSize,
				len(value),
			)
		}
		secrets[c] = value
	}

	return secrets, nil
}
