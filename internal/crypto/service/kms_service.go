package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService opens KMS keepers and wraps classification secrets for storage in
// configuration.
type KMSService interface {
	// OpenKeeper opens a keeper for the KMS provider named by keyURI.
	// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)

	// WrapSecret encrypts secret with keeper and formats it as a
	// CLASSIFICATION_SECRETS entry.
	WrapSecret(
		ctx context.Context,
		keeper cryptoDomain.KMSKeeper,
		classification cryptoDomain.Classification,
		secret []byte,
	) (string, error)
}

type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

func (k *kmsService) WrapSecret(
	ctx context.Context,
	keeper cryptoDomain.KMSKeeper,
	classification cryptoDomain.Classification,
	secret []byte,
) (string, error) {
	if !classification.Keyed() {
		return "", cryptoDomain.ErrUnkeyedClassification
	}
	wrapped, err := keeper.Encrypt(ctx, secret)
	if err != nil {
		return "", fmt.Errorf("failed to wrap %s secret: %w", classification, err)
	}
	return classification.String() + ":" + base64.StdEncoding.EncodeToString(wrapped), nil
}
