package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	cryptoService "github.com/allisson/fleetvault/internal/crypto/service"
)

// RunCreateSecret generates a 32-byte master secret for one classification and prints it
// as a CLASSIFICATION_SECRETS entry. With kmsKeyURI set the secret is wrapped by the KMS
// keeper first and the matching KMS_KEY_URI line is printed too. The raw secret is zeroed
// before returning.
func RunCreateSecret(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	writer io.Writer,
	classificationName string,
	kmsKeyURI string,
) error {
	classification, err := parseKeyedClassification(classificationName)
	if err != nil {
		return err
	}

	secret := make([]byte, cryptoDomain.MinSecretSize)
	defer cryptoDomain.Zero(secret)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}

	if kmsKeyURI == "" {
		_, _ = fmt.Fprintln(writer, "# Plaintext secret: keep it in a secrets manager, never in source control")
		_, _ = fmt.Fprintf(writer, "CLASSIFICATION_SECRETS=\"%s:%s\"\n",
			classification, base64.StdEncoding.EncodeToString(secret))
		return nil
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return err
	}
	defer func() { _ = keeper.Close() }()

	entry, err := kmsService.WrapSecret(ctx, keeper, classification, secret)
	if err != nil {
		return fmt.Errorf("failed to wrap secret: %w", err)
	}

	_, _ = fmt.Fprintln(writer, "# KMS-wrapped secret")
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "CLASSIFICATION_SECRETS=\"%s\"\n", entry)
	_, _ = fmt.Fprintln(writer, "# Join entries for several classifications with commas.")
	return nil
}
