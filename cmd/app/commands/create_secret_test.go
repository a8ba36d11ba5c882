package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	cryptoService "github.com/allisson/fleetvault/internal/crypto/service"
)

var secretsLine = regexp.MustCompile(`CLASSIFICATION_SECRETS="([^"]+)"`)

func localKeyURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

func TestRunCreateSecret(t *testing.T) {
	ctx := context.Background()
	kms := cryptoService.NewKMSService()

	t.Run("Success_Plaintext", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunCreateSecret(ctx, kms, &out, "restricted", ""))

		match := secretsLine.FindStringSubmatch(out.String())
		require.Len(t, match, 2)

		provider, err := cryptoService.NewEnvSecretProvider(match[1])
		require.NoError(t, err)
		secret, err := provider.GetSecret(ctx, cryptoDomain.Restricted)
		require.NoError(t, err)
		assert.Len(t, secret, cryptoDomain.MinSecretSize)
	})

	t.Run("Success_KMSWrapped", func(t *testing.T) {
		uri := localKeyURI(t)

		var out bytes.Buffer
		require.NoError(t, RunCreateSecret(ctx, kms, &out, "CONFIDENTIAL", uri))
		assert.Contains(t, out.String(), `KMS_KEY_URI="`+uri+`"`)

		match := secretsLine.FindStringSubmatch(out.String())
		require.Len(t, match, 2)

		keeper, err := kms.OpenKeeper(ctx, uri)
		require.NoError(t, err)
		provider, err := cryptoService.NewKeeperSecretProvider(keeper, match[1])
		require.NoError(t, err)
		defer func() { _ = provider.Close() }()

		secret, err := provider.GetSecret(ctx, cryptoDomain.Confidential)
		require.NoError(t, err)
		assert.Len(t, secret, cryptoDomain.MinSecretSize)
	})

	t.Run("Error_PublicRejected", func(t *testing.T) {
		err := RunCreateSecret(ctx, kms, &bytes.Buffer{}, "PUBLIC", "")
		assert.ErrorIs(t, err, cryptoDomain.ErrUnkeyedClassification)
	})

	t.Run("Error_UnknownClassification", func(t *testing.T) {
		err := RunCreateSecret(ctx, kms, &bytes.Buffer{}, "TOP_SECRET", "")
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidClassification)
	})

	t.Run("Error_BadKMSURI", func(t *testing.T) {
		err := RunCreateSecret(ctx, kms, &bytes.Buffer{}, "INTERNAL", "nosuchscheme://key")
		assert.Error(t, err)
	})
}
