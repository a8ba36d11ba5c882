package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

func TestMapDecryptResponse(t *testing.T) {
	assert.Equal(t, DecryptResponse{Plaintext: "c2VjcmV0"}, MapDecryptResponse([]byte("secret")))
}

func TestMapKeyStatusResponse(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	retired := created.Add(time.Hour)
	versions := []*cryptoDomain.KeyVersion{
		{Classification: cryptoDomain.Restricted, Version: 2, State: cryptoDomain.KeyStateActive, CreatedAt: retired},
		{
			Classification: cryptoDomain.Restricted,
			Version:        1,
			State:          cryptoDomain.KeyStateRetired,
			CreatedAt:      created,
			RetiredAt:      &retired,
		},
	}

	resp := MapKeyStatusResponse(cryptoDomain.Restricted, versions)

	assert.Equal(t, "RESTRICTED", resp.Classification)
	assert.Equal(t, uint(2), resp.ActiveVersion)
	require.Len(t, resp.Versions, 2)
	assert.Equal(t, "retired", resp.Versions[1].State)
	assert.Equal(t, &retired, resp.Versions[1].RetiredAt)
}

func TestMapKeyStatusResponse_NoVersions(t *testing.T) {
	resp := MapKeyStatusResponse(cryptoDomain.Internal, nil)
	assert.Equal(t, uint(0), resp.ActiveVersion)
	assert.NotNil(t, resp.Versions)
	assert.Empty(t, resp.Versions)
}

func TestMapRotateKeysResponse(t *testing.T) {
	rotated := map[cryptoDomain.Classification]*cryptoDomain.KeyVersion{
		cryptoDomain.Restricted:   {Classification: cryptoDomain.Restricted, Version: 3, State: cryptoDomain.KeyStateActive},
		cryptoDomain.Internal:     {Classification: cryptoDomain.Internal, Version: 2, State: cryptoDomain.KeyStateActive},
		cryptoDomain.Confidential: {Classification: cryptoDomain.Confidential, Version: 5, State: cryptoDomain.KeyStateActive},
	}

	resp := MapRotateKeysResponse(rotated)

	require.Len(t, resp.Data, 3)
	assert.Equal(t, "INTERNAL", resp.Data[0].Classification)
	assert.Equal(t, "CONFIDENTIAL", resp.Data[1].Classification)
	assert.Equal(t, "RESTRICTED", resp.Data[2].Classification)
	assert.Equal(t, uint(3), resp.Data[2].Version)
}
