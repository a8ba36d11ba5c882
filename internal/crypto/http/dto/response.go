package dto

import (
	"encoding/base64"
	"slices"
	"time"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// DecryptResponse contains the opened plaintext.
// SECURITY: The Plaintext field contains sensitive data and should be transmitted over HTTPS.
type DecryptResponse struct {
	Plaintext string `json:"plaintext"` // Base64-encoded
}

// MapDecryptResponse encodes plaintext for the response body.
func MapDecryptResponse(plaintext []byte) DecryptResponse {
	return DecryptResponse{Plaintext: base64.StdEncoding.EncodeToString(plaintext)}
}

// ObjectResponse wraps a transformed record.
type ObjectResponse struct {
	Object map[string]any `json:"object"`
}

// KeyVersionResponse represents a key version lifecycle record. Key bytes are never exposed.
type KeyVersionResponse struct {
	Classification string     `json:"classification"`
	Version        uint       `json:"version"`
	State          string     `json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	RetiredAt      *time.Time `json:"retired_at,omitempty"`
	DestroyedAt    *time.Time `json:"destroyed_at,omitempty"`
}

// MapKeyVersionToResponse converts a domain key version to an API response.
func MapKeyVersionToResponse(v *cryptoDomain.KeyVersion) KeyVersionResponse {
	return KeyVersionResponse{
		Classification: v.Classification.String(),
		Version:        v.Version,
		State:          string(v.State),
		CreatedAt:      v.CreatedAt,
		RetiredAt:      v.RetiredAt,
		DestroyedAt:    v.DestroyedAt,
	}
}

// RotateKeysResponse lists the versions activated by a rotation, ordered by classification.
type RotateKeysResponse struct {
	Data []KeyVersionResponse `json:"data"`
}

// MapRotateKeysResponse converts rotation results to an API response.
func MapRotateKeysResponse(rotated map[cryptoDomain.Classification]*cryptoDomain.KeyVersion) RotateKeysResponse {
	keys := make([]cryptoDomain.Classification, 0, len(rotated))
	for c := range rotated {
		keys = append(keys, c)
	}
	slices.Sort(keys)

	data := make([]KeyVersionResponse, 0, len(keys))
	for _, c := range keys {
		data = append(data, MapKeyVersionToResponse(rotated[c]))
	}
	return RotateKeysResponse{Data: data}
}

// KeyStatusResponse describes the key versions of one classification.
type KeyStatusResponse struct {
	Classification string               `json:"classification"`
	ActiveVersion  uint                 `json:"active_version"` // 0 until the first key is created
	Versions       []KeyVersionResponse `json:"versions"`
}

// MapKeyStatusResponse builds the status view from the version list (newest first).
func MapKeyStatusResponse(
	classification cryptoDomain.Classification,
	versions []*cryptoDomain.KeyVersion,
) KeyStatusResponse {
	resp := KeyStatusResponse{
		Classification: classification.String(),
		Versions:       make([]KeyVersionResponse, 0, len(versions)),
	}
	for _, v := range versions {
		if v.State == cryptoDomain.KeyStateActive {
			resp.ActiveVersion = v.Version
		}
		resp.Versions = append(resp.Versions, MapKeyVersionToResponse(v))
	}
	return resp
}
