// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	customValidation "github.com/allisson/fleetvault/internal/validation"
)

// EncryptRequest contains the parameters for sealing a single value.
type EncryptRequest struct {
	Classification string `json:"classification"`
	Plaintext      string `json:"plaintext"` // Base64-encoded plaintext
	AAD            string `json:"aad"`       // Optional base64-encoded associated data
}

// Validate checks if the encrypt request is valid.
func (r *EncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Classification,
			validation.Required,
			customValidation.NotBlank,
			customValidation.KeyedClassification,
		),
		validation.Field(&r.Plaintext,
			validation.Required,
			customValidation.Base64MaxDecoded(cryptoDomain.MaxPlaintextSize),
		),
		validation.Field(&r.AAD, customValidation.Base64),
	)
}

// ParsedClassification returns the validated classification.
func (r *EncryptRequest) ParsedClassification() cryptoDomain.Classification {
	c, _ := cryptoDomain.ParseClassification(r.Classification)
	return c
}

// DecodePlaintext returns the raw plaintext bytes.
func (r *EncryptRequest) DecodePlaintext() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Plaintext)
}

// DecodeAAD returns the raw associated data, nil when absent.
func (r *EncryptRequest) DecodeAAD() ([]byte, error) {
	return decodeOptional(r.AAD)
}

// DecryptRequest carries an envelope produced by the encrypt endpoint.
type DecryptRequest struct {
	Envelope json.RawMessage `json:"envelope"`
	AAD      string          `json:"aad"`
}

// Validate checks if the decrypt request is valid. The envelope itself is checked
// when it is decoded.
func (r *DecryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Envelope, validation.Required),
		validation.Field(&r.AAD, customValidation.Base64),
	)
}

// DecodeEnvelope parses the envelope. Malformed envelopes fail with ErrSerializationFailure.
func (r *DecryptRequest) DecodeEnvelope() (*cryptoDomain.EncryptedEnvelope, error) {
	var envelope cryptoDomain.EncryptedEnvelope
	if err := json.Unmarshal(r.Envelope, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// DecodeAAD returns the raw associated data, nil when absent.
func (r *DecryptRequest) DecodeAAD() ([]byte, error) {
	return decodeOptional(r.AAD)
}

// ObjectRequest carries a structured record whose classified fields are sealed or opened.
type ObjectRequest struct {
	Classification string         `json:"classification"`
	Object         map[string]any `json:"object"`
}

// Validate checks if the object request is valid.
func (r *ObjectRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Classification,
			validation.Required,
			customValidation.NotBlank,
			customValidation.Classification,
		),
		validation.Field(&r.Object, validation.NotNil),
	)
}

// ParsedClassification returns the validated classification.
func (r *ObjectRequest) ParsedClassification() cryptoDomain.Classification {
	c, _ := cryptoDomain.ParseClassification(r.Classification)
	return c
}

// RotateKeysRequest selects the classification to rotate. Empty rotates every keyed
// classification.
type RotateKeysRequest struct {
	Classification string `json:"classification"`
}

// Validate checks if the rotate request is valid.
func (r *RotateKeysRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Classification, customValidation.KeyedClassification),
	)
}

// ParseKeyedClassification parses a classification from a path parameter.
func ParseKeyedClassification(s string) (cryptoDomain.Classification, error) {
	c, err := cryptoDomain.ParseClassification(s)
	if err != nil {
		return c, err
	}
	if !c.Keyed() {
		return c, fmt.Errorf("%w: %s", cryptoDomain.ErrUnkeyedClassification, c)
	}
	return c, nil
}

func decodeOptional(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
