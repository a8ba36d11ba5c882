package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EncryptedEnvelope carries a ciphertext together with everything needed to decrypt it
// apart from the key itself. The IV is freshly generated for every envelope.
type EncryptedEnvelope struct {
	Ciphertext     []byte         // AEAD output, authentication tag appended
	IV             []byte         // 12-byte nonce
	KeyVersion     uint           // Version of the classification key used
	Classification Classification // Classification whose key sealed this envelope
	Algorithm      Algorithm
	EncryptedAt    time.Time
}

// envelopeJSON is the wire shape of an envelope.
type envelopeJSON struct {
	Ciphertext     string    `json:"ciphertext"`
	IV             string    `json:"iv"`
	KeyVersion     string    `json:"keyVersion"`
	Algorithm      string    `json:"algorithm"`
	Classification string    `json:"classification"`
	EncryptedAt    time.Time `json:"encryptedAt"`
}

// Validate checks the structural invariants of an envelope without touching any key.
func (e *EncryptedEnvelope) Validate() error {
	if _, err := ParseAlgorithm(string(e.Algorithm)); err != nil {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrSerializationFailure, e.Algorithm)
	}
	if len(e.IV) != NonceSize {
		return fmt.Errorf("%w: iv must be %d bytes, got %d", ErrSerializationFailure, NonceSize, len(e.IV))
	}
	if e.KeyVersion == 0 {
		return fmt.Errorf("%w: missing key version", ErrSerializationFailure)
	}
	if !e.Classification.Keyed() {
		return fmt.Errorf("%w: classification %s cannot carry an envelope", ErrSerializationFailure, e.Classification)
	}
	return nil
}

// Clone returns a deep copy of the envelope.
func (e *EncryptedEnvelope) Clone() *EncryptedEnvelope {
	c := *e
	c.Ciphertext = append([]byte(nil), e.Ciphertext...)
	c.IV = append([]byte(nil), e.IV...)
	return &c
}

// MarshalJSON encodes the envelope with base64 binary fields and a string key version.
func (e EncryptedEnvelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON{
		Ciphertext:     base64.StdEncoding.EncodeToString(e.Ciphertext),
		IV:             base64.StdEncoding.EncodeToString(e.IV),
		KeyVersion:     strconv.FormatUint(uint64(e.KeyVersion), 10),
		Algorithm:      string(e.Algorithm),
		Classification: e.Classification.String(),
		EncryptedAt:    e.EncryptedAt.UTC(),
	})
}

// UnmarshalJSON decodes and validates the wire shape. Any malformation is reported as
// ErrSerializationFailure.
func (e *EncryptedEnvelope) UnmarshalJSON(data []byte) error {
	var raw envelopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailure, err)
	}
	env, err := raw.decode()
	if err != nil {
		return err
	}
	*e = *env
	return nil
}

func (raw envelopeJSON) decode() (*EncryptedEnvelope, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(raw.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ciphertext encoding: %v", ErrSerializationFailure, err)
	}
	iv, err := base64.StdEncoding.DecodeString(raw.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid iv encoding: %v", ErrSerializationFailure, err)
	}
	version, err := strconv.ParseUint(raw.KeyVersion, 10, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid key version %q", ErrSerializationFailure, raw.KeyVersion)
	}
	classification, err := ParseClassification(raw.Classification)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailure, err)
	}

	env := &EncryptedEnvelope{
		Ciphertext:     ciphertext,
		IV:             iv,
		KeyVersion:     uint(version),
		Classification: classification,
		Algorithm:      Algorithm(raw.Algorithm),
		EncryptedAt:    raw.EncryptedAt,
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// envelopeKeys are the members that identify a decoded JSON object as an envelope.
var envelopeKeys = []string{"ciphertext", "iv", "keyVersion", "algorithm"}

// envelopeMembers is every member of the wire shape. A map carrying the identifying
// keys plus anything else is malformed, not an envelope with extras.
var envelopeMembers = map[string]struct{}{
	"ciphertext": {}, "iv": {}, "keyVersion": {}, "algorithm": {}, "classification": {}, "encryptedAt": {},
}

// EnvelopeFromValue recognises an envelope in any of the forms it takes inside an
// object graph: a pointer, a value, or the generic map produced by decoding JSON.
// The boolean is false when v is not an envelope at all.
func EnvelopeFromValue(v any) (*EncryptedEnvelope, bool, error) {
	switch t := v.(type) {
	case *EncryptedEnvelope:
		if t == nil {
			return nil, false, nil
		}
		return t, true, nil
	case EncryptedEnvelope:
		return &t, true, nil
	case map[string]any:
		for _, k := range envelopeKeys {
			if _, ok := t[k]; !ok {
				return nil, false, nil
			}
		}
		for k := range t {
			if _, ok := envelopeMembers[k]; !ok {
				return nil, true, fmt.Errorf("%w: unexpected envelope member %q", ErrSerializationFailure, k)
			}
		}
		data, err := json.Marshal(t)
		if err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrSerializationFailure, err)
		}
		var env EncryptedEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, true, err
		}
		return &env, true, nil
	default:
		return nil, false, nil
	}
}
