package usecase

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/allisson/fleetvault/internal/classification"
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	cryptoService "github.com/allisson/fleetvault/internal/crypto/service"
)

// FieldClassifier resolves the selectors of a classification.
type FieldClassifier interface {
	Fields(c cryptoDomain.Classification) []classification.FieldPath
}

// objectTransformer implements ObjectTransformer.
type objectTransformer struct {
	keys       KeyManager
	engine     cryptoService.CipherEngine
	classifier FieldClassifier
}

// NewObjectTransformer creates an ObjectTransformer.
func NewObjectTransformer(
	keys KeyManager,
	engine cryptoService.CipherEngine,
	classifier FieldClassifier,
) ObjectTransformer {
	return &objectTransformer{keys: keys, engine: engine, classifier: classifier}
}

// leafFunc transforms the value found at a concrete dot path.
type leafFunc func(path string, v any) (any, error)

func (o *objectTransformer) EncryptObject(
	ctx context.Context,
	obj map[string]any,
	c cryptoDomain.Classification,
) (map[string]any, error) {
	if !c.Valid() {
		return nil, cryptoDomain.ErrInvalidClassification
	}
	out := deepCopy(obj)
	fields := o.classifier.Fields(c)
	if out == nil || len(fields) == 0 {
		return out, nil
	}

	key, err := o.keys.DeriveKey(ctx, c, 0)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key.Key)

	seal := func(path string, v any) (any, error) {
		// Only a well-formed envelope is left as is. Anything that merely resembles
		// one fails rather than passing through in plaintext.
		if envelope, ok, err := cryptoDomain.EnvelopeFromValue(v); ok || err != nil {
			if err == nil {
				err = envelope.Validate()
			}
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", path, err)
			}
			return v, nil
		}
		plaintext, err := encodePayload(v)
		if err != nil {
			return nil, err
		}
		return o.engine.Encrypt(key, plaintext, []byte(path))
	}

	for _, field := range fields {
		if err := walk(out, field.Segments(), nil, seal); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (o *objectTransformer) DecryptObject(
	ctx context.Context,
	obj map[string]any,
	c cryptoDomain.Classification,
) (map[string]any, error) {
	if !c.Valid() {
		return nil, cryptoDomain.ErrInvalidClassification
	}
	out := deepCopy(obj)
	fields := o.classifier.Fields(c)
	if out == nil || len(fields) == 0 {
		return out, nil
	}

	keys := make(map[uint]*cryptoDomain.KeyMaterial)
	defer func() {
		for _, key := range keys {
			cryptoDomain.Zero(key.Key)
		}
	}()
	open := func(path string, v any) (any, error) {
		envelope, ok, err := cryptoDomain.EnvelopeFromValue(v)
		if err != nil {
			return nil, err
		}
		if !ok {
			return v, nil
		}
		if envelope.Classification != c {
			return nil, cryptoDomain.ErrAuthenticationFailure
		}

		key, ok := keys[envelope.KeyVersion]
		if !ok {
			if key, err = o.keys.DeriveKey(ctx, c, envelope.KeyVersion); err != nil {
				return nil, err
			}
			keys[envelope.KeyVersion] = key
		}

		plaintext, err := o.engine.Decrypt(envelope, key, []byte(path))
		if err != nil {
			return nil, err
		}
		return decodePayload(plaintext)
	}

	for _, field := range fields {
		if err := walk(out, field.Segments(), nil, open); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (o *objectTransformer) EncryptValue(
	ctx context.Context,
	c cryptoDomain.Classification,
	plaintext, aad []byte,
) (*cryptoDomain.EncryptedEnvelope, error) {
	key, err := o.keys.DeriveKey(ctx, c, 0)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key.Key)
	return o.engine.Encrypt(key, plaintext, aad)
}

func (o *objectTransformer) DecryptValue(
	ctx context.Context,
	envelope *cryptoDomain.EncryptedEnvelope,
	aad []byte,
) ([]byte, error) {
	if envelope == nil {
		return nil, cryptoDomain.ErrSerializationFailure
	}
	if err := envelope.Validate(); err != nil {
		return nil, err
	}
	key, err := o.keys.DeriveKey(ctx, envelope.Classification, envelope.KeyVersion)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key.Key)
	return o.engine.Decrypt(envelope, key, aad)
}

// walk applies fn to every non-nil value addressed by segs below node. Arrays on the
// way fan out to each element, and the element index joins the path handed to fn so
// envelopes stay bound to their position; absent members are skipped.
func walk(node any, segs, prefix []string, fn leafFunc) error {
	switch n := node.(type) {
	case map[string]any:
		names := []string{segs[0]}
		if segs[0] == classification.Wildcard {
			names = slices.Sorted(maps.Keys(n))
		}
		for _, name := range names {
			v, ok := n[name]
			if !ok {
				continue
			}
			path := append(slices.Clip(prefix), name)
			if len(segs) > 1 {
				if err := walk(v, segs[1:], path, fn); err != nil {
					return err
				}
				continue
			}
			if v == nil {
				continue
			}
			nv, err := fn(strings.Join(path, "."), v)
			if err != nil {
				return err
			}
			n[name] = nv
		}
	case []any:
		for i, elem := range n {
			if err := walk(elem, segs, append(slices.Clip(prefix), strconv.Itoa(i)), fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// deepCopy clones the maps and slices of a decoded object graph. Envelopes are
// cloned; other leaves are immutable values and shared.
func deepCopy(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	return copyValue(obj).(map[string]any)
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []byte:
		return slices.Clone(t)
	case *cryptoDomain.EncryptedEnvelope:
		if t == nil {
			return t
		}
		return t.Clone()
	default:
		return t
	}
}
