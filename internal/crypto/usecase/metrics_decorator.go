package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	"github.com/allisson/fleetvault/internal/metrics"
)

func metricStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// keyManagerWithMetrics decorates KeyManager with metrics instrumentation.
type keyManagerWithMetrics struct {
	next     KeyManager
	metrics  metrics.BusinessMetrics
	security metrics.SecurityMetrics
}

// NewKeyManagerWithMetrics wraps a KeyManager with metrics recording. Cache hits on
// DeriveKey are too frequent to be worth a histogram sample and are not recorded.
func NewKeyManagerWithMetrics(
	keyManager KeyManager,
	m metrics.BusinessMetrics,
	s metrics.SecurityMetrics,
) KeyManager {
	return &keyManagerWithMetrics{next: keyManager, metrics: m, security: s}
}

func (k *keyManagerWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metricStatus(err)
	k.metrics.RecordOperation(ctx, "keys", operation, status)
	k.metrics.RecordDuration(ctx, "keys", operation, time.Since(start), status)
}

func (k *keyManagerWithMetrics) DeriveKey(
	ctx context.Context,
	classification cryptoDomain.Classification,
	version uint,
) (*cryptoDomain.KeyMaterial, error) {
	key, err := k.next.DeriveKey(ctx, classification, version)
	if err != nil {
		k.metrics.RecordOperation(ctx, "keys", "derive", "error")
	}
	return key, err
}

func (k *keyManagerWithMetrics) ActiveVersion(
	ctx context.Context,
	classification cryptoDomain.Classification,
) (uint, error) {
	return k.next.ActiveVersion(ctx, classification)
}

func (k *keyManagerWithMetrics) Rotate(
	ctx context.Context,
	classification cryptoDomain.Classification,
) (*cryptoDomain.KeyVersion, error) {
	start := time.Now()
	version, err := k.next.Rotate(ctx, classification)
	k.record(ctx, "rotate", start, err)
	if err == nil {
		k.security.RecordKeyVersion(ctx, classification.String(), int64(version.Version))
	}
	return version, err
}

func (k *keyManagerWithMetrics) RotateAll(
	ctx context.Context,
) (map[cryptoDomain.Classification]*cryptoDomain.KeyVersion, error) {
	start := time.Now()
	versions, err := k.next.RotateAll(ctx)
	k.record(ctx, "rotate_all", start, err)
	for c, v := range versions {
		k.security.RecordKeyVersion(ctx, c.String(), int64(v.Version))
	}
	return versions, err
}

func (k *keyManagerWithMetrics) Purge(
	ctx context.Context,
	classification cryptoDomain.Classification,
	version uint,
) error {
	start := time.Now()
	err := k.next.Purge(ctx, classification, version)
	k.record(ctx, "purge", start, err)
	return err
}

func (k *keyManagerWithMetrics) ListVersions(
	ctx context.Context,
	classification cryptoDomain.Classification,
) ([]*cryptoDomain.KeyVersion, error) {
	return k.next.ListVersions(ctx, classification)
}

func (k *keyManagerWithMetrics) Close() error {
	return k.next.Close()
}

// objectTransformerWithMetrics decorates ObjectTransformer with metrics instrumentation.
type objectTransformerWithMetrics struct {
	next    ObjectTransformer
	metrics metrics.BusinessMetrics
}

// NewObjectTransformerWithMetrics wraps an ObjectTransformer with metrics recording.
func NewObjectTransformerWithMetrics(transformer ObjectTransformer, m metrics.BusinessMetrics) ObjectTransformer {
	return &objectTransformerWithMetrics{next: transformer, metrics: m}
}

func (o *objectTransformerWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metricStatus(err)
	o.metrics.RecordOperation(ctx, "crypto", operation, status)
	o.metrics.RecordDuration(ctx, "crypto", operation, time.Since(start), status)
}

func (o *objectTransformerWithMetrics) EncryptObject(
	ctx context.Context,
	obj map[string]any,
	classification cryptoDomain.Classification,
) (map[string]any, error) {
	start := time.Now()
	out, err := o.next.EncryptObject(ctx, obj, classification)
	o.record(ctx, "encrypt_object", start, err)
	return out, err
}

func (o *objectTransformerWithMetrics) DecryptObject(
	ctx context.Context,
	obj map[string]any,
	classification cryptoDomain.Classification,
) (map[string]any, error) {
	start := time.Now()
	out, err := o.next.DecryptObject(ctx, obj, classification)
	o.record(ctx, "decrypt_object", start, err)
	return out, err
}

func (o *objectTransformerWithMetrics) EncryptValue(
	ctx context.Context,
	classification cryptoDomain.Classification,
	plaintext, aad []byte,
) (*cryptoDomain.EncryptedEnvelope, error) {
	start := time.Now()
	envelope, err := o.next.EncryptValue(ctx, classification, plaintext, aad)
	o.record(ctx, "encrypt", start, err)
	return envelope, err
}

func (o *objectTransformerWithMetrics) DecryptValue(
	ctx context.Context,
	envelope *cryptoDomain.EncryptedEnvelope,
	aad []byte,
) ([]byte, error) {
	start := time.Now()
	plaintext, err := o.next.DecryptValue(ctx, envelope, aad)
	o.record(ctx, "decrypt", start, err)
	return plaintext, err
}
