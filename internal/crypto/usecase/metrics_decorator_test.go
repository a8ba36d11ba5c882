package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	"github.com/allisson/fleetvault/internal/metrics"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

type mockSecurityMetrics struct {
	mock.Mock
}

func (m *mockSecurityMetrics) RecordChainLength(ctx context.Context, length int64) {
	m.Called(ctx, length)
}

func (m *mockSecurityMetrics) RecordIntegrityViolation(ctx context.Context, check string) {
	m.Called(ctx, check)
}

func (m *mockSecurityMetrics) RecordKeyVersion(ctx context.Context, classification string, version int64) {
	m.Called(ctx, classification, version)
}

// mockObjectTransformer is a mock implementation of ObjectTransformer for testing.
type mockObjectTransformer struct {
	mock.Mock
}

func (m *mockObjectTransformer) EncryptObject(
	ctx context.Context,
	obj map[string]any,
	c cryptoDomain.Classification,
) (map[string]any, error) {
	args := m.Called(ctx, obj, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *mockObjectTransformer) DecryptObject(
	ctx context.Context,
	obj map[string]any,
	c cryptoDomain.Classification,
) (map[string]any, error) {
	args := m.Called(ctx, obj, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *mockObjectTransformer) EncryptValue(
	ctx context.Context,
	c cryptoDomain.Classification,
	plaintext, aad []byte,
) (*cryptoDomain.EncryptedEnvelope, error) {
	args := m.Called(ctx, c, plaintext, aad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.EncryptedEnvelope), args.Error(1)
}

func (m *mockObjectTransformer) DecryptValue(
	ctx context.Context,
	envelope *cryptoDomain.EncryptedEnvelope,
	aad []byte,
) ([]byte, error) {
	args := m.Called(ctx, envelope, aad)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func TestObjectTransformerWithMetrics(t *testing.T) {
	ctx := context.Background()
	obj := map[string]any{"ssn": "1"}

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		next := &mockObjectTransformer{}
		m := &mockBusinessMetrics{}
		next.On("EncryptObject", ctx, obj, cryptoDomain.Confidential).Return(obj, nil).Once()
		m.On("RecordOperation", ctx, "crypto", "encrypt_object", "success").Return().Once()
		m.On("RecordDuration", ctx, "crypto", "encrypt_object", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		out, err := NewObjectTransformerWithMetrics(next, m).EncryptObject(ctx, obj, cryptoDomain.Confidential)
		require.NoError(t, err)
		assert.Equal(t, obj, out)
		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		next := &mockObjectTransformer{}
		m := &mockBusinessMetrics{}
		next.On("DecryptValue", ctx, (*cryptoDomain.EncryptedEnvelope)(nil), []byte(nil)).
			Return(nil, cryptoDomain.ErrAuthenticationFailure).
			Once()
		m.On("RecordOperation", ctx, "crypto", "decrypt", "error").Return().Once()
		m.On("RecordDuration", ctx, "crypto", "decrypt", mock.AnythingOfType("time.Duration"), "error").
			Return().
			Once()

		_, err := NewObjectTransformerWithMetrics(next, m).DecryptValue(ctx, nil, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailure)
		m.AssertExpectations(t)
	})
}

func TestKeyManagerWithMetrics(t *testing.T) {
	ctx := context.Background()
	f := newKeyManagerFixture(t, testSecrets(t))

	m := &mockBusinessMetrics{}
	s := &mockSecurityMetrics{}
	m.On("RecordOperation", ctx, "keys", "rotate", "success").Return().Once()
	m.On("RecordDuration", ctx, "keys", "rotate", mock.AnythingOfType("time.Duration"), "success").Return().Once()
	s.On("RecordKeyVersion", ctx, "RESTRICTED", int64(1)).Return().Once()

	decorated := NewKeyManagerWithMetrics(f.manager, m, s)
	version, err := decorated.Rotate(ctx, cryptoDomain.Restricted)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version.Version)

	m.On("RecordOperation", ctx, "keys", "derive", "error").Return().Once()
	_, err = decorated.DeriveKey(ctx, cryptoDomain.Restricted, 42)
	assert.ErrorIs(t, err, cryptoDomain.ErrKeyUnavailable)

	m.On("RecordOperation", ctx, "keys", "purge", "error").Return().Once()
	m.On("RecordDuration", ctx, "keys", "purge", mock.AnythingOfType("time.Duration"), "error").Return().Once()
	err = decorated.Purge(ctx, cryptoDomain.Restricted, 1)
	assert.ErrorIs(t, err, cryptoDomain.ErrActiveKeyPurge)

	m.AssertExpectations(t)
	s.AssertExpectations(t)
}
