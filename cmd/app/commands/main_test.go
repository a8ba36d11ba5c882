package commands

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditRepository "github.com/allisson/fleetvault/internal/audit/repository"
	auditService "github.com/allisson/fleetvault/internal/audit/service"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestChain(t *testing.T) auditUseCase.AuditChain {
	t.Helper()
	chain, _ := newTestLedger(t)
	return chain
}

// newTestLedger returns a loaded in-memory chain together with its store.
func newTestLedger(t *testing.T) (auditUseCase.AuditChain, *auditRepository.MemoryEventRepository) {
	t.Helper()
	repo := auditRepository.NewMemoryEventRepository()
	chain := auditUseCase.NewAuditChain(repo, auditService.NewSHA256Hasher(), discardLogger())
	require.NoError(t, chain.Load(context.Background()))
	return chain, repo
}

func eventsOfType(t *testing.T, chain auditUseCase.AuditChain, eventType auditDomain.EventType) []*auditDomain.AuditEvent {
	t.Helper()
	events, err := chain.GetEventsByType(context.Background(), eventType)
	require.NoError(t, err)
	return events
}

type mockKeyManager struct {
	mock.Mock
}

func (m *mockKeyManager) DeriveKey(
	ctx context.Context,
	classification cryptoDomain.Classification,
	version uint,
) (*cryptoDomain.KeyMaterial, error) {
	args := m.Called(ctx, classification, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.KeyMaterial), args.Error(1)
}

func (m *mockKeyManager) ActiveVersion(ctx context.Context, classification cryptoDomain.Classification) (uint, error) {
	args := m.Called(ctx, classification)
	return args.Get(0).(uint), args.Error(1)
}

func (m *mockKeyManager) Rotate(
	ctx context.Context,
	classification cryptoDomain.Classification,
) (*cryptoDomain.KeyVersion, error) {
	args := m.Called(ctx, classification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.KeyVersion), args.Error(1)
}

func (m *mockKeyManager) RotateAll(ctx context.Context) (map[cryptoDomain.Classification]*cryptoDomain.KeyVersion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[cryptoDomain.Classification]*cryptoDomain.KeyVersion), args.Error(1)
}

func (m *mockKeyManager) Purge(ctx context.Context, classification cryptoDomain.Classification, version uint) error {
	args := m.Called(ctx, classification, version)
	return args.Error(0)
}

func (m *mockKeyManager) ListVersions(
	ctx context.Context,
	classification cryptoDomain.Classification,
) ([]*cryptoDomain.KeyVersion, error) {
	args := m.Called(ctx, classification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.KeyVersion), args.Error(1)
}

func (m *mockKeyManager) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockChainVerifier struct {
	mock.Mock
}

func (m *mockChainVerifier) VerifyChain(ctx context.Context) (*auditUseCase.VerificationReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditUseCase.VerificationReport), args.Error(1)
}

func (m *mockChainVerifier) DetectTamper(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
