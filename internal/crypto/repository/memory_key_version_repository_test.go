package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

func TestMemoryKeyVersionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryKeyVersionRepository()
	now := time.Now().UTC()

	v1 := &cryptoDomain.KeyVersion{
		Classification: cryptoDomain.Confidential,
		Version:        1,
		State:          cryptoDomain.KeyStateActive,
		CreatedAt:      now,
	}
	require.NoError(t, repo.Create(ctx, v1))

	t.Run("Error_DuplicateVersion", func(t *testing.T) {
		err := repo.Create(ctx, v1)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Error_SecondActiveVersion", func(t *testing.T) {
		err := repo.Create(ctx, &cryptoDomain.KeyVersion{
			Classification: cryptoDomain.Confidential,
			Version:        2,
			State:          cryptoDomain.KeyStateActive,
		})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Success_StoredCopyIsIsolated", func(t *testing.T) {
		got, err := repo.Get(ctx, cryptoDomain.Confidential, 1)
		require.NoError(t, err)
		got.State = cryptoDomain.KeyStateDestroyed

		again, err := repo.Get(ctx, cryptoDomain.Confidential, 1)
		require.NoError(t, err)
		assert.Equal(t, cryptoDomain.KeyStateActive, again.State)
	})

	t.Run("Success_RotateAndList", func(t *testing.T) {
		require.NoError(t, v1.Retire(now))
		require.NoError(t, repo.Update(ctx, v1))
		require.NoError(t, repo.Create(ctx, &cryptoDomain.KeyVersion{
			Classification: cryptoDomain.Confidential,
			Version:        2,
			State:          cryptoDomain.KeyStateActive,
		}))

		active, err := repo.GetActive(ctx, cryptoDomain.Confidential)
		require.NoError(t, err)
		assert.Equal(t, uint(2), active.Version)

		versions, err := repo.List(ctx, cryptoDomain.Confidential)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, uint(2), versions[0].Version)
		assert.Equal(t, uint(1), versions[1].Version)
	})

	t.Run("Error_Missing", func(t *testing.T) {
		_, err := repo.Get(ctx, cryptoDomain.Restricted, 1)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)

		_, err = repo.GetActive(ctx, cryptoDomain.Restricted)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)

		err = repo.Update(ctx, &cryptoDomain.KeyVersion{Classification: cryptoDomain.Restricted, Version: 1})
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)
	})
}
