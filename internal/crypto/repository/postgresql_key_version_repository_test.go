package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	"github.com/allisson/fleetvault/internal/database"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

var keyVersionColumns = []string{"classification", "version", "state", "created_at", "retired_at", "destroyed_at"}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestPostgreSQLKeyVersionRepository_Create(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	kv := &cryptoDomain.KeyVersion{
		Classification: cryptoDomain.Confidential,
		Version:        1,
		State:          cryptoDomain.KeyStateActive,
		CreatedAt:      createdAt,
	}

	t.Run("Success", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO key_versions")).
			WithArgs("CONFIDENTIAL", uint(1), "active", createdAt, nil, nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewPostgreSQLKeyVersionRepository(db).Create(ctx, kv)
		assert.NoError(t, err)
	})

	t.Run("Error_Duplicate", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO key_versions")).
			WillReturnError(&pq.Error{Code: "23505"})

		err := NewPostgreSQLKeyVersionRepository(db).Create(ctx, kv)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Success_InsideTransaction", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO key_versions")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewPostgreSQLKeyVersionRepository(db)
		err := database.NewTxManager(db).WithTx(ctx, func(txCtx context.Context) error {
			return repo.Create(txCtx, kv)
		})
		assert.NoError(t, err)
	})
}

func TestPostgreSQLKeyVersionRepository_Update(t *testing.T) {
	ctx := context.Background()
	retiredAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	kv := &cryptoDomain.KeyVersion{
		Classification: cryptoDomain.Restricted,
		Version:        2,
		State:          cryptoDomain.KeyStateRetired,
		RetiredAt:      &retiredAt,
	}

	t.Run("Success", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE key_versions")).
			WithArgs("retired", &retiredAt, nil, "RESTRICTED", uint(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, NewPostgreSQLKeyVersionRepository(db).Update(ctx, kv))
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE key_versions")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewPostgreSQLKeyVersionRepository(db).Update(ctx, kv)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)
	})
}

func TestPostgreSQLKeyVersionRepository_Get(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	destroyedAt := createdAt.Add(48 * time.Hour)

	t.Run("Success", func(t *testing.T) {
		db, mock := newSQLMock(t)
		rows := sqlmock.NewRows(keyVersionColumns).
			AddRow("INTERNAL", int64(3), "destroyed", createdAt, createdAt.Add(time.Hour), destroyedAt)
		mock.ExpectQuery(regexp.QuoteMeta("FROM key_versions WHERE classification = $1 AND version = $2")).
			WithArgs("INTERNAL", uint(3)).
			WillReturnRows(rows)

		kv, err := NewPostgreSQLKeyVersionRepository(db).Get(ctx, cryptoDomain.Internal, 3)
		require.NoError(t, err)
		assert.Equal(t, cryptoDomain.Internal, kv.Classification)
		assert.Equal(t, uint(3), kv.Version)
		assert.Equal(t, cryptoDomain.KeyStateDestroyed, kv.State)
		require.NotNil(t, kv.DestroyedAt)
		assert.Equal(t, destroyedAt, *kv.DestroyedAt)
		assert.False(t, kv.Decryptable())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM key_versions")).WillReturnError(sql.ErrNoRows)

		_, err := NewPostgreSQLKeyVersionRepository(db).Get(ctx, cryptoDomain.Internal, 9)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyVersionNotFound)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyUnavailable)
	})
}

func TestPostgreSQLKeyVersionRepository_GetActive(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	db, mock := newSQLMock(t)
	rows := sqlmock.NewRows(keyVersionColumns).AddRow("CONFIDENTIAL", int64(4), "active", createdAt, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE classification = $1 AND state = $2")).
		WithArgs("CONFIDENTIAL", "active").
		WillReturnRows(rows)

	kv, err := NewPostgreSQLKeyVersionRepository(db).GetActive(ctx, cryptoDomain.Confidential)
	require.NoError(t, err)
	assert.Equal(t, uint(4), kv.Version)
	assert.Nil(t, kv.RetiredAt)
}

func TestPostgreSQLKeyVersionRepository_List(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	db, mock := newSQLMock(t)
	rows := sqlmock.NewRows(keyVersionColumns).
		AddRow("RESTRICTED", int64(2), "active", createdAt, nil, nil).
		AddRow("RESTRICTED", int64(1), "retired", createdAt, createdAt, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY version DESC")).
		WithArgs("RESTRICTED").
		WillReturnRows(rows)

	versions, err := NewPostgreSQLKeyVersionRepository(db).List(ctx, cryptoDomain.Restricted)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, uint(2), versions[0].Version)
	assert.Equal(t, cryptoDomain.KeyStateRetired, versions[1].State)
}
