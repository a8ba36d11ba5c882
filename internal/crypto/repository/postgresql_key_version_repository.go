package repository

import (
	"context"
	"database/sql"
	"errors"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	"github.com/allisson/fleetvault/internal/database"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

// PostgreSQLKeyVersionRepository implements key version persistence for PostgreSQL.
//
// Schema (see migrations/postgresql):
//   - classification VARCHAR(32), version BIGINT: composite primary key
//   - state VARCHAR(16)
//   - created_at, retired_at, destroyed_at TIMESTAMPTZ
//
// A partial unique index guarantees at most one active version per classification.
type PostgreSQLKeyVersionRepository struct {
	db *sql.DB
}

// NewPostgreSQLKeyVersionRepository creates a new PostgreSQL key version repository.
func NewPostgreSQLKeyVersionRepository(db *sql.DB) *PostgreSQLKeyVersionRepository {
	return &PostgreSQLKeyVersionRepository{db: db}
}

// Create inserts a new key version.
func (p *PostgreSQLKeyVersionRepository) Create(ctx context.Context, version *cryptoDomain.KeyVersion) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO key_versions (classification, version, state, created_at, retired_at, destroyed_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		version.Classification.String(),
		version.Version,
		string(version.State),
		version.CreatedAt,
		version.RetiredAt,
		version.DestroyedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrConflict, "key version %s already exists",
				cryptoDomain.KeyID(version.Classification, version.Version))
		}
		return apperrors.Wrap(err, "failed to create key version")
	}
	return nil
}

// Update persists the lifecycle state of an existing key version.
func (p *PostgreSQLKeyVersionRepository) Update(ctx context.Context, version *cryptoDomain.KeyVersion) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE key_versions
			  SET state = $1,
				  retired_at = $2,
				  destroyed_at = $3
			  WHERE classification = $4 AND version = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(version.State),
		version.RetiredAt,
		version.DestroyedAt,
		version.Classification.String(),
		version.Version,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update key version")
	}
	return requireOneRow(result)
}

// Get retrieves a single key version.
func (p *PostgreSQLKeyVersionRepository) Get(
	ctx context.Context,
	classification cryptoDomain.Classification,
	version uint,
) (*cryptoDomain.KeyVersion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT classification, version, state, created_at, retired_at, destroyed_at
			  FROM key_versions WHERE classification = $1 AND version = $2`

	kv, err := scanKeyVersion(querier.QueryRowContext(ctx, query, classification.String(), version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrKeyVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get key version")
	}
	return kv, nil
}

// GetActive retrieves the active key version of a classification.
func (p *PostgreSQLKeyVersionRepository) GetActive(
	ctx context.Context,
	classification cryptoDomain.Classification,
) (*cryptoDomain.KeyVersion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT classification, version, state, created_at, retired_at, destroyed_at
			  FROM key_versions WHERE classification = $1 AND state = $2`

	kv, err := scanKeyVersion(
		querier.QueryRowContext(ctx, query, classification.String(), string(cryptoDomain.KeyStateActive)),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrKeyVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get active key version")
	}
	return kv, nil
}

// List retrieves all versions of a classification ordered by version descending.
func (p *PostgreSQLKeyVersionRepository) List(
	ctx context.Context,
	classification cryptoDomain.Classification,
) ([]*cryptoDomain.KeyVersion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT classification, version, state, created_at, retired_at, destroyed_at
			  FROM key_versions WHERE classification = $1 ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query, classification.String())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list key versions")
	}
	return scanKeyVersions(rows)
}
