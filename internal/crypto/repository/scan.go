package repository

import (
	"database/sql"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKeyVersion(row rowScanner) (*cryptoDomain.KeyVersion, error) {
	var (
		kv             cryptoDomain.KeyVersion
		classification string
		version        int64
		state          string
		retiredAt      sql.NullTime
		destroyedAt    sql.NullTime
	)

	if err := row.Scan(&classification, &version, &state, &kv.CreatedAt, &retiredAt, &destroyedAt); err != nil {
		return nil, err
	}

	c, err := cryptoDomain.ParseClassification(classification)
	if err != nil {
		return nil, err
	}
	kv.Classification = c
	kv.Version = uint(version)
	kv.State = cryptoDomain.KeyState(state)
	if retiredAt.Valid {
		kv.RetiredAt = &retiredAt.Time
	}
	if destroyedAt.Valid {
		kv.DestroyedAt = &destroyedAt.Time
	}
	return &kv, nil
}

func scanKeyVersions(rows *sql.Rows) ([]*cryptoDomain.KeyVersion, error) {
	defer func() {
		_ = rows.Close()
	}()

	var versions []*cryptoDomain.KeyVersion
	for rows.Next() {
		kv, err := scanKeyVersion(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key version")
		}
		versions = append(versions, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return versions, nil
}

// requireOneRow maps an update that touched nothing to ErrKeyVersionNotFound.
func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return cryptoDomain.ErrKeyVersionNotFound
	}
	return nil
}
