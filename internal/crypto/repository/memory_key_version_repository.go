// Package repository implements persistence of key version lifecycle records.
//
// Three implementations share the KeyVersionRepository contract: an in-memory store
// for the memory driver and tests, PostgreSQL, and MySQL. The SQL repositories
// participate in transactions through database.GetTx so rotation is atomic.
package repository

import (
	"context"
	"slices"
	"sync"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

type keyVersionKey struct {
	classification cryptoDomain.Classification
	version        uint
}

// MemoryKeyVersionRepository keeps key versions in process memory.
type MemoryKeyVersionRepository struct {
	mu       sync.RWMutex
	versions map[keyVersionKey]cryptoDomain.KeyVersion
}

// NewMemoryKeyVersionRepository creates an empty repository.
func NewMemoryKeyVersionRepository() *MemoryKeyVersionRepository {
	return &MemoryKeyVersionRepository{versions: make(map[keyVersionKey]cryptoDomain.KeyVersion)}
}

func (r *MemoryKeyVersionRepository) Create(_ context.Context, version *cryptoDomain.KeyVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyVersionKey{version.Classification, version.Version}
	if _, ok := r.versions[key]; ok {
		return apperrors.Wrapf(apperrors.ErrConflict, "key version %s already exists",
			cryptoDomain.KeyID(version.Classification, version.Version))
	}
	if version.State == cryptoDomain.KeyStateActive {
		for k, v := range r.versions {
			if k.classification == version.Classification && v.State == cryptoDomain.KeyStateActive {
				return apperrors.Wrapf(apperrors.ErrConflict, "%s already has an active version",
					version.Classification)
			}
		}
	}
	r.versions[key] = *version
	return nil
}

func (r *MemoryKeyVersionRepository) Update(_ context.Context, version *cryptoDomain.KeyVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyVersionKey{version.Classification, version.Version}
	if _, ok := r.versions[key]; !ok {
		return cryptoDomain.ErrKeyVersionNotFound
	}
	r.versions[key] = *version
	return nil
}

func (r *MemoryKeyVersionRepository) Get(
	_ context.Context,
	classification cryptoDomain.Classification,
	version uint,
) (*cryptoDomain.KeyVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.versions[keyVersionKey{classification, version}]
	if !ok {
		return nil, cryptoDomain.ErrKeyVersionNotFound
	}
	return &v, nil
}

func (r *MemoryKeyVersionRepository) GetActive(
	_ context.Context,
	classification cryptoDomain.Classification,
) (*cryptoDomain.KeyVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for k, v := range r.versions {
		if k.classification == classification && v.State == cryptoDomain.KeyStateActive {
			return &v, nil
		}
	}
	return nil, cryptoDomain.ErrKeyVersionNotFound
}

func (r *MemoryKeyVersionRepository) List(
	_ context.Context,
	classification cryptoDomain.Classification,
) ([]*cryptoDomain.KeyVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var versions []*cryptoDomain.KeyVersion
	for k, v := range r.versions {
		if k.classification == classification {
			versions = append(versions, &v)
		}
	}
	slices.SortFunc(versions, func(a, b *cryptoDomain.KeyVersion) int {
		return int(b.Version) - int(a.Version)
	})
	return versions, nil
}
