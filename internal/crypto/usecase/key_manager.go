package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	cryptoService "github.com/allisson/fleetvault/internal/crypto/service"
	"github.com/allisson/fleetvault/internal/database"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

// ErrKeyManagerClosed is returned by every operation after Close.
var ErrKeyManagerClosed = apperrors.Wrap(cryptoDomain.ErrKeyUnavailable, "key manager closed")

// keyManager implements KeyManager.
//
// Two locks are involved: mu guards the in-memory cache and active version map and is
// only held for map access; lifecycleMu serializes rotation and purge, which touch the
// repository.
//
// Other processes (the CLI) rotate and purge through the same repository, so local
// state is never trusted indefinitely: the active version is re-read once it is older
// than stateTTL, and a non-active version's state is re-read on every lookup. Callers
// always receive clones; only the cache's own copies are zeroed.
type keyManager struct {
	txManager database.TxManager
	repo      KeyVersionRepository
	secrets   cryptoService.SecretProvider
	deriver   cryptoService.KeyDeriver
	stateTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	cache     map[string]*cryptoDomain.KeyMaterial
	active    map[cryptoDomain.Classification]activeVersion
	destroyed map[string]struct{}
	closed    bool

	lifecycleMu sync.Mutex
}

// activeVersion is the last known active version and when the repository confirmed it.
type activeVersion struct {
	version   uint
	checkedAt time.Time
}

// NewKeyManager creates a KeyManager. stateTTL bounds how long the active version is
// trusted before it is re-read from repo.
func NewKeyManager(
	txManager database.TxManager,
	repo KeyVersionRepository,
	secrets cryptoService.SecretProvider,
	deriver cryptoService.KeyDeriver,
	stateTTL time.Duration,
	logger *slog.Logger,
) KeyManager {
	return &keyManager{
		txManager: txManager,
		repo:      repo,
		secrets:   secrets,
		deriver:   deriver,
		stateTTL:  stateTTL,
		logger:    logger,
		now:       time.Now,
		cache:     make(map[string]*cryptoDomain.KeyMaterial),
		active:    make(map[cryptoDomain.Classification]activeVersion),
		destroyed: make(map[string]struct{}),
	}
}

func (k *keyManager) DeriveKey(
	ctx context.Context,
	classification cryptoDomain.Classification,
	version uint,
) (*cryptoDomain.KeyMaterial, error) {
	if !classification.Keyed() {
		return nil, cryptoDomain.ErrUnkeyedClassification
	}

	if version == 0 {
		active, err := k.ActiveVersion(ctx, classification)
		if err != nil {
			return nil, err
		}
		version = active
	}

	id := cryptoDomain.KeyID(classification, version)
	if key, err := k.cachedActive(classification, version); key != nil || err != nil {
		return key, err
	}

	v, err, _ := k.group.Do(id, func() (any, error) {
		if key, err := k.cachedActive(classification, version); key != nil || err != nil {
			return key, err
		}

		record, err := k.repo.Get(ctx, classification, version)
		if err != nil {
			return nil, err
		}
		if !record.Decryptable() {
			k.evict(id)
			return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrKeyDestroyed, id)
		}

		if key, err := k.cached(id); key != nil || err != nil {
			return key, err
		}

		key, err := k.derive(ctx, classification, version)
		if err != nil {
			return nil, err
		}
		return k.store(key)
	})
	if err != nil {
		return nil, err
	}
	// The flight's result is shared between its callers; each gets its own copy.
	return v.(*cryptoDomain.KeyMaterial).Clone(), nil
}

// cachedActive returns a copy of the memoized key when version is the active version
// and that fact was confirmed within stateTTL. Anything else goes to the repository.
func (k *keyManager) cachedActive(
	classification cryptoDomain.Classification,
	version uint,
) (*cryptoDomain.KeyMaterial, error) {
	k.mu.RLock()
	entry, ok := k.active[classification]
	k.mu.RUnlock()
	if !ok || entry.version != version || !k.fresh(entry) {
		return nil, k.checkOpen()
	}
	return k.cached(cryptoDomain.KeyID(classification, version))
}

func (k *keyManager) fresh(entry activeVersion) bool {
	return k.now().Sub(entry.checkedAt) < k.stateTTL
}

// cached returns a copy of the memoized key for id, if any.
func (k *keyManager) cached(id string) (*cryptoDomain.KeyMaterial, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil, ErrKeyManagerClosed
	}
	if _, ok := k.destroyed[id]; ok {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrKeyDestroyed, id)
	}
	if key, ok := k.cache[id]; ok {
		return key.Clone(), nil
	}
	return nil, nil
}

func (k *keyManager) checkOpen() error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return ErrKeyManagerClosed
	}
	return nil
}

// store memoizes key and returns a copy of the cached material. If the version was
// purged or the manager closed meanwhile, the bytes are wiped and an error returned.
func (k *keyManager) store(key *cryptoDomain.KeyMaterial) (*cryptoDomain.KeyMaterial, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	id := key.CacheKey()
	if k.closed {
		cryptoDomain.Zero(key.Key)
		return nil, ErrKeyManagerClosed
	}
	if _, ok := k.destroyed[id]; ok {
		cryptoDomain.Zero(key.Key)
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrKeyDestroyed, id)
	}
	if existing, ok := k.cache[id]; ok {
		cryptoDomain.Zero(key.Key)
		return existing.Clone(), nil
	}
	k.cache[id] = key
	return key.Clone(), nil
}

// evict marks id destroyed and wipes its cached bytes.
func (k *keyManager) evict(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.destroyed[id] = struct{}{}
	if key, ok := k.cache[id]; ok {
		cryptoDomain.Zero(key.Key)
		delete(k.cache, id)
	}
}

// derive fetches the classification secret and stretches it into the versioned key.
func (k *keyManager) derive(
	ctx context.Context,
	classification cryptoDomain.Classification,
	version uint,
) (*cryptoDomain.KeyMaterial, error) {
	secret, err := k.secrets.GetSecret(ctx, classification)
	if err != nil {
		k.logger.Error("failed to retrieve classification secret",
			slog.String("classification", classification.String()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrKeyUnavailable, err)
	}
	defer cryptoDomain.Zero(secret)

	raw, err := k.deriver.Derive(secret, classification, version)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrKeyUnavailable, err)
	}

	return &cryptoDomain.KeyMaterial{
		Classification: classification,
		Version:        version,
		Key:            raw,
		DerivedAt:      k.now().UTC(),
	}, nil
}

func (k *keyManager) ActiveVersion(ctx context.Context, classification cryptoDomain.Classification) (uint, error) {
	if !classification.Keyed() {
		return 0, cryptoDomain.ErrUnkeyedClassification
	}

	if err := k.checkOpen(); err != nil {
		return 0, err
	}

	k.mu.RLock()
	entry, ok := k.active[classification]
	k.mu.RUnlock()
	if ok && k.fresh(entry) {
		return entry.version, nil
	}

	v, err, _ := k.group.Do("active:"+classification.String(), func() (any, error) {
		record, err := k.repo.GetActive(ctx, classification)
		if errors.Is(err, cryptoDomain.ErrKeyVersionNotFound) {
			record, err = k.createInitialVersion(ctx, classification)
		}
		if err != nil {
			return uint(0), err
		}
		if ok && record.Version != entry.version {
			k.logger.Info("active key version changed outside this process",
				slog.String("classification", classification.String()),
				slog.Uint64("previous", uint64(entry.version)),
				slog.Uint64("version", uint64(record.Version)),
			)
		}
		return k.setActive(classification, record.Version), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint), nil
}

// createInitialVersion records version 1. Another instance sharing the repository
// may win the race, in which case its record is used.
func (k *keyManager) createInitialVersion(
	ctx context.Context,
	classification cryptoDomain.Classification,
) (*cryptoDomain.KeyVersion, error) {
	record := &cryptoDomain.KeyVersion{
		Classification: classification,
		Version:        1,
		State:          cryptoDomain.KeyStateActive,
		CreatedAt:      k.now().UTC(),
	}

	err := k.repo.Create(context.WithoutCancel(ctx), record)
	if errors.Is(err, apperrors.ErrConflict) {
		return k.repo.GetActive(ctx, classification)
	}
	if err != nil {
		return nil, err
	}

	k.logger.Info("key version created",
		slog.String("classification", classification.String()),
		slog.Uint64("version", uint64(record.Version)),
	)
	return record, nil
}

// setActive records version as confirmed now and returns the version in effect.
// Versions only grow, so a slow refresh never moves the active version backwards.
func (k *keyManager) setActive(classification cryptoDomain.Classification, version uint) uint {
	k.mu.Lock()
	defer k.mu.Unlock()

	if current, ok := k.active[classification]; ok && current.version > version {
		version = current.version
	}
	k.active[classification] = activeVersion{version: version, checkedAt: k.now()}
	return version
}

func (k *keyManager) Rotate(
	ctx context.Context,
	classification cryptoDomain.Classification,
) (*cryptoDomain.KeyVersion, error) {
	if !classification.Keyed() {
		return nil, cryptoDomain.ErrUnkeyedClassification
	}
	if err := k.checkOpen(); err != nil {
		return nil, err
	}

	k.lifecycleMu.Lock()
	defer k.lifecycleMu.Unlock()

	versions, err := k.repo.List(ctx, classification)
	if err != nil {
		return nil, err
	}

	next := uint(1)
	var current *cryptoDomain.KeyVersion
	for _, v := range versions {
		if v.Version >= next {
			next = v.Version + 1
		}
		if v.State == cryptoDomain.KeyStateActive {
			current = v
		}
	}

	// Derive before committing so a missing secret never leaves an unusable active version.
	key, err := k.derive(ctx, classification, next)
	if err != nil {
		return nil, err
	}

	now := k.now().UTC()
	record := &cryptoDomain.KeyVersion{
		Classification: classification,
		Version:        next,
		State:          cryptoDomain.KeyStateActive,
		CreatedAt:      now,
	}

	err = k.txManager.WithTx(context.WithoutCancel(ctx), func(txCtx context.Context) error {
		if current != nil {
			if err := current.Retire(now); err != nil {
				return err
			}
			if err := k.repo.Update(txCtx, current); err != nil {
				return err
			}
		}
		return k.repo.Create(txCtx, record)
	})
	if err != nil {
		cryptoDomain.Zero(key.Key)
		return nil, err
	}

	if _, err := k.store(key); err != nil {
		return nil, err
	}
	k.setActive(classification, next)

	k.logger.Info("key rotated",
		slog.String("classification", classification.String()),
		slog.Uint64("version", uint64(next)),
	)
	return record, nil
}

func (k *keyManager) RotateAll(ctx context.Context) (map[cryptoDomain.Classification]*cryptoDomain.KeyVersion, error) {
	rotated := make(map[cryptoDomain.Classification]*cryptoDomain.KeyVersion)
	for _, c := range cryptoDomain.KeyedClassifications() {
		v, err := k.Rotate(ctx, c)
		if err != nil {
			return rotated, fmt.Errorf("rotate %s: %w", c, err)
		}
		rotated[c] = v
	}
	return rotated, nil
}

func (k *keyManager) Purge(ctx context.Context, classification cryptoDomain.Classification, version uint) error {
	if !classification.Keyed() {
		return cryptoDomain.ErrUnkeyedClassification
	}

	k.lifecycleMu.Lock()
	defer k.lifecycleMu.Unlock()

	err := k.txManager.WithTx(context.WithoutCancel(ctx), func(txCtx context.Context) error {
		record, err := k.repo.Get(txCtx, classification, version)
		if err != nil {
			return err
		}
		if err := record.Destroy(k.now().UTC()); err != nil {
			return err
		}
		return k.repo.Update(txCtx, record)
	})
	if err != nil {
		return err
	}

	k.evict(cryptoDomain.KeyID(classification, version))

	k.logger.Warn("key version destroyed",
		slog.String("classification", classification.String()),
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

func (k *keyManager) ListVersions(
	ctx context.Context,
	classification cryptoDomain.Classification,
) ([]*cryptoDomain.KeyVersion, error) {
	if !classification.Keyed() {
		return nil, cryptoDomain.ErrUnkeyedClassification
	}
	return k.repo.List(ctx, classification)
}

func (k *keyManager) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for id, key := range k.cache {
		cryptoDomain.Zero(key.Key)
		delete(k.cache, id)
	}
	k.closed = true
	return nil
}
