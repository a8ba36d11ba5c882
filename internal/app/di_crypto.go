package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/allisson/fleetvault/internal/classification"
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	cryptoHTTP "github.com/allisson/fleetvault/internal/crypto/http"
	cryptoRepository "github.com/allisson/fleetvault/internal/crypto/repository"
	cryptoService "github.com/allisson/fleetvault/internal/crypto/service"
	cryptoUseCase "github.com/allisson/fleetvault/internal/crypto/usecase"
	"github.com/allisson/fleetvault/internal/database"
)

// cryptoComponents are the envelope encryption dependencies held by the Container.
type cryptoComponents struct {
	kmsService        cryptoService.KMSService
	secretProvider    cryptoService.SecretProvider
	secretCloser      io.Closer
	keyDeriver        cryptoService.KeyDeriver
	cipherEngine      cryptoService.CipherEngine
	classifier        *classification.Registry
	keyVersionRepo    cryptoUseCase.KeyVersionRepository
	keyManager        cryptoUseCase.KeyManager
	objectTransformer cryptoUseCase.ObjectTransformer
	cryptoHandler     *cryptoHTTP.CryptoHandler
	keyHandler        *cryptoHTTP.KeyHandler

	kmsServiceInit        sync.Once
	secretProviderInit    sync.Once
	keyDeriverInit        sync.Once
	cipherEngineInit      sync.Once
	classifierInit        sync.Once
	keyVersionRepoInit    sync.Once
	keyManagerInit        sync.Once
	objectTransformerInit sync.Once
	cryptoHandlerInit     sync.Once
	keyHandlerInit        sync.Once
}

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// SecretProvider returns the classification secret source. Secrets come straight from
// configuration unless a KMS key URI is set, in which case they are unwrapped through
// the keeper. Either way failures are retried with backoff.
func (c *Container) SecretProvider() (cryptoService.SecretProvider, error) {
	var err error
	c.secretProviderInit.Do(func() {
		c.secretProvider, err = c.initSecretProvider()
		if err != nil {
			c.storeErr("secretProvider", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("secretProvider"); storedErr != nil {
		return nil, storedErr
	}
	return c.secretProvider, nil
}

// KeyDeriver returns the PBKDF2 key deriver.
func (c *Container) KeyDeriver() (cryptoService.KeyDeriver, error) {
	var err error
	c.keyDeriverInit.Do(func() {
		c.keyDeriver, err = cryptoService.NewPBKDF2Deriver(
			c.config.PBKDF2Iterations,
			[]byte(c.config.KeyDerivationSalt),
		)
		if err != nil {
			c.storeErr("keyDeriver", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("keyDeriver"); storedErr != nil {
		return nil, storedErr
	}
	return c.keyDeriver, nil
}

// CipherEngine returns the AEAD cipher engine for the configured algorithm.
func (c *Container) CipherEngine() (cryptoService.CipherEngine, error) {
	var err error
	c.cipherEngineInit.Do(func() {
		c.cipherEngine, err = c.initCipherEngine()
		if err != nil {
			c.storeErr("cipherEngine", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("cipherEngine"); storedErr != nil {
		return nil, storedErr
	}
	return c.cipherEngine, nil
}

// Classifier returns the classification table, loaded from file or the built-in default.
func (c *Container) Classifier() (*classification.Registry, error) {
	var err error
	c.classifierInit.Do(func() {
		c.classifier, err = classification.Load(c.config.ClassificationTablePath)
		if err != nil {
			c.storeErr("classifier", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("classifier"); storedErr != nil {
		return nil, storedErr
	}
	return c.classifier, nil
}

// KeyVersionRepository returns the key version repository for the configured driver.
func (c *Container) KeyVersionRepository() (cryptoUseCase.KeyVersionRepository, error) {
	var err error
	c.keyVersionRepoInit.Do(func() {
		c.keyVersionRepo, err = c.initKeyVersionRepository()
		if err != nil {
			c.storeErr("keyVersionRepo", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("keyVersionRepo"); storedErr != nil {
		return nil, storedErr
	}
	return c.keyVersionRepo, nil
}

// KeyManager returns the key manager, instrumented with metrics.
func (c *Container) KeyManager() (cryptoUseCase.KeyManager, error) {
	var err error
	c.keyManagerInit.Do(func() {
		c.keyManager, err = c.initKeyManager()
		if err != nil {
			c.storeErr("keyManager", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("keyManager"); storedErr != nil {
		return nil, storedErr
	}
	return c.keyManager, nil
}

// ObjectTransformer returns the object transformer, instrumented with metrics.
func (c *Container) ObjectTransformer() (cryptoUseCase.ObjectTransformer, error) {
	var err error
	c.objectTransformerInit.Do(func() {
		c.objectTransformer, err = c.initObjectTransformer()
		if err != nil {
			c.storeErr("objectTransformer", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("objectTransformer"); storedErr != nil {
		return nil, storedErr
	}
	return c.objectTransformer, nil
}

// CryptoHandler returns the HTTP handler for encrypt and decrypt endpoints.
func (c *Container) CryptoHandler() (*cryptoHTTP.CryptoHandler, error) {
	var err error
	c.cryptoHandlerInit.Do(func() {
		c.cryptoHandler, err = c.initCryptoHandler()
		if err != nil {
			c.storeErr("cryptoHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("cryptoHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.cryptoHandler, nil
}

// KeyHandler returns the HTTP handler for key rotation and status endpoints.
func (c *Container) KeyHandler() (*cryptoHTTP.KeyHandler, error) {
	var err error
	c.keyHandlerInit.Do(func() {
		c.keyHandler, err = c.initKeyHandler()
		if err != nil {
			c.storeErr("keyHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("keyHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.keyHandler, nil
}

func (c *Container) initSecretProvider() (cryptoService.SecretProvider, error) {
	var (
		base   cryptoService.SecretProvider
		closer io.Closer
	)

	if c.config.KMSKeyURI != "" {
		keeper, err := c.KMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
		if err != nil {
			return nil, err
		}
		provider, err := cryptoService.NewKeeperSecretProvider(keeper, c.config.ClassificationSecrets)
		if err != nil {
			_ = keeper.Close()
			return nil, fmt.Errorf("failed to parse wrapped classification secrets: %w", err)
		}
		base, closer = provider, provider
	} else {
		provider, err := cryptoService.NewEnvSecretProvider(c.config.ClassificationSecrets)
		if err != nil {
			return nil, fmt.Errorf("failed to parse classification secrets: %w", err)
		}
		base, closer = provider, provider
	}

	c.secretCloser = closer
	return cryptoService.NewRetryingSecretProvider(base, cryptoService.RetryConfig{
		MaxAttempts:     c.config.SecretRetryMaxAttempts,
		InitialInterval: c.config.SecretRetryInitialInterval,
		MaxInterval:     c.config.SecretRetryMaxInterval,
	}, c.Logger()), nil
}

func (c *Container) initCipherEngine() (cryptoService.CipherEngine, error) {
	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.CipherAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("invalid cipher algorithm %q: %w", c.config.CipherAlgorithm, err)
	}
	return cryptoService.NewCipherEngine(cryptoService.NewAEADManager(), algorithm)
}

func (c *Container) initKeyVersionRepository() (cryptoUseCase.KeyVersionRepository, error) {
	if c.config.DBDriver == database.DriverMemory {
		return cryptoRepository.NewMemoryKeyVersionRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key version repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return cryptoRepository.NewMySQLKeyVersionRepository(db), nil
	case database.DriverPostgres:
		return cryptoRepository.NewPostgreSQLKeyVersionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initKeyManager() (cryptoUseCase.KeyManager, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key manager: %w", err)
	}
	repo, err := c.KeyVersionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key version repository for key manager: %w", err)
	}
	secrets, err := c.SecretProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret provider for key manager: %w", err)
	}
	deriver, err := c.KeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get key deriver for key manager: %w", err)
	}
	business, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for key manager: %w", err)
	}
	security, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for key manager: %w", err)
	}

	manager := cryptoUseCase.NewKeyManager(txManager, repo, secrets, deriver, c.config.KeyStateTTL, c.Logger())
	return cryptoUseCase.NewKeyManagerWithMetrics(manager, business, security), nil
}

func (c *Container) initObjectTransformer() (cryptoUseCase.ObjectTransformer, error) {
	keys, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for object transformer: %w", err)
	}
	engine, err := c.CipherEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to get cipher engine for object transformer: %w", err)
	}
	classifier, err := c.Classifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get classifier for object transformer: %w", err)
	}
	business, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for object transformer: %w", err)
	}

	transformer := cryptoUseCase.NewObjectTransformer(keys, engine, classifier)
	return cryptoUseCase.NewObjectTransformerWithMetrics(transformer, business), nil
}

func (c *Container) initCryptoHandler() (*cryptoHTTP.CryptoHandler, error) {
	transformer, err := c.ObjectTransformer()
	if err != nil {
		return nil, fmt.Errorf("failed to get object transformer for crypto handler: %w", err)
	}
	chain, err := c.AuditChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit chain for crypto handler: %w", err)
	}
	return cryptoHTTP.NewCryptoHandler(transformer, chain, c.Logger()), nil
}

func (c *Container) initKeyHandler() (*cryptoHTTP.KeyHandler, error) {
	keys, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for key handler: %w", err)
	}
	chain, err := c.AuditChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit chain for key handler: %w", err)
	}
	return cryptoHTTP.NewKeyHandler(keys, chain, c.Logger()), nil
}
