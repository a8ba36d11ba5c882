package app

import (
	"fmt"
	"sync"

	auditHTTP "github.com/allisson/fleetvault/internal/audit/http"
	auditRepository "github.com/allisson/fleetvault/internal/audit/repository"
	auditService "github.com/allisson/fleetvault/internal/audit/service"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
	"github.com/allisson/fleetvault/internal/database"
)

// auditComponents are the audit ledger dependencies held by the Container.
type auditComponents struct {
	eventRepo         auditUseCase.EventRepository
	hasher            auditService.Hasher
	auditChain        auditUseCase.AuditChain
	chainVerifier     auditUseCase.ChainVerifier
	forwarder         *auditUseCase.Forwarder
	auditEventHandler *auditHTTP.AuditEventHandler

	eventRepoInit         sync.Once
	hasherInit            sync.Once
	auditChainInit        sync.Once
	chainVerifierInit     sync.Once
	forwarderInit         sync.Once
	auditEventHandlerInit sync.Once
}

// EventRepository returns the audit event repository for the configured driver.
func (c *Container) EventRepository() (auditUseCase.EventRepository, error) {
	var err error
	c.eventRepoInit.Do(func() {
		c.eventRepo, err = c.initEventRepository()
		if err != nil {
			c.storeErr("eventRepo", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("eventRepo"); storedErr != nil {
		return nil, storedErr
	}
	return c.eventRepo, nil
}

// Hasher returns the chain hasher.
func (c *Container) Hasher() auditService.Hasher {
	c.hasherInit.Do(func() {
		c.hasher = auditService.NewSHA256Hasher()
	})
	return c.hasher
}

// AuditChain returns the audit chain, instrumented with metrics. The chain is not
// loaded: callers that read before appending must call Load first.
func (c *Container) AuditChain() (auditUseCase.AuditChain, error) {
	var err error
	c.auditChainInit.Do(func() {
		c.auditChain, err = c.initAuditChain()
		if err != nil {
			c.storeErr("auditChain", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("auditChain"); storedErr != nil {
		return nil, storedErr
	}
	return c.auditChain, nil
}

// ChainVerifier returns the chain verifier, instrumented with metrics.
func (c *Container) ChainVerifier() (auditUseCase.ChainVerifier, error) {
	var err error
	c.chainVerifierInit.Do(func() {
		c.chainVerifier, err = c.initChainVerifier()
		if err != nil {
			c.storeErr("chainVerifier", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("chainVerifier"); storedErr != nil {
		return nil, storedErr
	}
	return c.chainVerifier, nil
}

// Forwarder returns the SIEM forwarder writing to the structured log.
func (c *Container) Forwarder() (*auditUseCase.Forwarder, error) {
	var err error
	c.forwarderInit.Do(func() {
		c.forwarder, err = c.initForwarder()
		if err != nil {
			c.storeErr("forwarder", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("forwarder"); storedErr != nil {
		return nil, storedErr
	}
	return c.forwarder, nil
}

// AuditEventHandler returns the HTTP handler for audit endpoints.
func (c *Container) AuditEventHandler() (*auditHTTP.AuditEventHandler, error) {
	var err error
	c.auditEventHandlerInit.Do(func() {
		c.auditEventHandler, err = c.initAuditEventHandler()
		if err != nil {
			c.storeErr("auditEventHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.loadErr("auditEventHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.auditEventHandler, nil
}

func (c *Container) initEventRepository() (auditUseCase.EventRepository, error) {
	if c.config.DBDriver == database.DriverMemory {
		return auditRepository.NewMemoryEventRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return auditRepository.NewMySQLEventRepository(db), nil
	case database.DriverPostgres:
		return auditRepository.NewPostgreSQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAuditChain() (auditUseCase.AuditChain, error) {
	repo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for audit chain: %w", err)
	}
	business, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for audit chain: %w", err)
	}
	security, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for audit chain: %w", err)
	}

	chain := auditUseCase.NewAuditChain(repo, c.Hasher(), c.Logger())
	return auditUseCase.NewAuditChainWithMetrics(chain, business, security), nil
}

func (c *Container) initChainVerifier() (auditUseCase.ChainVerifier, error) {
	chain, err := c.AuditChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit chain for chain verifier: %w", err)
	}
	repo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for chain verifier: %w", err)
	}
	business, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for chain verifier: %w", err)
	}
	security, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for chain verifier: %w", err)
	}

	verifier := auditUseCase.NewChainVerifier(chain, repo, c.Hasher(), c.Logger())
	return auditUseCase.NewChainVerifierWithMetrics(verifier, business, security), nil
}

func (c *Container) initForwarder() (*auditUseCase.Forwarder, error) {
	chain, err := c.AuditChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit chain for forwarder: %w", err)
	}

	logger := c.Logger()
	return auditUseCase.NewForwarder(chain, auditUseCase.NewLogSink(logger), auditUseCase.ForwarderConfig{
		StartSequence:     c.config.ForwarderStartSequence,
		MaxAttempts:       c.config.ForwarderMaxAttempts,
		InitialInterval:   c.config.ForwarderInitialInterval,
		MaxInterval:       c.config.ForwarderMaxInterval,
		PauseAfterFailure: c.config.ForwarderPause,
	}, logger), nil
}

func (c *Container) initAuditEventHandler() (*auditHTTP.AuditEventHandler, error) {
	chain, err := c.AuditChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit chain for audit handler: %w", err)
	}
	verifier, err := c.ChainVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get chain verifier for audit handler: %w", err)
	}
	return auditHTTP.NewAuditEventHandler(chain, verifier, c.Logger()), nil
}
