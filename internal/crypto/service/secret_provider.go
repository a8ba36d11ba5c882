package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// ErrSecretNotConfigured indicates no secret exists for a classification. It is
// permanent and never retried.
var ErrSecretNotConfigured = fmt.Errorf("%w: not configured", cryptoDomain.ErrSecretUnavailable)

// EnvSecretProvider serves classification secrets parsed from configuration.
type EnvSecretProvider struct {
	secrets map[cryptoDomain.Classification][]byte
}

// NewEnvSecretProvider parses raw entries in "CLASSIFICATION:base64" form.
func NewEnvSecretProvider(raw string) (*EnvSecretProvider, error) {
	secrets, err := cryptoDomain.ParseClassificationSecrets(raw, cryptoDomain.MinSecretSize)
	if err != nil {
		return nil, err
	}
	return &EnvSecretProvider{secrets: secrets}, nil
}

// GetSecret returns a copy of the classification secret.
func (p *EnvSecretProvider) GetSecret(
	_ context.Context,
	classification cryptoDomain.Classification,
) ([]byte, error) {
	secret, ok := p.secrets[classification]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotConfigured, classification)
	}
	return append([]byte(nil), secret...), nil
}

// Close zeroes every held secret.
func (p *EnvSecretProvider) Close() error {
	for c, secret := range p.secrets {
		cryptoDomain.Zero(secret)
		delete(p.secrets, c)
	}
	return nil
}

// KeeperSecretProvider holds KMS-wrapped secrets and unwraps them through a keeper on
// every request, so plaintext secrets only live as long as a derivation needs them.
type KeeperSecretProvider struct {
	keeper  cryptoDomain.KMSKeeper
	wrapped map[cryptoDomain.Classification][]byte
}

// NewKeeperSecretProvider parses raw entries in "CLASSIFICATION:base64(wrapped)" form.
func NewKeeperSecretProvider(keeper cryptoDomain.KMSKeeper, raw string) (*KeeperSecretProvider, error) {
	wrapped, err := cryptoDomain.ParseClassificationSecrets(raw, 0)
	if err != nil {
		return nil, err
	}
	return &KeeperSecretProvider{keeper: keeper, wrapped: wrapped}, nil
}

// GetSecret unwraps the classification secret through the KMS keeper.
func (p *KeeperSecretProvider) GetSecret(
	ctx context.Context,
	classification cryptoDomain.Classification,
) ([]byte, error) {
	wrapped, ok := p.wrapped[classification]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotConfigured, classification)
	}

	secret, err := p.keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: kms decrypt %s: %v", cryptoDomain.ErrSecretUnavailable, classification, err)
	}
	if len(secret) < cryptoDomain.MinSecretSize {
		cryptoDomain.Zero(secret)
		return nil, fmt.Errorf(
			"%w: %s secret shorter than %d bytes",
			ErrSecretNotConfigured,
			classification,
			cryptoDomain.MinSecretSize,
		)
	}
	return secret, nil
}

// Close releases the keeper.
func (p *KeeperSecretProvider) Close() error {
	return p.keeper.Close()
}

// RetryConfig bounds the exponential backoff used when fetching secrets.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns 5 attempts starting at 100ms and capped at 2s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// NewBackOff builds the backoff policy for one retry sequence.
func (c RetryConfig) NewBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.InitialInterval
	exp.MaxInterval = c.MaxInterval
	exp.MaxElapsedTime = 0

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// RetryingSecretProvider retries transient failures of the wrapped provider with bounded
// exponential backoff. Secrets that are simply not configured fail immediately.
type RetryingSecretProvider struct {
	next   SecretProvider
	config RetryConfig
	logger *slog.Logger
}

// NewRetryingSecretProvider wraps next with retries.
func NewRetryingSecretProvider(next SecretProvider, config RetryConfig, logger *slog.Logger) *RetryingSecretProvider {
	return &RetryingSecretProvider{next: next, config: config, logger: logger}
}

// GetSecret fetches the secret, retrying until success, a permanent error, context
// cancellation or the attempt budget is spent.
func (p *RetryingSecretProvider) GetSecret(
	ctx context.Context,
	classification cryptoDomain.Classification,
) ([]byte, error) {
	attempt := 0
	secret, err := backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			attempt++
			secret, err := p.next.GetSecret(ctx, classification)
			if errors.Is(err, ErrSecretNotConfigured) {
				return nil, backoff.Permanent(err)
			}
			return secret, err
		},
		p.config.NewBackOff(ctx),
		func(err error, wait time.Duration) {
			p.logger.Warn("secret retrieval failed, retrying",
				slog.String("classification", classification.String()),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		},
	)
	if err != nil {
		if !errors.Is(err, cryptoDomain.ErrSecretUnavailable) {
			err = fmt.Errorf("%w: %v", cryptoDomain.ErrSecretUnavailable, err)
		}
		return nil, err
	}
	return secret, nil
}
