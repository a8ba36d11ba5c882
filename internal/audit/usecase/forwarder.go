package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
)

// ForwarderConfig holds SIEM forwarding configuration.
type ForwarderConfig struct {
	// StartSequence is the first sequence forwarded.
	StartSequence   uint64
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// PauseAfterFailure is how long the forwarder waits before retrying an event whose
	// attempts were exhausted.
	PauseAfterFailure time.Duration
}

// Forwarder streams committed events from the chain to a Sink. The cursor only advances
// once the sink accepted an event, so a failing sink stalls forwarding instead of losing
// events.
type Forwarder struct {
	chain  AuditChain
	sink   Sink
	config ForwarderConfig
	logger *slog.Logger
	cursor atomic.Uint64
}

// NewForwarder creates a Forwarder.
func NewForwarder(chain AuditChain, sink Sink, config ForwarderConfig, logger *slog.Logger) *Forwarder {
	f := &Forwarder{chain: chain, sink: sink, config: config, logger: logger}
	f.cursor.Store(config.StartSequence)
	return f
}

// Cursor returns the sequence of the next event to forward.
func (f *Forwarder) Cursor() uint64 {
	return f.cursor.Load()
}

// Start forwards events until ctx is done and then returns ctx.Err().
func (f *Forwarder) Start(ctx context.Context) error {
	f.logger.Info("starting audit forwarder", slog.Uint64("from_sequence", f.Cursor()))

	for {
		subCtx, cancel := context.WithCancel(ctx)
		err := f.forward(subCtx, f.chain.Subscribe(subCtx, f.Cursor()))
		cancel()

		if ctx.Err() != nil {
			f.logger.Info("stopping audit forwarder", slog.Uint64("cursor", f.Cursor()))
			return ctx.Err()
		}

		f.logger.Error("failed to forward audit event",
			slog.Uint64("sequence", f.Cursor()),
			slog.Any("error", err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.config.PauseAfterFailure):
		}
	}
}

// forward drains events until the channel closes or an event cannot be delivered.
func (f *Forwarder) forward(ctx context.Context, events <-chan *auditDomain.AuditEvent) error {
	for event := range events {
		if err := f.emit(ctx, event); err != nil {
			return err
		}
		f.cursor.Store(event.Sequence + 1)
	}
	return ctx.Err()
}

func (f *Forwarder) emit(ctx context.Context, event *auditDomain.AuditEvent) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.config.InitialInterval
	policy.MaxInterval = f.config.MaxInterval
	policy.MaxElapsedTime = 0

	var b backoff.BackOff = policy
	if f.config.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(f.config.MaxAttempts-1))
	}

	return backoff.RetryNotify(
		func() error {
			err := f.sink.Emit(ctx, event)
			if errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(b, ctx),
		func(err error, wait time.Duration) {
			f.logger.Warn("audit sink rejected event, retrying",
				slog.Uint64("sequence", event.Sequence),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		},
	)
}
