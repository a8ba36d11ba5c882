package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditService "github.com/allisson/fleetvault/internal/audit/service"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

const (
	loadPageSize      = 1000
	subscribeBatchMax = 256
)

// auditChain implements AuditChain.
//
// mu is the single writer lock: Append holds it for the whole of hash, persist and
// index, so exactly one event can extend a given tail. Readers take it shared.
// events is indexed by sequence; timestamps are forced non-decreasing so it is also
// ordered by time.
type auditChain struct {
	repo   EventRepository
	hasher auditService.Hasher
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	loaded  bool
	events  []*auditDomain.AuditEvent
	byID    map[uuid.UUID]*auditDomain.AuditEvent
	byHash  map[string]*auditDomain.AuditEvent
	byType  map[auditDomain.EventType][]*auditDomain.AuditEvent
	byActor map[string][]*auditDomain.AuditEvent
	// appended is closed and replaced after every commit to wake subscribers.
	appended chan struct{}
}

// NewAuditChain creates an AuditChain over repo. Call Load before serving reads against
// a non-empty store; the first Append loads implicitly.
func NewAuditChain(repo EventRepository, hasher auditService.Hasher, logger *slog.Logger) AuditChain {
	c := &auditChain{
		repo:     repo,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
		appended: make(chan struct{}),
	}
	c.reset()
	return c
}

func (c *auditChain) reset() {
	c.events = nil
	c.byID = make(map[uuid.UUID]*auditDomain.AuditEvent)
	c.byHash = make(map[string]*auditDomain.AuditEvent)
	c.byType = make(map[auditDomain.EventType][]*auditDomain.AuditEvent)
	c.byActor = make(map[string][]*auditDomain.AuditEvent)
}

func (c *auditChain) Append(
	ctx context.Context,
	input *auditDomain.EventInput,
) (*auditDomain.AuditEvent, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: missing input", auditDomain.ErrInvalidEvent)
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	details, err := auditDomain.NormalizeDetails(input.Details)
	if err != nil {
		return nil, err
	}

	// Once started, an append runs to completion regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		if err := c.loadLocked(ctx); err != nil {
			return nil, err
		}
	}

	event, err := c.sealLocked(input, details)
	if err != nil {
		return nil, err
	}

	err = c.repo.Create(ctx, event)
	if errors.Is(err, apperrors.ErrConflict) {
		// Another process sharing the store (the CLI) moved the tail. Catch up and
		// retry once on the new tail.
		c.logger.Warn("audit chain tail moved underneath this writer, resyncing",
			slog.Uint64("sequence", event.Sequence),
		)
		if syncErr := c.syncLocked(ctx); syncErr != nil {
			return nil, syncErr
		}
		if event, err = c.sealLocked(input, details); err != nil {
			return nil, err
		}
		err = c.repo.Create(ctx, event)
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			c.logger.Error("audit append lost the race after resync",
				slog.Uint64("sequence", event.Sequence),
				slog.Any("error", err),
			)
			return nil, fmt.Errorf("%w: sequence %d already committed", auditDomain.ErrConcurrentAppendConflict, event.Sequence)
		}
		return nil, apperrors.Wrap(err, "failed to persist audit event")
	}

	c.index(event)
	c.notifyLocked()

	return event.Clone(), nil
}

// sealLocked builds and hashes the next event on the current tail. Caller holds mu.
func (c *auditChain) sealLocked(input *auditDomain.EventInput, details map[string]any) (*auditDomain.AuditEvent, error) {
	// Storage keeps microsecond precision, so hash what will be read back.
	timestamp := c.now().UTC().Truncate(time.Microsecond)
	previousHash := auditDomain.GenesisHash
	if n := len(c.events); n > 0 {
		tail := c.events[n-1]
		previousHash = tail.Hash
		if timestamp.Before(tail.Timestamp) {
			timestamp = tail.Timestamp
		}
	}

	event := &auditDomain.AuditEvent{
		ID:           uuid.Must(uuid.NewV7()),
		Sequence:     uint64(len(c.events)),
		Timestamp:    timestamp,
		EventType:    input.EventType,
		ActorID:      input.ActorID,
		TenantID:     input.TenantID,
		Resource:     input.Resource,
		Action:       input.Action,
		Status:       input.Status,
		Details:      details,
		Severity:     input.Severity,
		PreviousHash: previousHash,
	}
	hash, err := c.hasher.Hash(event)
	if err != nil {
		return nil, err
	}
	event.Hash = hash
	return event, nil
}

// notifyLocked wakes subscribers. Caller holds mu.
func (c *auditChain) notifyLocked() {
	close(c.appended)
	c.appended = make(chan struct{})
}

func (c *auditChain) LogEvent(
	ctx context.Context,
	input *auditDomain.EventInput,
) (*auditDomain.AuditEvent, error) {
	return c.Append(ctx, input)
}

func (c *auditChain) RecordDeletion(ctx context.Context, input *DeletionInput) (*auditDomain.AuditEvent, error) {
	if input == nil || input.TargetID == uuid.Nil {
		return nil, fmt.Errorf("%w: deletion target is required", auditDomain.ErrInvalidEvent)
	}

	target, err := c.GetEventByID(ctx, input.TargetID)
	if err != nil {
		return nil, err
	}

	return c.Append(ctx, &auditDomain.EventInput{
		EventType: auditDomain.EventTypeRecordDeleted,
		ActorID:   input.ActorID,
		TenantID:  input.TenantID,
		Resource:  "audit_event:" + target.ID.String(),
		Action:    "delete",
		Status:    auditDomain.StatusSuccess,
		Severity:  auditDomain.SeverityHigh,
		Details: map[string]any{
			"targetId":       target.ID.String(),
			"targetSequence": target.Sequence,
			"targetHash":     target.Hash,
			"reason":         input.Reason,
		},
	})
}

// index registers a committed event. Caller holds mu.
func (c *auditChain) index(event *auditDomain.AuditEvent) {
	c.events = append(c.events, event)
	c.byID[event.ID] = event
	c.byHash[event.Hash] = event
	c.byType[event.EventType] = append(c.byType[event.EventType], event)
	if event.ActorID != "" {
		c.byActor[event.ActorID] = append(c.byActor[event.ActorID], event)
	}
}

func (c *auditChain) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *auditChain) loadLocked(ctx context.Context) error {
	c.reset()
	if err := c.syncLocked(ctx); err != nil {
		c.reset()
		return err
	}
	c.loaded = true

	c.logger.Info("audit chain loaded", slog.Int("length", len(c.events)))
	return nil
}

// syncLocked indexes every stored event past the local tail. Linkage is left to the
// verifier; only sequence continuity is enforced here. Caller holds mu.
func (c *auditChain) syncLocked(ctx context.Context) error {
	start := len(c.events)
	for {
		from := uint64(len(c.events))
		page, err := c.repo.ListBySequence(ctx, from, loadPageSize)
		if err != nil {
			return apperrors.Wrap(err, "failed to load audit chain")
		}
		for _, event := range page {
			if event.Sequence != from {
				return fmt.Errorf("%w: expected sequence %d, store returned %d",
					auditDomain.ErrChainIntegrityViolation, from, event.Sequence)
			}
			c.index(event)
			from++
		}
		if len(page) < loadPageSize {
			break
		}
	}
	if len(c.events) > start {
		c.notifyLocked()
	}
	return nil
}

func (c *auditChain) GetEventByID(_ context.Context, id uuid.UUID) (*auditDomain.AuditEvent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	event, ok := c.byID[id]
	if !ok {
		return nil, auditDomain.ErrEventNotFound
	}
	return event.Clone(), nil
}

func (c *auditChain) GetEventsByType(
	_ context.Context,
	eventType auditDomain.EventType,
) ([]*auditDomain.AuditEvent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneEvents(c.byType[eventType]), nil
}

func (c *auditChain) GetEventsByUser(_ context.Context, actorID string) ([]*auditDomain.AuditEvent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneEvents(c.byActor[actorID]), nil
}

func (c *auditChain) GetEventsByDateRange(
	_ context.Context,
	from, to time.Time,
) ([]*auditDomain.AuditEvent, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end precedes start", apperrors.ErrInvalidInput)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneEvents(timeWindow(c.events, &from, &to)), nil
}

// timeWindow narrows a time-ordered slice to [from, to] with binary search.
func timeWindow(events []*auditDomain.AuditEvent, from, to *time.Time) []*auditDomain.AuditEvent {
	lo, hi := 0, len(events)
	if from != nil {
		lo = sort.Search(len(events), func(i int) bool { return !events[i].Timestamp.Before(*from) })
	}
	if to != nil {
		hi = sort.Search(len(events), func(i int) bool { return events[i].Timestamp.After(*to) })
	}
	if lo >= hi {
		return nil
	}
	return events[lo:hi]
}

func (c *auditChain) ListEvents(
	_ context.Context,
	filter auditDomain.Filter,
) ([]*auditDomain.AuditEvent, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: range end precedes start", apperrors.ErrInvalidInput)
	}
	if filter.Offset < 0 || filter.Limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", apperrors.ErrInvalidInput)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Start from the narrowest index; every index is ordered by sequence and time.
	source := c.events
	if filter.EventType != "" {
		source = c.byType[filter.EventType]
	}
	if filter.ActorID != "" {
		if byActor := c.byActor[filter.ActorID]; filter.EventType == "" || len(byActor) < len(source) {
			source = byActor
		}
	}
	source = timeWindow(source, filter.From, filter.To)

	result := make([]*auditDomain.AuditEvent, 0)
	skipped := 0
	for _, event := range source {
		if filter.EventType != "" && event.EventType != filter.EventType {
			continue
		}
		if filter.ActorID != "" && event.ActorID != filter.ActorID {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		result = append(result, event.Clone())
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (c *auditChain) GetEventChain(_ context.Context, id uuid.UUID) ([]*auditDomain.AuditEvent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	event, ok := c.byID[id]
	if !ok {
		return nil, auditDomain.ErrEventNotFound
	}

	chain := make([]*auditDomain.AuditEvent, 0, event.Sequence+1)
	for {
		chain = append(chain, event.Clone())
		if event.PreviousHash == auditDomain.GenesisHash {
			break
		}
		previous, ok := c.byHash[event.PreviousHash]
		if !ok || previous.Sequence+1 != event.Sequence {
			return nil, fmt.Errorf("%w: event %s links to unknown hash", auditDomain.ErrChainIntegrityViolation, event.ID)
		}
		event = previous
	}
	slices.Reverse(chain)
	return chain, nil
}

func (c *auditChain) Subscribe(ctx context.Context, from uint64) <-chan *auditDomain.AuditEvent {
	out := make(chan *auditDomain.AuditEvent)

	go func() {
		defer close(out)

		next := from
		for {
			c.mu.RLock()
			var pending []*auditDomain.AuditEvent
			if next < uint64(len(c.events)) {
				end := min(uint64(len(c.events)), next+subscribeBatchMax)
				pending = slices.Clone(c.events[next:end])
			}
			wake := c.appended
			c.mu.RUnlock()

			for _, event := range pending {
				select {
				case out <- event.Clone():
					next++
				case <-ctx.Done():
					return
				}
			}
			if len(pending) > 0 {
				continue
			}

			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (c *auditChain) Length() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint64(len(c.events))
}

func cloneEvents(events []*auditDomain.AuditEvent) []*auditDomain.AuditEvent {
	out := make([]*auditDomain.AuditEvent, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}
