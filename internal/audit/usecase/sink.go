package usecase

import (
	"context"
	"errors"
	"log/slog"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
)

// LogSink writes one structured log record per event. Pointed at a JSON handler on
// stdout it gives log shippers a SIEM-ready stream.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit logs the event.
func (s *LogSink) Emit(ctx context.Context, event *auditDomain.AuditEvent) error {
	s.logger.LogAttrs(ctx, severityLevel(event.Severity), "audit event",
		slog.String("event_id", event.ID.String()),
		slog.Uint64("sequence", event.Sequence),
		slog.Time("timestamp", event.Timestamp),
		slog.String("event_type", string(event.EventType)),
		slog.String("actor_id", event.ActorID),
		slog.String("tenant_id", event.TenantID),
		slog.String("resource", event.Resource),
		slog.String("action", event.Action),
		slog.String("status", string(event.Status)),
		slog.String("severity", string(event.Severity)),
		slog.Any("details", event.Details),
		slog.String("hash", event.Hash),
		slog.String("previous_hash", event.PreviousHash),
	)
	return nil
}

func severityLevel(s auditDomain.Severity) slog.Level {
	switch s {
	case auditDomain.SeverityCritical:
		return slog.LevelError
	case auditDomain.SeverityHigh:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// MultiSink fans an event out to several sinks. Every sink is tried; the joined error
// is returned, so a retry resends to all of them.
type MultiSink []Sink

// Emit forwards the event to each sink.
func (m MultiSink) Emit(ctx context.Context, event *auditDomain.AuditEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
