package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	"github.com/allisson/fleetvault/internal/metrics"
)

func metricStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// auditChainWithMetrics decorates AuditChain with metrics instrumentation. Only writes
// are recorded; index reads are in-memory lookups.
type auditChainWithMetrics struct {
	AuditChain
	metrics  metrics.BusinessMetrics
	security metrics.SecurityMetrics
}

// NewAuditChainWithMetrics wraps an AuditChain with metrics recording.
func NewAuditChainWithMetrics(
	chain AuditChain,
	m metrics.BusinessMetrics,
	s metrics.SecurityMetrics,
) AuditChain {
	return &auditChainWithMetrics{AuditChain: chain, metrics: m, security: s}
}

func (a *auditChainWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metricStatus(err)
	a.metrics.RecordOperation(ctx, "audit", operation, status)
	a.metrics.RecordDuration(ctx, "audit", operation, time.Since(start), status)
	if err == nil {
		a.security.RecordChainLength(ctx, int64(a.Length()))
	}
}

func (a *auditChainWithMetrics) Append(
	ctx context.Context,
	input *auditDomain.EventInput,
) (*auditDomain.AuditEvent, error) {
	start := time.Now()
	event, err := a.AuditChain.Append(ctx, input)
	a.record(ctx, "append", start, err)
	return event, err
}

func (a *auditChainWithMetrics) LogEvent(
	ctx context.Context,
	input *auditDomain.EventInput,
) (*auditDomain.AuditEvent, error) {
	return a.Append(ctx, input)
}

func (a *auditChainWithMetrics) RecordDeletion(
	ctx context.Context,
	input *DeletionInput,
) (*auditDomain.AuditEvent, error) {
	start := time.Now()
	event, err := a.AuditChain.RecordDeletion(ctx, input)
	a.record(ctx, "record_deletion", start, err)
	return event, err
}

func (a *auditChainWithMetrics) Load(ctx context.Context) error {
	start := time.Now()
	err := a.AuditChain.Load(ctx)
	a.record(ctx, "load", start, err)
	return err
}

// chainVerifierWithMetrics decorates ChainVerifier with metrics instrumentation.
type chainVerifierWithMetrics struct {
	next     ChainVerifier
	metrics  metrics.BusinessMetrics
	security metrics.SecurityMetrics
}

// NewChainVerifierWithMetrics wraps a ChainVerifier with metrics recording. Detected
// breaks and tampered events are counted as integrity violations.
func NewChainVerifierWithMetrics(
	verifier ChainVerifier,
	m metrics.BusinessMetrics,
	s metrics.SecurityMetrics,
) ChainVerifier {
	return &chainVerifierWithMetrics{next: verifier, metrics: m, security: s}
}

func (v *chainVerifierWithMetrics) VerifyChain(ctx context.Context) (*VerificationReport, error) {
	start := time.Now()
	report, err := v.next.VerifyChain(ctx)
	status := metricStatus(err)
	v.metrics.RecordOperation(ctx, "audit", "verify_chain", status)
	v.metrics.RecordDuration(ctx, "audit", "verify_chain", time.Since(start), status)
	if err == nil && !report.Valid {
		v.security.RecordIntegrityViolation(ctx, "chain")
	}
	return report, err
}

func (v *chainVerifierWithMetrics) DetectTamper(ctx context.Context, id uuid.UUID) (bool, error) {
	start := time.Now()
	tampered, err := v.next.DetectTamper(ctx, id)
	status := metricStatus(err)
	v.metrics.RecordOperation(ctx, "audit", "detect_tamper", status)
	v.metrics.RecordDuration(ctx, "audit", "detect_tamper", time.Since(start), status)
	if tampered {
		v.security.RecordIntegrityViolation(ctx, "event")
	}
	return tampered, err
}
