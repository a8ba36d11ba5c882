package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SecurityMetrics records the health of the audit chain and the key lifecycle.
type SecurityMetrics interface {
	// RecordChainLength publishes the committed length of the audit chain.
	RecordChainLength(ctx context.Context, length int64)

	// RecordIntegrityViolation counts a failed chain check ("verify_chain" or "detect_tamper").
	RecordIntegrityViolation(ctx context.Context, check string)

	// RecordKeyVersion publishes the active key version of a classification.
	RecordKeyVersion(ctx context.Context, classification string, version int64)
}

type securityMetrics struct {
	chainLength metric.Int64Gauge
	violations  metric.Int64Counter
	keyVersion  metric.Int64Gauge
}

// NewSecurityMetrics creates SecurityMetrics backed by the given meter provider.
func NewSecurityMetrics(meterProvider metric.MeterProvider, namespace string) (SecurityMetrics, error) {
	meter := meterProvider.Meter(namespace)

	chainLength, err := meter.Int64Gauge(
		fmt.Sprintf("%s_audit_chain_length", namespace),
		metric.WithDescription("Number of committed events in the audit chain"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chain length gauge: %w", err)
	}

	violations, err := meter.Int64Counter(
		fmt.Sprintf("%s_audit_integrity_violations_total", namespace),
		metric.WithDescription("Total number of failed audit chain integrity checks"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create integrity violation counter: %w", err)
	}

	keyVersion, err := meter.Int64Gauge(
		fmt.Sprintf("%s_active_key_version", namespace),
		metric.WithDescription("Active key version per classification"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key version gauge: %w", err)
	}

	return &securityMetrics{chainLength: chainLength, violations: violations, keyVersion: keyVersion}, nil
}

func (s *securityMetrics) RecordChainLength(ctx context.Context, length int64) {
	s.chainLength.Record(ctx, length)
}

func (s *securityMetrics) RecordIntegrityViolation(ctx context.Context, check string) {
	s.violations.Add(ctx, 1, metric.WithAttributes(attribute.String("check", check)))
}

func (s *securityMetrics) RecordKeyVersion(ctx context.Context, classification string, version int64) {
	s.keyVersion.Record(ctx, version, metric.WithAttributes(attribute.String("classification", classification)))
}

// NoOpSecurityMetrics discards everything.
type NoOpSecurityMetrics struct{}

// NewNoOpSecurityMetrics creates a SecurityMetrics that records nothing.
func NewNoOpSecurityMetrics() SecurityMetrics {
	return &NoOpSecurityMetrics{}
}

func (n *NoOpSecurityMetrics) RecordChainLength(ctx context.Context, length int64) {}

func (n *NoOpSecurityMetrics) RecordIntegrityViolation(ctx context.Context, check string) {}

func (n *NoOpSecurityMetrics) RecordKeyVersion(ctx context.Context, classification string, version int64) {
}
