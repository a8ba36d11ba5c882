package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
)

// RunVerifyChain recomputes every stored hash and link of the audit chain and reports the
// first break. The outcome is appended to the chain as audit.verify. A broken chain makes
// the command fail so scripts can alert on the exit code.
//
// chain must already be loaded; its length bounds the scan.
func RunVerifyChain(
	ctx context.Context,
	verifier auditUseCase.ChainVerifier,
	chain auditUseCase.AuditChain,
	logger *slog.Logger,
	writer io.Writer,
	actor string,
	format string,
) error {
	logger.Info("verifying audit chain", slog.Uint64("length", chain.Length()))

	report, err := verifier.VerifyChain(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify audit chain: %w", err)
	}

	status := auditDomain.StatusSuccess
	severity := auditDomain.SeverityLow
	details := map[string]any{"length": report.Length, "origin": "cli"}
	if !report.Valid {
		status = auditDomain.StatusFailure
		severity = auditDomain.SeverityCritical
		details["breakIndex"] = report.BreakIndex
		details["reason"] = report.Reason
	}
	if _, err := chain.Append(ctx, &auditDomain.EventInput{
		EventType: auditDomain.EventTypeChainVerify,
		ActorID:   actor,
		Resource:  "audit_chain",
		Action:    "verify",
		Status:    status,
		Details:   details,
		Severity:  severity,
	}); err != nil {
		logger.Error("failed to record chain verification", slog.Any("error", err))
	}

	if format == "json" {
		if err := outputVerifyJSON(writer, report); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputVerifyText(writer, report)
	}

	logger.Info("verification completed",
		slog.Bool("valid", report.Valid),
		slog.Uint64("length", report.Length),
		slog.Int64("break_index", report.BreakIndex),
	)

	return report.Err()
}

func outputVerifyText(writer io.Writer, report *auditUseCase.VerificationReport) {
	_, _ = fmt.Fprintf(writer, "Audit Chain Verification\n")
	_, _ = fmt.Fprintf(writer, "========================\n\n")
	_, _ = fmt.Fprintf(writer, "Events Checked: %d\n", report.Length)
	_, _ = fmt.Fprintf(writer, "Verified At:    %s\n\n", report.VerifiedAt.Format("2006-01-02 15:04:05"))

	if report.Valid {
		_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
		return
	}
	_, _ = fmt.Fprintf(writer, "Break Index:    %d\n", report.BreakIndex)
	if report.BreakEventID != nil {
		_, _ = fmt.Fprintf(writer, "Break Event:    %s\n", report.BreakEventID)
	}
	_, _ = fmt.Fprintf(writer, "Reason:         %s\n\n", report.Reason)
	_, _ = fmt.Fprintf(writer, "Status: FAILED\n")
}

func outputVerifyJSON(writer io.Writer, report *auditUseCase.VerificationReport) error {
	result := map[string]any{
		"valid":          report.Valid,
		"length":         report.Length,
		"break_index":    report.BreakIndex,
		"break_event_id": report.BreakEventID,
		"reason":         report.Reason,
		"verified_at":    report.VerifiedAt,
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
