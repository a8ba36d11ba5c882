package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
)

// RunDetectTamper checks a single stored event against its own hash. It reads only and
// fails when the event has been altered.
func RunDetectTamper(
	ctx context.Context,
	verifier auditUseCase.ChainVerifier,
	logger *slog.Logger,
	writer io.Writer,
	eventID string,
	format string,
) error {
	id, err := uuid.Parse(eventID)
	if err != nil {
		return fmt.Errorf("invalid event id %q: %w", eventID, err)
	}

	tampered, err := verifier.DetectTamper(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check event %s: %w", id, err)
	}

	if format == "json" {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(map[string]any{"id": id, "tampered": tampered}); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else if tampered {
		_, _ = fmt.Fprintf(writer, "Event %s: TAMPERED\n", id)
	} else {
		_, _ = fmt.Fprintf(writer, "Event %s: intact\n", id)
	}

	if tampered {
		logger.Error("tampered audit event detected", slog.String("event_id", id.String()))
		return fmt.Errorf("%w: event %s does not match its hash", auditDomain.ErrChainIntegrityViolation, id)
	}
	return nil
}
