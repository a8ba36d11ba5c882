package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
	cryptoUseCase "github.com/allisson/fleetvault/internal/crypto/usecase"
)

// RunPurgeKeyVersion destroys a retired key version. Envelopes sealed under it can never
// be decrypted again, so the command refuses to run without confirm. The attempt is
// appended to the audit chain as keys.purge whether or not it succeeds.
func RunPurgeKeyVersion(
	ctx context.Context,
	keyManager cryptoUseCase.KeyManager,
	chain auditUseCase.AuditChain,
	logger *slog.Logger,
	writer io.Writer,
	actor string,
	classificationName string,
	rawVersion int64,
	confirm bool,
) error {
	classification, err := parseKeyedClassification(classificationName)
	if err != nil {
		return err
	}
	if rawVersion < 1 {
		return fmt.Errorf("version must be positive, got %d", rawVersion)
	}
	version := uint(rawVersion)
	if !confirm {
		return fmt.Errorf("purging %s version %d is irreversible: pass --confirm to proceed", classification, version)
	}

	logger.Warn("purging key version",
		slog.String("classification", classification.String()),
		slog.Uint64("version", uint64(version)),
	)

	purgeErr := keyManager.Purge(ctx, classification, version)
	auditErr := recordKeyEvent(ctx, chain, keyEvent{
		eventType:      auditDomain.EventTypeKeyPurge,
		action:         "purge",
		actor:          actor,
		classification: classification,
		severity:       auditDomain.SeverityCritical,
		details:        map[string]any{"version": version},
	}, purgeErr)

	if purgeErr != nil {
		if auditErr != nil {
			logger.Error("failed to audit key purge failure", slog.Any("error", auditErr))
		}
		return fmt.Errorf("failed to purge %s version %d: %w", classification, version, purgeErr)
	}
	if auditErr != nil {
		return auditErr
	}

	_, _ = fmt.Fprintf(writer, "%s: version %d destroyed\n", classification, version)
	return nil
}
