package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	cryptoUseCase "github.com/allisson/fleetvault/internal/crypto/usecase"
)

// RunRotateKeys activates a new key version for one classification, or for every keyed
// classification when classificationName is empty. Each rotation is appended to the
// audit chain as keys.rotate; the command stops at the first failure.
func RunRotateKeys(
	ctx context.Context,
	keyManager cryptoUseCase.KeyManager,
	chain auditUseCase.AuditChain,
	logger *slog.Logger,
	writer io.Writer,
	actor string,
	classificationName string,
	format string,
) error {
	targets := cryptoDomain.KeyedClassifications()
	if classificationName != "" {
		c, err := parseKeyedClassification(classificationName)
		if err != nil {
			return err
		}
		targets = []cryptoDomain.Classification{c}
	}

	rotated := make([]*cryptoDomain.KeyVersion, 0, len(targets))
	for _, classification := range targets {
		logger.Info("rotating classification key", slog.String("classification", classification.String()))

		version, err := keyManager.Rotate(ctx, classification)

		ev := keyEvent{
			eventType:      auditDomain.EventTypeKeyRotate,
			action:         "rotate",
			actor:          actor,
			classification: classification,
			severity:       auditDomain.SeverityHigh,
		}
		if err == nil {
			ev.details = map[string]any{"newVersion": version.Version}
		}
		auditErr := recordKeyEvent(ctx, chain, ev, err)

		if err != nil {
			if auditErr != nil {
				logger.Error("failed to audit key rotation failure", slog.Any("error", auditErr))
			}
			return fmt.Errorf("failed to rotate %s key: %w", classification, err)
		}
		if auditErr != nil {
			return auditErr
		}

		logger.Info("classification key rotated",
			slog.String("classification", classification.String()),
			slog.Uint64("version", uint64(version.Version)),
		)
		rotated = append(rotated, version)
	}

	sort.Slice(rotated, func(i, j int) bool { return rotated[i].Classification < rotated[j].Classification })

	if format == "json" {
		return outputRotateJSON(writer, rotated)
	}
	for _, v := range rotated {
		_, _ = fmt.Fprintf(writer, "%s: version %d active\n", v.Classification, v.Version)
	}
	return nil
}

func outputRotateJSON(writer io.Writer, rotated []*cryptoDomain.KeyVersion) error {
	result := make([]map[string]any, 0, len(rotated))
	for _, v := range rotated {
		result = append(result, map[string]any{
			"classification": v.Classification.String(),
			"version":        v.Version,
			"state":          string(v.State),
			"created_at":     v.CreatedAt,
		})
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to output JSON: %w", err)
	}
	return nil
}
