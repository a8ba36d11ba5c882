// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/fleetvault/internal/app"
	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// CLIActor is the default audit actor for operator commands.
const CLIActor = "cli"

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// parseKeyedClassification accepts a classification name that owns a key.
func parseKeyedClassification(s string) (cryptoDomain.Classification, error) {
	c, err := cryptoDomain.ParseClassification(s)
	if err != nil {
		return c, err
	}
	if !c.Keyed() {
		return c, fmt.Errorf("%w: %s", cryptoDomain.ErrUnkeyedClassification, c)
	}
	return c, nil
}

// keyEvent describes a key lifecycle operation performed from the command line.
type keyEvent struct {
	eventType      auditDomain.EventType
	action         string
	actor          string
	classification cryptoDomain.Classification
	severity       auditDomain.Severity
	details        map[string]any
}

// recordKeyEvent appends the outcome of a key operation to the chain. A failed
// operation is recorded with status failure.
func recordKeyEvent(ctx context.Context, chain auditUseCase.AuditChain, ev keyEvent, opErr error) error {
	details := ev.details
	if details == nil {
		details = map[string]any{}
	}
	details["classification"] = ev.classification.String()
	details["origin"] = "cli"

	status := auditDomain.StatusSuccess
	if opErr != nil {
		status = auditDomain.StatusFailure
		details["error"] = opErr.Error()
	}

	_, err := chain.Append(ctx, &auditDomain.EventInput{
		EventType: ev.eventType,
		ActorID:   ev.actor,
		Resource:  "classification:" + ev.classification.String(),
		Action:    ev.action,
		Status:    status,
		Details:   details,
		Severity:  ev.severity,
	})
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", ev.eventType, err)
	}
	return nil
}
