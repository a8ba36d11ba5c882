package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	"github.com/allisson/fleetvault/internal/database"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

// PostgreSQLEventRepository persists audit events in PostgreSQL. sequence is the primary
// key, so a second writer extending the same tail fails on the unique constraint. Details
// live in a JSON (not JSONB) column to keep the hashed text byte for byte.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRepository creates a new PostgreSQL event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}

// Create inserts a finalized event.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *auditDomain.AuditEvent) error {
	querier := database.GetTx(ctx, p.db)

	details, err := marshalDetails(event.Details)
	if err != nil {
		return err
	}

	// lib/pq sends []byte as bytea; the JSON column wants text.
	var detailsArg any
	if details != nil {
		detailsArg = string(details)
	}

	query := `INSERT INTO audit_events (` + eventColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = querier.ExecContext(
		ctx,
		query,
		int64(event.Sequence),
		event.ID,
		event.Timestamp,
		string(event.EventType),
		event.ActorID,
		event.TenantID,
		event.Resource,
		event.Action,
		string(event.Status),
		detailsArg,
		string(event.Severity),
		event.Hash,
		event.PreviousHash,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrConflict, "audit event sequence %d", event.Sequence)
		}
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// GetByID returns the event with the given id.
func (p *PostgreSQLEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventColumns + ` FROM audit_events WHERE id = $1`

	event, err := scanPostgreSQLEvent(querier.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auditDomain.ErrEventNotFound
	}
	return event, err
}

// ListBySequence returns up to limit events with sequence >= from in ascending order.
func (p *PostgreSQLEventRepository) ListBySequence(
	ctx context.Context,
	from uint64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventColumns + ` FROM audit_events
			  WHERE sequence >= $1
			  ORDER BY sequence ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, int64(from), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return collectEvents(rows, scanPostgreSQLEvent)
}

// Count returns the number of stored events.
func (p *PostgreSQLEventRepository) Count(ctx context.Context) (uint64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit events")
	}
	return uint64(count), nil
}

func scanPostgreSQLEvent(row rowScanner) (*auditDomain.AuditEvent, error) {
	var event auditDomain.AuditEvent
	var raw eventRow

	err := row.Scan(
		&raw.sequence,
		&event.ID,
		&event.Timestamp,
		&raw.kind,
		&event.ActorID,
		&event.TenantID,
		&event.Resource,
		&event.Action,
		&raw.status,
		&raw.details,
		&raw.severity,
		&event.Hash,
		&event.PreviousHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to scan audit event")
	}
	if err := raw.toEvent(&event); err != nil {
		return nil, err
	}
	return &event, nil
}
