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

// MySQLEventRepository persists audit events in MySQL. IDs are stored as BINARY(16) and
// details as LONGTEXT, since the JSON column type rewrites numbers and key order. The DSN
// must set parseTime=true.
type MySQLEventRepository struct {
	db *sql.DB
}

// NewMySQLEventRepository creates a new MySQL event repository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

// Create inserts a finalized event.
func (m *MySQLEventRepository) Create(ctx context.Context, event *auditDomain.AuditEvent) error {
	querier := database.GetTx(ctx, m.db)

	details, err := marshalDetails(event.Details)
	if err != nil {
		return err
	}

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	query := `INSERT INTO audit_events (` + eventColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		int64(event.Sequence),
		id,
		event.Timestamp,
		string(event.EventType),
		event.ActorID,
		event.TenantID,
		event.Resource,
		event.Action,
		string(event.Status),
		details,
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
func (m *MySQLEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, m.db)

	idBinary, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit event id")
	}

	query := `SELECT ` + eventColumns + ` FROM audit_events WHERE id = ?`

	event, err := scanMySQLEvent(querier.QueryRowContext(ctx, query, idBinary))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auditDomain.ErrEventNotFound
	}
	return event, err
}

// ListBySequence returns up to limit events with sequence >= from in ascending order.
func (m *MySQLEventRepository) ListBySequence(
	ctx context.Context,
	from uint64,
	limit int,
) ([]*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + eventColumns + ` FROM audit_events
			  WHERE sequence >= ?
			  ORDER BY sequence ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, int64(from), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return collectEvents(rows, scanMySQLEvent)
}

// Count returns the number of stored events.
func (m *MySQLEventRepository) Count(ctx context.Context) (uint64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit events")
	}
	return uint64(count), nil
}

func scanMySQLEvent(row rowScanner) (*auditDomain.AuditEvent, error) {
	var event auditDomain.AuditEvent
	var raw eventRow
	var idBinary []byte

	err := row.Scan(
		&raw.sequence,
		&idBinary,
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
	if err := event.ID.UnmarshalBinary(idBinary); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal audit event id")
	}
	if err := raw.toEvent(&event); err != nil {
		return nil, err
	}
	return &event, nil
}
