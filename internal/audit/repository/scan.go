package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

const eventColumns = `sequence, id, occurred_at, event_type, actor_id, tenant_id, resource, action,
	status, details, severity, hash, previous_hash`

type rowScanner interface {
	Scan(dest ...any) error
}

// eventRow holds the column values that need conversion before they fit the domain.
type eventRow struct {
	sequence int64
	details  []byte
	status   string
	severity string
	kind     string
}

func (r *eventRow) toEvent(event *auditDomain.AuditEvent) error {
	if r.sequence < 0 {
		return fmt.Errorf("%w: negative sequence %d", auditDomain.ErrEventSerialization, r.sequence)
	}
	details, err := auditDomain.DecodeDetails(r.details)
	if err != nil {
		return err
	}
	event.Sequence = uint64(r.sequence)
	event.Details = details
	event.Status = auditDomain.Status(r.status)
	event.Severity = auditDomain.Severity(r.severity)
	event.EventType = auditDomain.EventType(r.kind)
	event.Timestamp = event.Timestamp.UTC()
	return nil
}

// marshalDetails encodes details for the text column. Nil details are stored as NULL.
func marshalDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auditDomain.ErrEventSerialization, err)
	}
	return data, nil
}

func collectEvents(
	rows *sql.Rows,
	scan func(rowScanner) (*auditDomain.AuditEvent, error),
) ([]*auditDomain.AuditEvent, error) {
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*auditDomain.AuditEvent, 0)
	for rows.Next() {
		event, err := scan(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit events")
	}
	return events, nil
}
