package dto

import (
	"time"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
)

// AuditEventResponse represents a committed ledger entry in API responses.
type AuditEventResponse struct {
	ID           string         `json:"id"`
	Sequence     uint64         `json:"sequence"`
	Timestamp    time.Time      `json:"timestamp"`
	EventType    string         `json:"event_type"`
	ActorID      string         `json:"actor_id"`
	TenantID     string         `json:"tenant_id,omitempty"`
	Resource     string         `json:"resource,omitempty"`
	Action       string         `json:"action,omitempty"`
	Status       string         `json:"status"`
	Severity     string         `json:"severity"`
	Details      map[string]any `json:"details,omitempty"`
	Hash         string         `json:"hash"`
	PreviousHash string         `json:"previous_hash"`
}

// MapAuditEventToResponse converts a domain event to an API response.
func MapAuditEventToResponse(event *auditDomain.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:           event.ID.String(),
		Sequence:     event.Sequence,
		Timestamp:    event.Timestamp,
		EventType:    string(event.EventType),
		ActorID:      event.ActorID,
		TenantID:     event.TenantID,
		Resource:     event.Resource,
		Action:       event.Action,
		Status:       string(event.Status),
		Severity:     string(event.Severity),
		Details:      event.Details,
		Hash:         event.Hash,
		PreviousHash: event.PreviousHash,
	}
}

// ListAuditEventsResponse wraps a page of events.
type ListAuditEventsResponse struct {
	Data []AuditEventResponse `json:"data"`
}

// MapAuditEventsToListResponse converts domain events to a list response.
func MapAuditEventsToListResponse(events []*auditDomain.AuditEvent) ListAuditEventsResponse {
	data := make([]AuditEventResponse, 0, len(events))
	for _, event := range events {
		data = append(data, MapAuditEventToResponse(event))
	}
	return ListAuditEventsResponse{Data: data}
}

// VerificationResponse reports the outcome of a full chain verification.
type VerificationResponse struct {
	Valid        bool      `json:"valid"`
	Length       uint64    `json:"length"`
	BreakIndex   int64     `json:"break_index"`
	BreakEventID *string   `json:"break_event_id,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	VerifiedAt   time.Time `json:"verified_at"`
}

// MapVerificationReport converts a verifier report to an API response.
func MapVerificationReport(report *auditUseCase.VerificationReport) VerificationResponse {
	resp := VerificationResponse{
		Valid:      report.Valid,
		Length:     report.Length,
		BreakIndex: report.BreakIndex,
		Reason:     report.Reason,
		VerifiedAt: report.VerifiedAt,
	}
	if report.BreakEventID != nil {
		id := report.BreakEventID.String()
		resp.BreakEventID = &id
	}
	return resp
}

// TamperResponse reports whether a single event still matches its stored hash.
type TamperResponse struct {
	ID       string `json:"id"`
	Tampered bool   `json:"tampered"`
}
