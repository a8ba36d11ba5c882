// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
	"github.com/allisson/fleetvault/internal/httputil"
	customValidation "github.com/allisson/fleetvault/internal/validation"
)

// CreateEventRequest contains a caller-supplied audit event. Actor and tenant come from
// the identity headers, never from the body.
type CreateEventRequest struct {
	EventType string         `json:"event_type"`
	Resource  string         `json:"resource"`
	Action    string         `json:"action"`
	Status    string         `json:"status"`
	Severity  string         `json:"severity"`
	Details   map[string]any `json:"details"`
}

// Validate checks if the create event request is valid.
func (r *CreateEventRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EventType,
			validation.Required,
			customValidation.EventType,
			validation.By(notReserved),
			validation.Length(1, 128),
		),
		validation.Field(&r.Resource, validation.Length(0, 255)),
		validation.Field(&r.Action, validation.Length(0, 128)),
		validation.Field(&r.Status,
			validation.Required,
			validation.In(string(auditDomain.StatusSuccess), string(auditDomain.StatusFailure)),
		),
		validation.Field(&r.Severity,
			validation.Required,
			validation.In(
				string(auditDomain.SeverityLow),
				string(auditDomain.SeverityMedium),
				string(auditDomain.SeverityHigh),
				string(auditDomain.SeverityCritical),
			),
		),
	)
}

// ToInput builds the chain input for the given caller.
func (r *CreateEventRequest) ToInput(identity httputil.Identity) *auditDomain.EventInput {
	return &auditDomain.EventInput{
		EventType: auditDomain.EventType(r.EventType),
		ActorID:   identity.ActorID,
		TenantID:  identity.TenantID,
		Resource:  r.Resource,
		Action:    r.Action,
		Status:    auditDomain.Status(r.Status),
		Details:   r.Details,
		Severity:  auditDomain.Severity(r.Severity),
	}
}

// DeleteEventRequest carries the optional reason for a deletion record.
type DeleteEventRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the delete event request is valid.
func (r *DeleteEventRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Length(0, 1024)),
	)
}

// ToInput builds the deletion input for the given caller.
func (r *DeleteEventRequest) ToInput(identity httputil.Identity, target string) (*auditUseCase.DeletionInput, error) {
	id, err := ParseEventID(target)
	if err != nil {
		return nil, err
	}
	return &auditUseCase.DeletionInput{
		ActorID:  identity.ActorID,
		TenantID: identity.TenantID,
		TargetID: id,
		Reason:   r.Reason,
	}, nil
}

func notReserved(value any) error {
	s, _ := value.(string)
	if auditDomain.EventType(s).Reserved() {
		return validation.NewError("validation_event_type_reserved", "is reserved for events written by the service")
	}
	return nil
}
