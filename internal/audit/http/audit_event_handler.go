// Package http provides HTTP handlers for the audit ledger.
package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	"github.com/allisson/fleetvault/internal/audit/http/dto"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
	"github.com/allisson/fleetvault/internal/httputil"
	customValidation "github.com/allisson/fleetvault/internal/validation"
)

// AuditEventHandler handles HTTP requests for the audit chain and its verification.
type AuditEventHandler struct {
	chain    auditUseCase.AuditChain
	verifier auditUseCase.ChainVerifier
	logger   *slog.Logger
}

// NewAuditEventHandler creates a new audit event handler with required dependencies.
func NewAuditEventHandler(
	chain auditUseCase.AuditChain,
	verifier auditUseCase.ChainVerifier,
	logger *slog.Logger,
) *AuditEventHandler {
	return &AuditEventHandler{
		chain:    chain,
		verifier: verifier,
		logger:   logger,
	}
}

// CreateHandler appends a caller-supplied event to the chain.
// POST /v1/audit/events - Returns 201 Created with the committed event.
func (h *AuditEventHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	event, err := h.chain.LogEvent(c.Request.Context(), req.ToInput(httputil.GetIdentity(c)))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapAuditEventToResponse(event))
}

// ListHandler returns committed events in sequence order.
// GET /v1/audit/events?type=&actor=&from=&to=&offset=0&limit=50
func (h *AuditEventHandler) ListHandler(c *gin.Context) {
	filter, err := dto.ParseFilter(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	events, err := h.chain.ListEvents(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditEventsToListResponse(events))
}

// GetHandler returns one event.
// GET /v1/audit/events/:id
func (h *AuditEventHandler) GetHandler(c *gin.Context) {
	id, err := dto.ParseEventID(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	event, err := h.chain.GetEventByID(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditEventToResponse(event))
}

// ChainHandler returns the events from genesis up to and including the given one.
// GET /v1/audit/events/:id/chain
func (h *AuditEventHandler) ChainHandler(c *gin.Context) {
	id, err := dto.ParseEventID(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	events, err := h.chain.GetEventChain(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditEventsToListResponse(events))
}

// TamperHandler recomputes the hash of one stored event.
// GET /v1/audit/events/:id/tamper
func (h *AuditEventHandler) TamperHandler(c *gin.Context) {
	id, err := dto.ParseEventID(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	tampered, err := h.verifier.DetectTamper(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.TamperResponse{ID: id.String(), Tampered: tampered})
}

// DeleteHandler records a deletion of the event. The target stays in the chain.
// DELETE /v1/audit/events/:id - Returns 201 Created with the deletion record.
func (h *AuditEventHandler) DeleteHandler(c *gin.Context) {
	var req dto.DeleteEventRequest

	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := req.ToInput(httputil.GetIdentity(c), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	event, err := h.chain.RecordDeletion(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapAuditEventToResponse(event))
}

// VerifyHandler walks the stored chain and reports the first break. The outcome is
// itself appended to the chain.
// GET /v1/audit/verify - Returns 200 OK for an intact chain, 409 Conflict otherwise.
func (h *AuditEventHandler) VerifyHandler(c *gin.Context) {
	report, err := h.verifier.VerifyChain(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	status := auditDomain.StatusSuccess
	severity := auditDomain.SeverityLow
	details := map[string]any{"length": report.Length}
	if !report.Valid {
		status = auditDomain.StatusFailure
		severity = auditDomain.SeverityCritical
		details["breakIndex"] = report.BreakIndex
		details["reason"] = report.Reason
	}

	identity := httputil.GetIdentity(c)
	if _, err := h.chain.Append(c.Request.Context(), &auditDomain.EventInput{
		EventType: auditDomain.EventTypeChainVerify,
		ActorID:   identity.ActorID,
		TenantID:  identity.TenantID,
		Resource:  "audit_chain",
		Action:    "verify",
		Status:    status,
		Details:   details,
		Severity:  severity,
	}); err != nil {
		h.logger.Error("failed to record chain verification", slog.Any("error", err))
	}

	code := http.StatusOK
	if !report.Valid {
		code = http.StatusConflict
	}
	c.JSON(code, dto.MapVerificationReport(report))
}
