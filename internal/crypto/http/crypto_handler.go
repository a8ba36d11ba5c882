// Package http provides HTTP handlers for field-level encryption and key management.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	"github.com/allisson/fleetvault/internal/crypto/http/dto"
	cryptoUseCase "github.com/allisson/fleetvault/internal/crypto/usecase"
	"github.com/allisson/fleetvault/internal/httputil"
	customValidation "github.com/allisson/fleetvault/internal/validation"
)

// CryptoHandler handles HTTP requests for value and object encryption.
// Every request is appended to the audit chain; a response is only returned once
// its audit event is committed.
type CryptoHandler struct {
	transformer cryptoUseCase.ObjectTransformer
	audit       operationAudit
	logger      *slog.Logger
}

// NewCryptoHandler creates a new crypto handler with required dependencies.
func NewCryptoHandler(
	transformer cryptoUseCase.ObjectTransformer,
	auditChain auditUseCase.AuditChain,
	logger *slog.Logger,
) *CryptoHandler {
	return &CryptoHandler{
		transformer: transformer,
		audit:       operationAudit{chain: auditChain},
		logger:      logger,
	}
}

// EncryptHandler seals a single base64 value under the active key of a classification.
// POST /v1/crypto/encrypt - Returns 200 OK with the envelope.
func (h *CryptoHandler) EncryptHandler(c *gin.Context) {
	var req dto.EncryptRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, err := req.DecodePlaintext()
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 plaintext: %w", err), h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	aad, err := req.DecodeAAD()
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 aad: %w", err), h.logger)
		return
	}

	classification := req.ParsedClassification()
	envelope, err := h.transformer.EncryptValue(c.Request.Context(), classification, plaintext, aad)

	entry := auditEntry{
		eventType:      auditDomain.EventTypeEncrypt,
		action:         "encrypt",
		classification: classification,
		severity:       accessSeverity(classification),
	}
	if err == nil {
		entry.details = envelopeDetails(envelope)
	}
	if !h.commit(c, entry, err) {
		return
	}

	c.JSON(http.StatusOK, envelope)
}

// DecryptHandler opens an envelope produced by EncryptHandler.
// POST /v1/crypto/decrypt - Returns 200 OK with base64 plaintext.
func (h *CryptoHandler) DecryptHandler(c *gin.Context) {
	var req dto.DecryptRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	envelope, err := req.DecodeEnvelope()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	aad, err := req.DecodeAAD()
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 aad: %w", err), h.logger)
		return
	}

	plaintext, err := h.transformer.DecryptValue(c.Request.Context(), envelope, aad)
	defer cryptoDomain.Zero(plaintext)

	entry := auditEntry{
		eventType:      auditDomain.EventTypeDecrypt,
		action:         "decrypt",
		classification: envelope.Classification,
		details:        envelopeDetails(envelope),
		severity:       accessSeverity(envelope.Classification),
	}
	if !h.commit(c, entry, err) {
		return
	}

	c.JSON(http.StatusOK, dto.MapDecryptResponse(plaintext))
}

// EncryptObjectHandler seals every classified field of a record.
// POST /v1/crypto/objects/encrypt - Returns 200 OK with the transformed record.
func (h *CryptoHandler) EncryptObjectHandler(c *gin.Context) {
	h.transformObject(c, auditDomain.EventTypeEncryptObject, "encrypt_object", h.transformer.EncryptObject)
}

// DecryptObjectHandler opens every envelope found at a classified field of a record.
// POST /v1/crypto/objects/decrypt - Returns 200 OK with the restored record.
func (h *CryptoHandler) DecryptObjectHandler(c *gin.Context) {
	h.transformObject(c, auditDomain.EventTypeDecryptObject, "decrypt_object", h.transformer.DecryptObject)
}

type objectFunc func(
	ctx context.Context,
	obj map[string]any,
	classification cryptoDomain.Classification,
) (map[string]any, error)

func (h *CryptoHandler) transformObject(
	c *gin.Context,
	eventType auditDomain.EventType,
	action string,
	transform objectFunc,
) {
	var req dto.ObjectRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	classification := req.ParsedClassification()
	result, err := transform(c.Request.Context(), req.Object, classification)

	entry := auditEntry{
		eventType:      eventType,
		action:         action,
		classification: classification,
		details:        map[string]any{"topLevelFields": len(req.Object)},
		severity:       accessSeverity(classification),
	}
	if !h.commit(c, entry, err) {
		return
	}

	c.JSON(http.StatusOK, dto.ObjectResponse{Object: result})
}

// commit records the audit entry and writes the error response when either the
// operation or the audit append failed. It reports whether the caller may respond.
func (h *CryptoHandler) commit(c *gin.Context, entry auditEntry, opErr error) bool {
	auditErr := h.audit.record(c, entry, opErr)
	if opErr != nil {
		if auditErr != nil {
			h.logger.Error("failed to audit crypto failure",
				slog.String("event_type", string(entry.eventType)),
				slog.Any("error", auditErr),
			)
		}
		httputil.HandleErrorGin(c, opErr, h.logger)
		return false
	}
	if auditErr != nil {
		httputil.HandleErrorGin(c, auditErr, h.logger)
		return false
	}
	return true
}

func envelopeDetails(envelope *cryptoDomain.EncryptedEnvelope) map[string]any {
	return map[string]any{
		"keyVersion": envelope.KeyVersion,
		"algorithm":  string(envelope.Algorithm),
	}
}
