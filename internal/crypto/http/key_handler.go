package http

import (
	"errors"
	"io"
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

// KeyHandler handles HTTP requests for classification key lifecycle.
type KeyHandler struct {
	keyManager cryptoUseCase.KeyManager
	audit      operationAudit
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(
	keyManager cryptoUseCase.KeyManager,
	auditChain auditUseCase.AuditChain,
	logger *slog.Logger,
) *KeyHandler {
	return &KeyHandler{
		keyManager: keyManager,
		audit:      operationAudit{chain: auditChain},
		logger:     logger,
	}
}

// RotateHandler activates a new key version for one classification, or for every keyed
// classification when the body is empty or names none.
// POST /v1/keys/rotate - Returns 200 OK with the new active versions.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	var req dto.RotateKeysRequest

	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	targets := cryptoDomain.KeyedClassifications()
	if req.Classification != "" {
		parsed, _ := cryptoDomain.ParseClassification(req.Classification)
		targets = []cryptoDomain.Classification{parsed}
	}

	// Rotations are audited one classification at a time so a partial failure still
	// leaves a record of every version that was activated.
	rotated := make(map[cryptoDomain.Classification]*cryptoDomain.KeyVersion, len(targets))
	for _, classification := range targets {
		version, err := h.keyManager.Rotate(c.Request.Context(), classification)

		entry := auditEntry{
			eventType:      auditDomain.EventTypeKeyRotate,
			action:         "rotate",
			classification: classification,
			severity:       auditDomain.SeverityHigh,
		}
		if err == nil {
			entry.details = map[string]any{"newVersion": version.Version}
		}
		auditErr := h.audit.record(c, entry, err)

		if err != nil {
			if auditErr != nil {
				h.logger.Error("failed to audit key rotation failure",
					slog.String("classification", classification.String()),
					slog.Any("error", auditErr),
				)
			}
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		if auditErr != nil {
			httputil.HandleErrorGin(c, auditErr, h.logger)
			return
		}
		rotated[classification] = version
	}

	c.JSON(http.StatusOK, dto.MapRotateKeysResponse(rotated))
}

// GetHandler describes the key versions of a classification without creating any.
// GET /v1/keys/:classification - Returns 200 OK with the active version and history.
func (h *KeyHandler) GetHandler(c *gin.Context) {
	classification, err := dto.ParseKeyedClassification(c.Param("classification"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	versions, err := h.keyManager.ListVersions(c.Request.Context(), classification)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyStatusResponse(classification, versions))
}
