package http

import (
	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditUseCase "github.com/allisson/fleetvault/internal/audit/usecase"
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	"github.com/allisson/fleetvault/internal/httputil"
)

// operationAudit appends one chain event per cryptographic request, successful or not.
type operationAudit struct {
	chain auditUseCase.AuditChain
}

type auditEntry struct {
	eventType      auditDomain.EventType
	action         string
	classification cryptoDomain.Classification
	details        map[string]any
	severity       auditDomain.Severity
}

// record appends the entry for the caller in c. A failed operation is recorded with
// status failure and severity raised to high.
func (a operationAudit) record(c *gin.Context, entry auditEntry, opErr error) error {
	identity := httputil.GetIdentity(c)

	details := entry.details
	if details == nil {
		details = map[string]any{}
	}
	details["classification"] = entry.classification.String()

	status := auditDomain.StatusSuccess
	severity := entry.severity
	if opErr != nil {
		status = auditDomain.StatusFailure
		severity = auditDomain.SeverityHigh
		details["error"] = opErr.Error()
	}

	_, err := a.chain.Append(c.Request.Context(), &auditDomain.EventInput{
		EventType: entry.eventType,
		ActorID:   identity.ActorID,
		TenantID:  identity.TenantID,
		Resource:  "classification:" + entry.classification.String(),
		Action:    entry.action,
		Status:    status,
		Details:   details,
		Severity:  severity,
	})
	return err
}

// accessSeverity grades a successful data access by the sensitivity of the data.
func accessSeverity(c cryptoDomain.Classification) auditDomain.Severity {
	if c == cryptoDomain.Restricted {
		return auditDomain.SeverityMedium
	}
	return auditDomain.SeverityLow
}
