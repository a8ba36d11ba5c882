package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/fleetvault/internal/audit/domain"
	auditService "github.com/allisson/fleetvault/internal/audit/service"
	apperrors "github.com/allisson/fleetvault/internal/errors"
)

const verifyPageSize = 500

// Err returns nil for a valid report and an error wrapping
// auditDomain.ErrChainIntegrityViolation otherwise.
func (r *VerificationReport) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: break at index %d: %s", auditDomain.ErrChainIntegrityViolation, r.BreakIndex, r.Reason)
}

// chainVerifier implements ChainVerifier. It reads from the repository rather than the
// chain's memory so that tampering with stored rows is visible.
type chainVerifier struct {
	chain  AuditChain
	repo   EventRepository
	hasher auditService.Hasher
	logger *slog.Logger
}

// NewChainVerifier creates a ChainVerifier. chain only supplies the committed length.
func NewChainVerifier(
	chain AuditChain,
	repo EventRepository,
	hasher auditService.Hasher,
	logger *slog.Logger,
) ChainVerifier {
	return &chainVerifier{chain: chain, repo: repo, hasher: hasher, logger: logger}
}

func (v *chainVerifier) VerifyChain(ctx context.Context) (*VerificationReport, error) {
	// Appends that land while we scan are outside this run.
	length := v.chain.Length()
	report := &VerificationReport{Valid: true, Length: length, BreakIndex: -1}

	previousHash := auditDomain.GenesisHash
	for from := uint64(0); from < length; {
		page, err := v.repo.ListBySequence(ctx, from, int(min(verifyPageSize, length-from)))
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to read audit chain")
		}
		if len(page) == 0 {
			v.fail(report, from, nil, "stored chain is shorter than committed length")
			break
		}

		for _, event := range page {
			if reason := v.check(event, from, previousHash); reason != "" {
				id := event.ID
				v.fail(report, from, &id, reason)
				break
			}
			previousHash = event.Hash
			from++
		}
		if !report.Valid {
			break
		}
	}

	report.VerifiedAt = time.Now().UTC()
	if !report.Valid {
		v.logger.Error("audit chain verification failed",
			slog.Int64("break_index", report.BreakIndex),
			slog.String("reason", report.Reason),
		)
	}
	return report, nil
}

// check returns an empty string when event is a valid successor of previousHash at
// position index.
func (v *chainVerifier) check(event *auditDomain.AuditEvent, index uint64, previousHash string) string {
	if event.Sequence != index {
		return fmt.Sprintf("expected sequence %d, found %d", index, event.Sequence)
	}
	if event.PreviousHash != previousHash {
		return "previous hash does not match predecessor"
	}
	ok, err := v.hasher.Verify(event)
	if err != nil {
		return fmt.Sprintf("event cannot be hashed: %v", err)
	}
	if !ok {
		return "stored hash does not match recomputed hash"
	}
	return ""
}

func (v *chainVerifier) fail(report *VerificationReport, index uint64, id *uuid.UUID, reason string) {
	report.Valid = false
	report.BreakIndex = int64(index)
	report.BreakEventID = id
	report.Reason = reason
}

func (v *chainVerifier) DetectTamper(ctx context.Context, id uuid.UUID) (bool, error) {
	event, err := v.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	ok, err := v.hasher.Verify(event)
	if err != nil {
		// A record that no longer decodes into a hashable event has been altered.
		v.logger.Warn("audit event cannot be rehashed",
			slog.String("event_id", id.String()),
			slog.Any("error", err),
		)
		return true, nil
	}
	if !ok {
		v.logger.Warn("audit event tampered", slog.String("event_id", id.String()))
	}
	return !ok, nil
}
