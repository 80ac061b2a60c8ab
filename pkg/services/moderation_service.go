package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/metrics"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/notify"
	"github.com/ekaya-inc/claimcheck/pkg/repositories"
)

// ModerationService moves claims out of PENDING and records every decision.
//
// Transitions: PENDING -> APPROVED (optionally rewriting title/description),
// PENDING -> REJECTED and PENDING -> FLAGGED (reason required). Validation
// happens before any write; a rejected request leaves no state change and no log entry.
type ModerationService interface {
	Approve(ctx context.Context, claimID uuid.UUID, moderatorID string, edits *models.ClaimEdits) (*models.Claim, error)
	Reject(ctx context.Context, claimID uuid.UUID, moderatorID string, reason string) (*models.Claim, error)
	Flag(ctx context.Context, claimID uuid.UUID, moderatorID string, reason string) (*models.Claim, error)

	// ListLogs returns the log for one target, newest first.
	ListLogs(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.ModerationLog, error)
	// ListRecentLogs returns the newest entries across all targets.
	ListRecentLogs(ctx context.Context, limit int) ([]*models.ModerationLog, error)
}

type moderationService struct {
	claimRepo repositories.ClaimRepository
	logRepo   repositories.ModerationLogRepository
	scorer    ClaimScoreService
	notifier  notify.Notifier
	now       func() time.Time
	logger    *zap.Logger
}

// ModerationServiceDeps contains dependencies for ModerationService.
type ModerationServiceDeps struct {
	ClaimRepo repositories.ClaimRepository
	LogRepo   repositories.ModerationLogRepository
	Scorer    ClaimScoreService
	Notifier  notify.Notifier
	Logger    *zap.Logger
}

// NewModerationService creates a new ModerationService.
func NewModerationService(deps *ModerationServiceDeps) ModerationService {
	return &moderationService{
		claimRepo: deps.ClaimRepo,
		logRepo:   deps.LogRepo,
		scorer:    deps.Scorer,
		notifier:  deps.Notifier,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    deps.Logger.Named("moderation"),
	}
}

func (s *moderationService) Approve(ctx context.Context, claimID uuid.UUID, moderatorID string, edits *models.ClaimEdits) (*models.Claim, error) {
	if moderatorID == "" {
		return nil, apperrors.ErrAuthRequired
	}

	current, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusPending {
		return nil, fmt.Errorf("claim is %s: %w", current.Status, apperrors.ErrConflict)
	}

	now := s.now()
	t := &repositories.ClaimTransition{
		ClaimID:     claimID,
		FromStatus:  models.StatusPending,
		ToStatus:    models.StatusApproved,
		ModeratorID: moderatorID,
		At:          now,
	}

	if edits != nil {
		title, reason, err := resolveEdit("title", edits.Title, edits.TitleEditReason, current.Title, "notblank,max=300")
		if err != nil {
			return nil, err
		}
		t.Title, t.TitleEditReason = title, reason

		desc, reason, err := resolveEdit("description", edits.Description, edits.DescriptionEditReason, current.Description, "max=10000")
		if err != nil {
			return nil, err
		}
		t.Description, t.DescriptionEditReason = desc, reason
	}

	t.Log = &models.ModerationLog{
		ModeratorID: moderatorID,
		Action:      models.ModerationApproveClaim,
		TargetType:  models.TargetClaim,
		TargetID:    claimID,
		Metadata: map[string]any{
			"title_edited":       t.Title != nil,
			"description_edited": t.Description != nil,
		},
		CreatedAt: now,
	}

	claim, err := s.claimRepo.ApplyTransition(ctx, t)
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, claim, moderatorID, notify.EventClaimApproved, "")

	if result := recomputeQuietly(ctx, s.scorer, s.logger, claim.ID, "approve"); result != nil {
		claim.TotalScore = result.TotalScore
	}

	return claim, nil
}

// resolveEdit validates one optional content edit against the stored value.
// rules are the validator tags submissions of the same field must satisfy.
// It returns a nil value when the field is unchanged.
func resolveEdit(field string, proposed *string, reason, stored, rules string) (*string, string, error) {
	if proposed == nil {
		return nil, "", nil
	}

	value := strings.TrimSpace(*proposed)
	if err := validateValue(field, value, rules); err != nil {
		return nil, "", err
	}
	if value == stored {
		return nil, "", nil
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, "", apperrors.NewValidationError(field+"_edit_reason", "an edit reason is required when changing the "+field)
	}
	return &value, reason, nil
}

func (s *moderationService) Reject(ctx context.Context, claimID uuid.UUID, moderatorID string, reason string) (*models.Claim, error) {
	return s.closeWithReason(ctx, claimID, moderatorID, reason, models.StatusRejected, models.ModerationRejectClaim, notify.EventClaimRejected)
}

func (s *moderationService) Flag(ctx context.Context, claimID uuid.UUID, moderatorID string, reason string) (*models.Claim, error) {
	return s.closeWithReason(ctx, claimID, moderatorID, reason, models.StatusFlagged, models.ModerationFlagClaim, notify.EventClaimFlagged)
}

func (s *moderationService) closeWithReason(
	ctx context.Context,
	claimID uuid.UUID,
	moderatorID string,
	reason string,
	to models.Status,
	action models.ModerationAction,
	event notify.EventType,
) (*models.Claim, error) {
	if moderatorID == "" {
		return nil, apperrors.ErrAuthRequired
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "a reason is required")
	}

	now := s.now()
	claim, err := s.claimRepo.ApplyTransition(ctx, &repositories.ClaimTransition{
		ClaimID:     claimID,
		FromStatus:  models.StatusPending,
		ToStatus:    to,
		ModeratorID: moderatorID,
		At:          now,
		Log: &models.ModerationLog{
			ModeratorID: moderatorID,
			Action:      action,
			TargetType:  models.TargetClaim,
			TargetID:    claimID,
			Reason:      &reason,
			CreatedAt:   now,
		},
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, claim, moderatorID, event, reason)
	return claim, nil
}

func (s *moderationService) afterTransition(ctx context.Context, claim *models.Claim, moderatorID string, event notify.EventType, reason string) {
	metrics.ModerationTransitions.WithLabelValues(string(models.TargetClaim), string(claim.Status)).Inc()

	s.logger.Info("Claim moderated",
		zap.String("claim_id", claim.ID.String()),
		zap.String("status", string(claim.Status)),
		zap.String("moderator_id", moderatorID))

	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, notify.Event{
		Type:        event,
		ClaimID:     claim.ID,
		RecipientID: claim.AuthorID,
		ActorID:     moderatorID,
		Reason:      reason,
		OccurredAt:  s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to notify claim author",
			zap.String("claim_id", claim.ID.String()),
			zap.Error(err))
	}
}

func (s *moderationService) ListLogs(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.ModerationLog, error) {
	if !targetType.IsValid() {
		return nil, apperrors.NewValidationError("target_type", fmt.Sprintf("unsupported target type %q", targetType))
	}
	return s.logRepo.ListByTarget(ctx, targetType, targetID)
}

func (s *moderationService) ListRecentLogs(ctx context.Context, limit int) ([]*models.ModerationLog, error) {
	return s.logRepo.ListRecent(ctx, limit)
}

var _ ModerationService = (*moderationService)(nil)
