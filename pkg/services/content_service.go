package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/metrics"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/repositories"
)

// CreateEvidenceInput is the payload for attaching evidence to a claim.
type CreateEvidenceInput struct {
	Position  models.Position `json:"position" validate:"oneof=for against"`
	Title     string          `json:"title" validate:"notblank,max=300"`
	SourceURL string          `json:"source_url" validate:"omitempty,http_url,max=2048"`
	Body      string          `json:"body" validate:"max=10000"`
}

// CreatePerspectiveInput is the payload for attaching a perspective to a claim.
type CreatePerspectiveInput struct {
	Position models.Position `json:"position" validate:"oneof=for against"`
	Body     string          `json:"body" validate:"notblank,max=10000"`
}

// ContentStatusResult reports a moderated evidence or perspective item.
type ContentStatusResult struct {
	Kind       models.TargetKind `json:"kind"`
	ID         uuid.UUID         `json:"id"`
	ClaimID    uuid.UUID         `json:"claim_id"`
	FromStatus models.Status     `json:"from_status"`
	Status     models.Status     `json:"status"`
}

// ContentService manages the evidence and perspectives attached to claims.
// Every write that can change the set of approved items recomputes the owning claim.
type ContentService interface {
	CreateEvidence(ctx context.Context, claimID uuid.UUID, in *CreateEvidenceInput) (*models.Evidence, error)
	CreatePerspective(ctx context.Context, claimID uuid.UUID, in *CreatePerspectiveInput) (*models.Perspective, error)

	// ListEvidence and ListPerspectives return approved items only.
	ListEvidence(ctx context.Context, claimID uuid.UUID) ([]*models.Evidence, error)
	ListPerspectives(ctx context.Context, claimID uuid.UUID) ([]*models.Perspective, error)

	// SetStatus moderates an evidence or perspective item and records the change.
	SetStatus(ctx context.Context, kind models.TargetKind, id uuid.UUID, moderatorID string, status models.Status, reason string) (*ContentStatusResult, error)
}

type contentService struct {
	claimRepo       repositories.ClaimRepository
	evidenceRepo    repositories.EvidenceRepository
	perspectiveRepo repositories.PerspectiveRepository
	scorer          ClaimScoreService
	logger          *zap.Logger
}

// ContentServiceDeps contains dependencies for ContentService.
type ContentServiceDeps struct {
	ClaimRepo       repositories.ClaimRepository
	EvidenceRepo    repositories.EvidenceRepository
	PerspectiveRepo repositories.PerspectiveRepository
	Scorer          ClaimScoreService
	Logger          *zap.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(deps *ContentServiceDeps) ContentService {
	return &contentService{
		claimRepo:       deps.ClaimRepo,
		evidenceRepo:    deps.EvidenceRepo,
		perspectiveRepo: deps.PerspectiveRepo,
		scorer:          deps.Scorer,
		logger:          deps.Logger.Named("content"),
	}
}

func (s *contentService) CreateEvidence(ctx context.Context, claimID uuid.UUID, in *CreateEvidenceInput) (*models.Evidence, error) {
	userID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, err := s.claimRepo.GetByID(ctx, claimID); err != nil {
		return nil, err
	}

	e := &models.Evidence{
		ClaimID:   claimID,
		AuthorID:  userID,
		Position:  in.Position,
		Title:     strings.TrimSpace(in.Title),
		SourceURL: strings.TrimSpace(in.SourceURL),
		Body:      strings.TrimSpace(in.Body),
		Status:    models.StatusApproved,
	}
	if err := s.evidenceRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create evidence: %w", err)
	}

	recomputeQuietly(ctx, s.scorer, s.logger, claimID, "evidence_created")
	return e, nil
}

func (s *contentService) CreatePerspective(ctx context.Context, claimID uuid.UUID, in *CreatePerspectiveInput) (*models.Perspective, error) {
	userID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, err := s.claimRepo.GetByID(ctx, claimID); err != nil {
		return nil, err
	}

	p := &models.Perspective{
		ClaimID:  claimID,
		AuthorID: userID,
		Position: in.Position,
		Body:     strings.TrimSpace(in.Body),
		Status:   models.StatusApproved,
	}
	if err := s.perspectiveRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create perspective: %w", err)
	}

	recomputeQuietly(ctx, s.scorer, s.logger, claimID, "perspective_created")
	return p, nil
}

func (s *contentService) ListEvidence(ctx context.Context, claimID uuid.UUID) ([]*models.Evidence, error) {
	return s.evidenceRepo.ListByClaim(ctx, claimID, models.StatusApproved)
}

func (s *contentService) ListPerspectives(ctx context.Context, claimID uuid.UUID) ([]*models.Perspective, error) {
	return s.perspectiveRepo.ListByClaim(ctx, claimID, models.StatusApproved)
}

func (s *contentService) SetStatus(ctx context.Context, kind models.TargetKind, id uuid.UUID, moderatorID string, status models.Status, reason string) (*ContentStatusResult, error) {
	if moderatorID == "" {
		return nil, apperrors.ErrAuthRequired
	}
	if !kind.AffectsClaimScore() {
		return nil, apperrors.NewValidationError("kind", "must be evidence or perspective")
	}
	if !status.IsValid() {
		return nil, apperrors.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	result := &ContentStatusResult{Kind: kind, ID: id, Status: status}
	switch kind {
	case models.TargetEvidence:
		current, err := s.evidenceRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		result.ClaimID, result.FromStatus = current.ClaimID, current.Status
	case models.TargetPerspective:
		current, err := s.perspectiveRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		result.ClaimID, result.FromStatus = current.ClaimID, current.Status
	}

	log := &models.ModerationLog{
		ModeratorID: moderatorID,
		Action:      models.ModerationSetContentStatus,
		TargetType:  kind,
		TargetID:    id,
		Metadata: map[string]any{
			"from": string(result.FromStatus),
			"to":   string(status),
		},
		CreatedAt: time.Now().UTC(),
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		log.Reason = &reason
	}

	var err error
	if kind == models.TargetEvidence {
		_, err = s.evidenceRepo.UpdateStatus(ctx, id, status, log)
	} else {
		_, err = s.perspectiveRepo.UpdateStatus(ctx, id, status, log)
	}
	if err != nil {
		return nil, err
	}

	metrics.ModerationTransitions.WithLabelValues(string(kind), string(status)).Inc()
	s.logger.Info("Content status changed",
		zap.String("kind", string(kind)),
		zap.String("id", id.String()),
		zap.String("from", string(result.FromStatus)),
		zap.String("to", string(status)),
		zap.String("moderator_id", moderatorID))

	recomputeQuietly(ctx, s.scorer, s.logger, result.ClaimID, "content_status")
	return result, nil
}

var _ ContentService = (*contentService)(nil)
