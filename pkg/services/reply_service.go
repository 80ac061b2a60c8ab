package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/repositories"
)

// CreateReplyInput is the payload for replying to an evidence or perspective item.
// Body length is counted in characters, not bytes.
type CreateReplyInput struct {
	TargetType models.TargetKind `json:"target_type" validate:"oneof=evidence perspective"`
	TargetID   uuid.UUID         `json:"target_id" validate:"required"`
	Body       string            `json:"body" validate:"min=10,max=2000"`
	Links      []string          `json:"links" validate:"omitempty,dive,http_url"`
}

// ReplyService manages flat replies on evidence and perspectives.
type ReplyService interface {
	Create(ctx context.Context, in *CreateReplyInput) (*models.Reply, error)
	ListByTarget(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.Reply, error)
}

type replyService struct {
	replyRepo       repositories.ReplyRepository
	evidenceRepo    repositories.EvidenceRepository
	perspectiveRepo repositories.PerspectiveRepository
	logger          *zap.Logger
}

// ReplyServiceDeps contains dependencies for ReplyService.
type ReplyServiceDeps struct {
	ReplyRepo       repositories.ReplyRepository
	EvidenceRepo    repositories.EvidenceRepository
	PerspectiveRepo repositories.PerspectiveRepository
	Logger          *zap.Logger
}

// NewReplyService creates a new ReplyService.
func NewReplyService(deps *ReplyServiceDeps) ReplyService {
	return &replyService{
		replyRepo:       deps.ReplyRepo,
		evidenceRepo:    deps.EvidenceRepo,
		perspectiveRepo: deps.PerspectiveRepo,
		logger:          deps.Logger.Named("replies"),
	}
}

func (s *replyService) Create(ctx context.Context, in *CreateReplyInput) (*models.Reply, error) {
	userID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	in.Body = strings.TrimSpace(in.Body)
	// Only the stored link is validated; extras are discarded unchecked.
	links, dropped := models.NormalizeReplyLinks(in.Links)
	in.Links = links
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}

	if dropped > 0 {
		s.logger.Warn("Dropping extra reply links",
			zap.String("target_id", in.TargetID.String()),
			zap.Int("dropped", dropped))
	}

	reply := &models.Reply{
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		AuthorID:   userID,
		Body:       in.Body,
		Links:      links,
		Status:     models.StatusApproved,
	}
	if err := s.replyRepo.Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}
	return reply, nil
}

func (s *replyService) ListByTarget(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.Reply, error) {
	if !targetType.AffectsClaimScore() {
		return nil, apperrors.NewValidationError("target_type", "must be evidence or perspective")
	}
	return s.replyRepo.ListByTarget(ctx, targetType, targetID)
}

func (s *replyService) requireTarget(ctx context.Context, kind models.TargetKind, id uuid.UUID) error {
	var err error
	switch kind {
	case models.TargetEvidence:
		_, err = s.evidenceRepo.GetByID(ctx, id)
	case models.TargetPerspective:
		_, err = s.perspectiveRepo.GetByID(ctx, id)
	default:
		return apperrors.NewValidationError("target_type", "must be evidence or perspective")
	}
	return err
}

var _ ReplyService = (*replyService)(nil)
