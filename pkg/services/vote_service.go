package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/metrics"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/repositories"
)

// VoteService is the vote ledger entry point for every votable kind.
type VoteService interface {
	// CastVote toggles or switches the caller's vote on a target and returns the new counters.
	// Votes on evidence and perspectives trigger a best-effort recompute of the owning claim.
	CastVote(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, voteType models.VoteType) (*models.VoteResult, error)

	// GetUserVote returns the caller's current vote, or nil if they have not voted.
	GetUserVote(ctx context.Context, kind models.TargetKind, targetID uuid.UUID) (*models.VoteType, error)
}

type voteService struct {
	voteRepo             repositories.VoteRepository
	claimRepo            repositories.ClaimRepository
	evidenceRepo         repositories.EvidenceRepository
	perspectiveRepo      repositories.PerspectiveRepository
	scorer               ClaimScoreService
	requireApprovedClaim bool
	logger               *zap.Logger
}

// VoteServiceDeps contains dependencies for VoteService.
type VoteServiceDeps struct {
	VoteRepo        repositories.VoteRepository
	ClaimRepo       repositories.ClaimRepository
	EvidenceRepo    repositories.EvidenceRepository
	PerspectiveRepo repositories.PerspectiveRepository
	Scorer          ClaimScoreService
	// RequireApprovedClaim rejects votes on claims, or their content, unless the claim is approved.
	// Replies are not subject to the policy.
	RequireApprovedClaim bool
	Logger               *zap.Logger
}

// NewVoteService creates a new VoteService.
func NewVoteService(deps *VoteServiceDeps) VoteService {
	return &voteService{
		voteRepo:             deps.VoteRepo,
		claimRepo:            deps.ClaimRepo,
		evidenceRepo:         deps.EvidenceRepo,
		perspectiveRepo:      deps.PerspectiveRepo,
		scorer:               deps.Scorer,
		requireApprovedClaim: deps.RequireApprovedClaim,
		logger:               deps.Logger.Named("votes"),
	}
}

func (s *voteService) CastVote(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, voteType models.VoteType) (*models.VoteResult, error) {
	userID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if !kind.IsValid() {
		return nil, apperrors.NewValidationError("kind", fmt.Sprintf("unsupported vote target %q", kind))
	}
	if !voteType.IsValid() {
		return nil, apperrors.NewValidationError("vote_type", "must be upvote or downvote")
	}

	if s.requireApprovedClaim {
		if err := s.checkClaimApproved(ctx, kind, targetID); err != nil {
			return nil, err
		}
	}

	result, err := s.voteRepo.Apply(ctx, kind, targetID, userID, voteType)
	if err != nil {
		return nil, err
	}

	outcome := "removed"
	if result.UserVote != nil {
		outcome = string(*result.UserVote)
	}
	metrics.VotesTotal.WithLabelValues(string(kind), outcome).Inc()

	if kind.AffectsClaimScore() && result.ClaimID != uuid.Nil {
		recomputeQuietly(ctx, s.scorer, s.logger, result.ClaimID, "vote")
	}

	return result, nil
}

func (s *voteService) GetUserVote(ctx context.Context, kind models.TargetKind, targetID uuid.UUID) (*models.VoteType, error) {
	userID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, apperrors.NewValidationError("kind", fmt.Sprintf("unsupported vote target %q", kind))
	}

	vote, err := s.voteRepo.Get(ctx, kind, targetID, userID)
	if err != nil {
		return nil, err
	}
	if vote == nil {
		return nil, nil
	}
	return &vote.VoteType, nil
}

// checkClaimApproved resolves the claim behind a target and requires it to be approved.
func (s *voteService) checkClaimApproved(ctx context.Context, kind models.TargetKind, targetID uuid.UUID) error {
	var claimID uuid.UUID
	switch kind {
	case models.TargetClaim:
		claimID = targetID
	case models.TargetEvidence:
		e, err := s.evidenceRepo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		claimID = e.ClaimID
	case models.TargetPerspective:
		p, err := s.perspectiveRepo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		claimID = p.ClaimID
	default:
		return nil
	}

	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.Status != models.StatusApproved {
		return apperrors.NewValidationError("target_id", "voting is only open on approved claims")
	}
	return nil
}

var _ VoteService = (*voteService)(nil)
