package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/database"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/notify"
	"github.com/ekaya-inc/claimcheck/pkg/repositories"
)

// CreateClaimInput is the submission payload for a new claim.
type CreateClaimInput struct {
	Title       string `json:"title" validate:"notblank,max=300"`
	Description string `json:"description" validate:"max=10000"`
	Category    string `json:"category" validate:"max=100"`
}

// ClaimService handles claim submission and reads.
type ClaimService interface {
	// Create submits a claim on behalf of the caller. New claims start PENDING.
	Create(ctx context.Context, in *CreateClaimInput) (*models.Claim, error)

	// GetByID returns a claim with a freshly recomputed score when recompute-on-read is enabled.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)

	// List returns claims matching filter, refreshing their scores first.
	List(ctx context.Context, filter models.ClaimFilter) ([]*models.Claim, error)
}

type claimService struct {
	claimRepo          repositories.ClaimRepository
	scorer             ClaimScoreService
	scoper             database.Scoper
	notifier           notify.Notifier
	recomputeOnRead    bool
	refreshConcurrency int
	logger             *zap.Logger
}

// ClaimServiceDeps contains dependencies for ClaimService.
type ClaimServiceDeps struct {
	ClaimRepo repositories.ClaimRepository
	Scorer    ClaimScoreService
	// Scoper provides each concurrent list refresh with its own connection.
	Scoper   database.Scoper
	Notifier notify.Notifier

	RecomputeOnRead        bool
	ListRefreshConcurrency int
	Logger                 *zap.Logger
}

// NewClaimService creates a new ClaimService.
func NewClaimService(deps *ClaimServiceDeps) ClaimService {
	return &claimService{
		claimRepo:          deps.ClaimRepo,
		scorer:             deps.Scorer,
		scoper:             deps.Scoper,
		notifier:           deps.Notifier,
		recomputeOnRead:    deps.RecomputeOnRead,
		refreshConcurrency: deps.ListRefreshConcurrency,
		logger:             deps.Logger.Named("claims"),
	}
}

func (s *claimService) Create(ctx context.Context, in *CreateClaimInput) (*models.Claim, error) {
	userID, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	claim := &models.Claim{
		AuthorID:    userID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Status:      models.StatusPending,
	}
	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}

	s.logger.Info("Claim submitted",
		zap.String("claim_id", claim.ID.String()),
		zap.String("author_id", userID))

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, notify.Event{
			Type:        notify.EventClaimSubmitted,
			ClaimID:     claim.ID,
			RecipientID: userID,
			ActorID:     userID,
			OccurredAt:  claim.CreatedAt,
		}); err != nil {
			s.logger.Warn("Failed to publish claim submission", zap.Error(err))
		}
	}

	return claim, nil
}

func (s *claimService) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.recomputeOnRead {
		if result := recomputeQuietly(ctx, s.scorer, s.logger, id, "read"); result != nil {
			claim.TotalScore = result.TotalScore
		}
	}

	return claim, nil
}

func (s *claimService) List(ctx context.Context, filter models.ClaimFilter) ([]*models.Claim, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.NewValidationError("status", fmt.Sprintf("unknown status %q", filter.Status))
	}

	claims, err := s.claimRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.refreshScores(ctx, claims)
	return claims, nil
}

// refreshScores recomputes each claim on its own connection, at most
// refreshConcurrency at a time. A claim whose recompute fails keeps its stored score.
func (s *claimService) refreshScores(ctx context.Context, claims []*models.Claim) {
	if s.refreshConcurrency <= 0 || s.scorer == nil || s.scoper == nil || len(claims) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.refreshConcurrency)

	for _, claim := range claims {
		g.Go(func() error {
			scoped, release, err := s.scoper.WithScope(ctx)
			if err != nil {
				s.logger.Warn("Failed to acquire connection for score refresh",
					zap.String("claim_id", claim.ID.String()),
					zap.Error(err))
				return nil
			}
			defer release()

			if result := recomputeQuietly(scoped, s.scorer, s.logger, claim.ID, "list"); result != nil {
				claim.TotalScore = result.TotalScore
			}
			return nil
		})
	}

	_ = g.Wait()
}

var _ ClaimService = (*claimService)(nil)
