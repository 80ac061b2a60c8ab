package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/metrics"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/repositories"
	"github.com/ekaya-inc/claimcheck/pkg/scoring"
	"github.com/ekaya-inc/claimcheck/pkg/seo"
)

// ScoreResult is the outcome of a claim score recomputation.
type ScoreResult struct {
	ClaimID     uuid.UUID        `json:"claim_id"`
	TotalScore  float64          `json:"total_score"`
	LeadingSide *models.Position `json:"leading_side"`
}

// ClaimScoreService derives a claim's total score from its approved evidence and perspectives.
type ClaimScoreService interface {
	// Recompute sums the current contributions, overwrites total_score, and schedules
	// SEO regeneration without waiting for it. Safe to call concurrently for the same claim.
	Recompute(ctx context.Context, claimID uuid.UUID) (*ScoreResult, error)
}

type claimScoreService struct {
	claimRepo       repositories.ClaimRepository
	evidenceRepo    repositories.EvidenceRepository
	perspectiveRepo repositories.PerspectiveRepository
	summaries       SummaryScheduler
	logger          *zap.Logger
}

// ClaimScoreServiceDeps contains dependencies for ClaimScoreService.
type ClaimScoreServiceDeps struct {
	ClaimRepo       repositories.ClaimRepository
	EvidenceRepo    repositories.EvidenceRepository
	PerspectiveRepo repositories.PerspectiveRepository
	Summaries       SummaryScheduler // Optional: nil disables SEO regeneration
	Logger          *zap.Logger
}

// NewClaimScoreService creates a new ClaimScoreService.
func NewClaimScoreService(deps *ClaimScoreServiceDeps) ClaimScoreService {
	return &claimScoreService{
		claimRepo:       deps.ClaimRepo,
		evidenceRepo:    deps.EvidenceRepo,
		perspectiveRepo: deps.PerspectiveRepo,
		summaries:       deps.Summaries,
		logger:          deps.Logger.Named("score"),
	}
}

func (s *claimScoreService) Recompute(ctx context.Context, claimID uuid.UUID) (*ScoreResult, error) {
	defer metrics.ObserveRecompute(time.Now())

	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}

	evidence, err := s.evidenceRepo.ListApprovedByClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evidence: %w", err)
	}

	perspectives, err := s.perspectiveRepo.ListApprovedByClaim(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load perspectives: %w", err)
	}

	total := scoring.Total(evidence, perspectives)

	if err := s.claimRepo.UpdateTotalScore(ctx, claimID, total); err != nil {
		return nil, fmt.Errorf("failed to store claim score: %w", err)
	}

	result := &ScoreResult{
		ClaimID:     claimID,
		TotalScore:  total,
		LeadingSide: models.LeadingSideFor(total),
	}

	s.logger.Debug("Recomputed claim score",
		zap.String("claim_id", claimID.String()),
		zap.Float64("total_score", total),
		zap.Int("evidence", len(evidence)),
		zap.Int("perspectives", len(perspectives)))

	if s.summaries != nil {
		s.summaries.Schedule(claimID, seo.Input{
			Title:       claim.Title,
			Category:    claim.Category,
			LeadingSide: result.LeadingSide,
		})
	}

	return result, nil
}

// recomputeQuietly runs a recompute on behalf of a trigger path. Failures are
// logged and counted; the caller carries on with the stored score.
func recomputeQuietly(ctx context.Context, scorer ClaimScoreService, logger *zap.Logger, claimID uuid.UUID, trigger string) *ScoreResult {
	if scorer == nil {
		return nil
	}

	result, err := scorer.Recompute(ctx, claimID)
	if err != nil {
		metrics.ScoreRecomputeFailures.WithLabelValues(trigger).Inc()
		logger.Warn("Claim score recompute failed",
			zap.String("claim_id", claimID.String()),
			zap.String("trigger", trigger),
			zap.Error(err))
		return nil
	}
	return result
}

var _ ClaimScoreService = (*claimScoreService)(nil)
