package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/auth"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/services"
)

// headerAuth authenticates from X-Test-User / X-Test-Roles headers.
type headerAuth struct{}

func (headerAuth) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	user := r.Header.Get("X-Test-User")
	if user == "" {
		return nil, "", auth.ErrMissingAuthorization
	}
	claims := &auth.Claims{}
	claims.Subject = user
	if roles := r.Header.Get("X-Test-Roles"); roles != "" {
		claims.Roles = strings.Split(roles, ",")
	}
	return claims, "test-token", nil
}

func passthroughScope(next http.HandlerFunc) http.HandlerFunc { return next }

func testAuthMiddleware() *auth.Middleware {
	return auth.NewMiddleware(headerAuth{}, zap.NewNop())
}

type mockClaimService struct {
	created  *services.CreateClaimInput
	claim    *models.Claim
	claims   []*models.Claim
	filter   models.ClaimFilter
	err      error
	callerID string
}

func (m *mockClaimService) Create(ctx context.Context, in *services.CreateClaimInput) (*models.Claim, error) {
	m.created = in
	m.callerID = auth.GetUserIDFromContext(ctx)
	if m.err != nil {
		return nil, m.err
	}
	return &models.Claim{ID: uuid.New(), Title: in.Title, Status: models.StatusPending, AuthorID: m.callerID}, nil
}

func (m *mockClaimService) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.claim, nil
}

func (m *mockClaimService) List(ctx context.Context, filter models.ClaimFilter) ([]*models.Claim, error) {
	m.filter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

type mockVoteService struct {
	kind     models.TargetKind
	targetID uuid.UUID
	voteType models.VoteType
	result   *models.VoteResult
	current  *models.VoteType
	err      error
}

func (m *mockVoteService) CastVote(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, voteType models.VoteType) (*models.VoteResult, error) {
	m.kind, m.targetID, m.voteType = kind, targetID, voteType
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockVoteService) GetUserVote(ctx context.Context, kind models.TargetKind, targetID uuid.UUID) (*models.VoteType, error) {
	return m.current, m.err
}

type mockModerationService struct {
	edits       *models.ClaimEdits
	moderatorID string
	reason      string
	err         error
	logs        []*models.ModerationLog
	recentLimit int
}

func (m *mockModerationService) Approve(ctx context.Context, claimID uuid.UUID, moderatorID string, edits *models.ClaimEdits) (*models.Claim, error) {
	m.edits, m.moderatorID = edits, moderatorID
	if m.err != nil {
		return nil, m.err
	}
	return &models.Claim{ID: claimID, Status: models.StatusApproved}, nil
}

func (m *mockModerationService) Reject(ctx context.Context, claimID uuid.UUID, moderatorID string, reason string) (*models.Claim, error) {
	m.moderatorID, m.reason = moderatorID, reason
	if m.err != nil {
		return nil, m.err
	}
	return &models.Claim{ID: claimID, Status: models.StatusRejected}, nil
}

func (m *mockModerationService) Flag(ctx context.Context, claimID uuid.UUID, moderatorID string, reason string) (*models.Claim, error) {
	m.moderatorID, m.reason = moderatorID, reason
	if m.err != nil {
		return nil, m.err
	}
	return &models.Claim{ID: claimID, Status: models.StatusFlagged}, nil
}

func (m *mockModerationService) ListLogs(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.ModerationLog, error) {
	return m.logs, m.err
}

func (m *mockModerationService) ListRecentLogs(ctx context.Context, limit int) ([]*models.ModerationLog, error) {
	m.recentLimit = limit
	return m.logs, m.err
}

type mockContentService struct {
	status models.Status
	kind   models.TargetKind
	err    error
}

func (m *mockContentService) CreateEvidence(ctx context.Context, claimID uuid.UUID, in *services.CreateEvidenceInput) (*models.Evidence, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Evidence{ID: uuid.New(), ClaimID: claimID, Position: in.Position, Title: in.Title, Status: models.StatusApproved}, nil
}

func (m *mockContentService) CreatePerspective(ctx context.Context, claimID uuid.UUID, in *services.CreatePerspectiveInput) (*models.Perspective, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Perspective{ID: uuid.New(), ClaimID: claimID, Position: in.Position, Body: in.Body, Status: models.StatusApproved}, nil
}

func (m *mockContentService) ListEvidence(ctx context.Context, claimID uuid.UUID) ([]*models.Evidence, error) {
	return nil, m.err
}

func (m *mockContentService) ListPerspectives(ctx context.Context, claimID uuid.UUID) ([]*models.Perspective, error) {
	return nil, m.err
}

func (m *mockContentService) SetStatus(ctx context.Context, kind models.TargetKind, id uuid.UUID, moderatorID string, status models.Status, reason string) (*services.ContentStatusResult, error) {
	m.kind, m.status = kind, status
	if m.err != nil {
		return nil, m.err
	}
	return &services.ContentStatusResult{Kind: kind, ID: id, Status: status}, nil
}

type mockReplyService struct {
	in  *services.CreateReplyInput
	err error
}

func (m *mockReplyService) Create(ctx context.Context, in *services.CreateReplyInput) (*models.Reply, error) {
	m.in = in
	if m.err != nil {
		return nil, m.err
	}
	return &models.Reply{ID: uuid.New(), TargetType: in.TargetType, TargetID: in.TargetID, Body: in.Body}, nil
}

func (m *mockReplyService) ListByTarget(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.Reply, error) {
	return nil, m.err
}

var (
	_ services.ClaimService      = (*mockClaimService)(nil)
	_ services.VoteService       = (*mockVoteService)(nil)
	_ services.ModerationService = (*mockModerationService)(nil)
	_ services.ContentService    = (*mockContentService)(nil)
	_ services.ReplyService      = (*mockReplyService)(nil)
)
