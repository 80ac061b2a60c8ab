package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/notify"
)

const moderatorID = "mod-1"

type moderationFixture struct {
	claim    *models.Claim
	claims   *mockClaimRepo
	logs     *mockLogRepo
	scorer   *mockScorer
	notifier *recordingNotifier
	service  ModerationService
}

func newModerationFixture() *moderationFixture {
	claim := &models.Claim{
		ID:          uuid.New(),
		AuthorID:    "author-1",
		Title:       "The moon is made of cheese",
		Description: "Original description",
		Status:      models.StatusPending,
	}
	f := &moderationFixture{
		claim:    claim,
		claims:   newMockClaimRepo(claim),
		logs:     &mockLogRepo{},
		scorer:   &mockScorer{},
		notifier: &recordingNotifier{},
	}
	f.service = NewModerationService(&ModerationServiceDeps{
		ClaimRepo: f.claims,
		LogRepo:   f.logs,
		Scorer:    f.scorer,
		Notifier:  f.notifier,
		Logger:    zap.NewNop(),
	})
	return f
}

func ptr[T any](v T) *T { return &v }

func TestModerationService_Approve_NoEdits(t *testing.T) {
	f := newModerationFixture()

	claim, err := f.service.Approve(context.Background(), f.claim.ID, moderatorID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, claim.Status)
	assert.False(t, claim.TitleEdited)
	require.Equal(t, 1, f.claims.logCount())

	log := f.claims.logs[0]
	assert.Equal(t, models.ModerationApproveClaim, log.Action)
	assert.Equal(t, moderatorID, log.ModeratorID)
	assert.Equal(t, false, log.Metadata["title_edited"])
	assert.Equal(t, false, log.Metadata["description_edited"])

	assert.Equal(t, 1, f.scorer.callCount())

	events := f.notifier.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventClaimApproved, events[0].Type)
	assert.Equal(t, "author-1", events[0].RecipientID)
}

func TestModerationService_Approve_WithTitleEdit(t *testing.T) {
	f := newModerationFixture()

	claim, err := f.service.Approve(context.Background(), f.claim.ID, moderatorID, &models.ClaimEdits{
		Title:           ptr("  The moon is not made of cheese  "),
		TitleEditReason: "clarity",
	})
	require.NoError(t, err)

	assert.Equal(t, "The moon is not made of cheese", claim.Title)
	assert.True(t, claim.TitleEdited)
	require.NotNil(t, claim.OriginalTitle)
	assert.Equal(t, "The moon is made of cheese", *claim.OriginalTitle)
	require.NotNil(t, claim.TitleEditReason)
	assert.Equal(t, "clarity", *claim.TitleEditReason)
	assert.False(t, claim.DescriptionEdited)

	assert.Equal(t, true, f.claims.logs[0].Metadata["title_edited"])
}

func TestModerationService_Approve_UnchangedTitleNeedsNoReason(t *testing.T) {
	f := newModerationFixture()

	claim, err := f.service.Approve(context.Background(), f.claim.ID, moderatorID, &models.ClaimEdits{
		Title: ptr(f.claim.Title),
	})
	require.NoError(t, err)
	assert.False(t, claim.TitleEdited)
	assert.Nil(t, claim.OriginalTitle)
}

func TestModerationService_Approve_TitleAtLimit(t *testing.T) {
	f := newModerationFixture()
	title := strings.Repeat("é", 300)

	claim, err := f.service.Approve(context.Background(), f.claim.ID, moderatorID, &models.ClaimEdits{
		Title:           ptr(title),
		TitleEditReason: "expanded",
	})
	require.NoError(t, err)
	assert.Equal(t, title, claim.Title)
	assert.True(t, claim.TitleEdited)
}

func TestModerationService_Approve_ValidationLeavesPending(t *testing.T) {
	tests := []struct {
		name  string
		edits *models.ClaimEdits
		field string
	}{
		{
			name:  "changed title without reason",
			edits: &models.ClaimEdits{Title: ptr("A different title")},
			field: "title_edit_reason",
		},
		{
			name:  "blank title",
			edits: &models.ClaimEdits{Title: ptr("   "), TitleEditReason: "cleanup"},
			field: "title",
		},
		{
			name:  "title longer than submissions allow",
			edits: &models.ClaimEdits{Title: ptr(strings.Repeat("t", 301)), TitleEditReason: "expand"},
			field: "title",
		},
		{
			name:  "description longer than submissions allow",
			edits: &models.ClaimEdits{Description: ptr(strings.Repeat("d", 10001)), DescriptionEditReason: "expand"},
			field: "description",
		},
		{
			name:  "changed description without reason",
			edits: &models.ClaimEdits{Description: ptr("New description"), DescriptionEditReason: "  "},
			field: "description_edit_reason",
		},
		{
			name: "valid title but description missing reason",
			edits: &models.ClaimEdits{
				Title:           ptr("A different title"),
				TitleEditReason: "typo",
				Description:     ptr("New description"),
			},
			field: "description_edit_reason",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newModerationFixture()

			_, err := f.service.Approve(context.Background(), f.claim.ID, moderatorID, tt.edits)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			var ve *apperrors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)

			assert.Equal(t, models.StatusPending, f.claims.status(f.claim.ID))
			assert.Zero(t, f.claims.logCount())
			assert.Empty(t, f.notifier.recorded())
		})
	}
}

func TestModerationService_Approve_Twice(t *testing.T) {
	f := newModerationFixture()

	_, err := f.service.Approve(context.Background(), f.claim.ID, moderatorID, nil)
	require.NoError(t, err)

	_, err = f.service.Approve(context.Background(), f.claim.ID, moderatorID, nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 1, f.claims.logCount())
}

func TestModerationService_Approve_NotFound(t *testing.T) {
	f := newModerationFixture()

	_, err := f.service.Approve(context.Background(), uuid.New(), moderatorID, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestModerationService_Approve_RecomputeFailureIgnored(t *testing.T) {
	f := newModerationFixture()
	f.scorer.fn = func(ctx context.Context, claimID uuid.UUID) (*ScoreResult, error) {
		return nil, errors.New("database unavailable")
	}

	claim, err := f.service.Approve(context.Background(), f.claim.ID, moderatorID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, claim.Status)
}

func TestModerationService_Reject_EmptyReason(t *testing.T) {
	for _, reason := range []string{"", "   "} {
		f := newModerationFixture()

		_, err := f.service.Reject(context.Background(), f.claim.ID, moderatorID, reason)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Equal(t, models.StatusPending, f.claims.status(f.claim.ID))
		assert.Zero(t, f.claims.logCount())
	}
}

func TestModerationService_RejectAndFlag(t *testing.T) {
	tests := []struct {
		name   string
		call   func(ModerationService, uuid.UUID) (*models.Claim, error)
		status models.Status
		action models.ModerationAction
		event  notify.EventType
	}{
		{
			name: "reject",
			call: func(s ModerationService, id uuid.UUID) (*models.Claim, error) {
				return s.Reject(context.Background(), id, moderatorID, "duplicate")
			},
			status: models.StatusRejected,
			action: models.ModerationRejectClaim,
			event:  notify.EventClaimRejected,
		},
		{
			name: "flag",
			call: func(s ModerationService, id uuid.UUID) (*models.Claim, error) {
				return s.Flag(context.Background(), id, moderatorID, "duplicate")
			},
			status: models.StatusFlagged,
			action: models.ModerationFlagClaim,
			event:  notify.EventClaimFlagged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newModerationFixture()

			claim, err := tt.call(f.service, f.claim.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, claim.Status)

			require.Equal(t, 1, f.claims.logCount())
			log := f.claims.logs[0]
			assert.Equal(t, tt.action, log.Action)
			require.NotNil(t, log.Reason)
			assert.Equal(t, "duplicate", *log.Reason)

			events := f.notifier.recorded()
			require.Len(t, events, 1)
			assert.Equal(t, tt.event, events[0].Type)
			assert.Equal(t, "duplicate", events[0].Reason)

			assert.Zero(t, f.scorer.callCount())

			_, err = tt.call(f.service, f.claim.ID)
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		})
	}
}

func TestModerationService_RequiresModerator(t *testing.T) {
	f := newModerationFixture()

	_, err := f.service.Approve(context.Background(), f.claim.ID, "", nil)
	assert.ErrorIs(t, err, apperrors.ErrAuthRequired)
	_, err = f.service.Flag(context.Background(), f.claim.ID, "", "spam")
	assert.ErrorIs(t, err, apperrors.ErrAuthRequired)
}

func TestModerationService_ListLogs(t *testing.T) {
	f := newModerationFixture()
	target := uuid.New()
	f.logs.entries = []*models.ModerationLog{
		{TargetType: models.TargetClaim, TargetID: target, Action: models.ModerationFlagClaim},
		{TargetType: models.TargetClaim, TargetID: uuid.New(), Action: models.ModerationApproveClaim},
	}

	logs, err := f.service.ListLogs(context.Background(), models.TargetClaim, target)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ModerationFlagClaim, logs[0].Action)

	_, err = f.service.ListLogs(context.Background(), models.TargetKind("bogus"), target)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.service.ListRecentLogs(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 25, f.logs.limit)
}
