//go:build integration

package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/models"
)

func TestVoteRepository_ToggleAndSwitch(t *testing.T) {
	tc := setupRepoTest(t)
	repo := NewVoteRepository()
	claim := tc.createClaim(models.StatusApproved)
	ev := tc.createEvidence(claim.ID, models.PositionFor)

	res, err := repo.Apply(tc.ctx, models.TargetEvidence, ev.ID, "user-1", models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upvotes)
	assert.Equal(t, 0, res.Downvotes)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, models.VoteUp, *res.UserVote)
	assert.Equal(t, claim.ID, res.ClaimID)

	// switch
	res, err = repo.Apply(tc.ctx, models.TargetEvidence, ev.ID, "user-1", models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Upvotes)
	assert.Equal(t, 1, res.Downvotes)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, models.VoteDown, *res.UserVote)

	// toggle off
	res, err = repo.Apply(tc.ctx, models.TargetEvidence, ev.ID, "user-1", models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Upvotes)
	assert.Equal(t, 0, res.Downvotes)
	assert.Nil(t, res.UserVote)

	vote, err := repo.Get(tc.ctx, models.TargetEvidence, ev.ID, "user-1")
	require.NoError(t, err)
	assert.Nil(t, vote)

	stored, err := NewEvidenceRepository().GetByID(tc.ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Score)
}

func TestVoteRepository_ScoreTracksCounters(t *testing.T) {
	tc := setupRepoTest(t)
	repo := NewVoteRepository()
	claim := tc.createClaim(models.StatusApproved)
	p := tc.createPerspective(claim.ID, models.PositionAgainst)

	for i := 0; i < 3; i++ {
		_, err := repo.Apply(tc.ctx, models.TargetPerspective, p.ID, fmt.Sprintf("up-%d", i), models.VoteUp)
		require.NoError(t, err)
	}
	_, err := repo.Apply(tc.ctx, models.TargetPerspective, p.ID, "down-0", models.VoteDown)
	require.NoError(t, err)

	stored, err := NewPerspectiveRepository().GetByID(tc.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Upvotes)
	assert.Equal(t, 1, stored.Downvotes)
	assert.Equal(t, 2, stored.Score)
}

func TestVoteRepository_ClaimAndReplyTargets(t *testing.T) {
	tc := setupRepoTest(t)
	repo := NewVoteRepository()
	claim := tc.createClaim(models.StatusApproved)
	ev := tc.createEvidence(claim.ID, models.PositionFor)

	reply := &models.Reply{
		TargetType: models.TargetEvidence,
		TargetID:   ev.ID,
		AuthorID:   "author-4",
		Body:       "Agreed, the data is solid.",
	}
	require.NoError(t, NewReplyRepository().Create(tc.ctx, reply))

	res, err := repo.Apply(tc.ctx, models.TargetClaim, claim.ID, "user-1", models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upvotes)
	assert.Equal(t, claim.ID, res.ClaimID)

	res, err = repo.Apply(tc.ctx, models.TargetReply, reply.ID, "user-1", models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Downvotes)
	assert.Equal(t, uuid.Nil, res.ClaimID)

	vote, err := repo.Get(tc.ctx, models.TargetReply, reply.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, models.VoteDown, vote.VoteType)
	assert.Equal(t, models.TargetReply, vote.Kind)
}

func TestVoteRepository_MissingTarget(t *testing.T) {
	tc := setupRepoTest(t)

	_, err := NewVoteRepository().Apply(tc.ctx, models.TargetEvidence, uuid.New(), "user-1", models.VoteUp)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVoteRepository_ConcurrentUsers(t *testing.T) {
	tc := setupRepoTest(t)
	repo := NewVoteRepository()
	claim := tc.createClaim(models.StatusApproved)
	ev := tc.createEvidence(claim.ID, models.PositionFor)

	const voters = 12
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, release, err := tc.testDB.DB.WithScope(context.Background())
			if err != nil {
				errs <- err
				return
			}
			defer release()
			_, err = repo.Apply(ctx, models.TargetEvidence, ev.ID, fmt.Sprintf("user-%d", i), models.VoteUp)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := NewEvidenceRepository().GetByID(tc.ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, voters, stored.Upvotes)
	assert.Equal(t, voters, stored.Score)
}

func TestVoteRepository_ConcurrentSameUser(t *testing.T) {
	tc := setupRepoTest(t)
	repo := NewVoteRepository()
	claim := tc.createClaim(models.StatusApproved)
	ev := tc.createEvidence(claim.ID, models.PositionFor)

	// Two identical first votes race; one inserts and the other toggles it off.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, release, err := tc.testDB.DB.WithScope(context.Background())
			if err != nil {
				errs <- err
				return
			}
			defer release()
			_, err = repo.Apply(ctx, models.TargetEvidence, ev.ID, "user-1", models.VoteUp)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := NewEvidenceRepository().GetByID(tc.ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Upvotes)
	assert.Equal(t, 0, stored.Downvotes)

	vote, err := repo.Get(tc.ctx, models.TargetEvidence, ev.ID, "user-1")
	require.NoError(t, err)
	assert.Nil(t, vote)
}
