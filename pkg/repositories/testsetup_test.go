//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/testhelpers"
)

// repoTestContext holds the shared container plus a scoped context for one test.
type repoTestContext struct {
	t      *testing.T
	testDB *testhelpers.TestDB
	ctx    context.Context
}

func setupRepoTest(t *testing.T) *repoTestContext {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	testDB.Truncate(t)
	return &repoTestContext{
		t:      t,
		testDB: testDB,
		ctx:    testDB.Scope(t),
	}
}

func (tc *repoTestContext) createClaim(status models.Status) *models.Claim {
	tc.t.Helper()
	claim := &models.Claim{
		AuthorID:    "author-1",
		Title:       "The moon landing was filmed on location",
		Description: "A claim about 1969.",
		Category:    "history",
		Status:      status,
	}
	require.NoError(tc.t, NewClaimRepository().Create(tc.ctx, claim))
	return claim
}

func (tc *repoTestContext) createEvidence(claimID uuid.UUID, position models.Position) *models.Evidence {
	tc.t.Helper()
	e := &models.Evidence{
		ClaimID:  claimID,
		AuthorID: "author-2",
		Position: position,
		Title:    "Retroreflector measurements",
	}
	require.NoError(tc.t, NewEvidenceRepository().Create(tc.ctx, e))
	return e
}

func (tc *repoTestContext) createPerspective(claimID uuid.UUID, position models.Position) *models.Perspective {
	tc.t.Helper()
	p := &models.Perspective{
		ClaimID:  claimID,
		AuthorID: "author-3",
		Position: position,
		Body:     "Looks convincing to me.",
	}
	require.NoError(tc.t, NewPerspectiveRepository().Create(tc.ctx, p))
	return p
}
