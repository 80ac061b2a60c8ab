package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/claimcheck/pkg/models"
)

func TestWeight(t *testing.T) {
	tests := []struct {
		name      string
		upvotes   int
		downvotes int
		expected  int
	}{
		{"no votes", 0, 0, 1},
		{"exactly ten is not viral", 10, 0, 1},
		{"ten split is not viral", 5, 5, 1},
		{"eleven is viral", 11, 0, 2},
		{"split above threshold is viral", 1, 10, 2},
		{"all downvotes still viral", 0, 15, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Weight(tt.upvotes, tt.downvotes))
		})
	}
}

func TestEvidenceContribution(t *testing.T) {
	assert.Equal(t, 1.0, EvidenceContribution(models.PositionFor, 0, 0))
	assert.Equal(t, -1.0, EvidenceContribution(models.PositionAgainst, 0, 0))
	assert.Equal(t, 2.0, EvidenceContribution(models.PositionFor, 8, 7))
	assert.Equal(t, -2.0, EvidenceContribution(models.PositionAgainst, 3, 8))
	assert.Equal(t, 0.0, EvidenceContribution(models.Position("neutral"), 3, 3))
}

func TestPerspectiveContribution(t *testing.T) {
	assert.Equal(t, 0.5, PerspectiveContribution(models.PositionFor, 0, 0))
	assert.Equal(t, -0.5, PerspectiveContribution(models.PositionAgainst, 2, 2))
	assert.Equal(t, 1.0, PerspectiveContribution(models.PositionFor, 20, 0))
	assert.Equal(t, -1.0, PerspectiveContribution(models.PositionAgainst, 6, 6))
}

func TestContribution_ViralDoublesMagnitude(t *testing.T) {
	// Same 1:1 ratio, below and above the threshold.
	for _, pos := range []models.Position{models.PositionFor, models.PositionAgainst} {
		assert.Equal(t, 2*EvidenceContribution(pos, 3, 3), EvidenceContribution(pos, 6, 6))
		assert.Equal(t, 2*PerspectiveContribution(pos, 3, 3), PerspectiveContribution(pos, 6, 6))
	}
}

func TestTotal(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, Total(nil, nil))
	})

	t.Run("mixed evidence and perspectives", func(t *testing.T) {
		evidence := []*models.Evidence{
			{Position: models.PositionFor, Upvotes: 10, Downvotes: 5},
			{Position: models.PositionFor, Upvotes: 2, Downvotes: 1},
		}
		perspectives := []*models.Perspective{
			{Position: models.PositionAgainst, Upvotes: 3, Downvotes: 1},
		}
		assert.Equal(t, 2.5, Total(evidence, perspectives))
	})
}
