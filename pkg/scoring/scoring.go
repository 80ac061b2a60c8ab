// Package scoring converts evidence and perspective votes into signed
// contributions to a claim's total score.
package scoring

import "github.com/ekaya-inc/claimcheck/pkg/models"

const (
	// ViralVoteThreshold is the total vote count an item must exceed to count double.
	ViralVoteThreshold = 10

	evidenceBase    = 1.0
	perspectiveBase = 0.5
)

// Weight returns 2 when an item has more than ViralVoteThreshold total votes, else 1.
// The split between up and down votes does not matter.
func Weight(upvotes, downvotes int) int {
	if upvotes+downvotes > ViralVoteThreshold {
		return 2
	}
	return 1
}

// EvidenceContribution is +1 for FOR and -1 for AGAINST, multiplied by Weight.
func EvidenceContribution(position models.Position, upvotes, downvotes int) float64 {
	return contribution(evidenceBase, position, upvotes, downvotes)
}

// PerspectiveContribution is +0.5 for FOR and -0.5 for AGAINST, multiplied by Weight.
func PerspectiveContribution(position models.Position, upvotes, downvotes int) float64 {
	return contribution(perspectiveBase, position, upvotes, downvotes)
}

func contribution(base float64, position models.Position, upvotes, downvotes int) float64 {
	var sign float64
	switch position {
	case models.PositionFor:
		sign = 1
	case models.PositionAgainst:
		sign = -1
	default:
		return 0
	}
	return sign * base * float64(Weight(upvotes, downvotes))
}

// Total sums contributions of the given items. Callers pass only approved content.
func Total(evidence []*models.Evidence, perspectives []*models.Perspective) float64 {
	var total float64
	for _, e := range evidence {
		total += EvidenceContribution(e.Position, e.Upvotes, e.Downvotes)
	}
	for _, p := range perspectives {
		total += PerspectiveContribution(p.Position, p.Upvotes, p.Downvotes)
	}
	return total
}
