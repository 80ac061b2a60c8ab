package models

import (
	"time"

	"github.com/google/uuid"
)

// VoteType is the direction of a single vote.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// IsValid reports whether v is an upvote or downvote.
func (v VoteType) IsValid() bool {
	return v == VoteUp || v == VoteDown
}

// Opposite returns the other vote direction.
func (v VoteType) Opposite() VoteType {
	if v == VoteUp {
		return VoteDown
	}
	return VoteUp
}

// TargetKind discriminates the item a vote or reply is attached to.
type TargetKind string

const (
	TargetClaim       TargetKind = "claim"
	TargetEvidence    TargetKind = "evidence"
	TargetPerspective TargetKind = "perspective"
	TargetReply       TargetKind = "reply"
)

// IsValid reports whether k is a known target kind.
func (k TargetKind) IsValid() bool {
	switch k {
	case TargetClaim, TargetEvidence, TargetPerspective, TargetReply:
		return true
	}
	return false
}

// AffectsClaimScore reports whether votes on this kind feed the owning claim's total score.
func (k TargetKind) AffectsClaimScore() bool {
	return k == TargetEvidence || k == TargetPerspective
}

// ParseTargetKind accepts both singular and plural path segments ("claims", "evidence").
func ParseTargetKind(s string) (TargetKind, bool) {
	switch s {
	case "claim", "claims":
		return TargetClaim, true
	case "evidence":
		return TargetEvidence, true
	case "perspective", "perspectives":
		return TargetPerspective, true
	case "reply", "replies":
		return TargetReply, true
	}
	return "", false
}

// Vote is a single ledger row. At most one exists per (TargetID, UserID).
type Vote struct {
	ID        uuid.UUID  `json:"id"`
	Kind      TargetKind `json:"kind"`
	TargetID  uuid.UUID  `json:"target_id"`
	UserID    string     `json:"user_id"`
	VoteType  VoteType   `json:"vote_type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// VoteResult is the target's counter state after a vote has been applied.
// UserVote is nil when the caller's vote was toggled off.
type VoteResult struct {
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	UserVote  *VoteType `json:"user_vote"`
	// ClaimID is the owning claim for evidence/perspective targets, uuid.Nil otherwise.
	ClaimID uuid.UUID `json:"-"`
}
