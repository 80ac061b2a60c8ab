package models

import (
	"time"

	"github.com/google/uuid"
)

// Position is the side a piece of content takes on its claim.
type Position string

const (
	PositionFor     Position = "for"
	PositionAgainst Position = "against"
)

// IsValid reports whether p is FOR or AGAINST.
func (p Position) IsValid() bool {
	return p == PositionFor || p == PositionAgainst
}

// LeadingSideFor maps a claim total score to the side it favours.
// Returns nil on a tie or when there is no scored content.
func LeadingSideFor(total float64) *Position {
	var side Position
	switch {
	case total > 0:
		side = PositionFor
	case total < 0:
		side = PositionAgainst
	default:
		return nil
	}
	return &side
}

// Evidence is a sourced item supporting or refuting a claim.
// Evidence is auto-approved on creation.
type Evidence struct {
	ID        uuid.UUID `json:"id"`
	ClaimID   uuid.UUID `json:"claim_id"`
	AuthorID  string    `json:"author_id"`
	Position  Position  `json:"position"`
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url,omitempty"`
	Body      string    `json:"body,omitempty"`
	Status    Status    `json:"status"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Perspective is an opinion piece on a claim.
// Score is upvotes minus downvotes and only drives feed ordering.
type Perspective struct {
	ID        uuid.UUID `json:"id"`
	ClaimID   uuid.UUID `json:"claim_id"`
	AuthorID  string    `json:"author_id"`
	Position  Position  `json:"position"`
	Body      string    `json:"body"`
	Status    Status    `json:"status"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
