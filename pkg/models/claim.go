package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the moderation status shared by claims, evidence, perspectives and replies.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFlagged  Status = "flagged"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFlagged:
		return true
	}
	return false
}

// Claim is a user-submitted factual assertion.
// TotalScore is derived by the score aggregator and never set by users.
type Claim struct {
	ID                  uuid.UUID `json:"id"`
	AuthorID            string    `json:"author_id"`
	Title               string    `json:"title"`
	OriginalTitle       *string   `json:"original_title,omitempty"`
	Description         string    `json:"description"`
	OriginalDescription *string   `json:"original_description,omitempty"`
	Category            string    `json:"category,omitempty"`
	Status              Status    `json:"status"`
	TotalScore          float64   `json:"total_score"`
	Upvotes             int       `json:"upvotes"`
	Downvotes           int       `json:"downvotes"`
	FollowCount         int       `json:"follow_count"`

	TitleEdited     bool       `json:"title_edited"`
	TitleEditedBy   *string    `json:"title_edited_by,omitempty"`
	TitleEditedAt   *time.Time `json:"title_edited_at,omitempty"`
	TitleEditReason *string    `json:"title_edit_reason,omitempty"`

	DescriptionEdited     bool       `json:"description_edited"`
	DescriptionEditedBy   *string    `json:"description_edited_by,omitempty"`
	DescriptionEditedAt   *time.Time `json:"description_edited_at,omitempty"`
	DescriptionEditReason *string    `json:"description_edit_reason,omitempty"`

	SEOTitle       *string `json:"seo_title,omitempty"`
	SEODescription *string `json:"seo_description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeadingSide returns the side the stored TotalScore currently favours.
func (c *Claim) LeadingSide() *Position {
	return LeadingSideFor(c.TotalScore)
}

// ClaimEdits carries optional moderator rewrites applied during approval.
// A nil Title or Description means "leave unchanged".
type ClaimEdits struct {
	Title                 *string `json:"title,omitempty"`
	TitleEditReason       string  `json:"title_edit_reason,omitempty"`
	Description           *string `json:"description,omitempty"`
	DescriptionEditReason string  `json:"description_edit_reason,omitempty"`
}

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	Status   Status
	AuthorID string
	Limit    int
	Offset   int
}
