package models

import (
	"time"

	"github.com/google/uuid"
)

// ModerationAction is the action recorded in a moderation log entry.
type ModerationAction string

const (
	ModerationApproveClaim ModerationAction = "approve_claim"
	ModerationRejectClaim  ModerationAction = "reject_claim"
	ModerationFlagClaim    ModerationAction = "flag_claim"
	// Content-level actions for evidence/perspective status changes.
	ModerationSetContentStatus ModerationAction = "set_content_status"
)

// ModerationLog is an append-only record of a moderator decision.
type ModerationLog struct {
	ID          uuid.UUID        `json:"id"`
	ModeratorID string           `json:"moderator_id"`
	Action      ModerationAction `json:"action"`
	TargetType  TargetKind       `json:"target_type"`
	TargetID    uuid.UUID        `json:"target_id"`
	Reason      *string          `json:"reason,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
