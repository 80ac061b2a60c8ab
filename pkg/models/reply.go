package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ReplyBodyMinLength = 10
	ReplyBodyMaxLength = 2000
	// MaxReplyLinks is the number of links persisted per reply.
	MaxReplyLinks = 1
)

// Reply is a flat comment on an evidence or perspective item.
type Reply struct {
	ID         uuid.UUID  `json:"id"`
	TargetType TargetKind `json:"target_type"`
	TargetID   uuid.UUID  `json:"target_id"`
	AuthorID   string     `json:"author_id"`
	Body       string     `json:"body"`
	Links      []string   `json:"links"`
	Status     Status     `json:"status"`
	Upvotes    int        `json:"upvotes"`
	Downvotes  int        `json:"downvotes"`
	Score      int        `json:"score"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NormalizeReplyLinks keeps only the first non-empty link.
// The second return value is the number of links dropped.
func NormalizeReplyLinks(links []string) ([]string, int) {
	kept := make([]string, 0, MaxReplyLinks)
	dropped := 0
	for _, l := range links {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if len(kept) < MaxReplyLinks {
			kept = append(kept, l)
			continue
		}
		dropped++
	}
	return kept, dropped
}
