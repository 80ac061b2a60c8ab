package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/models"
)

// ReplyRepository provides data access for replies on evidence and perspectives.
type ReplyRepository interface {
	Create(ctx context.Context, reply *models.Reply) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reply, error)
	ListByTarget(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.Reply, error)
}

type replyRepository struct{}

// NewReplyRepository creates a new ReplyRepository.
func NewReplyRepository() ReplyRepository {
	return &replyRepository{}
}

var _ ReplyRepository = (*replyRepository)(nil)

const replyColumns = `
	id, target_type, target_id, author_id, body, links, status,
	upvotes, downvotes, score, created_at, updated_at`

func (r *replyRepository) Create(ctx context.Context, reply *models.Reply) error {
	q, err := conn(ctx)
	if err != nil {
		return err
	}

	if reply.Status == "" {
		reply.Status = models.StatusApproved
	}
	if reply.Links == nil {
		reply.Links = []string{}
	}

	links, err := json.Marshal(reply.Links)
	if err != nil {
		return fmt.Errorf("failed to marshal reply links: %w", err)
	}

	query := `
		INSERT INTO replies (target_type, target_id, author_id, body, links, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, upvotes, downvotes, score, created_at, updated_at`

	err = q.QueryRow(ctx, query,
		string(reply.TargetType),
		reply.TargetID,
		reply.AuthorID,
		reply.Body,
		links,
		string(reply.Status),
	).Scan(&reply.ID, &reply.Upvotes, &reply.Downvotes, &reply.Score, &reply.CreatedAt, &reply.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reply: %w", err)
	}
	return nil
}

func (r *replyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reply, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := scanReply(q.QueryRow(ctx, `SELECT `+replyColumns+` FROM replies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return reply, nil
}

func (r *replyRepository) ListByTarget(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.Reply, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + replyColumns + `
		FROM replies
		WHERE target_type = $1 AND target_id = $2 AND status = 'approved'
		ORDER BY created_at ASC`

	rows, err := q.Query(ctx, query, string(targetType), targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}
	defer rows.Close()

	var replies []*models.Reply
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating replies: %w", err)
	}
	return replies, nil
}

func scanReply(row pgx.Row) (*models.Reply, error) {
	var rp models.Reply
	var targetType, status string
	var links []byte

	err := row.Scan(
		&rp.ID,
		&targetType,
		&rp.TargetID,
		&rp.AuthorID,
		&rp.Body,
		&links,
		&status,
		&rp.Upvotes,
		&rp.Downvotes,
		&rp.Score,
		&rp.CreatedAt,
		&rp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan reply: %w", err)
	}

	rp.TargetType = models.TargetKind(targetType)
	rp.Status = models.Status(status)
	rp.Links = []string{}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &rp.Links); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reply links: %w", err)
		}
	}
	return &rp, nil
}
