package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/models"
)

// PerspectiveRepository provides data access for claim perspectives.
type PerspectiveRepository interface {
	Create(ctx context.Context, perspectivp *models.Perspective) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Perspective, error)

	// ListByClaim returns perspectives for a claim ordered for the feed (score, then age).
	// An empty status returns all statuses.
	ListByClaim(ctx context.Context, claimID uuid.UUID, status models.Status) ([]*models.Perspective, error)

	// ListApprovedByClaim returns only approved perspectives.
	ListApprovedByClaim(ctx context.Context, claimID uuid.UUID) ([]*models.Perspective, error)

	// UpdateStatus changes moderation status and appends log in one transaction.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, log *models.ModerationLog) (*models.Perspective, error)
}

type perspectiveRepository struct{}

// NewPerspectiveRepository creates a new PerspectiveRepository.
func NewPerspectiveRepository() PerspectiveRepository {
	return &perspectiveRepository{}
}

var _ PerspectiveRepository = (*perspectiveRepository)(nil)

const perspectiveColumns = `
	id, claim_id, author_id, position, body, status,
	upvotes, downvotes, score, created_at, updated_at`

func (r *perspectiveRepository) Create(ctx context.Context, p *models.Perspective) error {
	q, err := conn(ctx)
	if err != nil {
		return err
	}

	if p.Status == "" {
		p.Status = models.StatusApproved
	}

	query := `
		INSERT INTO perspectives (claim_id, author_id, position, body, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, upvotes, downvotes, score, created_at, updated_at`

	err = q.QueryRow(ctx, query,
		p.ClaimID,
		p.AuthorID,
		string(p.Position),
		p.Body,
		string(p.Status),
	).Scan(&p.ID, &p.Upvotes, &p.Downvotes, &p.Score, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create perspective: %w", err)
	}
	return nil
}

func (r *perspectiveRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Perspective, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	p, err := scanPerspective(q.QueryRow(ctx, `SELECT `+perspectiveColumns+` FROM perspectives WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *perspectiveRepository) ListByClaim(ctx context.Context, claimID uuid.UUID, status models.Status) ([]*models.Perspective, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + perspectiveColumns + `
		FROM perspectives
		WHERE claim_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY score DESC, created_at ASC`

	rows, err := q.Query(ctx, query, claimID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query perspectives: %w", err)
	}
	defer rows.Close()

	var items []*models.Perspective
	for rows.Next() {
		p, err := scanPerspective(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating perspectives: %w", err)
	}
	return items, nil
}

func (r *perspectiveRepository) ListApprovedByClaim(ctx context.Context, claimID uuid.UUID) ([]*models.Perspective, error) {
	return r.ListByClaim(ctx, claimID, models.StatusApproved)
}

func (r *perspectiveRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, log *models.ModerationLog) (*models.Perspective, error) {
	var p *models.Perspective

	err := withTx(ctx, func(tx pgx.Tx) error {
		var err error
		p, err = scanPerspective(tx.QueryRow(ctx, `
			UPDATE perspectives SET status = $2, updated_at = now()
			WHERE id = $1
			RETURNING `+perspectiveColumns, id, string(status)))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrNotFound
			}
			return err
		}

		if log != nil {
			return insertModerationLog(ctx, tx, log)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanPerspective(row pgx.Row) (*models.Perspective, error) {
	var p models.Perspective
	var position, status string

	err := row.Scan(
		&p.ID,
		&p.ClaimID,
		&p.AuthorID,
		&position,
		&p.Body,
		&status,
		&p.Upvotes,
		&p.Downvotes,
		&p.Score,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan perspective: %w", err)
	}

	p.Position = models.Position(position)
	p.Status = models.Status(status)
	return &p, nil
}
