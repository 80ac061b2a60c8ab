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

// EvidenceRepository provides data access for claim evidence.
type EvidenceRepository interface {
	Create(ctx context.Context, evidence *models.Evidence) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Evidence, error)

	// ListByClaim returns evidence for a claim. An empty status returns all statuses.
	ListByClaim(ctx context.Context, claimID uuid.UUID, status models.Status) ([]*models.Evidence, error)

	// ListApprovedByClaim returns only approved evidence, the input to claim scoring.
	ListApprovedByClaim(ctx context.Context, claimID uuid.UUID) ([]*models.Evidence, error)

	// UpdateStatus changes moderation status and appends log in one transaction.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, log *models.ModerationLog) (*models.Evidence, error)
}

type evidenceRepository struct{}

// NewEvidenceRepository creates a new EvidenceRepository.
func NewEvidenceRepository() EvidenceRepository {
	return &evidenceRepository{}
}

var _ EvidenceRepository = (*evidenceRepository)(nil)

const evidenceColumns = `
	id, claim_id, author_id, position, title, source_url, body, status,
	upvotes, downvotes, score, created_at, updated_at`

func (r *evidenceRepository) Create(ctx context.Context, e *models.Evidence) error {
	q, err := conn(ctx)
	if err != nil {
		return err
	}

	if e.Status == "" {
		e.Status = models.StatusApproved
	}

	query := `
		INSERT INTO evidence (claim_id, author_id, position, title, source_url, body, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, upvotes, downvotes, score, created_at, updated_at`

	err = q.QueryRow(ctx, query,
		e.ClaimID,
		e.AuthorID,
		string(e.Position),
		e.Title,
		e.SourceURL,
		e.Body,
		string(e.Status),
	).Scan(&e.ID, &e.Upvotes, &e.Downvotes, &e.Score, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create evidence: %w", err)
	}
	return nil
}

func (r *evidenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Evidence, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	e, err := scanEvidence(q.QueryRow(ctx, `SELECT `+evidenceColumns+` FROM evidence WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *evidenceRepository) ListByClaim(ctx context.Context, claimID uuid.UUID, status models.Status) ([]*models.Evidence, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + evidenceColumns + `
		FROM evidence
		WHERE claim_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY score DESC, created_at ASC`

	rows, err := q.Query(ctx, query, claimID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence: %w", err)
	}
	defer rows.Close()

	var items []*models.Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evidence: %w", err)
	}
	return items, nil
}

func (r *evidenceRepository) ListApprovedByClaim(ctx context.Context, claimID uuid.UUID) ([]*models.Evidence, error) {
	return r.ListByClaim(ctx, claimID, models.StatusApproved)
}

func (r *evidenceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, log *models.ModerationLog) (*models.Evidence, error) {
	var e *models.Evidence

	err := withTx(ctx, func(tx pgx.Tx) error {
		var err error
		e, err = scanEvidence(tx.QueryRow(ctx, `
			UPDATE evidence SET status = $2, updated_at = now()
			WHERE id = $1
			RETURNING `+evidenceColumns, id, string(status)))
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
	return e, nil
}

func scanEvidence(row pgx.Row) (*models.Evidence, error) {
	var e models.Evidence
	var position, status string

	err := row.Scan(
		&e.ID,
		&e.ClaimID,
		&e.AuthorID,
		&position,
		&e.Title,
		&e.SourceURL,
		&e.Body,
		&status,
		&e.Upvotes,
		&e.Downvotes,
		&e.Score,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan evidence: %w", err)
	}

	e.Position = models.Position(position)
	e.Status = models.Status(status)
	return &e, nil
}
