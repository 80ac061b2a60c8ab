package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/models"
)

// ClaimTransition describes a conditional status change made by a moderator.
// Title and Description are nil when unchanged.
type ClaimTransition struct {
	ClaimID     uuid.UUID
	FromStatus  models.Status
	ToStatus    models.Status
	ModeratorID string
	At          time.Time

	Title                 *string
	TitleEditReason       string
	Description           *string
	DescriptionEditReason string

	// Log is inserted in the same transaction as the status change.
	Log *models.ModerationLog
}

// ClaimRepository provides data access for claims.
type ClaimRepository interface {
	Create(ctx context.Context, claim *models.Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	List(ctx context.Context, filter models.ClaimFilter) ([]*models.Claim, error)

	// UpdateTotalScore overwrites total_score. Safe to call concurrently.
	UpdateTotalScore(ctx context.Context, id uuid.UUID, score float64) error

	// UpdateSEO writes generated SEO metadata.
	UpdateSEO(ctx context.Context, id uuid.UUID, seoTitle, seoDescription string) error

	// ApplyTransition updates status (and optional content edits) only if the claim
	// is still in FromStatus. Returns ErrConflict if another moderator got there first.
	ApplyTransition(ctx context.Context, t *ClaimTransition) (*models.Claim, error)
}

type claimRepository struct{}

// NewClaimRepository creates a new ClaimRepository.
func NewClaimRepository() ClaimRepository {
	return &claimRepository{}
}

var _ ClaimRepository = (*claimRepository)(nil)

const claimColumns = `
	id, author_id, title, original_title, description, original_description,
	category, status, total_score, upvotes, downvotes, follow_count,
	title_edited, title_edited_by, title_edited_at, title_edit_reason,
	description_edited, description_edited_by, description_edited_at, description_edit_reason,
	seo_title, seo_description, created_at, updated_at`

func (r *claimRepository) Create(ctx context.Context, claim *models.Claim) error {
	q, err := conn(ctx)
	if err != nil {
		return err
	}

	if claim.Status == "" {
		claim.Status = models.StatusPending
	}

	query := `
		INSERT INTO claims (author_id, title, description, category, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, total_score, upvotes, downvotes, follow_count, created_at, updated_at`

	err = q.QueryRow(ctx, query,
		claim.AuthorID,
		claim.Title,
		claim.Description,
		claim.Category,
		string(claim.Status),
	).Scan(&claim.ID, &claim.TotalScore, &claim.Upvotes, &claim.Downvotes, &claim.FollowCount,
		&claim.CreatedAt, &claim.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

func (r *claimRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`

	claim, err := scanClaim(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return claim, nil
}

func (r *claimRepository) List(ctx context.Context, filter models.ClaimFilter) ([]*models.Claim, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR author_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := q.Query(ctx, query,
		string(filter.Status),
		filter.AuthorID,
		clampLimit(filter.Limit, 50, 200),
		max(filter.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	var claims []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claims: %w", err)
	}

	return claims, nil
}

func (r *claimRepository) UpdateTotalScore(ctx context.Context, id uuid.UUID, score float64) error {
	q, err := conn(ctx)
	if err != nil {
		return err
	}

	// updated_at is left alone: score refreshes are not content edits.
	result, err := q.Exec(ctx, `UPDATE claims SET total_score = $2 WHERE id = $1`, id, score)
	if err != nil {
		return fmt.Errorf("failed to update claim score: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *claimRepository) UpdateSEO(ctx context.Context, id uuid.UUID, seoTitle, seoDescription string) error {
	q, err := conn(ctx)
	if err != nil {
		return err
	}

	result, err := q.Exec(ctx,
		`UPDATE claims SET seo_title = $2, seo_description = $3 WHERE id = $1`,
		id, nullString(seoTitle), nullString(seoDescription))
	if err != nil {
		return fmt.Errorf("failed to update claim seo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *claimRepository) ApplyTransition(ctx context.Context, t *ClaimTransition) (*models.Claim, error) {
	var claim *models.Claim

	err := withTx(ctx, func(tx pgx.Tx) error {
		// All SET expressions see the pre-update row, so COALESCE(original_title, title)
		// captures the stored title only on the first edit.
		query := `
			UPDATE claims SET
				status = $3,
				original_title = CASE WHEN $4::text IS NOT NULL THEN COALESCE(original_title, title) ELSE original_title END,
				title = COALESCE($4::text, title),
				title_edited = title_edited OR $4::text IS NOT NULL,
				title_edited_by = CASE WHEN $4::text IS NOT NULL THEN $6 ELSE title_edited_by END,
				title_edited_at = CASE WHEN $4::text IS NOT NULL THEN $7 ELSE title_edited_at END,
				title_edit_reason = CASE WHEN $4::text IS NOT NULL THEN $5 ELSE title_edit_reason END,
				original_description = CASE WHEN $8::text IS NOT NULL THEN COALESCE(original_description, description) ELSE original_description END,
				description = COALESCE($8::text, description),
				description_edited = description_edited OR $8::text IS NOT NULL,
				description_edited_by = CASE WHEN $8::text IS NOT NULL THEN $6 ELSE description_edited_by END,
				description_edited_at = CASE WHEN $8::text IS NOT NULL THEN $7 ELSE description_edited_at END,
				description_edit_reason = CASE WHEN $8::text IS NOT NULL THEN $9 ELSE description_edit_reason END,
				updated_at = $7
			WHERE id = $1 AND status = $2
			RETURNING ` + claimColumns

		var err error
		claim, err = scanClaim(tx.QueryRow(ctx, query,
			t.ClaimID,
			string(t.FromStatus),
			string(t.ToStatus),
			t.Title,
			t.TitleEditReason,
			t.ModeratorID,
			t.At,
			t.Description,
			t.DescriptionEditReason,
		))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM claims WHERE id = $1)`, t.ClaimID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check claim existence: %w", err)
			}
			if !exists {
				return apperrors.ErrNotFound
			}
			return apperrors.ErrConflict
		}

		if t.Log != nil {
			if err := insertModerationLog(ctx, tx, t.Log); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claim, nil
}

func scanClaim(row pgx.Row) (*models.Claim, error) {
	var c models.Claim
	var status string

	err := row.Scan(
		&c.ID,
		&c.AuthorID,
		&c.Title,
		&c.OriginalTitle,
		&c.Description,
		&c.OriginalDescription,
		&c.Category,
		&status,
		&c.TotalScore,
		&c.Upvotes,
		&c.Downvotes,
		&c.FollowCount,
		&c.TitleEdited,
		&c.TitleEditedBy,
		&c.TitleEditedAt,
		&c.TitleEditReason,
		&c.DescriptionEdited,
		&c.DescriptionEditedBy,
		&c.DescriptionEditedAt,
		&c.DescriptionEditReason,
		&c.SEOTitle,
		&c.SEODescription,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan claim: %w", err)
	}

	c.Status = models.Status(status)
	return &c, nil
}
