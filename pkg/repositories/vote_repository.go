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

// VoteRepository is the vote ledger for every votable target kind.
type VoteRepository interface {
	// Apply records userID's vote on a target and adjusts the target counters in one
	// transaction. Casting the same vote twice removes it; casting the opposite vote
	// switches it.
	Apply(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, userID string, voteType models.VoteType) (*models.VoteResult, error)

	// Get returns the user's current vote on a target, or nil if there is none.
	Get(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, userID string) (*models.Vote, error)
}

type voteRepository struct{}

// NewVoteRepository creates a new VoteRepository.
func NewVoteRepository() VoteRepository {
	return &voteRepository{}
}

var _ VoteRepository = (*voteRepository)(nil)

type voteTables struct {
	target string
	votes  string
	// claimColumn is empty for targets that do not belong to a claim.
	claimColumn string
	hasScore    bool
}

var voteTablesByKind = map[models.TargetKind]voteTables{
	models.TargetClaim:       {target: "claims", votes: "claim_votes"},
	models.TargetEvidence:    {target: "evidence", votes: "evidence_votes", claimColumn: "claim_id", hasScore: true},
	models.TargetPerspective: {target: "perspectives", votes: "perspective_votes", claimColumn: "claim_id", hasScore: true},
	models.TargetReply:       {target: "replies", votes: "reply_votes", hasScore: true},
}

func tablesFor(kind models.TargetKind) (voteTables, error) {
	t, ok := voteTablesByKind[kind]
	if !ok {
		return voteTables{}, apperrors.NewValidationError("kind", fmt.Sprintf("unsupported vote target %q", kind))
	}
	return t, nil
}

func (r *voteRepository) Apply(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, userID string, voteType models.VoteType) (*models.VoteResult, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	result := &models.VoteResult{}

	err = withTx(ctx, func(tx pgx.Tx) error {
		ownerColumn := "id"
		if t.claimColumn != "" {
			ownerColumn = t.claimColumn
		}
		var owner uuid.UUID
		err := tx.QueryRow(ctx, `SELECT `+ownerColumn+` FROM `+t.target+` WHERE id = $1`, targetID).Scan(&owner)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("failed to load vote target: %w", err)
		}
		if t.claimColumn != "" {
			result.ClaimID = owner
		}

		lockQuery := `SELECT vote_type FROM ` + t.votes + ` WHERE target_id = $1 AND user_id = $2 FOR UPDATE`

		var previous string
		hasPrevious := true
		if err := tx.QueryRow(ctx, lockQuery, targetID, userID).Scan(&previous); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to lock vote: %w", err)
			}
			hasPrevious = false
		}

		var upDelta, downDelta int
		bump := func(v models.VoteType, d int) {
			if v == models.VoteUp {
				upDelta += d
			} else {
				downDelta += d
			}
		}

		if !hasPrevious {
			insertQuery := `
				INSERT INTO ` + t.votes + ` (target_id, user_id, vote_type)
				VALUES ($1, $2, $3)
				ON CONFLICT (target_id, user_id) DO NOTHING
				RETURNING id`

			var id uuid.UUID
			err := tx.QueryRow(ctx, insertQuery, targetID, userID, string(voteType)).Scan(&id)
			switch {
			case err == nil:
				bump(voteType, 1)
				v := voteType
				result.UserVote = &v
			case errors.Is(err, pgx.ErrNoRows):
				// A concurrent first vote by the same user committed between the lock
				// and the insert; continue as a toggle/switch against that row.
				if err := tx.QueryRow(ctx, lockQuery, targetID, userID).Scan(&previous); err != nil {
					return fmt.Errorf("failed to lock vote after conflict: %w", err)
				}
				hasPrevious = true
			default:
				return fmt.Errorf("failed to insert vote: %w", err)
			}
		}

		if hasPrevious {
			prev := models.VoteType(previous)
			if prev == voteType {
				_, err := tx.Exec(ctx, `DELETE FROM `+t.votes+` WHERE target_id = $1 AND user_id = $2`, targetID, userID)
				if err != nil {
					return fmt.Errorf("failed to remove vote: %w", err)
				}
				bump(prev, -1)
				result.UserVote = nil
			} else {
				_, err := tx.Exec(ctx,
					`UPDATE `+t.votes+` SET vote_type = $3, updated_at = now() WHERE target_id = $1 AND user_id = $2`,
					targetID, userID, string(voteType))
				if err != nil {
					return fmt.Errorf("failed to switch vote: %w", err)
				}
				bump(prev, -1)
				bump(voteType, 1)
				v := voteType
				result.UserVote = &v
			}
		}

		set := `upvotes = GREATEST(upvotes + $2, 0), downvotes = GREATEST(downvotes + $3, 0)`
		if t.hasScore {
			set += `, score = GREATEST(upvotes + $2, 0) - GREATEST(downvotes + $3, 0)`
		}
		counterQuery := `UPDATE ` + t.target + ` SET ` + set + ` WHERE id = $1 RETURNING upvotes, downvotes`

		if err := tx.QueryRow(ctx, counterQuery, targetID, upDelta, downDelta).Scan(&result.Upvotes, &result.Downvotes); err != nil {
			return fmt.Errorf("failed to update vote counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *voteRepository) Get(ctx context.Context, kind models.TargetKind, targetID uuid.UUID, userID string) (*models.Vote, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}

	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, target_id, user_id, vote_type, created_at, updated_at
		FROM ` + t.votes + `
		WHERE target_id = $1 AND user_id = $2`

	var v models.Vote
	var voteType string
	err = q.QueryRow(ctx, query, targetID, userID).Scan(
		&v.ID, &v.TargetID, &v.UserID, &voteType, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	v.Kind = kind
	v.VoteType = models.VoteType(voteType)
	return &v, nil
}
