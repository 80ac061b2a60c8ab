package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/claimcheck/pkg/models"
)

// ModerationLogRepository provides read access to the append-only moderation log.
// Entries are written by the repositories that apply the moderated change,
// inside the same transaction.
type ModerationLogRepository interface {
	// ListByTarget returns entries for one target, newest first.
	ListByTarget(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.ModerationLog, error)

	// ListRecent returns the most recent entries across all targets.
	ListRecent(ctx context.Context, limit int) ([]*models.ModerationLog, error)
}

type moderationLogRepository struct{}

// NewModerationLogRepository creates a new ModerationLogRepository.
func NewModerationLogRepository() ModerationLogRepository {
	return &moderationLogRepository{}
}

var _ ModerationLogRepository = (*moderationLogRepository)(nil)

const moderationLogColumns = `id, moderator_id, action, target_type, target_id, reason, metadata, created_at`

func (r *moderationLogRepository) ListByTarget(ctx context.Context, targetType models.TargetKind, targetID uuid.UUID) ([]*models.ModerationLog, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + moderationLogColumns + `
		FROM moderation_logs
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC`

	rows, err := q.Query(ctx, query, string(targetType), targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation logs: %w", err)
	}
	return collectModerationLogs(rows)
}

func (r *moderationLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.ModerationLog, error) {
	q, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + moderationLogColumns + `
		FROM moderation_logs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := q.Query(ctx, query, clampLimit(limit, 100, 500))
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation logs: %w", err)
	}
	return collectModerationLogs(rows)
}

// insertModerationLog appends an entry using the caller's transaction.
func insertModerationLog(ctx context.Context, q querier, entry *models.ModerationLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var metadataJSON []byte
	if len(entry.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal moderation metadata: %w", err)
		}
	}

	query := `
		INSERT INTO moderation_logs (
			id, moderator_id, action, target_type, target_id, reason, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := q.Exec(ctx, query,
		entry.ID,
		entry.ModeratorID,
		string(entry.Action),
		string(entry.TargetType),
		entry.TargetID,
		entry.Reason,
		metadataJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create moderation log entry: %w", err)
	}
	return nil
}

func collectModerationLogs(rows pgx.Rows) ([]*models.ModerationLog, error) {
	defer rows.Close()

	var entries []*models.ModerationLog
	for rows.Next() {
		var e models.ModerationLog
		var action, targetType string
		var metadata []byte

		if err := rows.Scan(&e.ID, &e.ModeratorID, &action, &targetType, &e.TargetID,
			&e.Reason, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan moderation log: %w", err)
		}

		e.Action = models.ModerationAction(action)
		e.TargetType = models.TargetKind(targetType)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal moderation metadata: %w", err)
			}
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating moderation logs: %w", err)
	}
	return entries, nil
}
