package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/pkg/db"
)

type pgTimelineRepository struct {
	q      db.Querier
	logger *zap.Logger
}

// BulkInsert writes all rows with a single COPY.
func (r *pgTimelineRepository) BulkInsert(ctx context.Context, events []model.TimelineEvent) error {
	if len(events) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]any, len(events))
	for i, e := range events {
		created := e.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows[i] = []any{e.ProjectID, e.UserID, string(e.Action), e.Description, created}
	}

	n, err := r.q.CopyFrom(ctx,
		pgx.Identifier{"timeline_events"},
		[]string{"project_id", "user_id", "action", "description", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		r.logger.Error("Failed to copy timeline events", zap.Int("count", len(events)), zap.Error(err))
		return err
	}

	r.logger.Debug("Timeline events inserted", zap.Int64("count", n))
	return nil
}

func (r *pgTimelineRepository) List(ctx context.Context, f TimelineFilter) ([]model.TimelineEvent, error) {
	query := `
		SELECT e.id, e.project_id, e.user_id, e.action, e.description, e.created_at
		FROM timeline_events e
		WHERE ($1::bigint IS NULL OR EXISTS (
		          SELECT 1 FROM project_members m
		          WHERE m.project_id = e.project_id AND m.user_id = $1))
		  AND ($2::bigint IS NULL OR e.project_id = $2)
		ORDER BY e.created_at DESC, e.id DESC
	`
	rows, err := r.q.Query(ctx, query, f.MemberID, f.ProjectID)
	if err != nil {
		r.logger.Error("Failed to list timeline events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []model.TimelineEvent
	for rows.Next() {
		var e model.TimelineEvent
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.UserID, &e.Action, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
