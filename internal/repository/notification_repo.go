package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/pkg/db"
)

type pgNotificationRepository struct {
	q      db.Querier
	logger *zap.Logger
}

// BulkInsert writes all rows with a single COPY.
func (r *pgNotificationRepository) BulkInsert(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]any, len(notifications))
	for i, n := range notifications {
		created := n.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows[i] = []any{n.UserID, n.Message, n.IsRead, created}
	}

	count, err := r.q.CopyFrom(ctx,
		pgx.Identifier{"notifications"},
		[]string{"user_id", "message", "is_read", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		r.logger.Error("Failed to copy notifications", zap.Int("count", len(notifications)), zap.Error(err))
		return err
	}

	r.logger.Debug("Notifications inserted", zap.Int64("count", count))
	return nil
}

const selectNotification = `
	SELECT id, user_id, message, is_read, created_at
	FROM notifications
`

func (r *pgNotificationRepository) List(ctx context.Context, f NotificationFilter) ([]model.Notification, error) {
	query := selectNotification + `
		WHERE user_id = $1 AND (NOT $2::boolean OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.q.Query(ctx, query, f.UserID, f.UnreadOnly)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Int64("user_id", f.UserID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *pgNotificationRepository) GetByID(ctx context.Context, id int64) (*model.Notification, error) {
	var n model.Notification
	err := r.q.QueryRow(ctx, selectNotification+`WHERE id = $1`, id).
		Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &n, nil
}

// MarkRead is idempotent.
func (r *pgNotificationRepository) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return expectOne(tag)
}
