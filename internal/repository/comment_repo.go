package repository

import (
	"context"

	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/pkg/db"
)

type pgCommentRepository struct {
	q      db.Querier
	logger *zap.Logger
}

const selectComment = `
	SELECT c.id, c.task_id, c.author_id, c.text, c.created_at, c.updated_at
	FROM comments c
`

func scanComment(row interface{ Scan(...any) error }) (*model.Comment, error) {
	var c model.Comment
	if err := row.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pgCommentRepository) Create(ctx context.Context, c *model.Comment) error {
	r.logger.Debug("Inserting comment", zap.Int64("task_id", c.TaskID), zap.Int64("author_id", c.AuthorID))

	query := `
		INSERT INTO comments (task_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query, c.TaskID, c.AuthorID, c.Text).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert comment", zap.Error(err))
		return mapErr(err)
	}
	return nil
}

func (r *pgCommentRepository) GetByID(ctx context.Context, id int64) (*model.Comment, error) {
	c, err := scanComment(r.q.QueryRow(ctx, selectComment+`WHERE c.id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (r *pgCommentRepository) List(ctx context.Context, f CommentFilter) ([]model.Comment, error) {
	query := selectComment + `
		JOIN tasks t ON t.id = c.task_id
		WHERE ($1::bigint IS NULL OR EXISTS (
		          SELECT 1 FROM project_members m
		          WHERE m.project_id = t.project_id AND m.user_id = $1))
		  AND ($2::bigint IS NULL OR c.task_id = $2)
		ORDER BY c.created_at, c.id
	`
	rows, err := r.q.Query(ctx, query, f.MemberID, f.TaskID)
	if err != nil {
		r.logger.Error("Failed to list comments", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// Update only changes the text; created_at is immutable.
func (r *pgCommentRepository) Update(ctx context.Context, c *model.Comment) error {
	err := r.q.QueryRow(ctx, `
		UPDATE comments SET text = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, c.ID, c.Text).Scan(&c.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update comment", zap.Int64("id", c.ID), zap.Error(err))
		return mapErr(err)
	}
	return nil
}

func (r *pgCommentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete comment", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return expectOne(tag)
}
