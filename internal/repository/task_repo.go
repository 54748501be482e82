package repository

import (
	"context"

	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/pkg/db"
)

type pgTaskRepository struct {
	q      db.Querier
	logger *zap.Logger
}

const selectTask = `
	SELECT t.id, t.project_id, t.title, t.description, t.status,
	       t.assignee_id, t.assigned_by_id, t.created_at, t.updated_at
	FROM tasks t
`

func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.AssigneeID, &t.AssignedByID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *pgTaskRepository) Create(ctx context.Context, t *model.Task) error {
	if t.Status == "" {
		t.Status = model.TaskStatusOpen
	}
	r.logger.Debug("Inserting task",
		zap.Int64("project_id", t.ProjectID),
		zap.String("title", t.Title),
	)

	query := `
		INSERT INTO tasks (project_id, title, description, status, assignee_id, assigned_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		t.ProjectID, t.Title, t.Description, t.Status, t.AssigneeID, t.AssignedByID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err))
		return mapErr(err)
	}

	r.logger.Info("Task inserted successfully",
		zap.Int64("id", t.ID),
		zap.Int64("project_id", t.ProjectID),
	)
	return nil
}

func (r *pgTaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	t, err := scanTask(r.q.QueryRow(ctx, selectTask+`WHERE t.id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (r *pgTaskRepository) List(ctx context.Context, f TaskFilter) ([]model.Task, error) {
	query := selectTask + `
		WHERE ($1::bigint IS NULL OR EXISTS (
		          SELECT 1 FROM project_members m
		          WHERE m.project_id = t.project_id AND m.user_id = $1))
		  AND ($2::bigint IS NULL OR t.project_id = $2)
		ORDER BY t.id
	`
	rows, err := r.q.Query(ctx, query, f.MemberID, f.ProjectID)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *pgTaskRepository) Update(ctx context.Context, t *model.Task) error {
	query := `
		UPDATE tasks
		SET project_id = $2, title = $3, description = $4, status = $5,
		    assignee_id = $6, assigned_by_id = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query,
		t.ID, t.ProjectID, t.Title, t.Description, t.Status, t.AssigneeID, t.AssignedByID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update task", zap.Int64("id", t.ID), zap.Error(err))
		return mapErr(err)
	}
	return nil
}

// Delete cascades to the task's comments.
func (r *pgTaskRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return expectOne(tag)
}
