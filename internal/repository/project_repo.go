package repository

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/pkg/db"
)

type pgProjectRepository struct {
	q      db.Querier
	logger *zap.Logger
}

// 成员列表通过 array_agg 与项目一起加载
const selectProject = `
	SELECT p.id, p.title, p.description, p.start_date, p.end_date, p.manager_id,
	       COALESCE(
	           (SELECT array_agg(m.user_id ORDER BY m.user_id)
	            FROM project_members m WHERE m.project_id = p.id),
	           '{}'::bigint[]
	       ) AS member_ids,
	       p.created_at, p.updated_at
	FROM projects p
`

func scanProject(row interface{ Scan(...any) error }) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.StartDate, &p.EndDate, &p.ManagerID,
		&p.MemberIDs, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgProjectRepository) queryProjects(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query projects", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (r *pgProjectRepository) Create(ctx context.Context, p *model.Project) error {
	r.logger.Debug("Inserting project",
		zap.String("title", p.Title),
		zap.Int("members", len(p.MemberIDs)),
	)

	query := `
		INSERT INTO projects (title, description, start_date, end_date, manager_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query, p.Title, p.Description, p.StartDate, p.EndDate, p.ManagerID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return mapErr(err)
	}

	if err := r.replaceMembers(ctx, p); err != nil {
		return err
	}

	r.logger.Info("Project inserted successfully", zap.Int64("id", p.ID))
	return nil
}

func (r *pgProjectRepository) replaceMembers(ctx context.Context, p *model.Project) error {
	members := slices.Clone(p.MemberIDs)
	slices.Sort(members)
	members = slices.Compact(members)

	if _, err := r.q.Exec(ctx, `DELETE FROM project_members WHERE project_id = $1`, p.ID); err != nil {
		r.logger.Error("Failed to clear project members", zap.Int64("project_id", p.ID), zap.Error(err))
		return err
	}
	if len(members) > 0 {
		_, err := r.q.Exec(ctx, `
			INSERT INTO project_members (project_id, user_id)
			SELECT $1, unnest($2::bigint[])
		`, p.ID, members)
		if err != nil {
			r.logger.Error("Failed to insert project members", zap.Int64("project_id", p.ID), zap.Error(err))
			return mapErr(err)
		}
	}

	p.MemberIDs = members
	return nil
}

func (r *pgProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	p, err := scanProject(r.q.QueryRow(ctx, selectProject+`WHERE p.id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (r *pgProjectRepository) List(ctx context.Context, f ProjectFilter) ([]model.Project, error) {
	query := selectProject + `
		WHERE $1::bigint IS NULL
		   OR EXISTS (SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.user_id = $1)
		ORDER BY p.id
	`
	return r.queryProjects(ctx, query, f.MemberID)
}

func (r *pgProjectRepository) Update(ctx context.Context, p *model.Project) error {
	query := `
		UPDATE projects
		SET title = $2, description = $3, start_date = $4, end_date = $5,
		    manager_id = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query, p.ID, p.Title, p.Description, p.StartDate, p.EndDate, p.ManagerID).
		Scan(&p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update project", zap.Int64("id", p.ID), zap.Error(err))
		return mapErr(err)
	}
	return r.replaceMembers(ctx, p)
}

// Delete cascades to tasks, comments, documents and timeline rows.
func (r *pgProjectRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete project", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if err := expectOne(tag); err != nil {
		return err
	}

	r.logger.Info("Project deleted", zap.Int64("id", id))
	return nil
}

func (r *pgProjectRepository) ListEndingBefore(ctx context.Context, t time.Time) ([]model.Project, error) {
	query := selectProject + `
		WHERE p.end_date IS NOT NULL AND p.end_date < $1
		ORDER BY p.end_date, p.id
	`
	return r.queryProjects(ctx, query, t)
}

func (r *pgProjectRepository) ListEndingBetween(ctx context.Context, from, to time.Time) ([]model.Project, error) {
	query := selectProject + `
		WHERE p.end_date >= $1 AND p.end_date < $2
		ORDER BY p.end_date, p.id
	`
	return r.queryProjects(ctx, query, from, to)
}
