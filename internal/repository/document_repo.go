package repository

import (
	"context"

	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/pkg/db"
)

type pgDocumentRepository struct {
	q      db.Querier
	logger *zap.Logger
}

func (r *pgDocumentRepository) Create(ctx context.Context, d *model.Document) error {
	r.logger.Debug("Inserting document",
		zap.Int64("project_id", d.ProjectID),
		zap.String("name", d.Name),
		zap.Int("version", d.Version),
	)

	query := `
		INSERT INTO documents (project_id, name, description, file, version, uploaded_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		d.ProjectID, d.Name, d.Description, d.File, d.Version, d.UploadedByID,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert document", zap.Error(err))
		return mapErr(err)
	}
	return nil
}

func (r *pgDocumentRepository) ListByProject(ctx context.Context, projectID int64) ([]model.Document, error) {
	query := `
		SELECT id, project_id, name, description, file, version, uploaded_by_id, created_at
		FROM documents
		WHERE project_id = $1
		ORDER BY name, version
	`
	rows, err := r.q.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list documents", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(
			&d.ID, &d.ProjectID, &d.Name, &d.Description, &d.File,
			&d.Version, &d.UploadedByID, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *pgDocumentRepository) NextVersion(ctx context.Context, projectID int64, name string) (int, error) {
	var next int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM documents
		WHERE project_id = $1 AND name = $2
	`, projectID, name).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}
