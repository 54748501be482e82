package service

import (
	"context"
	"errors"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/internal/events"
	"projecthub/internal/model"
	"projecthub/internal/repository"
)

type DocumentInput struct {
	ProjectID   int64  `json:"project_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	File        string `json:"file" validate:"required,max=1024"`
}

type DocumentService struct {
	Deps
}

func NewDocumentService(deps Deps) *DocumentService {
	return &DocumentService{Deps: deps}
}

// List requires a project id; without one, or without access to the
// project, the result is empty rather than an error.
func (s *DocumentService) List(ctx context.Context, p authz.Principal, projectID *int64) ([]model.Document, error) {
	if projectID == nil {
		return []model.Document{}, nil
	}

	project, err := s.Store.Projects().GetByID(ctx, *projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return []model.Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	if !s.Authz.CanListDocuments(p, project) {
		return []model.Document{}, nil
	}

	docs, err := s.Store.Documents().ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return nonNil(docs), nil
}

// Create stores a new version of the named document. Versions count up
// per project and name.
func (s *DocumentService) Create(ctx context.Context, p authz.Principal, in DocumentInput) (*model.Document, error) {
	if in.ProjectID == 0 {
		return nil, apperr.Field("project_id", "This field is required.")
	}

	var doc *model.Document
	err := s.Pipeline.Run(ctx, s.Store, func(tx repository.Store) ([]events.Event, error) {
		project, err := tx.Projects().GetByID(ctx, in.ProjectID)
		if err != nil {
			return nil, notFound(err, "project", in.ProjectID)
		}
		if err := s.Authz.CanCreateDocument(p, project); err != nil {
			return nil, err
		}
		if err := apperr.ValidateStruct(in); err != nil {
			return nil, err
		}

		version, err := tx.Documents().NextVersion(ctx, project.ID, in.Name)
		if err != nil {
			return nil, err
		}
		uploader := p.UserID()
		doc = &model.Document{
			ProjectID:    project.ID,
			Name:         in.Name,
			Description:  in.Description,
			File:         in.File,
			Version:      version,
			UploadedByID: &uploader,
		}
		if err := tx.Documents().Create(ctx, doc); err != nil {
			return nil, err
		}
		return []events.Event{events.DocumentUploaded(*doc)}, nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
