package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/internal/model"
	"projecthub/internal/repository"
)

type ProjectInput struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date"`
}

// ProjectUpdate is a partial update. TeamMember replaces the whole team.
type ProjectUpdate struct {
	Title       *string    `json:"title" validate:"omitnil,min=1,max=255"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	ClearEnd    bool       `json:"clear_end_date"`
	TeamMember  *[]int64   `json:"team_member"`
}

type ProjectService struct {
	Deps
}

func NewProjectService(deps Deps) *ProjectService {
	return &ProjectService{Deps: deps}
}

func checkDates(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return apperr.Field("end_date", "End date cannot be before the start date.")
	}
	return nil
}

func (s *ProjectService) List(ctx context.Context, p authz.Principal) ([]model.Project, error) {
	scope := s.Authz.ProjectListScope(p)
	if scope.Empty() {
		return []model.Project{}, nil
	}
	projects, err := s.Store.Projects().List(ctx, repository.ProjectFilter{MemberID: scope.MemberFilter()})
	if err != nil {
		return nil, err
	}
	return nonNil(projects), nil
}

// Get returns NotFound for projects outside the caller's list scope.
func (s *ProjectService) Get(ctx context.Context, p authz.Principal, id int64) (*model.Project, error) {
	return s.load(ctx, s.Store, p, id)
}

// load reads a project through the caller's list scope. Out-of-scope ids
// are NotFound, never PermissionError.
func (s *ProjectService) load(ctx context.Context, store repository.Store, p authz.Principal, id int64) (*model.Project, error) {
	project, err := store.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	if !s.Authz.ProjectListScope(p).AdmitsProject(project) {
		return nil, apperr.NotFound("project", id)
	}
	return project, nil
}

// Create makes the caller the project's manager and only member.
func (s *ProjectService) Create(ctx context.Context, p authz.Principal, in ProjectInput) (*model.Project, error) {
	if err := s.Authz.CanCreateProject(p); err != nil {
		return nil, err
	}
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := checkDates(*in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	creator := p.UserID()
	project := &model.Project{
		Title:       in.Title,
		Description: in.Description,
		StartDate:   *in.StartDate,
		EndDate:     in.EndDate,
		ManagerID:   &creator,
		MemberIDs:   []int64{creator},
	}
	if err := s.Store.Projects().Create(ctx, project); err != nil {
		return nil, err
	}

	s.Logger.Info("Project created",
		zap.Int64("project_id", project.ID),
		zap.Int64("manager_id", creator),
	)
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, p authz.Principal, id int64, in ProjectUpdate) (*model.Project, error) {
	var out *model.Project
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		project, err := s.load(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.Authz.CanUpdateProject(p, project); err != nil {
			return err
		}
		if err := apperr.ValidateStruct(in); err != nil {
			return err
		}

		if in.Title != nil {
			project.Title = *in.Title
		}
		if in.Description != nil {
			project.Description = *in.Description
		}
		if in.StartDate != nil {
			project.StartDate = *in.StartDate
		}
		if in.ClearEnd {
			project.EndDate = nil
		} else if in.EndDate != nil {
			project.EndDate = in.EndDate
		}
		if err := checkDates(project.StartDate, project.EndDate); err != nil {
			return err
		}

		if in.TeamMember != nil {
			members := *in.TeamMember
			users, err := tx.Users().ListByIDs(ctx, members)
			if err != nil {
				return err
			}
			if len(users) != len(uniqueIDs(members)) {
				return apperr.Field("team_member", "One or more users do not exist.")
			}
			project.MemberIDs = members
		}

		if err := tx.Projects().Update(ctx, project); err != nil {
			return err
		}
		out = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete cascades to the project's tasks, documents, comments and
// timeline. No per-task events are emitted.
func (s *ProjectService) Delete(ctx context.Context, p authz.Principal, id int64) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		project, err := s.load(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.Authz.CanDeleteProject(p, project); err != nil {
			return err
		}
		if err := tx.Projects().Delete(ctx, id); err != nil {
			return err
		}

		s.Logger.Info("Project deleted",
			zap.Int64("project_id", id),
			zap.Int64("deleted_by", p.UserID()),
		)
		return nil
	})
}

func uniqueIDs(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
