package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/internal/events"
	"projecthub/internal/model"
	"projecthub/internal/repository"
)

type TaskInput struct {
	ProjectID   int64            `json:"project_id" validate:"required"`
	Title       string           `json:"title" validate:"required,max=255"`
	Description string           `json:"description"`
	Status      model.TaskStatus `json:"status" validate:"omitempty,oneof=open review working awaiting_release waiting_qa"`
}

// TaskUpdate is a partial update. Reassignment goes through Assign.
type TaskUpdate struct {
	Title       *string           `json:"title" validate:"omitnil,min=1,max=255"`
	Description *string           `json:"description"`
	Status      *model.TaskStatus `json:"status" validate:"omitnil,oneof=open review working awaiting_release waiting_qa"`
}

type AssignInput struct {
	AssigneeID *int64 `json:"assignee_id"`
}

type TaskService struct {
	Deps
}

func NewTaskService(deps Deps) *TaskService {
	return &TaskService{Deps: deps}
}

// List returns tasks visible to the caller, optionally of one project.
func (s *TaskService) List(ctx context.Context, p authz.Principal, projectID *int64) ([]model.Task, error) {
	scope := s.Authz.TaskListScope(p)
	if scope.Empty() {
		return []model.Task{}, nil
	}
	tasks, err := s.Store.Tasks().List(ctx, repository.TaskFilter{
		MemberID:  scope.MemberFilter(),
		ProjectID: projectID,
	})
	if err != nil {
		return nil, err
	}
	return nonNil(tasks), nil
}

// Get returns NotFound for tasks of projects outside the caller's scope.
func (s *TaskService) Get(ctx context.Context, p authz.Principal, id int64) (*model.Task, error) {
	task, _, err := s.load(ctx, s.Store, p, id)
	return task, err
}

// load reads a task and its project through the caller's list scope.
func (s *TaskService) load(ctx context.Context, store repository.Store, p authz.Principal, id int64) (*model.Task, *model.Project, error) {
	task, err := store.Tasks().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "task", id)
	}
	project, err := store.Projects().GetByID(ctx, task.ProjectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperr.NotFound("task", id)
	}
	if err != nil {
		return nil, nil, err
	}
	if !s.Authz.TaskListScope(p).AdmitsProject(project) {
		return nil, nil, apperr.NotFound("task", id)
	}
	return task, project, nil
}

// Create assigns the task to the creator's profile and records the
// creator as the assigner.
func (s *TaskService) Create(ctx context.Context, p authz.Principal, in TaskInput) (*model.Task, error) {
	if err := s.Authz.CanCreateTask(p); err != nil {
		return nil, err
	}
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}

	var task *model.Task
	err := s.Pipeline.Run(ctx, s.Store, func(tx repository.Store) ([]events.Event, error) {
		project, err := tx.Projects().GetByID(ctx, in.ProjectID)
		if err != nil {
			return nil, notFound(err, "project", in.ProjectID)
		}

		profileID := p.Profile.ID
		assignedBy := p.UserID()
		task = &model.Task{
			ProjectID:    project.ID,
			Title:        in.Title,
			Description:  in.Description,
			Status:       in.Status,
			AssigneeID:   &profileID,
			AssignedByID: &assignedBy,
		}
		if task.Status == "" {
			task.Status = model.TaskStatusOpen
		}
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return nil, err
		}
		return []events.Event{events.TaskCreated(*task, *project)}, nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Task created",
		zap.Int64("task_id", task.ID),
		zap.Int64("project_id", task.ProjectID),
	)
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, p authz.Principal, id int64, in TaskUpdate) (*model.Task, error) {
	var task *model.Task
	err := s.Pipeline.Run(ctx, s.Store, func(tx repository.Store) ([]events.Event, error) {
		var (
			project *model.Project
			err     error
		)
		task, project, err = s.load(ctx, tx, p, id)
		if err != nil {
			return nil, err
		}

		var assignee *model.Profile
		if task.AssigneeID != nil {
			assignee, err = tx.Profiles().GetByID(ctx, *task.AssigneeID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
		}
		if err := s.Authz.CanUpdateTask(p, assignee); err != nil {
			return nil, err
		}
		if err := apperr.ValidateStruct(in); err != nil {
			return nil, err
		}

		if in.Title != nil {
			task.Title = *in.Title
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		if in.Status != nil {
			task.Status = *in.Status
		}
		if err := tx.Tasks().Update(ctx, task); err != nil {
			return nil, err
		}
		return []events.Event{events.TaskUpdated(*task, *project)}, nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Delete notifies the team from a snapshot taken before the row is gone.
func (s *TaskService) Delete(ctx context.Context, p authz.Principal, id int64) error {
	return s.Pipeline.Run(ctx, s.Store, func(tx repository.Store) ([]events.Event, error) {
		task, project, err := s.load(ctx, tx, p, id)
		if err != nil {
			return nil, err
		}
		if err := s.Authz.CanDeleteTask(p, project); err != nil {
			return nil, err
		}

		snapshot := events.TaskDeleted(*task, *project)
		if err := tx.Tasks().Delete(ctx, id); err != nil {
			return nil, err
		}

		s.Logger.Info("Task deleted",
			zap.Int64("task_id", id),
			zap.Int64("deleted_by", p.UserID()),
		)
		return []events.Event{snapshot}, nil
	})
}

// Assign hands the task to a profile whose user is on the project team.
func (s *TaskService) Assign(ctx context.Context, p authz.Principal, id int64, in AssignInput) (*model.Task, error) {
	if err := s.Authz.CanAssignTask(p); err != nil {
		return nil, err
	}
	if in.AssigneeID == nil {
		return nil, apperr.Field("assignee_id", "This field is required.")
	}

	var task *model.Task
	err := s.Pipeline.Run(ctx, s.Store, func(tx repository.Store) ([]events.Event, error) {
		var (
			project *model.Project
			err     error
		)
		task, project, err = s.load(ctx, tx, p, id)
		if err != nil {
			return nil, err
		}
		assignee, err := tx.Profiles().GetByID(ctx, *in.AssigneeID)
		if err != nil {
			return nil, notFound(err, "profile", *in.AssigneeID)
		}
		if err := s.Authz.CheckAssignable(project, assignee); err != nil {
			return nil, err
		}

		assignedBy := p.UserID()
		task.AssigneeID = &assignee.ID
		task.AssignedByID = &assignedBy
		if err := tx.Tasks().Update(ctx, task); err != nil {
			return nil, err
		}
		return []events.Event{events.TaskUpdated(*task, *project)}, nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Task assigned",
		zap.Int64("task_id", task.ID),
		zap.Int64("assignee_profile_id", *task.AssigneeID),
	)
	return task, nil
}
