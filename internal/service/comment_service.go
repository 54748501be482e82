package service

import (
	"context"

	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/internal/events"
	"projecthub/internal/model"
	"projecthub/internal/repository"
)

type CommentInput struct {
	TaskID *int64 `json:"task_id"`
	Text   string `json:"text" validate:"required,max=5000"`
}

type CommentUpdate struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type CommentService struct {
	Deps
}

func NewCommentService(deps Deps) *CommentService {
	return &CommentService{Deps: deps}
}

func (s *CommentService) List(ctx context.Context, p authz.Principal, taskID *int64) ([]model.Comment, error) {
	scope := s.Authz.CommentListScope(p)
	if scope.Empty() {
		return []model.Comment{}, nil
	}
	comments, err := s.Store.Comments().List(ctx, repository.CommentFilter{
		MemberID: scope.MemberFilter(),
		TaskID:   taskID,
	})
	if err != nil {
		return nil, err
	}
	return nonNil(comments), nil
}

// loadThread returns the comment's task and project.
func loadThread(ctx context.Context, tx repository.Store, taskID int64) (*model.Task, *model.Project, error) {
	task, err := tx.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, notFound(err, "task", taskID)
	}
	project, err := tx.Projects().GetByID(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, notFound(err, "project", task.ProjectID)
	}
	return task, project, nil
}

func (s *CommentService) Create(ctx context.Context, p authz.Principal, in CommentInput) (*model.Comment, error) {
	if in.TaskID == nil {
		return nil, apperr.Field("task_id", "This field is required.")
	}

	var comment *model.Comment
	err := s.Pipeline.Run(ctx, s.Store, func(tx repository.Store) ([]events.Event, error) {
		task, project, err := loadThread(ctx, tx, *in.TaskID)
		if err != nil {
			return nil, err
		}
		if err := s.Authz.CanCreateComment(p, project); err != nil {
			return nil, err
		}
		if err := apperr.ValidateStruct(in); err != nil {
			return nil, err
		}

		comment = &model.Comment{TaskID: task.ID, AuthorID: p.UserID(), Text: in.Text}
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return nil, err
		}
		return []events.Event{events.CommentAdded(*comment, *task)}, nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// load reads a comment and its project through the caller's list scope.
func (s *CommentService) load(ctx context.Context, tx repository.Store, p authz.Principal, id int64) (*model.Comment, *model.Project, error) {
	comment, err := tx.Comments().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "comment", id)
	}
	_, project, err := loadThread(ctx, tx, comment.TaskID)
	if apperr.IsNotFound(err) {
		return nil, nil, apperr.NotFound("comment", id)
	}
	if err != nil {
		return nil, nil, err
	}
	if !s.Authz.CommentListScope(p).AdmitsProject(project) {
		return nil, nil, apperr.NotFound("comment", id)
	}
	return comment, project, nil
}

// Update only changes the text.
func (s *CommentService) Update(ctx context.Context, p authz.Principal, id int64, in CommentUpdate) (*model.Comment, error) {
	var comment *model.Comment
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var (
			project *model.Project
			err     error
		)
		comment, project, err = s.load(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.Authz.CanUpdateComment(p, project); err != nil {
			return err
		}
		if err := apperr.ValidateStruct(in); err != nil {
			return err
		}

		comment.Text = in.Text
		return tx.Comments().Update(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, p authz.Principal, id int64) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		comment, project, err := s.load(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.Authz.CanDeleteComment(p, project, comment); err != nil {
			return err
		}
		if err := tx.Comments().Delete(ctx, id); err != nil {
			return err
		}

		s.Logger.Debug("Comment deleted",
			zap.Int64("comment_id", id),
			zap.Int64("deleted_by", p.UserID()),
		)
		return nil
	})
}
