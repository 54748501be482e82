package service

import (
	"context"

	"projecthub/internal/authz"
	"projecthub/internal/model"
	"projecthub/internal/repository"
)

type TimelineService struct {
	Deps
}

func NewTimelineService(deps Deps) *TimelineService {
	return &TimelineService{Deps: deps}
}

// List is newest first.
func (s *TimelineService) List(ctx context.Context, p authz.Principal, projectID *int64) ([]model.TimelineEvent, error) {
	scope := s.Authz.TimelineListScope(p)
	if scope.Empty() {
		return []model.TimelineEvent{}, nil
	}
	evs, err := s.Store.Timeline().List(ctx, repository.TimelineFilter{
		MemberID:  scope.MemberFilter(),
		ProjectID: projectID,
	})
	if err != nil {
		return nil, err
	}
	return nonNil(evs), nil
}
