package service

import (
	"context"

	"projecthub/internal/authz"
	"projecthub/internal/model"
	"projecthub/internal/repository"
)

type NotificationService struct {
	Deps
}

func NewNotificationService(deps Deps) *NotificationService {
	return &NotificationService{Deps: deps}
}

// List returns the caller's own notifications, newest first.
func (s *NotificationService) List(ctx context.Context, p authz.Principal, unreadOnly bool) ([]model.Notification, error) {
	scope := s.Authz.NotificationScope(p)
	owner := scope.OwnerFilter()
	if owner == nil {
		return []model.Notification{}, nil
	}
	ns, err := s.Store.Notifications().List(ctx, repository.NotificationFilter{
		UserID:     *owner,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		return nil, err
	}
	return nonNil(ns), nil
}

// MarkRead is idempotent. Another user's notification is reported as
// not found.
func (s *NotificationService) MarkRead(ctx context.Context, p authz.Principal, id int64) (*model.Notification, error) {
	var out *model.Notification
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		n, err := tx.Notifications().GetByID(ctx, id)
		if err != nil {
			return notFound(err, "notification", id)
		}
		if err := s.Authz.CanMarkNotificationRead(p, n); err != nil {
			return err
		}
		if !n.IsRead {
			if err := tx.Notifications().MarkRead(ctx, id); err != nil {
				return err
			}
			n.IsRead = true
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
