package service

import (
	"context"

	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/internal/model"
	"projecthub/internal/repository"
)

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Role    *model.Role `json:"role" validate:"omitnil,oneof=manager qa developer engineer"`
	Bio     *string     `json:"bio" validate:"omitnil,max=2000"`
	Contact *string     `json:"contact" validate:"omitnil,max=255"`
	Avatar  *string     `json:"avatar" validate:"omitnil,max=500"`
}

type ProfileService struct {
	Deps
}

func NewProfileService(deps Deps) *ProfileService {
	return &ProfileService{Deps: deps}
}

func (s *ProfileService) List(ctx context.Context, p authz.Principal) ([]model.Profile, error) {
	scope := s.Authz.ProfileListScope(p)
	if scope.Empty() {
		return []model.Profile{}, nil
	}
	profiles, err := s.Store.Profiles().List(ctx, repository.ProfileFilter{UserID: scope.OwnerFilter()})
	if err != nil {
		return nil, err
	}
	return nonNil(profiles), nil
}

// Get returns NotFound for profiles outside the caller's list scope.
func (s *ProfileService) Get(ctx context.Context, p authz.Principal, id int64) (*model.Profile, error) {
	return s.load(ctx, s.Store, p, id)
}

func (s *ProfileService) load(ctx context.Context, store repository.Store, p authz.Principal, id int64) (*model.Profile, error) {
	profile, err := store.Profiles().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "profile", id)
	}
	if !s.Authz.ProfileListScope(p).AdmitsOwner(profile.UserID) {
		return nil, apperr.NotFound("profile", id)
	}
	return profile, nil
}

func (s *ProfileService) Me(ctx context.Context, p authz.Principal) (*model.Profile, error) {
	profile, err := s.Store.Profiles().GetByUserID(ctx, p.UserID())
	if err != nil {
		return nil, notFound(err, "profile", 0)
	}
	return profile, nil
}

func (s *ProfileService) Update(ctx context.Context, p authz.Principal, id int64, in ProfileUpdate) (*model.Profile, error) {
	var out *model.Profile
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		profile, err := s.load(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.Authz.CanModifyProfile(p, profile, "update"); err != nil {
			return err
		}
		if err := apperr.ValidateStruct(in); err != nil {
			return err
		}

		if in.Role != nil && *in.Role != profile.Role {
			if err := s.Authz.CanChangeRole(p); err != nil {
				return err
			}
			profile.Role = *in.Role
		}
		if in.Bio != nil {
			profile.Bio = *in.Bio
		}
		if in.Contact != nil {
			profile.Contact = *in.Contact
		}
		if in.Avatar != nil {
			profile.Avatar = *in.Avatar
		}

		if err := tx.Profiles().Update(ctx, profile); err != nil {
			return err
		}
		out = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the whole account behind the profile. Tasks assigned to
// it become unassigned.
func (s *ProfileService) Delete(ctx context.Context, p authz.Principal, id int64) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		profile, err := s.load(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.Authz.CanModifyProfile(p, profile, "delete"); err != nil {
			return err
		}
		if err := tx.Users().Delete(ctx, profile.UserID); err != nil {
			return err
		}

		s.Logger.Info("Account deleted",
			zap.Int64("user_id", profile.UserID),
			zap.Int64("deleted_by", p.UserID()),
		)
		return nil
	})
}
