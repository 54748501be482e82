package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	"projecthub/pkg/util"
)

type AuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type RegisterInput struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthService struct {
	store   repository.Store
	revoker util.TokenRevoker
	cfg     AuthConfig
	logger  *zap.Logger
}

func NewAuthService(store repository.Store, revoker util.TokenRevoker, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{store: store, revoker: revoker, cfg: cfg, logger: logger}
}

var errBadCredentials = apperr.Unauthenticated("No active account found with the given credentials.")

// Register creates the user and its developer profile in one unit of work.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := checkmail.ValidateFormat(in.Email); err != nil {
		return nil, apperr.Field("email", "Enter a valid email address.")
	}

	hash, err := util.HashPassword(in.Password)
	if errors.Is(err, util.ErrPasswordTooLong) {
		return nil, apperr.Field("password", "Ensure this field has no more than 72 bytes.")
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
	}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		return tx.Profiles().Create(ctx, &model.Profile{UserID: u.ID, Role: model.DefaultRole})
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Field("email", "A user with that email already exists.")
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.Int64("user_id", u.ID))
	return u, nil
}

func (s *AuthService) issue(userID int64, withRefresh bool) (*TokenPair, error) {
	access, _, err := util.GenerateJWT(userID, util.TokenTypeAccess, s.cfg.AccessTTL, s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	pair := &TokenPair{AccessToken: access, ExpiresIn: int64(s.cfg.AccessTTL.Seconds())}

	if withRefresh {
		refresh, _, err := util.GenerateJWT(userID, util.TokenTypeRefresh, s.cfg.RefreshTTL, s.cfg.Secret)
		if err != nil {
			return nil, fmt.Errorf("sign refresh token: %w", err)
		}
		pair.RefreshToken = refresh
	}
	return pair, nil
}

// Login checks user credentials and returns an access/refresh pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}

	u, err := s.store.Users().GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		util.BurnPasswordCheck(in.Password)
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive || !util.CheckPassword(in.Password, u.PasswordHash) {
		return nil, errBadCredentials
	}

	return s.issue(u.ID, true)
}

// verify parses token, checks its type and the revocation list.
func (s *AuthService) verify(ctx context.Context, token, tokenType string) (*util.Claims, error) {
	claims, err := util.ParseJWT(token, s.cfg.Secret)
	if err != nil || claims.Type != tokenType {
		return nil, apperr.Unauthenticated("Token is invalid or expired.")
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, apperr.Unauthenticated("Token has been revoked.")
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperr.Field("refresh_token", "This field is required.")
	}
	claims, err := s.verify(ctx, refreshToken, util.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	u, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil || !u.IsActive {
		return nil, apperr.Unauthenticated("User not found or inactive.")
	}
	return s.issue(u.ID, false)
}

// Logout revokes the presented access token and, when given, the
// caller's refresh token.
func (s *AuthService) Logout(ctx context.Context, access *util.Claims, refreshToken string) error {
	if refreshToken != "" {
		refresh, err := util.ParseJWT(refreshToken, s.cfg.Secret)
		if err != nil || refresh.Type != util.TokenTypeRefresh || refresh.UserID != access.UserID {
			return apperr.Field("refresh_token", "Token is invalid or expired.")
		}
		if err := s.revoker.Revoke(ctx, refresh.ID, refresh.ExpiresAt.Time); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}

	if err := s.revoker.Revoke(ctx, access.ID, access.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}

	s.logger.Info("User logged out", zap.Int64("user_id", access.UserID))
	return nil
}

// Authenticate resolves a bearer access token into the calling principal.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*authz.Principal, *util.Claims, error) {
	if token == "" {
		return nil, nil, apperr.Unauthenticated("Authentication credentials were not provided.")
	}
	claims, err := s.verify(ctx, token, util.TokenTypeAccess)
	if err != nil {
		return nil, nil, err
	}

	u, err := s.store.Users().GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperr.Unauthenticated("User not found.")
	}
	if err != nil {
		return nil, nil, err
	}
	if !u.IsActive {
		return nil, nil, apperr.Unauthenticated("User is inactive.")
	}

	profile, err := s.store.Profiles().GetByUserID(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile of user %d: %w", u.ID, err)
	}

	return &authz.Principal{User: *u, Profile: *profile}, claims, nil
}

// EnsureSuperuser creates the bootstrap superuser, or promotes the
// existing account with that email.
func (s *AuthService) EnsureSuperuser(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		u, err := tx.Users().GetByEmail(ctx, email)
		if err == nil {
			if u.IsSuperuser {
				return nil
			}
			u.IsSuperuser = true
			u.IsStaff = true
			s.logger.Info("Promoting user to superuser", zap.Int64("user_id", u.ID))
			return tx.Users().Update(ctx, u)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		hash, err := util.HashPassword(password)
		if err != nil {
			return err
		}
		u = &model.User{
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			IsStaff:      true,
			IsSuperuser:  true,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		s.logger.Info("Superuser created", zap.Int64("user_id", u.ID))
		return tx.Profiles().Create(ctx, &model.Profile{UserID: u.ID, Role: model.RoleManager})
	})
}
