package repository

import (
	"context"

	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/pkg/db"
)

type pgProfileRepository struct {
	q      db.Querier
	logger *zap.Logger
}

const selectProfile = `
	SELECT id, user_id, role, bio, contact, avatar, created_at, updated_at
	FROM profiles
`

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.Role, &p.Bio, &p.Contact, &p.Avatar, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgProfileRepository) Create(ctx context.Context, p *model.Profile) error {
	if p.Role == "" {
		p.Role = model.DefaultRole
	}
	r.logger.Debug("Inserting profile", zap.Int64("user_id", p.UserID), zap.String("role", string(p.Role)))

	query := `
		INSERT INTO profiles (user_id, role, bio, contact, avatar)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query, p.UserID, p.Role, p.Bio, p.Contact, p.Avatar).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert profile", zap.Error(err))
		return mapErr(err)
	}
	return nil
}

func (r *pgProfileRepository) GetByID(ctx context.Context, id int64) (*model.Profile, error) {
	p, err := scanProfile(r.q.QueryRow(ctx, selectProfile+`WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (r *pgProfileRepository) GetByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	p, err := scanProfile(r.q.QueryRow(ctx, selectProfile+`WHERE user_id = $1`, userID))
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (r *pgProfileRepository) List(ctx context.Context, f ProfileFilter) ([]model.Profile, error) {
	query := selectProfile + `WHERE ($1::bigint IS NULL OR user_id = $1) ORDER BY id`
	rows, err := r.q.Query(ctx, query, f.UserID)
	if err != nil {
		r.logger.Error("Failed to list profiles", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (r *pgProfileRepository) Update(ctx context.Context, p *model.Profile) error {
	query := `
		UPDATE profiles
		SET role = $2, bio = $3, contact = $4, avatar = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.q.QueryRow(ctx, query, p.ID, p.Role, p.Bio, p.Contact, p.Avatar).Scan(&p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update profile", zap.Int64("id", p.ID), zap.Error(err))
		return mapErr(err)
	}
	return nil
}
