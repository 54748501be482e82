package repository

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"projecthub/internal/model"
	"projecthub/pkg/db"
)

type pgUserRepository struct {
	q      db.Querier
	logger *zap.Logger
}

const selectUser = `
	SELECT id, email, password_hash, first_name, last_name,
	       is_active, is_staff, is_superuser, created_at
	FROM users
`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user; the email is stored lowercased.
func (r *pgUserRepository) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(u.Email)
	r.logger.Debug("Inserting user", zap.String("email", u.Email))

	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, is_active, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.IsActive, u.IsStaff, u.IsSuperuser,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert user", zap.Error(err))
		return mapErr(err)
	}

	r.logger.Info("User inserted successfully", zap.Int64("id", u.ID))
	return nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, selectUser+`WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// GetByEmail returns user by email, case-insensitively.
func (r *pgUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, selectUser+`WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *pgUserRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.q.Query(ctx, selectUser+`WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *pgUserRepository) Update(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(u.Email)
	query := `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
		    is_active = $6, is_staff = $7, is_superuser = $8
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.IsActive, u.IsStaff, u.IsSuperuser,
	)
	if err != nil {
		r.logger.Error("Failed to update user", zap.Int64("id", u.ID), zap.Error(err))
		return mapErr(err)
	}
	return expectOne(tag)
}

// Delete removes the user; the schema cascades to the profile, comments,
// notifications and memberships and nulls other references.
func (r *pgUserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete user", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if err := expectOne(tag); err != nil {
		return err
	}

	r.logger.Info("User deleted", zap.Int64("id", id))
	return nil
}
