package model

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

// Role is the single role a user holds through their profile.
type Role string

const (
	RoleManager   Role = "manager"
	RoleQA        Role = "qa"
	RoleDeveloper Role = "developer"
	RoleEngineer  Role = "engineer"
)

// DefaultRole is assigned to every auto-provisioned profile.
const DefaultRole = RoleDeveloper

func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleQA, RoleDeveloper, RoleEngineer:
		return true
	}
	return false
}

type Profile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Role      Role      `json:"role"`
	Bio       string    `json:"bio"`
	Contact   string    `json:"contact"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
