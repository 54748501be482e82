package model

import (
	"slices"
	"time"
)

type Project struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"` // nil: no deadline
	ManagerID   *int64     `json:"manager_id"`
	MemberIDs   []int64    `json:"team_member"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasMember reports whether userID is on the project's team.
func (p *Project) HasMember(userID int64) bool {
	return slices.Contains(p.MemberIDs, userID)
}

// IsManagedBy reports whether userID is the project's owning manager.
func (p *Project) IsManagedBy(userID int64) bool {
	return p.ManagerID != nil && *p.ManagerID == userID
}

type Document struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"project_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	File         string    `json:"file"`
	Version      int       `json:"version"`
	UploadedByID *int64    `json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}
