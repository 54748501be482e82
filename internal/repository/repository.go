// Package repository defines persistence for the domain model. Store is
// implemented on PostgreSQL (pgx) in this package and in memory in
// repository/memory.
package repository

import (
	"context"
	"errors"
	"time"

	"projecthub/internal/model"
	"projecthub/pkg/outbox"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the repositories behind one unit-of-work boundary.
type Store interface {
	Users() UserRepository
	Profiles() ProfileRepository
	Projects() ProjectRepository
	Tasks() TaskRepository
	Documents() DocumentRepository
	Comments() CommentRepository
	Timeline() TimelineRepository
	Notifications() NotificationRepository
	Outbox() OutboxRepository

	// WithinTx runs fn in a unit of work; a non-nil return from fn
	// discards every write made through tx. Nested calls join the
	// enclosing unit.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
}

// UserRepository deletes cascade to the user's profile, comments,
// notifications and memberships, and null out references elsewhere.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id int64) error
}

type ProfileFilter struct {
	UserID *int64
}

type ProfileRepository interface {
	Create(ctx context.Context, p *model.Profile) error
	GetByID(ctx context.Context, id int64) (*model.Profile, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Profile, error)
	List(ctx context.Context, f ProfileFilter) ([]model.Profile, error)
	Update(ctx context.Context, p *model.Profile) error
}

type ProjectFilter struct {
	MemberID *int64
}

// ProjectRepository loads and stores MemberIDs together with the project.
// Delete cascades to tasks, comments, documents and timeline rows.
type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	List(ctx context.Context, f ProjectFilter) ([]model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id int64) error

	// ListEndingBefore returns projects with a non-null end date < t.
	ListEndingBefore(ctx context.Context, t time.Time) ([]model.Project, error)
	// ListEndingBetween returns projects with from <= end date < to.
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]model.Project, error)
}

type TaskFilter struct {
	MemberID  *int64
	ProjectID *int64
}

type TaskRepository interface {
	Create(ctx context.Context, t *model.Task) error
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	List(ctx context.Context, f TaskFilter) ([]model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, id int64) error
}

type DocumentRepository interface {
	Create(ctx context.Context, d *model.Document) error
	ListByProject(ctx context.Context, projectID int64) ([]model.Document, error)
	// NextVersion returns 1 + the highest version stored under name.
	NextVersion(ctx context.Context, projectID int64, name string) (int, error)
}

type CommentFilter struct {
	MemberID *int64
	TaskID   *int64
}

type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id int64) (*model.Comment, error)
	List(ctx context.Context, f CommentFilter) ([]model.Comment, error)
	Update(ctx context.Context, c *model.Comment) error
	Delete(ctx context.Context, id int64) error
}

type TimelineFilter struct {
	MemberID  *int64
	ProjectID *int64
}

// TimelineRepository is append-only. List returns newest first.
type TimelineRepository interface {
	BulkInsert(ctx context.Context, events []model.TimelineEvent) error
	List(ctx context.Context, f TimelineFilter) ([]model.TimelineEvent, error)
}

type NotificationFilter struct {
	UserID     int64
	UnreadOnly bool
}

// NotificationRepository lists newest first. The only mutation is MarkRead.
type NotificationRepository interface {
	BulkInsert(ctx context.Context, notifications []model.Notification) error
	List(ctx context.Context, f NotificationFilter) ([]model.Notification, error)
	GetByID(ctx context.Context, id int64) (*model.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

type OutboxRepository interface {
	Insert(ctx context.Context, event *outbox.Event) error
}
