package model

import "time"

type TimelineAction string

const (
	ActionTaskCreated      TimelineAction = "task_created"
	ActionTaskUpdated      TimelineAction = "task_updated"
	ActionTaskDeleted      TimelineAction = "task_deleted"
	ActionCommentAdded     TimelineAction = "comment_added"
	ActionDocumentUploaded TimelineAction = "document_uploaded"
	ActionProjectOverdue   TimelineAction = "project_overdue"
)

func (a TimelineAction) Valid() bool {
	switch a {
	case ActionTaskCreated, ActionTaskUpdated, ActionTaskDeleted,
		ActionCommentAdded, ActionDocumentUploaded, ActionProjectOverdue:
		return true
	}
	return false
}

// TimelineEvent is an append-only log row. UserID is nil for
// system-generated entries.
type TimelineEvent struct {
	ID          int64          `json:"id"`
	ProjectID   int64          `json:"project_id"`
	UserID      *int64         `json:"user_id"`
	Action      TimelineAction `json:"action"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"timestamp"`
}

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"timestamp"`
}
