package model

import "time"

type TaskStatus string

const (
	TaskStatusOpen            TaskStatus = "open"
	TaskStatusReview          TaskStatus = "review"
	TaskStatusWorking         TaskStatus = "working"
	TaskStatusAwaitingRelease TaskStatus = "awaiting_release"
	TaskStatusWaitingQA       TaskStatus = "waiting_qa"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusReview, TaskStatusWorking, TaskStatusAwaitingRelease, TaskStatusWaitingQA:
		return true
	}
	return false
}

type Task struct {
	ID           int64      `json:"id"`
	ProjectID    int64      `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	AssigneeID   *int64     `json:"assignee"`    // profile id
	AssignedByID *int64     `json:"assigned_by"` // user id
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	AuthorID  int64     `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
