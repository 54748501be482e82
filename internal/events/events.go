// Package events derives timeline rows, notifications and outbox records
// from domain mutations. Services call it explicitly after each change.
package events

import (
	"fmt"
	"slices"

	"projecthub/internal/model"
)

const dateLayout = "2006-01-02"

// Event is one derived side effect of a mutation: at most one timeline
// row for ProjectID and one notification per recipient.
type Event struct {
	Action      model.TimelineAction
	ProjectID   int64
	UserID      *int64
	Description string

	Message    string
	Recipients []int64

	// SkipTimeline suppresses the timeline row and keeps only the fan-out.
	SkipTimeline bool

	AggregateType string
	AggregateID   int64
	RoutingKey    string
}

func taskEvent(action model.TimelineAction, verb string, message string, task model.Task, project model.Project) Event {
	return Event{
		Action:        action,
		ProjectID:     project.ID,
		UserID:        task.AssignedByID,
		Description:   fmt.Sprintf("Task '%s' was %s.", task.Title, verb),
		Message:       message,
		Recipients:    slices.Clone(project.MemberIDs),
		AggregateType: "task",
		AggregateID:   task.ID,
		RoutingKey:    "task." + verb,
	}
}

func TaskCreated(task model.Task, project model.Project) Event {
	return taskEvent(model.ActionTaskCreated, "created",
		fmt.Sprintf("A new task '%s' has been created.", task.Title), task, project)
}

func TaskUpdated(task model.Task, project model.Project) Event {
	return taskEvent(model.ActionTaskUpdated, "updated",
		fmt.Sprintf("Task '%s' has been updated.", task.Title), task, project)
}

// TaskDeleted must be built from the task and project as they were
// before the delete.
func TaskDeleted(task model.Task, project model.Project) Event {
	return taskEvent(model.ActionTaskDeleted, "deleted",
		fmt.Sprintf("Task '%s' has been deleted.", task.Title), task, project)
}

func CommentAdded(comment model.Comment, task model.Task) Event {
	author := comment.AuthorID
	return Event{
		Action:        model.ActionCommentAdded,
		ProjectID:     task.ProjectID,
		UserID:        &author,
		Description:   fmt.Sprintf("Comment added to task '%s'.", task.Title),
		AggregateType: "comment",
		AggregateID:   comment.ID,
		RoutingKey:    "comment.added",
	}
}

func DocumentUploaded(doc model.Document) Event {
	return Event{
		Action:        model.ActionDocumentUploaded,
		ProjectID:     doc.ProjectID,
		UserID:        doc.UploadedByID,
		Description:   fmt.Sprintf("Document '%s' (v%d) was uploaded.", doc.Name, doc.Version),
		AggregateType: "document",
		AggregateID:   doc.ID,
		RoutingKey:    "document.uploaded",
	}
}

// ProjectOverdue is emitted by the sweep; the timeline row has no user.
func ProjectOverdue(project model.Project, action model.TimelineAction) Event {
	due := ""
	if project.EndDate != nil {
		due = project.EndDate.Format(dateLayout)
	}
	return Event{
		Action:        action,
		ProjectID:     project.ID,
		Description:   fmt.Sprintf("Project '%s' marked as overdue.", project.Title),
		Message:       fmt.Sprintf("Project '%s' is overdue (due %s).", project.Title, due),
		Recipients:    slices.Clone(project.MemberIDs),
		AggregateType: "project",
		AggregateID:   project.ID,
		RoutingKey:    "project.overdue",
	}
}

// ProjectDue only notifies members.
func ProjectDue(project model.Project) Event {
	return Event{
		ProjectID:     project.ID,
		Message:       fmt.Sprintf("Project '%s' you're assigned to is due today.", project.Title),
		Recipients:    slices.Clone(project.MemberIDs),
		SkipTimeline:  true,
		AggregateType: "project",
		AggregateID:   project.ID,
		RoutingKey:    "project.due",
	}
}
