package authz

import (
	"fmt"

	"projecthub/internal/apperr"
	"projecthub/internal/model"
	"projecthub/pkg/metrics"

	"go.uber.org/zap"
)

// Policy holds the configurable variants of the rule table.
type Policy struct {
	// TaskUpdateRequiresAssignee additionally requires a manager updating
	// a task to be its assignee. The assignee is a profile, so the check
	// compares the profile's user id against the caller's user id.
	TaskUpdateRequiresAssignee bool
}

// Engine evaluates per-entity, per-operation access rules. Precedence:
// superuser, then role permission, then relationship predicates.
type Engine struct {
	policy Policy
	logger *zap.Logger
}

func NewEngine(policy Policy, logger *zap.Logger) *Engine {
	return &Engine{policy: policy, logger: logger}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) decide(p Principal, entity, operation string, allowed bool, reason string) error {
	metrics.RecordAuthzDecision(entity, operation, allowed)
	if allowed {
		return nil
	}
	e.logger.Debug("Permission denied",
		zap.Int64("user_id", p.UserID()),
		zap.String("role", string(p.Role())),
		zap.String("entity", entity),
		zap.String("operation", operation),
	)
	return apperr.Forbidden(reason)
}

// Projects

func (e *Engine) ProjectListScope(p Principal) Scope {
	if p.Can(PermProjectListAll) {
		return All()
	}
	return MemberOf(p.UserID())
}

func (e *Engine) CanCreateProject(p Principal) error {
	return e.decide(p, "project", "create", p.Can(PermProjectCreate),
		"You do not have permission to create a project.")
}

func (e *Engine) CanUpdateProject(p Principal, project *model.Project) error {
	allowed := p.IsSuperuser() ||
		(HasPermission(p.Role(), PermProjectUpdate) && project.IsManagedBy(p.UserID()))
	return e.decide(p, "project", "update", allowed,
		"You do not have permission to update this project.")
}

func (e *Engine) CanDeleteProject(p Principal, project *model.Project) error {
	allowed := p.IsSuperuser() ||
		(HasPermission(p.Role(), PermProjectDelete) && p.MemberOf(project))
	return e.decide(p, "project", "delete", allowed,
		"You do not have permission to delete this project.")
}

// Tasks

func (e *Engine) TaskListScope(p Principal) Scope {
	if p.Can(PermTaskListAll) {
		return All()
	}
	return MemberOf(p.UserID())
}

func (e *Engine) CanCreateTask(p Principal) error {
	return e.decide(p, "task", "create", p.Can(PermTaskCreate),
		"You do not have permission to create a task.")
}

// CanUpdateTask takes the task's current assignee profile, nil when the
// task is unassigned.
func (e *Engine) CanUpdateTask(p Principal, assignee *model.Profile) error {
	allowed := p.Can(PermTaskUpdate)
	if allowed && !p.IsSuperuser() && e.policy.TaskUpdateRequiresAssignee {
		allowed = assignee != nil && assignee.UserID == p.UserID()
	}
	return e.decide(p, "task", "update", allowed,
		"You do not have permission to update this task.")
}

func (e *Engine) CanDeleteTask(p Principal, project *model.Project) error {
	allowed := p.IsSuperuser() ||
		(HasPermission(p.Role(), PermTaskDelete) && p.MemberOf(project))
	return e.decide(p, "task", "delete", allowed,
		"You do not have permission to delete this task.")
}

func (e *Engine) CanAssignTask(p Principal) error {
	return e.decide(p, "task", "assign", p.Can(PermTaskAssign),
		"You do not have permission to assign this task.")
}

// CheckAssignable rejects assignees whose user is not on the project
// team. The outcome is a conflict, not a permission failure.
func (e *Engine) CheckAssignable(project *model.Project, assignee *model.Profile) error {
	if !project.HasMember(assignee.UserID) {
		return apperr.Conflict(fmt.Sprintf("User %d is not a member of this project.", assignee.UserID))
	}
	return nil
}

// Documents

// CanListDocuments has no error outcome: a caller without access simply
// sees no documents.
func (e *Engine) CanListDocuments(p Principal, project *model.Project) bool {
	if project == nil {
		return false
	}
	return p.IsSuperuser() || p.MemberOf(project)
}

func (e *Engine) CanCreateDocument(p Principal, project *model.Project) error {
	allowed := p.IsSuperuser() || p.MemberOf(project)
	return e.decide(p, "document", "create", allowed,
		"You must be a team member of this project to upload documents.")
}

// Comments

func (e *Engine) CommentListScope(p Principal) Scope {
	if p.IsSuperuser() {
		return All()
	}
	return MemberOf(p.UserID())
}

func (e *Engine) CanCreateComment(p Principal, project *model.Project) error {
	allowed := p.IsSuperuser() || p.MemberOf(project)
	return e.decide(p, "comment", "create", allowed,
		"You must be a team member of this task's project to comment.")
}

func (e *Engine) CanUpdateComment(p Principal, project *model.Project) error {
	allowed := p.IsSuperuser() || p.MemberOf(project)
	return e.decide(p, "comment", "update", allowed,
		"You do not have permission to update this comment.")
}

func (e *Engine) CanDeleteComment(p Principal, project *model.Project, comment *model.Comment) error {
	allowed := p.IsSuperuser() ||
		(HasPermission(p.Role(), PermCommentModerate) && p.MemberOf(project)) ||
		comment.AuthorID == p.UserID()
	return e.decide(p, "comment", "delete", allowed,
		"You do not have permission to delete this comment.")
}

// Profiles

func (e *Engine) ProfileListScope(p Principal) Scope {
	if p.Can(PermProfileListAll) {
		return All()
	}
	return OwnedBy(p.UserID())
}

// CanModifyProfile covers update and delete; operation is only used for
// reporting.
func (e *Engine) CanModifyProfile(p Principal, target *model.Profile, operation string) error {
	allowed := p.IsSuperuser() || target.UserID == p.UserID()
	return e.decide(p, "profile", operation, allowed,
		fmt.Sprintf("You do not have permission to %s this profile.", operation))
}

// CanChangeRole guards the role field: roles drive every other rule, so
// only a superuser may set them.
func (e *Engine) CanChangeRole(p Principal) error {
	return e.decide(p, "profile", "change_role", p.IsSuperuser(),
		"Only a superuser can change a profile's role.")
}

// Timeline

func (e *Engine) TimelineListScope(p Principal) Scope {
	if p.IsSuperuser() {
		return All()
	}
	return MemberOf(p.UserID())
}

// Notifications are a personal inbox: no superuser bypass.

func (e *Engine) NotificationScope(p Principal) Scope {
	return OwnedBy(p.UserID())
}

// CanMarkNotificationRead reports another user's notification as not
// found rather than forbidden, so ids cannot be probed.
func (e *Engine) CanMarkNotificationRead(p Principal, n *model.Notification) error {
	allowed := n.UserID == p.UserID()
	metrics.RecordAuthzDecision("notification", "mark_read", allowed)
	if !allowed {
		return apperr.NotFound("notification", n.ID)
	}
	return nil
}
