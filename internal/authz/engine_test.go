package authz

import (
	"testing"

	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/model"
)

func principal(id int64, role model.Role, superuser bool) Principal {
	return Principal{
		User:    model.User{ID: id, IsActive: true, IsSuperuser: superuser},
		Profile: model.Profile{ID: id + 100, UserID: id, Role: role},
	}
}

var (
	root      = principal(1, model.RoleDeveloper, true)
	owner     = principal(2, model.RoleManager, false)
	otherMgr  = principal(3, model.RoleManager, false)
	member    = principal(4, model.RoleDeveloper, false)
	outsider  = principal(5, model.RoleQA, false)
	managerID = int64(2)
)

func project() *model.Project {
	return &model.Project{ID: 10, ManagerID: &managerID, MemberIDs: []int64{2, 3, 4}}
}

func TestProjectRules(t *testing.T) {
	e := NewEngine(Policy{}, zap.NewNop())

	tests := []struct {
		name  string
		check func(Principal) error
		p     Principal
		allow bool
	}{
		{"superuser creates", e.CanCreateProject, root, true},
		{"manager creates", e.CanCreateProject, owner, true},
		{"developer cannot create", e.CanCreateProject, member, false},
		{"owning manager updates", func(p Principal) error { return e.CanUpdateProject(p, project()) }, owner, true},
		{"member manager cannot update", func(p Principal) error { return e.CanUpdateProject(p, project()) }, otherMgr, false},
		{"superuser updates", func(p Principal) error { return e.CanUpdateProject(p, project()) }, root, true},
		{"member manager deletes", func(p Principal) error { return e.CanDeleteProject(p, project()) }, otherMgr, true},
		{"member developer cannot delete", func(p Principal) error { return e.CanDeleteProject(p, project()) }, member, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.p)
			if tt.allow && err != nil {
				t.Fatalf("want allow, got %v", err)
			}
			if !tt.allow && !apperr.IsPermission(err) {
				t.Fatalf("want PermissionError, got %v", err)
			}
		})
	}
}

func TestTaskRules(t *testing.T) {
	open := NewEngine(Policy{}, zap.NewNop())
	strict := NewEngine(Policy{TaskUpdateRequiresAssignee: true}, zap.NewNop())
	ownerProfile := &owner.Profile

	tests := []struct {
		name  string
		err   error
		allow bool
	}{
		{"manager creates", open.CanCreateTask(owner), true},
		{"developer cannot create", open.CanCreateTask(member), false},
		{"manager updates any task", open.CanUpdateTask(otherMgr, ownerProfile), true},
		{"developer cannot update", open.CanUpdateTask(member, &member.Profile), false},
		{"strict: assignee manager updates", strict.CanUpdateTask(owner, ownerProfile), true},
		{"strict: other manager cannot update", strict.CanUpdateTask(otherMgr, ownerProfile), false},
		{"strict: unassigned task", strict.CanUpdateTask(owner, nil), false},
		{"strict: superuser bypasses", strict.CanUpdateTask(root, nil), true},
		{"member manager deletes", open.CanDeleteTask(otherMgr, project()), true},
		{"outside manager cannot delete", open.CanDeleteTask(principal(9, model.RoleManager, false), project()), false},
		{"manager assigns", open.CanAssignTask(owner), true},
		{"developer cannot assign", open.CanAssignTask(member), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.allow && tt.err != nil {
				t.Fatalf("want allow, got %v", tt.err)
			}
			if !tt.allow && !apperr.IsPermission(tt.err) {
				t.Fatalf("want PermissionError, got %v", tt.err)
			}
		})
	}
}

func TestCheckAssignable(t *testing.T) {
	e := NewEngine(Policy{}, zap.NewNop())
	if err := e.CheckAssignable(project(), &member.Profile); err != nil {
		t.Fatalf("member should be assignable: %v", err)
	}
	if err := e.CheckAssignable(project(), &outsider.Profile); !apperr.IsConflict(err) {
		t.Fatalf("outsider: want ConflictError, got %v", err)
	}
}

func TestCollaborationRules(t *testing.T) {
	e := NewEngine(Policy{}, zap.NewNop())
	ownComment := &model.Comment{AuthorID: member.UserID()}
	otherComment := &model.Comment{AuthorID: otherMgr.UserID()}

	if !e.CanListDocuments(member, project()) || e.CanListDocuments(outsider, project()) {
		t.Error("document listing should follow membership")
	}
	if e.CanListDocuments(root, nil) {
		t.Error("no project means no documents")
	}
	if err := e.CanCreateDocument(outsider, project()); !apperr.IsPermission(err) {
		t.Errorf("outsider upload: %v", err)
	}
	if err := e.CanCreateComment(member, project()); err != nil {
		t.Errorf("member comment: %v", err)
	}
	if err := e.CanUpdateComment(outsider, project()); !apperr.IsPermission(err) {
		t.Errorf("outsider comment update: %v", err)
	}
	if err := e.CanDeleteComment(member, project(), ownComment); err != nil {
		t.Errorf("author delete: %v", err)
	}
	if err := e.CanDeleteComment(member, project(), otherComment); !apperr.IsPermission(err) {
		t.Errorf("developer deleting another's comment: %v", err)
	}
	if err := e.CanDeleteComment(owner, project(), otherComment); err != nil {
		t.Errorf("member manager delete: %v", err)
	}
}

func TestProfileAndNotificationRules(t *testing.T) {
	e := NewEngine(Policy{}, zap.NewNop())

	if err := e.CanModifyProfile(member, &member.Profile, "update"); err != nil {
		t.Errorf("own profile: %v", err)
	}
	if err := e.CanModifyProfile(owner, &member.Profile, "delete"); !apperr.IsPermission(err) {
		t.Errorf("manager on another profile: %v", err)
	}
	if err := e.CanChangeRole(owner); !apperr.IsPermission(err) {
		t.Errorf("manager role change: %v", err)
	}
	if err := e.CanChangeRole(root); err != nil {
		t.Errorf("superuser role change: %v", err)
	}

	n := &model.Notification{ID: 7, UserID: member.UserID()}
	if err := e.CanMarkNotificationRead(member, n); err != nil {
		t.Errorf("own notification: %v", err)
	}
	if err := e.CanMarkNotificationRead(root, n); !apperr.IsNotFound(err) {
		t.Errorf("superuser on another inbox: want NotFound, got %v", err)
	}
}

func TestScopes(t *testing.T) {
	e := NewEngine(Policy{}, zap.NewNop())

	tests := []struct {
		name string
		got  Scope
		want Scope
	}{
		{"manager lists all projects", e.ProjectListScope(owner), All()},
		{"developer lists member projects", e.ProjectListScope(member), MemberOf(member.UserID())},
		{"superuser lists all tasks", e.TaskListScope(root), All()},
		{"manager comments are member scoped", e.CommentListScope(owner), MemberOf(owner.UserID())},
		{"developer sees own profile", e.ProfileListScope(member), OwnedBy(member.UserID())},
		{"manager sees all profiles", e.ProfileListScope(owner), All()},
		{"superuser timeline", e.TimelineListScope(root), All()},
		{"superuser inbox is still personal", e.NotificationScope(root), OwnedBy(root.UserID())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("scope = %+v, want %+v", tt.got, tt.want)
			}
		})
	}

	p := project()
	if !MemberOf(member.UserID()).AdmitsProject(p) || MemberOf(outsider.UserID()).AdmitsProject(p) {
		t.Error("AdmitsProject should follow membership")
	}
	if None().AdmitsProject(p) || !None().Empty() {
		t.Error("None admits nothing")
	}
	if f := OwnedBy(5).OwnerFilter(); f == nil || *f != 5 {
		t.Error("OwnerFilter")
	}
	if All().MemberFilter() != nil {
		t.Error("All has no member filter")
	}
}
