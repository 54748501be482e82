package authz

import "projecthub/internal/model"

// Permission names a role-gated capability. Relationship checks
// (membership, ownership, authorship) are layered on top in Engine.
type Permission string

const (
	PermProjectListAll Permission = "project:list_all"
	PermProjectCreate  Permission = "project:create"
	PermProjectUpdate  Permission = "project:update"
	PermProjectDelete  Permission = "project:delete"

	PermTaskListAll Permission = "task:list_all"
	PermTaskCreate  Permission = "task:create"
	PermTaskUpdate  Permission = "task:update"
	PermTaskDelete  Permission = "task:delete"
	PermTaskAssign  Permission = "task:assign"

	PermCommentModerate Permission = "comment:moderate"
	PermProfileListAll  Permission = "profile:list_all"
)

var rolePermissions = map[model.Role][]Permission{
	model.RoleManager: {
		PermProjectListAll,
		PermProjectCreate,
		PermProjectUpdate,
		PermProjectDelete,
		PermTaskListAll,
		PermTaskCreate,
		PermTaskUpdate,
		PermTaskDelete,
		PermTaskAssign,
		PermCommentModerate,
		PermProfileListAll,
	},
	model.RoleQA:        {},
	model.RoleDeveloper: {},
	model.RoleEngineer:  {},
}

// HasPermission reports whether role grants permission.
func HasPermission(role model.Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller: the identity plus the
// role-bearing profile attached to it.
type Principal struct {
	User    model.User
	Profile model.Profile
}

func (p Principal) UserID() int64 {
	return p.User.ID
}

func (p Principal) Role() model.Role {
	return p.Profile.Role
}

func (p Principal) IsSuperuser() bool {
	return p.User.IsSuperuser
}

// IsManager reports the manager role. It says nothing about whether the
// caller manages any particular project; see Project.IsManagedBy.
func (p Principal) IsManager() bool {
	return p.Profile.Role == model.RoleManager
}

// Can applies the first two precedence levels: superuser, then role.
func (p Principal) Can(permission Permission) bool {
	return p.IsSuperuser() || HasPermission(p.Role(), permission)
}

// MemberOf reports team membership of project.
func (p Principal) MemberOf(project *model.Project) bool {
	return project != nil && project.HasMember(p.UserID())
}
