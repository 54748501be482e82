package authz

import "projecthub/internal/model"

type ScopeKind int

const (
	// ScopeNone yields an empty result without querying.
	ScopeNone ScopeKind = iota
	ScopeAll
	// ScopeMember restricts to projects the user is a team member of.
	ScopeMember
	// ScopeOwner restricts to rows owned by the user.
	ScopeOwner
)

// Scope is the filter a list operation must apply for a caller.
type Scope struct {
	Kind   ScopeKind
	UserID int64
}

func All() Scope                  { return Scope{Kind: ScopeAll} }
func None() Scope                 { return Scope{Kind: ScopeNone} }
func MemberOf(userID int64) Scope { return Scope{Kind: ScopeMember, UserID: userID} }
func OwnedBy(userID int64) Scope  { return Scope{Kind: ScopeOwner, UserID: userID} }

func (s Scope) Empty() bool {
	return s.Kind == ScopeNone
}

// MemberFilter returns the user id a membership-scoped query filters
// on, or nil when the scope is unrestricted.
func (s Scope) MemberFilter() *int64 {
	if s.Kind == ScopeMember {
		id := s.UserID
		return &id
	}
	return nil
}

// OwnerFilter is MemberFilter for owner-scoped queries.
func (s Scope) OwnerFilter() *int64 {
	if s.Kind == ScopeOwner {
		id := s.UserID
		return &id
	}
	return nil
}

// AdmitsProject reports whether rows hanging off project are visible
// under s.
func (s Scope) AdmitsProject(project *model.Project) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeMember:
		return project != nil && project.HasMember(s.UserID)
	default:
		return false
	}
}

// AdmitsOwner reports whether a row owned by ownerID is visible under s.
func (s Scope) AdmitsOwner(ownerID int64) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeOwner:
		return ownerID == s.UserID
	default:
		return false
	}
}
