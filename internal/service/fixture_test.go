package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"projecthub/internal/authz"
	"projecthub/internal/events"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	"projecthub/internal/repository/memory"
	"projecthub/pkg/util"
)

const testSecret = "test-secret"

type fixture struct {
	store         *memory.Store
	auth          *AuthService
	profiles      *ProfileService
	projects      *ProjectService
	tasks         *TaskService
	documents     *DocumentService
	comments      *CommentService
	timeline      *TimelineService
	notifications *NotificationService
}

func newFixture(t *testing.T, policy authz.Policy) *fixture {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	deps := Deps{
		Store:    store,
		Authz:    authz.NewEngine(policy, logger),
		Pipeline: events.NewPipeline(true, logger),
		Logger:   logger,
	}
	return &fixture{
		store: store,
		auth: NewAuthService(store, util.NewMemoryRevoker(), AuthConfig{
			Secret:     testSecret,
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		}, logger),
		profiles:      NewProfileService(deps),
		projects:      NewProjectService(deps),
		tasks:         NewTaskService(deps),
		documents:     NewDocumentService(deps),
		comments:      NewCommentService(deps),
		timeline:      NewTimelineService(deps),
		notifications: NewNotificationService(deps),
	}
}

// user registers an account and gives its profile role.
func (f *fixture) user(t *testing.T, email string, role model.Role) authz.Principal {
	t.Helper()
	ctx := context.Background()
	u, err := f.auth.Register(ctx, RegisterInput{
		Email:           email,
		Password:        "password123",
		ConfirmPassword: "password123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	profile, err := f.store.Profiles().GetByUserID(ctx, u.ID)
	if err != nil {
		t.Fatalf("profile of %s: %v", email, err)
	}
	if profile.Role != role {
		profile.Role = role
		if err := f.store.Profiles().Update(ctx, profile); err != nil {
			t.Fatal(err)
		}
	}
	return authz.Principal{User: *u, Profile: *profile}
}

func (f *fixture) superuser(t *testing.T) authz.Principal {
	t.Helper()
	ctx := context.Background()
	if err := f.auth.EnsureSuperuser(ctx, "root@example.com", "rootpassword"); err != nil {
		t.Fatal(err)
	}
	u, err := f.store.Users().GetByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatal(err)
	}
	profile, err := f.store.Profiles().GetByUserID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	return authz.Principal{User: *u, Profile: *profile}
}

// project creates a project owned by manager with the given extra members.
func (f *fixture) project(t *testing.T, manager authz.Principal, title string, members ...authz.Principal) *model.Project {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := f.projects.Create(ctx, manager, ProjectInput{Title: title, StartDate: &start})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if len(members) == 0 {
		return p
	}
	ids := []int64{manager.UserID()}
	for _, m := range members {
		ids = append(ids, m.UserID())
	}
	p, err = f.projects.Update(ctx, manager, p.ID, ProjectUpdate{TeamMember: &ids})
	if err != nil {
		t.Fatalf("set members: %v", err)
	}
	return p
}

func (f *fixture) inbox(t *testing.T, p authz.Principal) []model.Notification {
	t.Helper()
	ns, err := f.notifications.List(context.Background(), p, false)
	if err != nil {
		t.Fatal(err)
	}
	return ns
}

func (f *fixture) projectTimeline(t *testing.T, projectID int64) []model.TimelineEvent {
	t.Helper()
	evs, err := f.store.Timeline().List(context.Background(), repository.TimelineFilter{ProjectID: &projectID})
	if err != nil {
		t.Fatal(err)
	}
	return evs
}
