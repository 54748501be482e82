package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"projecthub/internal/model"
	"projecthub/internal/repository"
	"projecthub/pkg/outbox"
)

func seedUser(t *testing.T, s *Store, email string) (model.User, model.Profile) {
	t.Helper()
	ctx := context.Background()
	u := model.User{Email: email, IsActive: true}
	if err := s.Users().Create(ctx, &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	p := model.Profile{UserID: u.ID}
	if err := s.Profiles().Create(ctx, &p); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return u, p
}

func TestUserEmailIsUniqueCaseInsensitive(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "Alice@Example.com")

	err := s.Users().Create(context.Background(), &model.User{Email: "alice@example.com"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	u, err := s.Users().GetByEmail(context.Background(), "ALICE@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", u.Email)
	}
}

func TestProfileDefaultsToDeveloper(t *testing.T) {
	s := NewStore()
	_, p := seedUser(t, s, "a@example.com")
	if p.Role != model.RoleDeveloper {
		t.Errorf("role = %q, want developer", p.Role)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, &model.User{Email: "x@example.com"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.Users().GetByEmail(ctx, "x@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("user survived rollback: %v", err)
	}
}

func TestWithinTxNestedJoinsOuter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx repository.Store) error {
		return tx.WithinTx(ctx, func(inner repository.Store) error {
			return inner.Users().Create(ctx, &model.User{Email: "n@example.com"})
		})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if _, err := s.Users().GetByEmail(ctx, "n@example.com"); err != nil {
		t.Fatalf("nested write not committed: %v", err)
	}
}

func TestProjectDeleteCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	u, _ := seedUser(t, s, "m@example.com")

	p := model.Project{Title: "P", MemberIDs: []int64{u.ID}}
	if err := s.Projects().Create(ctx, &p); err != nil {
		t.Fatal(err)
	}
	task := model.Task{ProjectID: p.ID, Title: "T"}
	if err := s.Tasks().Create(ctx, &task); err != nil {
		t.Fatal(err)
	}
	c := model.Comment{TaskID: task.ID, AuthorID: u.ID, Text: "hi"}
	if err := s.Comments().Create(ctx, &c); err != nil {
		t.Fatal(err)
	}
	doc := model.Document{ProjectID: p.ID, Name: "spec", File: "f", Version: 1}
	if err := s.Documents().Create(ctx, &doc); err != nil {
		t.Fatal(err)
	}
	if err := s.Timeline().BulkInsert(ctx, []model.TimelineEvent{{ProjectID: p.ID, Action: model.ActionTaskCreated}}); err != nil {
		t.Fatal(err)
	}

	if err := s.Projects().Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := s.Tasks().GetByID(ctx, task.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("task not cascaded: %v", err)
	}
	if _, err := s.Comments().GetByID(ctx, c.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("comment not cascaded: %v", err)
	}
	if docs, _ := s.Documents().ListByProject(ctx, p.ID); len(docs) != 0 {
		t.Errorf("documents not cascaded: %d left", len(docs))
	}
	if events, _ := s.Timeline().List(ctx, repository.TimelineFilter{}); len(events) != 0 {
		t.Errorf("timeline not cascaded: %d left", len(events))
	}
}

func TestUserDeleteNullsReferences(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	manager, _ := seedUser(t, s, "m@example.com")
	dev, devProfile := seedUser(t, s, "d@example.com")

	p := model.Project{Title: "P", ManagerID: &manager.ID, MemberIDs: []int64{manager.ID, dev.ID}}
	if err := s.Projects().Create(ctx, &p); err != nil {
		t.Fatal(err)
	}
	task := model.Task{ProjectID: p.ID, Title: "T", AssigneeID: &devProfile.ID, AssignedByID: &dev.ID}
	if err := s.Tasks().Create(ctx, &task); err != nil {
		t.Fatal(err)
	}
	if err := s.Notifications().BulkInsert(ctx, []model.Notification{{UserID: dev.ID, Message: "m"}}); err != nil {
		t.Fatal(err)
	}

	if err := s.Users().Delete(ctx, dev.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := s.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AssigneeID != nil || got.AssignedByID != nil {
		t.Errorf("task references not nulled: %+v", got)
	}
	proj, _ := s.Projects().GetByID(ctx, p.ID)
	if proj.HasMember(dev.ID) {
		t.Errorf("membership not removed")
	}
	if _, err := s.Profiles().GetByID(ctx, devProfile.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("profile not cascaded: %v", err)
	}
	if ns, _ := s.Notifications().List(ctx, repository.NotificationFilter{UserID: dev.ID}); len(ns) != 0 {
		t.Errorf("notifications not cascaded")
	}
}

func TestNotificationsNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s := NewStore().WithClock(func() time.Time { return clock })
	ctx := context.Background()
	u, _ := seedUser(t, s, "u@example.com")

	for i, msg := range []string{"first", "second", "third"} {
		clock = base.Add(time.Duration(i) * time.Minute)
		if err := s.Notifications().BulkInsert(ctx, []model.Notification{{UserID: u.ID, Message: msg}}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Notifications().List(ctx, repository.NotificationFilter{UserID: u.ID})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"third", "second", "first"}
	for i := range want {
		if got[i].Message != want[i] {
			t.Errorf("position %d = %q, want %q", i, got[i].Message, want[i])
		}
	}
}

func TestProjectsEndingWindow(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	yesterday := day.Add(-time.Hour)
	today := day.Add(9 * time.Hour)
	tomorrow := day.Add(30 * time.Hour)

	for _, end := range []*time.Time{&yesterday, &today, &tomorrow, nil} {
		if err := s.Projects().Create(ctx, &model.Project{Title: "p", EndDate: end}); err != nil {
			t.Fatal(err)
		}
	}

	overdue, _ := s.Projects().ListEndingBefore(ctx, day)
	if len(overdue) != 1 {
		t.Errorf("overdue = %d, want 1", len(overdue))
	}
	due, _ := s.Projects().ListEndingBetween(ctx, day, day.Add(24*time.Hour))
	if len(due) != 1 {
		t.Errorf("due = %d, want 1", len(due))
	}
}

func TestOutboxMarkAsFailedBacksOff(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore().WithClock(func() time.Time { return now })
	ctx := context.Background()
	relay := s.OutboxEvents()

	if err := s.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Outbox().Insert(ctx, newTestEvent())
	}); err != nil {
		t.Fatal(err)
	}

	pending, _ := relay.GetPendingEvents(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	id := pending[0].ID

	if err := relay.MarkAsFailed(ctx, id, 2); err != nil {
		t.Fatal(err)
	}
	if again, _ := relay.GetPendingEvents(ctx, 10); len(again) != 0 {
		t.Errorf("event retried before backoff elapsed")
	}

	now = now.Add(time.Minute)
	if err := relay.MarkAsFailed(ctx, id, 2); err != nil {
		t.Fatal(err)
	}
	if again, _ := relay.GetPendingEvents(ctx, 10); len(again) != 0 {
		t.Errorf("event still pending after max retries")
	}
}

func newTestEvent() *outbox.Event {
	return &outbox.Event{AggregateType: "task", RoutingKey: "task.created", Payload: []byte(`{}`)}
}
