package sweep

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"projecthub/internal/events"
	"projecthub/internal/model"
	"projecthub/internal/repository"
	"projecthub/internal/repository/memory"
	"projecthub/pkg/util"
)

var fixedNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func member(t *testing.T, s *memory.Store, email string) int64 {
	t.Helper()
	u := model.User{Email: email}
	if err := s.Users().Create(context.Background(), &u); err != nil {
		t.Fatal(err)
	}
	return u.ID
}

func project(t *testing.T, s *memory.Store, title string, end *time.Time, members ...int64) model.Project {
	t.Helper()
	p := model.Project{Title: title, EndDate: end, MemberIDs: members}
	if err := s.Projects().Create(context.Background(), &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func newSweeper(t *testing.T, s repository.Store, opts Options) *Sweeper {
	t.Helper()
	sw, err := NewSweeper(s, events.NewPipeline(true, zap.NewNop()), opts, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return sw.WithClock(func() time.Time { return fixedNow })
}

func countNotifications(t *testing.T, s *memory.Store, users ...int64) int {
	t.Helper()
	total := 0
	for _, uid := range users {
		ns, err := s.Notifications().List(context.Background(), repository.NotificationFilter{UserID: uid})
		if err != nil {
			t.Fatal(err)
		}
		total += len(ns)
	}
	return total
}

func TestRunOnFixedDate(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()

	a1, a2 := member(t, s, "a1@example.com"), member(t, s, "a2@example.com")
	b1, b2, b3 := member(t, s, "b1@example.com"), member(t, s, "b2@example.com"), member(t, s, "b3@example.com")

	yesterday := fixedNow.AddDate(0, 0, -1)
	today := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	nextWeek := fixedNow.AddDate(0, 0, 7)

	a := project(t, s, "A", &yesterday, a1, a2)
	b := project(t, s, "B", &today, b1, b2, b3)
	project(t, s, "C", &nextWeek, a1)
	project(t, s, "D", nil, b1)

	summary, err := newSweeper(t, s, Options{}).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.OverdueCount != 1 || summary.DueCount != 1 {
		t.Fatalf("counts = overdue %d due %d, want 1/1", summary.OverdueCount, summary.DueCount)
	}
	if summary.OverdueProjects[0].ID != a.ID || summary.DueProjects[0].ID != b.ID {
		t.Errorf("summary lists wrong projects: %+v", summary)
	}

	if got := countNotifications(t, s, a1, a2); got != 2 {
		t.Errorf("A notifications = %d, want 2", got)
	}
	if got := countNotifications(t, s, b1, b2, b3); got != 3 {
		t.Errorf("B notifications = %d, want 3", got)
	}

	aEvents, _ := s.Timeline().List(ctx, repository.TimelineFilter{ProjectID: &a.ID})
	if len(aEvents) != 1 {
		t.Fatalf("A timeline = %d, want 1", len(aEvents))
	}
	if aEvents[0].UserID != nil || aEvents[0].Action != model.ActionTaskUpdated {
		t.Errorf("A timeline event = %+v", aEvents[0])
	}
	if aEvents[0].Description != "Project 'A' marked as overdue." {
		t.Errorf("description = %q", aEvents[0].Description)
	}
	bEvents, _ := s.Timeline().List(ctx, repository.TimelineFilter{ProjectID: &b.ID})
	if len(bEvents) != 0 {
		t.Errorf("B timeline = %d, want 0", len(bEvents))
	}

	ns, _ := s.Notifications().List(ctx, repository.NotificationFilter{UserID: a1})
	if ns[0].Message != "Project 'A' is overdue (due 2024-03-09)." {
		t.Errorf("overdue message = %q", ns[0].Message)
	}
}

func TestRunTwiceRenotifies(t *testing.T) {
	s := memory.NewStore()
	u := member(t, s, "u@example.com")
	yesterday := fixedNow.AddDate(0, 0, -1)
	project(t, s, "A", &yesterday, u)

	sw := newSweeper(t, s, Options{})
	for i := 0; i < 2; i++ {
		if _, err := sw.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := countNotifications(t, s, u); got != 2 {
		t.Errorf("notifications = %d, want 2", got)
	}
}

func TestRunUsesConfiguredTimezoneAndAction(t *testing.T) {
	s := memory.NewStore()
	u := member(t, s, "u@example.com")

	// 15:30 UTC on 10 March is already 11 March in Tokyo, so a project
	// ending at 10:00 UTC on 10 March is overdue there.
	end := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	p := project(t, s, "A", &end, u)

	sw := newSweeper(t, s, Options{Timezone: "Asia/Tokyo", OverdueAction: model.ActionProjectOverdue})
	summary, err := sw.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.OverdueCount != 1 {
		t.Fatalf("overdue = %d, want 1", summary.OverdueCount)
	}
	evs, _ := s.Timeline().List(context.Background(), repository.TimelineFilter{ProjectID: &p.ID})
	if len(evs) != 1 || evs[0].Action != model.ActionProjectOverdue {
		t.Errorf("timeline = %+v", evs)
	}
}

func TestNewSweeperRejectsBadOptions(t *testing.T) {
	s := memory.NewStore()
	p := events.NewPipeline(true, zap.NewNop())

	if _, err := NewSweeper(s, p, Options{Timezone: "Mars/Olympus"}, zap.NewNop()); err == nil {
		t.Error("expected timezone error")
	}
	if _, err := NewSweeper(s, p, Options{OverdueAction: "explode"}, zap.NewNop()); err == nil {
		t.Error("expected action error")
	}
}

// failingStore makes every unit of work fail.
type failingStore struct {
	repository.Store
}

func (failingStore) WithinTx(context.Context, func(repository.Store) error) error {
	return errors.New("database unavailable")
}

func TestSchedulerSurvivesFailures(t *testing.T) {
	sw := newSweeper(t, failingStore{memory.NewStore()}, Options{})
	sched := NewScheduler(sw, nil, SchedulerOptions{Interval: time.Hour}, zap.NewNop())

	if summary := sched.Tick(context.Background()); summary != nil {
		t.Errorf("expected nil summary for failed run")
	}
}

func TestSchedulerSkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	u := member(t, s, "u@example.com")
	yesterday := fixedNow.AddDate(0, 0, -1)
	project(t, s, "A", &yesterday, u)

	locker := util.NewMemoryLocker()
	sched := NewScheduler(newSweeper(t, s, Options{}), locker,
		SchedulerOptions{Interval: time.Hour, LockTTL: time.Hour}, zap.NewNop())

	// another replica is mid-run
	if ok, _ := locker.Acquire(ctx, lockKey, time.Hour); !ok {
		t.Fatal("could not take the lock")
	}
	if summary := sched.Tick(ctx); summary != nil {
		t.Error("tick should be skipped while the lock is held")
	}
	if got := countNotifications(t, s, u); got != 0 {
		t.Errorf("notifications = %d, want 0", got)
	}

	if err := locker.Release(ctx, lockKey); err != nil {
		t.Fatal(err)
	}
	if summary := sched.Tick(ctx); summary == nil {
		t.Fatal("tick should run once the lock is free")
	}
	if got := countNotifications(t, s, u); got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}
}

func TestSequentialTicksBothRun(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	u := member(t, s, "u@example.com")
	yesterday := fixedNow.AddDate(0, 0, -1)
	project(t, s, "A", &yesterday, u)

	locker := util.NewMemoryLocker()
	sched := NewScheduler(newSweeper(t, s, Options{}), locker,
		SchedulerOptions{Interval: 5 * time.Minute, LockTTL: 10 * time.Minute}, zap.NewNop())

	for i := 1; i <= 2; i++ {
		if summary := sched.Tick(ctx); summary == nil {
			t.Fatalf("tick %d was skipped", i)
		}
	}
	if got := countNotifications(t, s, u); got != 2 {
		t.Errorf("notifications = %d, want 2", got)
	}
	if ok, _ := locker.Acquire(ctx, lockKey, time.Minute); !ok {
		t.Error("lock still held after the run finished")
	}
}

type recordingLocker struct {
	acquireErr error
	released   int
}

func (l *recordingLocker) Acquire(context.Context, string, time.Duration) (bool, error) {
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	return true, nil
}

func (l *recordingLocker) Release(context.Context, string) error {
	l.released++
	return nil
}

type panickingStore struct {
	repository.Store
}

func (panickingStore) WithinTx(context.Context, func(repository.Store) error) error {
	panic("connection pool closed")
}

func TestSchedulerReleasesOnlyItsOwnLock(t *testing.T) {
	opts := SchedulerOptions{Interval: time.Hour, LockTTL: time.Minute}

	t.Run("acquire error runs unguarded", func(t *testing.T) {
		locker := &recordingLocker{acquireErr: errors.New("redis down")}
		sched := NewScheduler(newSweeper(t, failingStore{memory.NewStore()}, Options{}), locker, opts, zap.NewNop())
		sched.Tick(context.Background())
		if locker.released != 0 {
			t.Errorf("released %d times without holding the lock", locker.released)
		}
	})

	t.Run("acquire error still sweeps", func(t *testing.T) {
		locker := &recordingLocker{acquireErr: errors.New("redis down")}
		sched := NewScheduler(newSweeper(t, memory.NewStore(), Options{}), locker, opts, zap.NewNop())
		if summary := sched.Tick(context.Background()); summary == nil {
			t.Error("expected the run to proceed")
		}
	})

	t.Run("failed run releases", func(t *testing.T) {
		locker := &recordingLocker{}
		sched := NewScheduler(newSweeper(t, failingStore{memory.NewStore()}, Options{}), locker, opts, zap.NewNop())
		sched.Tick(context.Background())
		if locker.released != 1 {
			t.Errorf("released = %d, want 1", locker.released)
		}
	})

	t.Run("panic releases", func(t *testing.T) {
		locker := &recordingLocker{}
		sched := NewScheduler(newSweeper(t, panickingStore{memory.NewStore()}, Options{}), locker, opts, zap.NewNop())
		if summary := sched.Tick(context.Background()); summary != nil {
			t.Error("expected nil summary after a panic")
		}
		if locker.released != 1 {
			t.Errorf("released = %d, want 1", locker.released)
		}
	})
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	sw := newSweeper(t, memory.NewStore(), Options{})
	sched := NewScheduler(sw, nil, SchedulerOptions{Interval: time.Millisecond, RunOnStart: true}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
