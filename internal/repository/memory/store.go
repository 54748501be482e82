// Package memory implements repository.Store in process memory. It backs
// the "memory" storage driver and the service tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"projecthub/internal/model"
	"projecthub/internal/repository"
	"projecthub/pkg/outbox"
)

type dataset struct {
	users         map[int64]model.User
	profiles      map[int64]model.Profile
	projects      map[int64]model.Project
	tasks         map[int64]model.Task
	documents     map[int64]model.Document
	comments      map[int64]model.Comment
	timeline      map[int64]model.TimelineEvent
	notifications map[int64]model.Notification
	outbox        map[int64]outbox.Event
	seq           int64
}

func newDataset() *dataset {
	return &dataset{
		users:         make(map[int64]model.User),
		profiles:      make(map[int64]model.Profile),
		projects:      make(map[int64]model.Project),
		tasks:         make(map[int64]model.Task),
		documents:     make(map[int64]model.Document),
		comments:      make(map[int64]model.Comment),
		timeline:      make(map[int64]model.TimelineEvent),
		notifications: make(map[int64]model.Notification),
		outbox:        make(map[int64]outbox.Event),
	}
}

func cloneMap[V any](m map[int64]V) map[int64]V {
	out := make(map[int64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		users:         cloneMap(d.users),
		profiles:      cloneMap(d.profiles),
		projects:      make(map[int64]model.Project, len(d.projects)),
		tasks:         cloneMap(d.tasks),
		documents:     cloneMap(d.documents),
		comments:      cloneMap(d.comments),
		timeline:      cloneMap(d.timeline),
		notifications: cloneMap(d.notifications),
		outbox:        cloneMap(d.outbox),
		seq:           d.seq,
	}
	for id, p := range d.projects {
		p.MemberIDs = slices.Clone(p.MemberIDs)
		c.projects[id] = p
	}
	return c
}

// nextID 所有实体共用一个递增序列
func (d *dataset) nextID() int64 {
	d.seq++
	return d.seq
}

// Store serialises every access through one mutex. A unit of work holds
// the mutex for its whole duration and works on a copy of the data that
// replaces the committed data only when fn succeeds.
type Store struct {
	mu   *sync.Mutex
	root *Store
	data *dataset
	inTx bool
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		mu:   &sync.Mutex{},
		data: newDataset(),
		now:  time.Now,
	}
}

// WithClock replaces the clock used for created_at/updated_at stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// do runs fn against the current data, taking the lock unless the caller
// is already inside a unit of work.
func (s *Store) do(fn func(d *dataset) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{
		mu:   s.mu,
		root: s,
		data: s.data.clone(),
		inTx: true,
		now:  s.now,
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Profiles() repository.ProfileRepository           { return profileRepo{s} }
func (s *Store) Projects() repository.ProjectRepository           { return projectRepo{s} }
func (s *Store) Tasks() repository.TaskRepository                 { return taskRepo{s} }
func (s *Store) Documents() repository.DocumentRepository         { return documentRepo{s} }
func (s *Store) Comments() repository.CommentRepository           { return commentRepo{s} }
func (s *Store) Timeline() repository.TimelineRepository          { return timelineRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return outboxRepo{s} }

// OutboxEvents exposes the relay side of the outbox for the worker.
func (s *Store) OutboxEvents() outbox.ReplayStore { return outboxRepo{s} }

// isMember 查询成员关系，项目不存在时返回 false
func (d *dataset) isMember(projectID, userID int64) bool {
	p, ok := d.projects[projectID]
	return ok && p.HasMember(userID)
}

func sortedValues[V any](m map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
