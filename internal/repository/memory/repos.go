package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"projecthub/internal/model"
	"projecthub/internal/repository"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *model.User) error {
	return r.s.do(func(d *dataset) error {
		u.Email = strings.ToLower(u.Email)
		for _, existing := range d.users {
			if existing.Email == u.Email {
				return repository.ErrDuplicate
			}
		}
		u.ID = d.nextID()
		u.CreatedAt = r.s.now()
		d.users[u.ID] = *u
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	var out model.User
	err := r.s.do(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(email)
	var out *model.User
	err := r.s.do(func(d *dataset) error {
		for _, u := range d.users {
			if u.Email == email {
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r userRepo) ListByIDs(_ context.Context, ids []int64) ([]model.User, error) {
	var out []model.User
	err := r.s.do(func(d *dataset) error {
		out = sortedValues(d.users, func(u model.User) bool { return slices.Contains(ids, u.ID) })
		return nil
	})
	return out, err
}

func (r userRepo) Update(_ context.Context, u *model.User) error {
	return r.s.do(func(d *dataset) error {
		if _, ok := d.users[u.ID]; !ok {
			return repository.ErrNotFound
		}
		u.Email = strings.ToLower(u.Email)
		for _, existing := range d.users {
			if existing.ID != u.ID && existing.Email == u.Email {
				return repository.ErrDuplicate
			}
		}
		d.users[u.ID] = *u
		return nil
	})
}

// Delete applies the same cascade and SET NULL rules as the SQL schema.
func (r userRepo) Delete(_ context.Context, id int64) error {
	return r.s.do(func(d *dataset) error {
		if _, ok := d.users[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.users, id)

		var profileIDs []int64
		for pid, p := range d.profiles {
			if p.UserID == id {
				profileIDs = append(profileIDs, pid)
				delete(d.profiles, pid)
			}
		}
		for cid, c := range d.comments {
			if c.AuthorID == id {
				delete(d.comments, cid)
			}
		}
		for nid, n := range d.notifications {
			if n.UserID == id {
				delete(d.notifications, nid)
			}
		}
		for pid, p := range d.projects {
			p.MemberIDs = slices.DeleteFunc(p.MemberIDs, func(m int64) bool { return m == id })
			if p.IsManagedBy(id) {
				p.ManagerID = nil
			}
			d.projects[pid] = p
		}
		for tid, t := range d.tasks {
			if t.AssigneeID != nil && slices.Contains(profileIDs, *t.AssigneeID) {
				t.AssigneeID = nil
			}
			if t.AssignedByID != nil && *t.AssignedByID == id {
				t.AssignedByID = nil
			}
			d.tasks[tid] = t
		}
		for eid, e := range d.timeline {
			if e.UserID != nil && *e.UserID == id {
				e.UserID = nil
				d.timeline[eid] = e
			}
		}
		for did, doc := range d.documents {
			if doc.UploadedByID != nil && *doc.UploadedByID == id {
				doc.UploadedByID = nil
				d.documents[did] = doc
			}
		}
		return nil
	})
}

type profileRepo struct{ s *Store }

func (r profileRepo) Create(_ context.Context, p *model.Profile) error {
	return r.s.do(func(d *dataset) error {
		if _, ok := d.users[p.UserID]; !ok {
			return repository.ErrNotFound
		}
		for _, existing := range d.profiles {
			if existing.UserID == p.UserID {
				return repository.ErrDuplicate
			}
		}
		if p.Role == "" {
			p.Role = model.DefaultRole
		}
		p.ID = d.nextID()
		p.CreatedAt = r.s.now()
		p.UpdatedAt = p.CreatedAt
		d.profiles[p.ID] = *p
		return nil
	})
}

func (r profileRepo) GetByID(_ context.Context, id int64) (*model.Profile, error) {
	var out model.Profile
	err := r.s.do(func(d *dataset) error {
		p, ok := d.profiles[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r profileRepo) GetByUserID(_ context.Context, userID int64) (*model.Profile, error) {
	var out *model.Profile
	err := r.s.do(func(d *dataset) error {
		for _, p := range d.profiles {
			if p.UserID == userID {
				out = &p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r profileRepo) List(_ context.Context, f repository.ProfileFilter) ([]model.Profile, error) {
	var out []model.Profile
	err := r.s.do(func(d *dataset) error {
		out = sortedValues(d.profiles, func(p model.Profile) bool {
			return f.UserID == nil || p.UserID == *f.UserID
		})
		return nil
	})
	return out, err
}

func (r profileRepo) Update(_ context.Context, p *model.Profile) error {
	return r.s.do(func(d *dataset) error {
		existing, ok := d.profiles[p.ID]
		if !ok {
			return repository.ErrNotFound
		}
		p.UserID = existing.UserID
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = r.s.now()
		d.profiles[p.ID] = *p
		return nil
	})
}

type projectRepo struct{ s *Store }

func normalizeMembers(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func (r projectRepo) Create(_ context.Context, p *model.Project) error {
	return r.s.do(func(d *dataset) error {
		p.ID = d.nextID()
		p.MemberIDs = normalizeMembers(p.MemberIDs)
		p.CreatedAt = r.s.now()
		p.UpdatedAt = p.CreatedAt
		stored := *p
		stored.MemberIDs = slices.Clone(p.MemberIDs)
		d.projects[p.ID] = stored
		return nil
	})
}

func (r projectRepo) GetByID(_ context.Context, id int64) (*model.Project, error) {
	var out model.Project
	err := r.s.do(func(d *dataset) error {
		p, ok := d.projects[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = p
		out.MemberIDs = slices.Clone(p.MemberIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r projectRepo) list(keep func(model.Project) bool) ([]model.Project, error) {
	var out []model.Project
	err := r.s.do(func(d *dataset) error {
		out = sortedValues(d.projects, keep)
		for i := range out {
			out[i].MemberIDs = slices.Clone(out[i].MemberIDs)
		}
		return nil
	})
	return out, err
}

func (r projectRepo) List(_ context.Context, f repository.ProjectFilter) ([]model.Project, error) {
	return r.list(func(p model.Project) bool {
		return f.MemberID == nil || p.HasMember(*f.MemberID)
	})
}

func (r projectRepo) Update(_ context.Context, p *model.Project) error {
	return r.s.do(func(d *dataset) error {
		existing, ok := d.projects[p.ID]
		if !ok {
			return repository.ErrNotFound
		}
		p.MemberIDs = normalizeMembers(p.MemberIDs)
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = r.s.now()
		stored := *p
		stored.MemberIDs = slices.Clone(p.MemberIDs)
		d.projects[p.ID] = stored
		return nil
	})
}

func (r projectRepo) Delete(_ context.Context, id int64) error {
	return r.s.do(func(d *dataset) error {
		if _, ok := d.projects[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.projects, id)

		for tid, t := range d.tasks {
			if t.ProjectID == id {
				d.deleteTask(tid)
			}
		}
		for did, doc := range d.documents {
			if doc.ProjectID == id {
				delete(d.documents, did)
			}
		}
		for eid, e := range d.timeline {
			if e.ProjectID == id {
				delete(d.timeline, eid)
			}
		}
		return nil
	})
}

func endsBefore(p model.Project, t time.Time) bool {
	return p.EndDate != nil && p.EndDate.Before(t)
}

func (r projectRepo) ListEndingBefore(_ context.Context, t time.Time) ([]model.Project, error) {
	return r.list(func(p model.Project) bool { return endsBefore(p, t) })
}

func (r projectRepo) ListEndingBetween(_ context.Context, from, to time.Time) ([]model.Project, error) {
	return r.list(func(p model.Project) bool {
		return p.EndDate != nil && !p.EndDate.Before(from) && endsBefore(p, to)
	})
}

type taskRepo struct{ s *Store }

func (d *dataset) deleteTask(id int64) {
	delete(d.tasks, id)
	for cid, c := range d.comments {
		if c.TaskID == id {
			delete(d.comments, cid)
		}
	}
}

func (r taskRepo) Create(_ context.Context, t *model.Task) error {
	return r.s.do(func(d *dataset) error {
		if _, ok := d.projects[t.ProjectID]; !ok {
			return repository.ErrNotFound
		}
		if t.Status == "" {
			t.Status = model.TaskStatusOpen
		}
		t.ID = d.nextID()
		t.CreatedAt = r.s.now()
		t.UpdatedAt = t.CreatedAt
		d.tasks[t.ID] = *t
		return nil
	})
}

func (r taskRepo) GetByID(_ context.Context, id int64) (*model.Task, error) {
	var out model.Task
	err := r.s.do(func(d *dataset) error {
		t, ok := d.tasks[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r taskRepo) List(_ context.Context, f repository.TaskFilter) ([]model.Task, error) {
	var out []model.Task
	err := r.s.do(func(d *dataset) error {
		out = sortedValues(d.tasks, func(t model.Task) bool {
			if f.ProjectID != nil && t.ProjectID != *f.ProjectID {
				return false
			}
			return f.MemberID == nil || d.isMember(t.ProjectID, *f.MemberID)
		})
		return nil
	})
	return out, err
}

func (r taskRepo) Update(_ context.Context, t *model.Task) error {
	return r.s.do(func(d *dataset) error {
		existing, ok := d.tasks[t.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if _, ok := d.projects[t.ProjectID]; !ok {
			return repository.ErrNotFound
		}
		t.CreatedAt = existing.CreatedAt
		t.UpdatedAt = r.s.now()
		d.tasks[t.ID] = *t
		return nil
	})
}

func (r taskRepo) Delete(_ context.Context, id int64) error {
	return r.s.do(func(d *dataset) error {
		if _, ok := d.tasks[id]; !ok {
			return repository.ErrNotFound
		}
		d.deleteTask(id)
		return nil
	})
}

type documentRepo struct{ s *Store }

func (r documentRepo) Create(_ context.Context, doc *model.Document) error {
	return r.s.do(func(d *dataset) error {
		if _, ok := d.projects[doc.ProjectID]; !ok {
			return repository.ErrNotFound
		}
		for _, existing := range d.documents {
			if existing.ProjectID == doc.ProjectID && existing.Name == doc.Name && existing.Version == doc.Version {
				return repository.ErrDuplicate
			}
		}
		doc.ID = d.nextID()
		doc.CreatedAt = r.s.now()
		d.documents[doc.ID] = *doc
		return nil
	})
}

func (r documentRepo) ListByProject(_ context.Context, projectID int64) ([]model.Document, error) {
	var out []model.Document
	err := r.s.do(func(d *dataset) error {
		out = sortedValues(d.documents, func(doc model.Document) bool { return doc.ProjectID == projectID })
		slices.SortStableFunc(out, func(a, b model.Document) int {
			if c := strings.Compare(a.Name, b.Name); c != 0 {
				return c
			}
			return a.Version - b.Version
		})
		return nil
	})
	return out, err
}

func (r documentRepo) NextVersion(_ context.Context, projectID int64, name string) (int, error) {
	next := 1
	err := r.s.do(func(d *dataset) error {
		for _, doc := range d.documents {
			if doc.ProjectID == projectID && doc.Name == name && doc.Version >= next {
				next = doc.Version + 1
			}
		}
		return nil
	})
	return next, err
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *model.Comment) error {
	return r.s.do(func(d *dataset) error {
		if _, ok := d.tasks[c.TaskID]; !ok {
			return repository.ErrNotFound
		}
		c.ID = d.nextID()
		c.CreatedAt = r.s.now()
		c.UpdatedAt = c.CreatedAt
		d.comments[c.ID] = *c
		return nil
	})
}

func (r commentRepo) GetByID(_ context.Context, id int64) (*model.Comment, error) {
	var out model.Comment
	err := r.s.do(func(d *dataset) error {
		c, ok := d.comments[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r commentRepo) List(_ context.Context, f repository.CommentFilter) ([]model.Comment, error) {
	var out []model.Comment
	err := r.s.do(func(d *dataset) error {
		out = sortedValues(d.comments, func(c model.Comment) bool {
			if f.TaskID != nil && c.TaskID != *f.TaskID {
				return false
			}
			if f.MemberID == nil {
				return true
			}
			t, ok := d.tasks[c.TaskID]
			return ok && d.isMember(t.ProjectID, *f.MemberID)
		})
		return nil
	})
	return out, err
}

func (r commentRepo) Update(_ context.Context, c *model.Comment) error {
	return r.s.do(func(d *dataset) error {
		existing, ok := d.comments[c.ID]
		if !ok {
			return repository.ErrNotFound
		}
		existing.Text = c.Text
		existing.UpdatedAt = r.s.now()
		d.comments[c.ID] = existing
		*c = existing
		return nil
	})
}

func (r commentRepo) Delete(_ context.Context, id int64) error {
	return r.s.do(func(d *dataset) error {
		if _, ok := d.comments[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.comments, id)
		return nil
	})
}

type timelineRepo struct{ s *Store }

func (r timelineRepo) BulkInsert(_ context.Context, events []model.TimelineEvent) error {
	return r.s.do(func(d *dataset) error {
		for _, e := range events {
			if _, ok := d.projects[e.ProjectID]; !ok {
				return repository.ErrNotFound
			}
		}
		now := r.s.now()
		for _, e := range events {
			e.ID = d.nextID()
			if e.CreatedAt.IsZero() {
				e.CreatedAt = now
			}
			d.timeline[e.ID] = e
		}
		return nil
	})
}

func newestFirst[T any](items []T, at func(T) (time.Time, int64)) {
	slices.SortStableFunc(items, func(a, b T) int {
		ta, ia := at(a)
		tb, ib := at(b)
		if c := tb.Compare(ta); c != 0 {
			return c
		}
		switch {
		case ia > ib:
			return -1
		case ia < ib:
			return 1
		}
		return 0
	})
}

func (r timelineRepo) List(_ context.Context, f repository.TimelineFilter) ([]model.TimelineEvent, error) {
	var out []model.TimelineEvent
	err := r.s.do(func(d *dataset) error {
		out = sortedValues(d.timeline, func(e model.TimelineEvent) bool {
			if f.ProjectID != nil && e.ProjectID != *f.ProjectID {
				return false
			}
			return f.MemberID == nil || d.isMember(e.ProjectID, *f.MemberID)
		})
		return nil
	})
	newestFirst(out, func(e model.TimelineEvent) (time.Time, int64) { return e.CreatedAt, e.ID })
	return out, err
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) BulkInsert(_ context.Context, notifications []model.Notification) error {
	return r.s.do(func(d *dataset) error {
		for _, n := range notifications {
			if _, ok := d.users[n.UserID]; !ok {
				return repository.ErrNotFound
			}
		}
		now := r.s.now()
		for _, n := range notifications {
			n.ID = d.nextID()
			if n.CreatedAt.IsZero() {
				n.CreatedAt = now
			}
			d.notifications[n.ID] = n
		}
		return nil
	})
}

func (r notificationRepo) List(_ context.Context, f repository.NotificationFilter) ([]model.Notification, error) {
	var out []model.Notification
	err := r.s.do(func(d *dataset) error {
		out = sortedValues(d.notifications, func(n model.Notification) bool {
			return n.UserID == f.UserID && (!f.UnreadOnly || !n.IsRead)
		})
		return nil
	})
	newestFirst(out, func(n model.Notification) (time.Time, int64) { return n.CreatedAt, n.ID })
	return out, err
}

func (r notificationRepo) GetByID(_ context.Context, id int64) (*model.Notification, error) {
	var out model.Notification
	err := r.s.do(func(d *dataset) error {
		n, ok := d.notifications[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id int64) error {
	return r.s.do(func(d *dataset) error {
		n, ok := d.notifications[id]
		if !ok {
			return repository.ErrNotFound
		}
		n.IsRead = true
		d.notifications[id] = n
		return nil
	})
}
