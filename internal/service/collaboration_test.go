package service

import (
	"context"
	"testing"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/internal/model"
)

func TestCommentRules(t *testing.T) {
	f := newFixture(t, authz.Policy{})
	ctx := context.Background()
	manager := f.user(t, "m@example.com", model.RoleManager)
	author := f.user(t, "a@example.com", model.RoleDeveloper)
	peer := f.user(t, "p@example.com", model.RoleQA)
	outsider := f.user(t, "o@example.com", model.RoleDeveloper)
	p := f.project(t, manager, "Apollo", author, peer)
	task, _ := f.tasks.Create(ctx, manager, TaskInput{ProjectID: p.ID, Title: "t"})

	if _, err := f.comments.Create(ctx, author, CommentInput{Text: "no task"}); !apperr.IsValidation(err) {
		t.Errorf("missing task_id: %v", err)
	}
	if _, err := f.comments.Create(ctx, outsider, CommentInput{TaskID: &task.ID, Text: "hi"}); !apperr.IsPermission(err) {
		t.Errorf("outsider create: %v", err)
	}
	if _, err := f.comments.Create(ctx, outsider, CommentInput{TaskID: &task.ID}); !apperr.IsPermission(err) {
		t.Errorf("outsider create with empty text: %v", err)
	}
	if _, err := f.comments.Create(ctx, author, CommentInput{TaskID: &task.ID}); !apperr.IsValidation(err) {
		t.Errorf("member create with empty text: %v", err)
	}

	c, err := f.comments.Create(ctx, author, CommentInput{TaskID: &task.ID, Text: "first"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	evs := f.projectTimeline(t, p.ID)
	if evs[0].Action != model.ActionCommentAdded {
		t.Errorf("newest timeline action = %q, want comment_added", evs[0].Action)
	}

	edited, err := f.comments.Update(ctx, peer, c.ID, CommentUpdate{Text: "edited"})
	if err != nil || edited.Text != "edited" {
		t.Fatalf("member update: %v", err)
	}
	if !edited.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("created_at changed on update")
	}
	if _, err := f.comments.Update(ctx, outsider, c.ID, CommentUpdate{Text: "x"}); !apperr.IsNotFound(err) {
		t.Errorf("outsider update: %v", err)
	}
	if err := f.comments.Delete(ctx, outsider, c.ID); !apperr.IsNotFound(err) {
		t.Errorf("outsider delete: %v", err)
	}

	if err := f.comments.Delete(ctx, peer, c.ID); !apperr.IsPermission(err) {
		t.Errorf("non-author non-manager delete: %v", err)
	}
	if err := f.comments.Delete(ctx, author, c.ID); err != nil {
		t.Errorf("author delete: %v", err)
	}

	c2, _ := f.comments.Create(ctx, peer, CommentInput{TaskID: &task.ID, Text: "second"})
	if err := f.comments.Delete(ctx, manager, c2.ID); err != nil {
		t.Errorf("member manager delete: %v", err)
	}
}

func TestCommentListScope(t *testing.T) {
	f := newFixture(t, authz.Policy{})
	ctx := context.Background()
	manager := f.user(t, "m@example.com", model.RoleManager)
	dev := f.user(t, "d@example.com", model.RoleDeveloper)
	outsider := f.user(t, "o@example.com", model.RoleDeveloper)
	p := f.project(t, manager, "Apollo", dev)
	task, _ := f.tasks.Create(ctx, manager, TaskInput{ProjectID: p.ID, Title: "t"})
	if _, err := f.comments.Create(ctx, dev, CommentInput{TaskID: &task.ID, Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	if got, _ := f.comments.List(ctx, outsider, nil); len(got) != 0 {
		t.Errorf("outsider sees %d comments", len(got))
	}
	if got, _ := f.comments.List(ctx, dev, &task.ID); len(got) != 1 {
		t.Errorf("member sees %d comments, want 1", len(got))
	}
	if got, _ := f.comments.List(ctx, f.superuser(t), nil); len(got) != 1 {
		t.Errorf("superuser sees %d comments, want 1", len(got))
	}
}

func TestDocuments(t *testing.T) {
	f := newFixture(t, authz.Policy{})
	ctx := context.Background()
	manager := f.user(t, "m@example.com", model.RoleManager)
	dev := f.user(t, "d@example.com", model.RoleDeveloper)
	outsider := f.user(t, "o@example.com", model.RoleDeveloper)
	p := f.project(t, manager, "Apollo", dev)

	in := DocumentInput{ProjectID: p.ID, Name: "design", File: "docs/design-v1.pdf"}
	if _, err := f.documents.Create(ctx, outsider, in); !apperr.IsPermission(err) {
		t.Errorf("outsider upload: %v", err)
	}
	if _, err := f.documents.Create(ctx, outsider, DocumentInput{ProjectID: p.ID}); !apperr.IsPermission(err) {
		t.Errorf("outsider upload with empty body: %v", err)
	}

	first, err := f.documents.Create(ctx, dev, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	in.File = "docs/design-v2.pdf"
	second, err := f.documents.Create(ctx, manager, in)
	if err != nil {
		t.Fatal(err)
	}
	if first.Version != 1 || second.Version != 2 {
		t.Errorf("versions = %d, %d, want 1, 2", first.Version, second.Version)
	}

	if got, _ := f.documents.List(ctx, dev, nil); len(got) != 0 {
		t.Errorf("list without project id returned %d", len(got))
	}
	if got, _ := f.documents.List(ctx, outsider, &p.ID); len(got) != 0 {
		t.Errorf("outsider list returned %d", len(got))
	}
	if got, _ := f.documents.List(ctx, dev, &p.ID); len(got) != 2 {
		t.Errorf("member list returned %d, want 2", len(got))
	}
	missing := int64(777777)
	if got, err := f.documents.List(ctx, dev, &missing); err != nil || len(got) != 0 {
		t.Errorf("unknown project: %v %d", err, len(got))
	}

	if _, err := f.documents.Create(ctx, dev, DocumentInput{Name: "x", File: "y"}); !apperr.IsValidation(err) {
		t.Errorf("missing project_id: %v", err)
	}
}

func TestNotificationsMarkRead(t *testing.T) {
	f := newFixture(t, authz.Policy{})
	ctx := context.Background()
	manager := f.user(t, "m@example.com", model.RoleManager)
	dev := f.user(t, "d@example.com", model.RoleDeveloper)
	p := f.project(t, manager, "Apollo", dev)
	if _, err := f.tasks.Create(ctx, manager, TaskInput{ProjectID: p.ID, Title: "t"}); err != nil {
		t.Fatal(err)
	}

	n := f.inbox(t, dev)[0]

	if _, err := f.notifications.MarkRead(ctx, manager, n.ID); !apperr.IsNotFound(err) {
		t.Errorf("marking another user's notification: %v", err)
	}
	if _, err := f.notifications.MarkRead(ctx, f.superuser(t), n.ID); !apperr.IsNotFound(err) {
		t.Errorf("superuser marking another user's notification: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := f.notifications.MarkRead(ctx, dev, n.ID)
		if err != nil || !got.IsRead {
			t.Fatalf("MarkRead #%d: %v", i+1, err)
		}
	}

	if all := f.inbox(t, dev); len(all) != 1 {
		t.Errorf("notifications = %d after marking twice, want 1", len(all))
	}
	unread, _ := f.notifications.List(ctx, dev, true)
	if len(unread) != 0 {
		t.Errorf("unread = %d, want 0", len(unread))
	}
}

func TestTimelineScope(t *testing.T) {
	f := newFixture(t, authz.Policy{})
	ctx := context.Background()
	manager := f.user(t, "m@example.com", model.RoleManager)
	dev := f.user(t, "d@example.com", model.RoleDeveloper)
	outsider := f.user(t, "o@example.com", model.RoleDeveloper)
	p := f.project(t, manager, "Apollo", dev)

	for _, title := range []string{"one", "two"} {
		if _, err := f.tasks.Create(ctx, manager, TaskInput{ProjectID: p.ID, Title: title}); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := f.timeline.List(ctx, dev, nil)
	if len(got) != 2 || got[0].Description != "Task 'two' was created." {
		t.Errorf("member timeline = %+v", got)
	}
	if got, _ := f.timeline.List(ctx, outsider, nil); len(got) != 0 {
		t.Errorf("outsider timeline = %d rows", len(got))
	}
	if got, _ := f.timeline.List(ctx, f.superuser(t), &p.ID); len(got) != 2 {
		t.Errorf("superuser timeline = %d rows, want 2", len(got))
	}
}
