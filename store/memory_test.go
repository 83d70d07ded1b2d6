package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"manuscript-review-api/models"
)

func seedManuscript(t *testing.T, s *MemoryStore, id string) *models.Manuscript {
	t.Helper()
	m := &models.Manuscript{
		ID:                id,
		AuthorID:          "author",
		Status:            models.StatusPeerReviewerAssigned,
		VersionNumber:     1,
		AssignedReviewers: []string{"r-1"},
		AssignedReviewersMeta: map[string]models.ReviewerAssignment{
			"r-1": {InvitationStatus: models.InvitationPending, AssignedVersions: []int{1}},
		},
	}
	m.EnsureMaps()
	if err := s.CreateManuscript(context.Background(), m); err != nil {
		t.Fatalf("create: %v", err)
	}
	return m
}

func TestMemoryReplaceRequiresCurrentRevision(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedManuscript(t, s, "m1")

	a, _ := s.GetManuscript(ctx, "m1")
	b, _ := s.GetManuscript(ctx, "m1")

	a.Title = "first"
	if err := s.ReplaceManuscript(ctx, a, a.Revision); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	b.Title = "second"
	if err := s.ReplaceManuscript(ctx, b, b.Revision); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, _ := s.GetManuscript(ctx, "m1")
	if got.Title != "first" || got.Revision != 2 {
		t.Fatalf("unexpected stored document: %+v", got)
	}
}

func TestMemoryReadsAreIndependentCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedManuscript(t, s, "m1")

	a, _ := s.GetManuscript(ctx, "m1")
	a.AssignedReviewers[0] = "mutated"
	b, _ := s.GetManuscript(ctx, "m1")
	if b.AssignedReviewers[0] != "r-1" {
		t.Fatalf("read returned shared state")
	}
}

func TestMemoryPatchKeepsSiblingEntries(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedManuscript(t, s, "m1")

	m, _ := s.GetManuscript(ctx, "m1")
	m.AssignedReviewersMeta["r-2"] = models.ReviewerAssignment{InvitationStatus: models.InvitationAccepted}
	if err := s.ReplaceManuscript(ctx, m, m.Revision); err != nil {
		t.Fatalf("replace: %v", err)
	}

	deadline := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	err := s.PatchManuscript(ctx, "m1", []FieldUpdate{{Path: []string{"assignedReviewersMeta", "r-1", "deadline"}, Value: deadline}})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	got, _ := s.GetManuscript(ctx, "m1")
	if d := got.AssignedReviewersMeta["r-1"].Deadline; d == nil || !d.Equal(deadline) {
		t.Fatalf("expected patched deadline, got %v", d)
	}
	if got.AssignedReviewersMeta["r-1"].InvitationStatus != models.InvitationPending {
		t.Fatalf("patch clobbered sibling field")
	}
	if got.AssignedReviewersMeta["r-2"].InvitationStatus != models.InvitationAccepted {
		t.Fatalf("patch clobbered sibling reviewer")
	}
	if got.Revision != m.Revision+1 {
		t.Fatalf("expected patch to bump revision, got %d", got.Revision)
	}
}

func TestMemoryPatchRejectsNonObjectParent(t *testing.T) {
	s := NewMemoryStore()
	seedManuscript(t, s, "m1")
	err := s.PatchManuscript(context.Background(), "m1", []FieldUpdate{{Path: []string{"title", "nested"}, Value: 1}})
	if err == nil {
		t.Fatalf("expected error patching through a scalar")
	}
}

func TestMemoryListFiltersAndPaginates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		seedManuscript(t, s, fmt.Sprintf("m%d", i))
	}
	other := &models.Manuscript{ID: "m6", AuthorID: "someone", Status: models.StatusPending, VersionNumber: 1}
	if err := s.CreateManuscript(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, next, err := s.ListManuscripts(ctx, ManuscriptQuery{AuthorID: "author", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != "m1" || next != "m2" {
		t.Fatalf("unexpected first page %v next=%q", page, next)
	}

	page, next, _ = s.ListManuscripts(ctx, ManuscriptQuery{AuthorID: "author", Limit: 2, Cursor: "m4"})
	if len(page) != 1 || page[0].ID != "m5" || next != "" {
		t.Fatalf("unexpected last page %v next=%q", page, next)
	}

	page, _, _ = s.ListManuscripts(ctx, ManuscriptQuery{Statuses: []models.ManuscriptStatus{models.StatusPending}})
	if len(page) != 1 || page[0].ID != "m6" {
		t.Fatalf("unexpected status filter result %v", page)
	}

	page, _, _ = s.ListManuscripts(ctx, ManuscriptQuery{ReviewerID: "r-1"})
	if len(page) != 5 {
		t.Fatalf("expected reviewer filter to match 5, got %d", len(page))
	}
}

func TestMemoryArchiveCompletedReviewOncePerVersion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	review := models.CompletedReview{ManuscriptID: "m1", ReviewerID: "r1", VersionNumber: 1, SubmissionID: "s1"}
	for i := 0; i < 3; i++ {
		if err := s.ArchiveCompletedReview(ctx, review); err != nil {
			t.Fatalf("archive: %v", err)
		}
	}
	review.VersionNumber = 2
	_ = s.ArchiveCompletedReview(ctx, review)

	if got := s.CompletedReviews("m1"); len(got) != 2 {
		t.Fatalf("expected 2 archived reviews, got %d", len(got))
	}
}

func TestMemoryUsersAndCounters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.CreateUser(ctx, &models.User{UserID: "r1", Email: "r1@example.org", Role: models.RolePeerReviewer})
	_ = s.CreateUser(ctx, &models.User{UserID: "a1", Email: "a1@example.org", Role: models.RoleAdmin})
	if err := s.CreateUser(ctx, &models.User{UserID: "dup", Email: "R1@example.org"}); err == nil {
		t.Fatalf("expected duplicate email error")
	}

	if err := s.IncrementReviewerCounter(ctx, "r1", models.CounterRejectedManuscripts, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	u, err := s.GetUserByEmail(ctx, "R1@EXAMPLE.ORG")
	if err != nil || u.RejectedManuscripts != 1 {
		t.Fatalf("unexpected user %+v err=%v", u, err)
	}
	if err := s.IncrementReviewerCounter(ctx, "ghost", models.CounterRejectedManuscripts, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ids, _ := s.ListUserIDsByRole(ctx, models.RoleAdmin)
	if len(ids) != 1 || ids[0] != "a1" {
		t.Fatalf("unexpected admins %v", ids)
	}
}

func TestMemoryNotifications(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rows := []models.Notification{
		{UserID: "u1", Title: "one"},
		{UserID: "u2", Title: "other"},
		{UserID: "u1", Title: "two"},
	}
	if err := s.CreateNotifications(ctx, rows); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rows[2].NotificationID != 3 {
		t.Fatalf("expected ids to be assigned, got %d", rows[2].NotificationID)
	}

	if err := s.MarkNotificationRead(ctx, "u1", rows[0].NotificationID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := s.MarkNotificationRead(ctx, "u2", rows[0].NotificationID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other users to be refused, got %v", err)
	}

	unread, _ := s.ListNotifications(ctx, "u1", true, 0)
	if len(unread) != 1 || unread[0].Title != "two" {
		t.Fatalf("unexpected unread list %+v", unread)
	}
	all, _ := s.ListNotifications(ctx, "u1", false, 0)
	if len(all) != 2 || all[0].Title != "two" {
		t.Fatalf("expected newest first, got %+v", all)
	}
}
