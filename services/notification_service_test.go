package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"manuscript-review-api/models"
	"manuscript-review-api/store"
)

type sentMail struct {
	to      []string
	subject string
	html    string
}

func newTestNotificationService(t *testing.T, mail bool) (*NotificationService, *store.MemoryStore, *[]sentMail) {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()
	for _, u := range []models.User{
		{UserID: "u1", UserFname: "Ada", UserLname: "Lovelace", Email: "ada@example.org", Role: models.RoleResearcher},
		{UserID: "u2", Role: models.RolePeerReviewer, Email: "u2@example.org"},
		{UserID: "admin", Role: models.RoleAdmin, Email: "admin@example.org"},
	} {
		u := u
		if err := st.CreateUser(ctx, &u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	var mails []sentMail
	svc := NewNotificationService(st, st)
	svc.baseURL = "https://portal.example.org"
	svc.mailEnabled = func() bool { return mail }
	svc.sendMail = func(to []string, subject, html string) error {
		mails = append(mails, sentMail{to: to, subject: subject, html: html})
		return nil
	}
	return svc, st, &mails
}

func TestNotifyStoresOneRowPerRecipient(t *testing.T) {
	svc, st, mails := newTestNotificationService(t, false)
	ctx := context.Background()

	err := svc.Notify(ctx, []string{"u1", "u2", "u1", ""}, "info", "Manuscript received", "Thanks", map[string]string{"manuscript_id": "m-1"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(*mails) != 0 {
		t.Fatalf("expected no email while SMTP is off")
	}

	rows, err := st.ListNotifications(ctx, "u1", false, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one row for u1, got %d (%v)", len(rows), err)
	}
	row := rows[0]
	if row.RelatedManuscriptID == nil || *row.RelatedManuscriptID != "m-1" || row.IsRead {
		t.Fatalf("unexpected row: %+v", row)
	}
	meta := row.Metadata
	if batch, _ := meta["notification_batch"].(string); batch == "" || meta["manuscript_id"] != "m-1" {
		t.Fatalf("unexpected metadata: %v", meta)
	}

	other, _ := st.ListNotifications(ctx, "u2", false, 10)
	if len(other) != 1 || other[0].Metadata["notification_batch"] != meta["notification_batch"] {
		t.Fatalf("expected recipients of one call to share a batch id")
	}
}

func TestNotifyEmailsRecipients(t *testing.T) {
	svc, _, mails := newTestNotificationService(t, true)

	err := svc.Notify(context.Background(), []string{"u1", "ghost"}, "success", "Accepted", "Your manuscript was accepted.", map[string]string{"manuscript_id": "m-9"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(*mails) != 1 {
		t.Fatalf("expected one email, got %d", len(*mails))
	}
	m := (*mails)[0]
	if m.to[0] != "ada@example.org" || m.subject != "Accepted" {
		t.Fatalf("unexpected email: %+v", m)
	}
	if !strings.Contains(m.html, "Ada Lovelace") || !strings.Contains(m.html, "https://portal.example.org/manuscripts/m-9") {
		t.Fatalf("email body missing greeting or link")
	}
}

func TestNotifyWithNoRecipientsIsNoop(t *testing.T) {
	svc, _, _ := newTestNotificationService(t, true)
	if err := svc.Notify(context.Background(), []string{"", " "}, "info", "t", "m", nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

type countingUsers struct {
	store.UserRepository
	calls int
	err   error
}

func (c *countingUsers) ListUserIDsByRole(ctx context.Context, role models.Role) ([]string, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []string{"admin"}, nil
}

func TestAdminDirectoryCachesLookups(t *testing.T) {
	users := &countingUsers{}
	dir := newAdminDirectory(users)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ids, err := dir.AdminIDs(ctx)
		if err != nil || len(ids) != 1 {
			t.Fatalf("admin ids: %v %v", ids, err)
		}
	}
	if users.calls != 1 {
		t.Fatalf("expected one lookup, got %d", users.calls)
	}

	dir.Clear()
	users.err = errors.New("db down")
	if _, err := dir.AdminIDs(ctx); err == nil {
		t.Fatalf("expected lookup error after clear")
	}
}
