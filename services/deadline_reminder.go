package services

import (
	"context"
	"log"
	"time"

	"manuscript-review-api/models"
	"manuscript-review-api/store"
	"manuscript-review-api/workflow"
)

// ReminderSummary counts what one reminder sweep sent.
type ReminderSummary struct {
	Scanned   int `json:"scanned"`
	Reviewers int `json:"reviewers"`
	Authors   int `json:"authors"`
	Failed    int `json:"failed"`
}

var reminderStatuses = []models.ManuscriptStatus{
	models.StatusPeerReviewerAssigned,
	models.StatusPeerReviewerReviewing,
	models.StatusForRevisionMinor,
	models.StatusForRevisionMajor,
}

func dueWithin(deadline *time.Time, now time.Time, lead time.Duration) bool {
	return deadline != nil && !deadline.After(now.Add(lead))
}

// SendDeadlineReminders notifies reviewers whose review or invitation
// deadline falls within the reminder lead, and authors whose revision
// deadline does. Each deadline is reminded once; the sent marker is written
// with a field-path patch.
func (s *ManuscriptService) SendDeadlineReminders(ctx context.Context) (*ReminderSummary, error) {
	sum := &ReminderSummary{}
	now := s.now()
	cursor := ""
	for {
		page, next, err := s.manuscripts.ListManuscripts(ctx, store.ManuscriptQuery{Statuses: reminderStatuses, Cursor: cursor})
		if err != nil {
			return sum, fromStore(err, "manuscripts")
		}
		for i := range page {
			sum.Scanned++
			s.remindManuscript(ctx, &page[i], now, sum)
		}
		if next == "" {
			return sum, nil
		}
		cursor = next
	}
}

func (s *ManuscriptService) remindManuscript(ctx context.Context, m *models.Manuscript, now time.Time, sum *ReminderSummary) {
	lead := s.settings.ReminderLead

	if m.Status.IsRevision() {
		if m.RevisionReminderSentAt != nil || !dueWithin(m.RevisionDeadline, now, lead) {
			return
		}
		n, ok := s.eventNotice(m, workflow.EventRevisionReminder, m.AuthorIDs(), m.RevisionDeadline)
		if !ok {
			return
		}
		if s.sendReminder(ctx, m, n, []store.FieldUpdate{{Path: []string{"revisionReminderSentAt"}, Value: now}}) {
			sum.Authors++
		} else {
			sum.Failed++
		}
		return
	}

	for _, rid := range m.AssignedReviewers {
		meta, ok := m.AssignedReviewersMeta[rid]
		if !ok || meta.ReminderSentAt != nil || !dueWithin(meta.Deadline, now, lead) {
			continue
		}
		if !workflow.ReviewOutstanding(m, rid, meta) {
			continue
		}
		n, ok := s.eventNotice(m, workflow.EventReviewerReminder, []string{rid}, meta.Deadline)
		if !ok {
			continue
		}
		patch := []store.FieldUpdate{{Path: []string{"assignedReviewersMeta", rid, "reminderSentAt"}, Value: now}}
		if s.sendReminder(ctx, m, n, patch) {
			sum.Reviewers++
		} else {
			sum.Failed++
		}
	}
}

// sendReminder marks the reminder sent first so a failed notification is not
// retried on every sweep.
func (s *ManuscriptService) sendReminder(ctx context.Context, m *models.Manuscript, n notice, marker []store.FieldUpdate) bool {
	if err := s.manuscripts.PatchManuscript(ctx, m.ID, marker); err != nil {
		log.Printf("[reminder] failed to mark reminder on %s: %v", m.ID, err)
		return false
	}
	if s.notifier == nil {
		return true
	}
	if err := s.notifier.Notify(ctx, n.userIDs, n.kind, n.title, n.message, map[string]string{"manuscript_id": m.ID}); err != nil {
		sideEffectFailures.WithLabelValues("notification").Inc()
		log.Printf("[reminder] notification for %s failed: %v", m.ID, err)
		return false
	}
	return true
}
