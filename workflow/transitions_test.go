package workflow

import (
	"strings"
	"testing"

	"manuscript-review-api/models"
)

func TestEveryStatusHasTransitionEntry(t *testing.T) {
	for _, status := range models.AllStatuses {
		if _, ok := adminTransitions[status]; !ok {
			t.Fatalf("status %q has no transition entry", status)
		}
		for _, to := range adminTransitions[status] {
			if !to.Valid() {
				t.Fatalf("status %q lists unknown target %q", status, to)
			}
		}
	}
}

func TestGuardBlocksPendingInvitations(t *testing.T) {
	m := reviewedManuscript(models.StatusBackToAdmin)
	meta := m.AssignedReviewersMeta["r2"]
	meta.InvitationStatus = models.InvitationPending
	m.AssignedReviewersMeta["r2"] = meta

	reason := GuardTransition(m, models.StatusForRevisionMajor)
	if !strings.Contains(reason, "pending") {
		t.Fatalf("expected pending invitation guard, got %q", reason)
	}
	if got := AvailableTransitions(m); len(got) != 0 {
		t.Fatalf("expected no available transitions, got %v", got)
	}
}

func TestGuardBackToAdminRequiresCompletedReviews(t *testing.T) {
	m := reviewedManuscript(models.StatusPeerReviewerReviewing)
	m.ReviewerSubmissions = nil

	if reason := GuardTransition(m, models.StatusBackToAdmin); reason == "" {
		t.Fatalf("expected back to admin to be blocked")
	}

	m.ReviewerSubmissions = []models.ReviewSubmission{completed("r1", 1)}
	if reason := GuardTransition(m, models.StatusBackToAdmin); reason != "" {
		t.Fatalf("expected back to admin to be allowed, got %q", reason)
	}
}

func TestGuardRejectsTransitionsOutsideTable(t *testing.T) {
	m := reviewedManuscript(models.StatusPeerReviewerReviewing)
	if reason := GuardTransition(m, models.StatusForPublication); reason == "" {
		t.Fatalf("expected for publication to be blocked from reviewing")
	}
	if reason := GuardTransition(m, models.ManuscriptStatus("Archived")); !strings.Contains(reason, "unknown") {
		t.Fatalf("expected unknown status reason, got %q", reason)
	}
}

func TestAvailableTransitionsFromBackToAdmin(t *testing.T) {
	m := reviewedManuscript(models.StatusBackToAdmin)
	got := AvailableTransitions(m)
	if len(got) != 5 {
		t.Fatalf("expected 5 admin decisions, got %v", got)
	}
}

func TestMessageTableCoversEveryStatus(t *testing.T) {
	table := Messages()
	for _, status := range models.AllStatuses {
		msg, ok := table.ForStatus(status)
		if !ok || msg.Title == "" {
			t.Fatalf("missing message for %q", status)
		}
	}
	for _, key := range []string{EventInvitation, EventReviewerReminder, EventRevisionReminder, EventResubmitted, EventReviewSubmitted, EventUnassigned} {
		if _, ok := table.ForEvent(key); !ok {
			t.Fatalf("missing event message %q", key)
		}
	}
}

func TestParseMessageTableReportsMissingStatuses(t *testing.T) {
	_, err := ParseMessageTable([]byte("statuses:\n  \"Pending\":\n    title: Received\n"))
	if err == nil || !strings.Contains(err.Error(), "Back to Admin") {
		t.Fatalf("expected missing status error, got %v", err)
	}
}

func TestApplyPlaceholders(t *testing.T) {
	got := ApplyPlaceholders(`"{{title}}" v{{version}}`, map[string]string{"title": "Tides", "version": "2"})
	if got != `"Tides" v2` {
		t.Fatalf("unexpected text: %s", got)
	}
}
