package workflow

import (
	"testing"
	"time"

	"manuscript-review-api/models"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func completed(reviewerID string, version int) models.ReviewSubmission {
	return models.ReviewSubmission{
		ID:                      reviewerID + "-v" + string(rune('0'+version)),
		ReviewerID:              reviewerID,
		ManuscriptVersionNumber: version,
		Status:                  models.SubmissionCompleted,
		CompletedAt:             testNow,
	}
}

func decisions(pairs ...string) map[string]models.ReviewerDecision {
	out := make(map[string]models.ReviewerDecision)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = models.ReviewerDecision{Decision: models.ReviewingDecision(pairs[i+1])}
	}
	return out
}

func TestComputeStatus(t *testing.T) {
	cases := []struct {
		name        string
		decisions   map[string]models.ReviewerDecision
		assigned    []string
		submissions []models.ReviewSubmission
		want        models.ManuscriptStatus
	}{
		{
			name: "no reviewers assigned",
			want: models.StatusAssigningPeerReviewer,
		},
		{
			name:      "assigned but nobody answered",
			decisions: decisions("r1", "", "r2", ""),
			assigned:  []string{"r1", "r2"},
			want:      models.StatusPeerReviewerAssigned,
		},
		{
			name:      "one accepted one pending",
			decisions: decisions("r1", "accept", "r2", ""),
			assigned:  []string{"r1", "r2"},
			want:      models.StatusPeerReviewerReviewing,
		},
		{
			name:      "all decided but accepted reviewer has not submitted",
			decisions: decisions("r1", "accept", "r2", "reject"),
			assigned:  []string{"r1", "r2"},
			want:      models.StatusPeerReviewerReviewing,
		},
		{
			name:        "rejecting reviewer does not need to submit",
			decisions:   decisions("r1", "accept", "r2", "reject"),
			assigned:    []string{"r1", "r2"},
			submissions: []models.ReviewSubmission{completed("r1", 1)},
			want:        models.StatusBackToAdmin,
		},
		{
			name:        "submission for another version does not count",
			decisions:   decisions("r1", "accept"),
			assigned:    []string{"r1"},
			submissions: []models.ReviewSubmission{completed("r1", 2)},
			want:        models.StatusPeerReviewerReviewing,
		},
		{
			name:        "backed out reviewer counts as declined",
			decisions:   decisions("r1", "accept", "r2", "backedOut"),
			assigned:    []string{"r1", "r2"},
			submissions: []models.ReviewSubmission{completed("r1", 1), completed("r2", 1)},
			want:        models.StatusBackToAdmin,
		},
		{
			name:      "archived undecided reviewer blocks completion",
			decisions: decisions("r1", "accept", "old", ""),
			assigned:  []string{"r1"},
			submissions: []models.ReviewSubmission{
				completed("r1", 1),
			},
			want: models.StatusPeerReviewerReviewing,
		},
		{
			name:      "unknown decision value is pending",
			decisions: decisions("r1", "maybe"),
			assigned:  []string{"r1"},
			want:      models.StatusPeerReviewerAssigned,
		},
		{
			name:      "reviewer without decision entry is pending",
			decisions: decisions("r1", "accept"),
			assigned:  []string{"r1", "r2"},
			want:      models.StatusPeerReviewerReviewing,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeStatus(tc.decisions, tc.assigned, tc.submissions, 1)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestComputeStatusIsDeterministic(t *testing.T) {
	d := decisions("r1", "accept", "r2", "reject", "r3", "")
	assigned := []string{"r1", "r2", "r3"}
	subs := []models.ReviewSubmission{completed("r1", 1)}

	first := ComputeStatus(d, assigned, subs, 1)
	for i := 0; i < 50; i++ {
		if got := ComputeStatus(d, assigned, subs, 1); got != first {
			t.Fatalf("run %d: expected %q, got %q", i, first, got)
		}
	}
}

func TestComputeStatusCompletionIsMonotonic(t *testing.T) {
	d := decisions("r1", "accept", "r2", "accept")
	assigned := []string{"r1", "r2"}

	var subs []models.ReviewSubmission
	if got := ComputeStatus(d, assigned, subs, 1); got != models.StatusPeerReviewerReviewing {
		t.Fatalf("expected reviewing before submissions, got %q", got)
	}

	subs = append(subs, completed("r1", 1))
	if got := ComputeStatus(d, assigned, subs, 1); got != models.StatusPeerReviewerReviewing {
		t.Fatalf("expected reviewing with one submission, got %q", got)
	}

	subs = append(subs, completed("r2", 1))
	if got := ComputeStatus(d, assigned, subs, 1); got != models.StatusBackToAdmin {
		t.Fatalf("expected back to admin once all submitted, got %q", got)
	}

	// A duplicate submission must not move the status anywhere.
	subs = append(subs, completed("r2", 1))
	if got := ComputeStatus(d, assigned, subs, 1); got != models.StatusBackToAdmin {
		t.Fatalf("expected back to admin after duplicate, got %q", got)
	}
}

func TestDedupeSubmissionsKeepsFirstCompletedPerVersion(t *testing.T) {
	first := completed("r1", 1)
	first.Comment = "first"
	dup := completed("r1", 1)
	dup.Comment = "second"
	draft := models.ReviewSubmission{ReviewerID: "r2", ManuscriptVersionNumber: 1, Status: "Draft"}

	out := DedupeSubmissions([]models.ReviewSubmission{first, dup, completed("r1", 2), draft})
	if len(out) != 2 {
		t.Fatalf("expected 2 canonical submissions, got %d", len(out))
	}
	if out[0].Comment != "first" {
		t.Fatalf("expected first submission to win, got %q", out[0].Comment)
	}
	if out[1].ManuscriptVersionNumber != 2 {
		t.Fatalf("expected version 2 entry, got %+v", out[1])
	}
}

func TestFilterAcceptedAndRejectedReviewers(t *testing.T) {
	d := map[string]models.ReviewerDecision{
		"r1": {Decision: models.DecisionAccept, Recommendation: models.RecommendationPublication},
		"r2": {Decision: models.DecisionReject},
		"r3": {Decision: models.DecisionAccept, Recommendation: models.RecommendationReject},
		"r4": {Decision: models.DecisionBackedOut},
		"r5": {Decision: models.DecisionAccept},
	}
	reviewers := []string{"r1", "r2", "r3", "r4", "r5", "missing"}

	accepted := FilterAcceptedReviewers(d, reviewers)
	if len(accepted) != 2 || accepted[0] != "r1" || accepted[1] != "r5" {
		t.Fatalf("unexpected accepted reviewers: %v", accepted)
	}

	rejected := FilterRejectedReviewers(d, reviewers)
	if len(rejected) != 2 || rejected[0] != "r2" || rejected[1] != "r3" {
		t.Fatalf("unexpected rejected reviewers: %v", rejected)
	}
}

func TestBackedOutBelongsToNeitherFamily(t *testing.T) {
	withdrawn := models.ReviewerDecision{Decision: models.DecisionBackedOut}
	if IsAcceptedFamily(withdrawn) || IsRejectedFamily(withdrawn) {
		t.Fatalf("backedOut must not count as accepted or rejected")
	}
	if !IsRejectedFamily(models.ReviewerDecision{Decision: models.DecisionAccept, Recommendation: models.RecommendationReject}) {
		t.Fatalf("an accepted invitation recommending rejection is in the rejected family")
	}
}

func TestCheckAllReviewsCompleted(t *testing.T) {
	m := &models.Manuscript{
		VersionNumber:     1,
		AssignedReviewers: []string{"r1", "r2"},
		AssignedReviewersMeta: map[string]models.ReviewerAssignment{
			"r1": {InvitationStatus: models.InvitationAccepted},
			"r2": {InvitationStatus: models.InvitationDeclined},
		},
		ReviewerDecisionMeta: decisions("r1", "accept", "r2", "reject"),
	}
	if CheckAllReviewsCompleted(m) {
		t.Fatalf("expected incomplete without r1's submission")
	}

	m.ReviewerSubmissions = []models.ReviewSubmission{completed("r1", 1)}
	if !CheckAllReviewsCompleted(m) {
		t.Fatalf("expected complete once r1 submitted")
	}

	if CheckAllReviewsCompleted(&models.Manuscript{VersionNumber: 1}) {
		t.Fatalf("expected manuscript without reviewers to be incomplete")
	}
}
