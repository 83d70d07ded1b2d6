package workflow

import (
	"time"

	"manuscript-review-api/models"
)

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ReviewOutstanding reports whether the reviewer still owes a review for the
// current version.
func ReviewOutstanding(m *models.Manuscript, reviewerID string, meta models.ReviewerAssignment) bool {
	if meta.InvitationStatus == models.InvitationDeclined {
		return false
	}
	switch m.ReviewerDecisionMeta[reviewerID].Decision {
	case models.DecisionReject, models.DecisionBackedOut:
		return false
	}
	return !HasCompletedSubmission(m.ReviewerSubmissions, reviewerID, m.VersionNumber)
}

// ResolveActiveDeadline returns the single deadline the viewer should see,
// or nil when none applies. Rules are evaluated in order; the first that
// matches wins.
func ResolveActiveDeadline(m *models.Manuscript, viewer models.CurrentUser) *time.Time {
	if m == nil || m.Status.IsClosed() {
		return nil
	}

	switch {
	case m.Status == models.StatusBackToAdmin:
		return copyTime(m.FinalizationDeadline)
	case m.Status.IsRevision():
		return copyTime(m.RevisionDeadline)
	}

	switch viewer.Role {
	case models.RolePeerReviewer:
		if meta, ok := m.AssignedReviewersMeta[viewer.ID]; ok && m.IsAssigned(viewer.ID) &&
			meta.Deadline != nil && ReviewOutstanding(m, viewer.ID, meta) {
			return copyTime(meta.Deadline)
		}
	case models.RoleAdmin, models.RoleResearcher:
		if d := latestReviewerDeadline(m); d != nil {
			return d
		}
	}

	if m.InvitationDeadline != nil {
		return copyTime(m.InvitationDeadline)
	}
	return copyTime(m.ReviewDeadline)
}

// latestReviewerDeadline picks the deadline of the most recently invited
// reviewer who still owes a review on the current version. Equal invite
// times are broken by the later deadline.
func latestReviewerDeadline(m *models.Manuscript) *time.Time {
	var (
		best       *time.Time
		bestInvite time.Time
	)
	for _, id := range m.AssignedReviewers {
		meta, ok := m.AssignedReviewersMeta[id]
		if !ok || meta.Deadline == nil {
			continue
		}
		if len(meta.AssignedVersions) > 0 && !meta.HasVersion(m.VersionNumber) {
			continue
		}
		if !ReviewOutstanding(m, id, meta) {
			continue
		}
		switch {
		case best == nil,
			meta.AssignedAt.After(bestInvite),
			meta.AssignedAt.Equal(bestInvite) && meta.Deadline.After(*best):
			best = meta.Deadline
			bestInvite = meta.AssignedAt
		}
	}
	return copyTime(best)
}
