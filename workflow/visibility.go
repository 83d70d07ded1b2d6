package workflow

import "manuscript-review-api/models"

// AllReviewers returns every reviewer ever attached to the manuscript in any
// version: current, archived, unassigned and anyone with a submission.
func AllReviewers(m *models.Manuscript) []string {
	ids := AppendUnique(nil, m.AssignedReviewers...)
	ids = AppendUnique(ids, m.OriginalAssignedReviewers...)
	ids = AppendUnique(ids, m.PreviousReviewers...)
	ids = AppendUnique(ids, sortedKeys(m.AssignedReviewersMeta)...)
	ids = AppendUnique(ids, sortedKeys(m.OriginalAssignedReviewersMeta)...)
	for _, s := range m.ReviewerSubmissions {
		ids = AppendUnique(ids, s.ReviewerID)
	}
	return ids
}

// MetaFor returns the reviewer's current assignment, falling back to the
// archived one.
func MetaFor(m *models.Manuscript, reviewerID string) (models.ReviewerAssignment, bool) {
	if meta, ok := m.AssignedReviewersMeta[reviewerID]; ok {
		return meta, true
	}
	meta, ok := m.OriginalAssignedReviewersMeta[reviewerID]
	return meta, ok
}

// feedbackReleased reports whether reviews for version may be shown to
// authors. The latest version stays hidden while it is under review.
func feedbackReleased(m *models.Manuscript, version int) bool {
	if version < m.VersionNumber {
		return true
	}
	return !m.Status.IsReviewActive() && m.Status != models.StatusPending
}

// contradictsOutcome reports whether showing the reviewer would present them
// as responsible for an outcome opposite to their own input.
func contradictsOutcome(status models.ManuscriptStatus, d models.ReviewerDecision) bool {
	switch status {
	case models.StatusForPublication:
		return IsRejectedFamily(d)
	case models.StatusRejected, models.StatusPeerReviewerRejected:
		return IsAcceptedFamily(d)
	}
	return false
}

// outcomeDecision returns the reviewer's input for version. Closing a round
// drops the decision entries of reviewers who are let go, so their canonical
// submission or declined invitation stands in for the missing entry.
func outcomeDecision(m *models.Manuscript, reviewerID string, version int) models.ReviewerDecision {
	d, ok := m.ReviewerDecisionMeta[reviewerID]
	if ok && d.Decision.Known() {
		if d.Recommendation == models.RecommendationNone {
			if sub, found := CanonicalSubmission(m.ReviewerSubmissions, reviewerID, version); found {
				d.Recommendation = sub.Recommendation
			}
		}
		return d
	}
	if sub, found := CanonicalSubmission(m.ReviewerSubmissions, reviewerID, version); found {
		return models.ReviewerDecision{Decision: models.DecisionAccept, Recommendation: sub.Recommendation}
	}
	if meta, found := MetaFor(m, reviewerID); found && meta.InvitationStatus == models.InvitationDeclined {
		return models.ReviewerDecision{Decision: models.DecisionReject}
	}
	return models.ReviewerDecision{}
}

// droppedAtClose reports whether reviewerID was let go when the current
// round closed as For Publication or Peer Reviewer Rejected. Those
// transitions keep exactly the reviewers whose input matches the outcome.
func droppedAtClose(m *models.Manuscript, reviewerID string) bool {
	switch m.Status {
	case models.StatusForPublication, models.StatusPeerReviewerRejected:
		return !m.IsAssigned(reviewerID)
	}
	return false
}

// contradictsCurrent combines both checks for the current version.
func contradictsCurrent(m *models.Manuscript, reviewerID string) bool {
	return droppedAtClose(m, reviewerID) ||
		contradictsOutcome(m.Status, outcomeDecision(m, reviewerID, m.VersionNumber))
}

// IsReviewerVisible decides whether viewer may see reviewerID's identity,
// decision and submission for the given version of m.
func IsReviewerVisible(m *models.Manuscript, reviewerID string, viewer models.CurrentUser, version int) bool {
	if reviewerID == "" {
		return false
	}
	if version <= 0 {
		version = m.VersionNumber
	}
	meta, hasMeta := MetaFor(m, reviewerID)

	switch viewer.Role {
	case models.RoleAdmin:
		return contains(AllReviewers(m), reviewerID)

	case models.RolePeerReviewer:
		if viewer.ID != reviewerID || !hasMeta {
			return false
		}
		assignedNow := version == m.VersionNumber && m.IsAssigned(reviewerID) &&
			(len(meta.AssignedVersions) == 0 || meta.HasVersion(version))
		submitted := HasCompletedSubmission(m.ReviewerSubmissions, reviewerID, version)
		if !assignedNow && !submitted {
			return false
		}
		if version == m.VersionNumber && contradictsCurrent(m, reviewerID) {
			return false
		}
		return true

	case models.RoleResearcher:
		if !m.IsAuthor(viewer.ID) || !feedbackReleased(m, version) {
			return false
		}
		if !HasCompletedSubmission(m.ReviewerSubmissions, reviewerID, version) {
			return false
		}
		if version < m.VersionNumber {
			// A completed review for an earlier round implies the
			// invitation was accepted for that round.
			return true
		}
		if !hasMeta || meta.InvitationStatus != models.InvitationAccepted {
			return false
		}
		return !contradictsCurrent(m, reviewerID)
	}
	return false
}

// VisibleReviewers filters AllReviewers by IsReviewerVisible.
func VisibleReviewers(m *models.Manuscript, viewer models.CurrentUser, version int) []string {
	out := make([]string, 0)
	for _, id := range AllReviewers(m) {
		if IsReviewerVisible(m, id, viewer, version) {
			out = append(out, id)
		}
	}
	return out
}

// VisibleSubmissions returns the canonical submissions viewer may read,
// across every version of the manuscript.
func VisibleSubmissions(m *models.Manuscript, viewer models.CurrentUser) []models.ReviewSubmission {
	out := make([]models.ReviewSubmission, 0)
	for _, s := range DedupeSubmissions(m.ReviewerSubmissions) {
		if IsReviewerVisible(m, s.ReviewerID, viewer, s.ManuscriptVersionNumber) {
			out = append(out, s)
		}
	}
	return out
}
