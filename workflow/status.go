// Package workflow holds the side-effect free rules of the review workflow:
// canonical status derivation, reviewer visibility, deadline resolution and
// the admin transition table. Nothing here performs I/O or reads the clock,
// so every function is safe to call from any goroutine.
package workflow

import "manuscript-review-api/models"

// submissionKey identifies the canonical submission for a reviewer and version.
type submissionKey struct {
	reviewerID string
	version    int
}

// DedupeSubmissions keeps the first Completed submission per
// (reviewer, version) pair and drops everything else.
func DedupeSubmissions(submissions []models.ReviewSubmission) []models.ReviewSubmission {
	seen := make(map[submissionKey]struct{}, len(submissions))
	out := make([]models.ReviewSubmission, 0, len(submissions))
	for _, s := range submissions {
		if s.Status != models.SubmissionCompleted || s.ReviewerID == "" {
			continue
		}
		key := submissionKey{s.ReviewerID, s.ManuscriptVersionNumber}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func completedIndex(submissions []models.ReviewSubmission) map[submissionKey]struct{} {
	index := make(map[submissionKey]struct{}, len(submissions))
	for _, s := range DedupeSubmissions(submissions) {
		index[submissionKey{s.ReviewerID, s.ManuscriptVersionNumber}] = struct{}{}
	}
	return index
}

// HasCompletedSubmission reports whether reviewerID filed a Completed review
// for version.
func HasCompletedSubmission(submissions []models.ReviewSubmission, reviewerID string, version int) bool {
	for _, s := range submissions {
		if s.Status == models.SubmissionCompleted && s.ReviewerID == reviewerID && s.ManuscriptVersionNumber == version {
			return true
		}
	}
	return false
}

// CanonicalSubmission returns the first Completed submission for the pair.
func CanonicalSubmission(submissions []models.ReviewSubmission, reviewerID string, version int) (models.ReviewSubmission, bool) {
	for _, s := range submissions {
		if s.Status == models.SubmissionCompleted && s.ReviewerID == reviewerID && s.ManuscriptVersionNumber == version {
			return s, true
		}
	}
	return models.ReviewSubmission{}, false
}

func decisionOf(decisions map[string]models.ReviewerDecision, reviewerID string) models.ReviewingDecision {
	d, ok := decisions[reviewerID]
	if !ok || !d.Decision.Known() {
		return models.DecisionNone
	}
	return d.Decision
}

// ComputeStatus derives the canonical status from the decision map (keyed by
// every reviewer ever assigned in this version, current and archived), the
// current assignment set and the submission log. Only reviewers who accepted
// the request must file a review; rejecting or backing out counts as a
// decision that needs no submission.
func ComputeStatus(decisions map[string]models.ReviewerDecision, assigned []string, submissions []models.ReviewSubmission, version int) models.ManuscriptStatus {
	if len(assigned) == 0 {
		return models.StatusAssigningPeerReviewer
	}

	reviewers := AppendUnique(append([]string(nil), assigned...), sortedKeys(decisions)...)
	decided := 0
	for _, id := range reviewers {
		if decisionOf(decisions, id) != models.DecisionNone {
			decided++
		}
	}

	if decided == len(reviewers) {
		index := completedIndex(submissions)
		for _, id := range assigned {
			if decisionOf(decisions, id) != models.DecisionAccept {
				continue
			}
			if _, ok := index[submissionKey{id, version}]; !ok {
				return models.StatusPeerReviewerReviewing
			}
		}
		return models.StatusBackToAdmin
	}
	if decided > 0 {
		return models.StatusPeerReviewerReviewing
	}
	return models.StatusPeerReviewerAssigned
}

// StatusFor applies ComputeStatus to a manuscript snapshot.
func StatusFor(m *models.Manuscript) models.ManuscriptStatus {
	return ComputeStatus(m.ReviewerDecisionMeta, m.AssignedReviewers, m.ReviewerSubmissions, m.VersionNumber)
}

// IsAcceptedFamily reports whether a decision counts as accepted: the
// reviewer took the review and did not recommend rejection.
func IsAcceptedFamily(d models.ReviewerDecision) bool {
	if d.Decision != models.DecisionAccept {
		return false
	}
	return d.Recommendation != models.RecommendationReject
}

// IsRejectedFamily reports whether a decision counts as rejected: the
// reviewer turned the request down or recommended rejection. A backedOut
// reviewer is in neither family.
func IsRejectedFamily(d models.ReviewerDecision) bool {
	if d.Decision == models.DecisionReject {
		return true
	}
	return d.Decision == models.DecisionAccept && d.Recommendation == models.RecommendationReject
}

// FilterAcceptedReviewers returns the reviewers whose decision is in the
// accepted family, preserving input order.
func FilterAcceptedReviewers(decisions map[string]models.ReviewerDecision, reviewers []string) []string {
	out := make([]string, 0, len(reviewers))
	for _, id := range reviewers {
		if d, ok := decisions[id]; ok && IsAcceptedFamily(d) {
			out = append(out, id)
		}
	}
	return out
}

// FilterRejectedReviewers returns the reviewers whose decision is in the
// rejected family, preserving input order.
func FilterRejectedReviewers(decisions map[string]models.ReviewerDecision, reviewers []string) []string {
	out := make([]string, 0, len(reviewers))
	for _, id := range reviewers {
		if d, ok := decisions[id]; ok && IsRejectedFamily(d) {
			out = append(out, id)
		}
	}
	return out
}

// PendingInvitations lists assigned reviewers who have not answered yet.
func PendingInvitations(m *models.Manuscript) []string {
	var pending []string
	for _, id := range m.AssignedReviewers {
		meta, ok := m.AssignedReviewersMeta[id]
		if !ok || meta.InvitationStatus == models.InvitationPending || meta.InvitationStatus == "" {
			pending = append(pending, id)
		}
	}
	return pending
}

// CheckAllReviewsCompleted reports whether every non-declined assigned
// reviewer has a completed submission for the current version.
func CheckAllReviewsCompleted(m *models.Manuscript) bool {
	if len(m.AssignedReviewers) == 0 {
		return false
	}
	for _, id := range m.AssignedReviewers {
		meta := m.AssignedReviewersMeta[id]
		d := decisionOf(m.ReviewerDecisionMeta, id)
		if meta.InvitationStatus == models.InvitationDeclined || d == models.DecisionReject || d == models.DecisionBackedOut {
			continue
		}
		if !HasCompletedSubmission(m.ReviewerSubmissions, id, m.VersionNumber) {
			return false
		}
	}
	return true
}
