package workflow

import "manuscript-review-api/models"

// adminTransitions lists the statuses an admin may move a manuscript to from
// each status. Statuses between Assigning Peer Reviewer and Back to Admin are
// normally reached by recomputation, not by hand.
var adminTransitions = map[models.ManuscriptStatus][]models.ManuscriptStatus{
	models.StatusPending: {
		models.StatusAssigningPeerReviewer,
		models.StatusNonAcceptance,
	},
	models.StatusAssigningPeerReviewer: {
		models.StatusRejected,
		models.StatusNonAcceptance,
	},
	models.StatusPeerReviewerAssigned: {
		models.StatusRejected,
	},
	models.StatusPeerReviewerReviewing: {
		models.StatusBackToAdmin,
		models.StatusRejected,
	},
	models.StatusBackToAdmin: {
		models.StatusForRevisionMinor,
		models.StatusForRevisionMajor,
		models.StatusForPublication,
		models.StatusRejected,
		models.StatusPeerReviewerRejected,
	},
	models.StatusForRevisionMinor: {
		models.StatusRejected,
	},
	models.StatusForRevisionMajor: {
		models.StatusRejected,
	},
	models.StatusForPublication: {
		models.StatusBackToAdmin,
	},
	models.StatusRejected: {
		models.StatusBackToAdmin,
	},
	models.StatusPeerReviewerRejected: {
		models.StatusAssigningPeerReviewer,
		models.StatusRejected,
	},
	models.StatusNonAcceptance: {
		models.StatusPending,
	},
}

// CanTransition reports whether the table allows from -> to.
func CanTransition(from, to models.ManuscriptStatus) bool {
	for _, allowed := range adminTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the table entries for from.
func AllowedTransitions(from models.ManuscriptStatus) []models.ManuscriptStatus {
	allowed := adminTransitions[from]
	out := make([]models.ManuscriptStatus, len(allowed))
	copy(out, allowed)
	return out
}

// GuardTransition checks the preconditions of a manual status change on m.
// It returns an empty string when the change may proceed, or the reason it
// may not.
func GuardTransition(m *models.Manuscript, to models.ManuscriptStatus) string {
	if !to.Valid() {
		return "unknown status " + string(to)
	}
	if len(PendingInvitations(m)) > 0 {
		return "reviewer invitations are still pending"
	}
	if !CanTransition(m.Status, to) {
		return "cannot move from " + string(m.Status) + " to " + string(to)
	}
	if to == models.StatusBackToAdmin && !CheckAllReviewsCompleted(m) {
		return "not every assigned reviewer has completed a review"
	}
	return ""
}

// AvailableTransitions lists the targets that currently pass GuardTransition.
func AvailableTransitions(m *models.Manuscript) []models.ManuscriptStatus {
	out := make([]models.ManuscriptStatus, 0)
	for _, to := range adminTransitions[m.Status] {
		if GuardTransition(m, to) == "" {
			out = append(out, to)
		}
	}
	return out
}
