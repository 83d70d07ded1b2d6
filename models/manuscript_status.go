package models

// ManuscriptStatus is the workflow state of a manuscript. Values are the
// human-readable labels stored in the document and shown in the UI.
type ManuscriptStatus string

const (
	StatusPending               ManuscriptStatus = "Pending"
	StatusAssigningPeerReviewer ManuscriptStatus = "Assigning Peer Reviewer"
	StatusPeerReviewerAssigned  ManuscriptStatus = "Peer Reviewer Assigned"
	StatusPeerReviewerReviewing ManuscriptStatus = "Peer Reviewer Reviewing"
	StatusBackToAdmin           ManuscriptStatus = "Back to Admin"
	StatusForRevisionMinor      ManuscriptStatus = "For Revision (Minor)"
	StatusForRevisionMajor      ManuscriptStatus = "For Revision (Major)"
	StatusForPublication        ManuscriptStatus = "For Publication"
	StatusRejected              ManuscriptStatus = "Rejected"
	StatusPeerReviewerRejected  ManuscriptStatus = "Peer Reviewer Rejected"
	StatusNonAcceptance         ManuscriptStatus = "Non-Acceptance"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []ManuscriptStatus{
	StatusPending,
	StatusAssigningPeerReviewer,
	StatusPeerReviewerAssigned,
	StatusPeerReviewerReviewing,
	StatusBackToAdmin,
	StatusForRevisionMinor,
	StatusForRevisionMajor,
	StatusForPublication,
	StatusRejected,
	StatusPeerReviewerRejected,
	StatusNonAcceptance,
}

// Valid reports whether s is one of the known statuses.
func (s ManuscriptStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsReviewActive reports whether the latest version is still under review.
// This is the single list used for both feedback suppression and status
// recomputation.
func (s ManuscriptStatus) IsReviewActive() bool {
	switch s {
	case StatusAssigningPeerReviewer,
		StatusPeerReviewerAssigned,
		StatusPeerReviewerReviewing,
		StatusBackToAdmin:
		return true
	}
	return false
}

// IsRevision reports whether the author has been asked for a revision.
func (s ManuscriptStatus) IsRevision() bool {
	return s == StatusForRevisionMinor || s == StatusForRevisionMajor
}

// IsClosed reports whether the review round has ended with an outcome that
// hides deadlines entirely.
func (s ManuscriptStatus) IsClosed() bool {
	switch s {
	case StatusForPublication, StatusRejected, StatusPeerReviewerRejected, StatusNonAcceptance:
		return true
	}
	return false
}

// Role identifies what a signed-in user is allowed to do.
type Role string

const (
	RoleAdmin        Role = "Admin"
	RolePeerReviewer Role = "Peer Reviewer"
	RoleResearcher   Role = "Researcher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePeerReviewer || r == RoleResearcher
}

// CurrentUser is the authenticated caller as resolved by the auth middleware.
type CurrentUser struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Email string `json:"email"`
}

func (u CurrentUser) IsAdmin() bool { return u.Role == RoleAdmin }

func (u CurrentUser) IsReviewer() bool { return u.Role == RolePeerReviewer }

func (u CurrentUser) IsResearcher() bool { return u.Role == RoleResearcher }
