package models

import (
	"time"

	"gorm.io/datatypes"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// ReviewingDecision is the reviewer's answer to the review request itself.
// The empty value means the reviewer has not answered yet.
type ReviewingDecision string

const (
	DecisionNone      ReviewingDecision = ""
	DecisionAccept    ReviewingDecision = "accept"
	DecisionReject    ReviewingDecision = "reject"
	DecisionBackedOut ReviewingDecision = "backedOut"
)

// Known reports whether d is a decided value. Anything else, including
// values written by older clients, counts as pending.
func (d ReviewingDecision) Known() bool {
	return d == DecisionAccept || d == DecisionReject || d == DecisionBackedOut
}

// Recommendation is the verdict a reviewer files together with the review.
type Recommendation string

const (
	RecommendationNone        Recommendation = ""
	RecommendationMinor       Recommendation = "minor"
	RecommendationMajor       Recommendation = "major"
	RecommendationPublication Recommendation = "publication"
	RecommendationReject      Recommendation = "reject"
)

func (r Recommendation) Known() bool {
	switch r {
	case RecommendationMinor, RecommendationMajor, RecommendationPublication, RecommendationReject:
		return true
	}
	return false
}

// ReviewerAssignment is assignedReviewersMeta[reviewerId].
type ReviewerAssignment struct {
	AssignedAt       time.Time        `json:"assignedAt"`
	AssignedBy       string           `json:"assignedBy"`
	InvitationStatus InvitationStatus `json:"invitationStatus"`
	RespondedAt      *time.Time       `json:"respondedAt,omitempty"`
	AcceptedAt       *time.Time       `json:"acceptedAt,omitempty"`
	DeclinedAt       *time.Time       `json:"declinedAt,omitempty"`
	Deadline         *time.Time       `json:"deadline,omitempty"`
	AssignedVersions []int            `json:"assignedVersions"`
	UnassignedAt     *time.Time       `json:"unassignedAt,omitempty"`
	ReminderSentAt   *time.Time       `json:"reminderSentAt,omitempty"`
}

// HasVersion reports whether the reviewer is or was responsible for version.
func (a ReviewerAssignment) HasVersion(version int) bool {
	for _, v := range a.AssignedVersions {
		if v == version {
			return true
		}
	}
	return false
}

// ReviewerDecision is reviewerDecisionMeta[reviewerId] for the current version.
type ReviewerDecision struct {
	Decision       ReviewingDecision `json:"decision,omitempty"`
	DecidedAt      *time.Time        `json:"decidedAt,omitempty"`
	Recommendation Recommendation    `json:"recommendation,omitempty"`
	RecommendedAt  *time.Time        `json:"recommendedAt,omitempty"`
}

const SubmissionCompleted = "Completed"

// ReviewSubmission is one entry of the append-only reviewerSubmissions log.
type ReviewSubmission struct {
	ID                      string         `json:"id"`
	ReviewerID              string         `json:"reviewerId"`
	ManuscriptVersionNumber int            `json:"manuscriptVersionNumber"`
	Comment                 string         `json:"comment"`
	ReviewFile              string         `json:"reviewFile,omitempty"`
	Recommendation          Recommendation `json:"recommendation,omitempty"`
	Status                  string         `json:"status"`
	CompletedAt             time.Time      `json:"completedAt"`
}

// VersionSnapshot records one submitted version of the manuscript.
type VersionSnapshot struct {
	VersionNumber  int       `json:"versionNumber"`
	ManuscriptFile string    `json:"manuscriptFile,omitempty"`
	SubmittedBy    string    `json:"submittedBy"`
	SubmittedAt    time.Time `json:"submittedAt"`
	Note           string    `json:"note,omitempty"`
}

// StatusHistoryEntry is one entry of the append-only statusHistory log.
type StatusHistoryEntry struct {
	Status         ManuscriptStatus `json:"status"`
	PreviousStatus ManuscriptStatus `json:"previousStatus,omitempty"`
	Note           string           `json:"note,omitempty"`
	ChangedBy      string           `json:"changedBy"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Manuscript is the whole document persisted per manuscript ID.
type Manuscript struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	AuthorID       string           `json:"authorId"`
	CoAuthorIDs    []string         `json:"coAuthorIds,omitempty"`
	FormResponseID string           `json:"formResponseId,omitempty"`
	Status         ManuscriptStatus `json:"status"`
	VersionNumber  int              `json:"versionNumber"`

	AssignedReviewers             []string                      `json:"assignedReviewers"`
	OriginalAssignedReviewers     []string                      `json:"originalAssignedReviewers,omitempty"`
	OriginalAssignedReviewersMeta map[string]ReviewerAssignment `json:"originalAssignedReviewersMeta,omitempty"`
	PreviousReviewers             []string                      `json:"previousReviewers,omitempty"`
	AssignedReviewersMeta         map[string]ReviewerAssignment `json:"assignedReviewersMeta"`
	ReviewerDecisionMeta          map[string]ReviewerDecision   `json:"reviewerDecisionMeta"`
	ReviewerSubmissions           []ReviewSubmission            `json:"reviewerSubmissions"`
	SubmissionHistory             []VersionSnapshot             `json:"submissionHistory"`
	StatusHistory                 []StatusHistoryEntry          `json:"statusHistory"`

	InvitationDeadline   *time.Time `json:"invitationDeadline,omitempty"`
	ReviewDeadline       *time.Time `json:"reviewDeadline,omitempty"`
	RevisionDeadline     *time.Time `json:"revisionDeadline,omitempty"`
	FinalizationDeadline *time.Time `json:"finalizationDeadline,omitempty"`

	RevisionReminderSentAt *time.Time `json:"revisionReminderSentAt,omitempty"`

	FinalDecisionBy string     `json:"finalDecisionBy,omitempty"`
	FinalDecisionAt *time.Time `json:"finalDecisionAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Revision is the store's optimistic concurrency token; it is not part of
	// the document body.
	Revision int64 `json:"-"`
}

// EnsureMaps initialises nil maps so callers can assign entries directly.
func (m *Manuscript) EnsureMaps() {
	if m.AssignedReviewersMeta == nil {
		m.AssignedReviewersMeta = make(map[string]ReviewerAssignment)
	}
	if m.ReviewerDecisionMeta == nil {
		m.ReviewerDecisionMeta = make(map[string]ReviewerDecision)
	}
	if m.OriginalAssignedReviewersMeta == nil {
		m.OriginalAssignedReviewersMeta = make(map[string]ReviewerAssignment)
	}
}

// IsAuthor reports whether userID is the author or a co-author.
func (m *Manuscript) IsAuthor(userID string) bool {
	if userID == "" {
		return false
	}
	if m.AuthorID == userID {
		return true
	}
	for _, id := range m.CoAuthorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AuthorIDs returns the author followed by the co-authors.
func (m *Manuscript) AuthorIDs() []string {
	ids := make([]string, 0, 1+len(m.CoAuthorIDs))
	if m.AuthorID != "" {
		ids = append(ids, m.AuthorID)
	}
	for _, id := range m.CoAuthorIDs {
		if id != "" && id != m.AuthorID {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsAssigned reports whether reviewerID is in the current assignment set.
func (m *Manuscript) IsAssigned(reviewerID string) bool {
	for _, id := range m.AssignedReviewers {
		if id == reviewerID {
			return true
		}
	}
	return false
}

// ManuscriptRecord is the row holding one manuscript document. Status,
// author and version are denormalised for listing queries.
type ManuscriptRecord struct {
	ManuscriptID  string         `gorm:"primaryKey;column:manuscript_id;type:varchar(64)" json:"manuscript_id"`
	AuthorID      string         `gorm:"column:author_id;type:varchar(64);index" json:"author_id"`
	Status        string         `gorm:"column:status;type:varchar(64);index" json:"status"`
	VersionNumber int            `gorm:"column:version_number" json:"version_number"`
	Document      datatypes.JSON `gorm:"column:document;type:json" json:"document"`
	Revision      int64          `gorm:"column:revision;not null;default:1" json:"revision"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (ManuscriptRecord) TableName() string {
	return "manuscripts"
}
