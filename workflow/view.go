package workflow

import (
	"time"

	"manuscript-review-api/models"
)

// ReviewerView is one reviewer as exposed to a particular viewer.
type ReviewerView struct {
	ReviewerID       string                   `json:"reviewer_id"`
	InvitationStatus models.InvitationStatus  `json:"invitation_status,omitempty"`
	Decision         models.ReviewingDecision `json:"decision,omitempty"`
	Recommendation   models.Recommendation    `json:"recommendation,omitempty"`
	AssignedAt       *time.Time               `json:"assigned_at,omitempty"`
	Deadline         *time.Time               `json:"deadline,omitempty"`
	AssignedVersions []int                    `json:"assigned_versions,omitempty"`
	Current          bool                     `json:"current"`
}

// ManuscriptView is the read model the UI renders from.
type ManuscriptView struct {
	ID               string                      `json:"id"`
	Title            string                      `json:"title"`
	Status           models.ManuscriptStatus     `json:"status"`
	VersionNumber    int                         `json:"version_number"`
	VisibleReviewers []ReviewerView              `json:"visible_reviewers"`
	Submissions      []models.ReviewSubmission   `json:"submissions"`
	ActiveDeadline   *time.Time                  `json:"active_deadline"`
	CanTransitionTo  []models.ManuscriptStatus   `json:"can_transition_to"`
	History          []models.StatusHistoryEntry `json:"status_history,omitempty"`
}

// BuildView assembles the viewer-specific read model of m.
func BuildView(m *models.Manuscript, viewer models.CurrentUser) ManuscriptView {
	view := ManuscriptView{
		ID:               m.ID,
		Title:            m.Title,
		Status:           m.Status,
		VersionNumber:    m.VersionNumber,
		VisibleReviewers: make([]ReviewerView, 0),
		ActiveDeadline:   ResolveActiveDeadline(m, viewer),
		CanTransitionTo:  make([]models.ManuscriptStatus, 0),
	}

	visible := make(map[string]struct{})
	for _, s := range VisibleSubmissions(m, viewer) {
		visible[s.ReviewerID] = struct{}{}
		view.Submissions = append(view.Submissions, s)
	}
	for _, id := range VisibleReviewers(m, viewer, m.VersionNumber) {
		visible[id] = struct{}{}
	}

	for _, id := range AllReviewers(m) {
		if _, ok := visible[id]; !ok {
			continue
		}
		rv := ReviewerView{ReviewerID: id, Current: m.IsAssigned(id)}
		// Authors only ever learn who reviewed; in-round state stays with
		// admins and the reviewer themselves.
		if viewer.Role != models.RoleResearcher {
			if meta, ok := MetaFor(m, id); ok {
				assignedAt := meta.AssignedAt
				rv.InvitationStatus = meta.InvitationStatus
				rv.AssignedAt = &assignedAt
				rv.Deadline = copyTime(meta.Deadline)
				rv.AssignedVersions = append([]int(nil), meta.AssignedVersions...)
			}
			d := m.ReviewerDecisionMeta[id]
			rv.Decision = d.Decision
			rv.Recommendation = d.Recommendation
		}
		view.VisibleReviewers = append(view.VisibleReviewers, rv)
	}
	if view.Submissions == nil {
		view.Submissions = make([]models.ReviewSubmission, 0)
	}

	if viewer.IsAdmin() {
		view.CanTransitionTo = AvailableTransitions(m)
		view.History = append(view.History, m.StatusHistory...)
	}
	return view
}
