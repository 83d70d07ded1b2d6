package services

import (
	"context"
	"strconv"
	"strings"

	"manuscript-review-api/models"
	"manuscript-review-api/utils"
	"manuscript-review-api/workflow"
)

// ResubmissionPayload is the revised manuscript an author uploads.
type ResubmissionPayload struct {
	ManuscriptFile string
	Note           string
}

// Resubmit starts the next version after a revision request. Reviewers kept
// on the manuscript are invited again for the new version.
func (s *ManuscriptService) Resubmit(ctx context.Context, id string, payload ResubmissionPayload, actor models.CurrentUser) (*models.Manuscript, error) {
	if !actor.IsResearcher() {
		return nil, newError(ErrPermissionDenied, "only the authors can resubmit a manuscript")
	}
	if strings.TrimSpace(payload.ManuscriptFile) == "" {
		return nil, newError(ErrInvalidInput, "manuscript file is required")
	}

	return s.mutate(ctx, id, "resubmit", func(m *models.Manuscript, fx *effects) error {
		if !m.IsAuthor(actor.ID) {
			return newError(ErrPermissionDenied, "only the authors can resubmit a manuscript")
		}
		if !m.Status.IsRevision() {
			return newError(ErrInvalidTransition, "manuscript is %s, not awaiting revision", m.Status)
		}

		now := s.now()
		m.VersionNumber++
		m.SubmissionHistory = append(m.SubmissionHistory, models.VersionSnapshot{
			VersionNumber:  m.VersionNumber,
			ManuscriptFile: payload.ManuscriptFile,
			SubmittedBy:    actor.ID,
			SubmittedAt:    now,
			Note:           utils.SanitizeInput(payload.Note),
		})

		// Decisions only ever describe the current version.
		m.ReviewerDecisionMeta = make(map[string]models.ReviewerDecision)
		invitationDeadline := s.at(s.settings.InvitationWindow)
		for _, rid := range m.AssignedReviewers {
			meta := m.AssignedReviewersMeta[rid]
			meta.AssignedAt = now
			meta.InvitationStatus = models.InvitationPending
			meta.RespondedAt = nil
			meta.AcceptedAt = nil
			meta.DeclinedAt = nil
			meta.ReminderSentAt = nil
			meta.Deadline = invitationDeadline
			meta.AssignedVersions = appendVersion(meta.AssignedVersions, m.VersionNumber)
			m.AssignedReviewersMeta[rid] = meta
		}

		m.RevisionDeadline = nil
		m.RevisionReminderSentAt = nil
		m.ReviewDeadline = nil
		m.InvitationDeadline = nil
		if len(m.AssignedReviewers) > 0 {
			m.InvitationDeadline = invitationDeadline
		}

		from := m.Status
		next := workflow.StatusFor(m)
		appendHistory(m, next, actor.ID, "resubmitted as version "+strconv.Itoa(m.VersionNumber), now)
		m.Status = next
		fx.transitions = append(fx.transitions, transition{from: from, to: next, source: sourceResubmit})

		s.notifyAdminsEvent(m, fx, workflow.EventResubmitted)
		s.notifyEvent(m, fx, workflow.EventInvitation, m.AssignedReviewers, invitationDeadline)
		if n, ok := s.statusNotice(m, models.RoleResearcher, m.AuthorIDs()); ok {
			fx.notify(n)
		}
		return nil
	})
}
