package services

import (
	"context"
	"time"

	"manuscript-review-api/models"
	"manuscript-review-api/workflow"
)

// ChangeStatus applies an admin status change with its side effects.
// Requesting the status the manuscript already has is a no-op.
func (s *ManuscriptService) ChangeStatus(ctx context.Context, id string, to models.ManuscriptStatus, actor models.CurrentUser, note string) (*models.Manuscript, error) {
	if err := requireAdmin(actor, "change manuscript status"); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, newError(ErrInvalidTransition, "unknown status %q", to)
	}

	return s.mutate(ctx, id, "change_status", func(m *models.Manuscript, fx *effects) error {
		if m.Status == to {
			fx.noop = true
			return nil
		}
		if reason := workflow.GuardTransition(m, to); reason != "" {
			return newError(ErrInvalidTransition, "%s", reason)
		}
		s.applyAdminStatus(m, to, actor, note, fx)
		return nil
	})
}

// archiveAssignment copies the current reviewer set into the original
// assignment record before it is narrowed or cleared.
func archiveAssignment(m *models.Manuscript) {
	m.OriginalAssignedReviewers = workflow.AppendUnique(m.OriginalAssignedReviewers, m.AssignedReviewers...)
	for _, id := range m.AssignedReviewers {
		if meta, ok := m.AssignedReviewersMeta[id]; ok {
			m.OriginalAssignedReviewersMeta[id] = meta
		}
	}
}

// retainReviewers narrows the assignment to keep. Dropped reviewers move to
// previousReviewers and lose their current-version decision entry.
func retainReviewers(m *models.Manuscript, keep []string) {
	dropped := workflow.Without(m.AssignedReviewers, keep...)
	m.PreviousReviewers = workflow.AppendUnique(m.PreviousReviewers, dropped...)
	for _, id := range dropped {
		delete(m.ReviewerDecisionMeta, id)
	}
	m.AssignedReviewers = append([]string{}, keep...)
	m.PreviousReviewers = workflow.Without(m.PreviousReviewers, keep...)
}

func clearDeadlines(m *models.Manuscript) {
	m.InvitationDeadline = nil
	m.ReviewDeadline = nil
	m.RevisionDeadline = nil
	m.FinalizationDeadline = nil
	m.RevisionReminderSentAt = nil
}

func (s *ManuscriptService) applyAdminStatus(m *models.Manuscript, to models.ManuscriptStatus, actor models.CurrentUser, note string, fx *effects) {
	now := s.now()
	from := m.Status
	var reviewersToNotify []string

	switch to {
	case models.StatusForPublication:
		keep := workflow.FilterAcceptedReviewers(m.ReviewerDecisionMeta, m.AssignedReviewers)
		archiveAssignment(m)
		retainReviewers(m, keep)
		for _, id := range keep {
			fx.counters = append(fx.counters, counterDelta{userID: id, counter: models.CounterAcceptedManuscripts})
		}
		s.finalize(m, actor, now)
		reviewersToNotify = keep

	case models.StatusPeerReviewerRejected:
		keep := workflow.FilterRejectedReviewers(m.ReviewerDecisionMeta, m.AssignedReviewers)
		archiveAssignment(m)
		retainReviewers(m, keep)
		for _, id := range keep {
			fx.counters = append(fx.counters, counterDelta{userID: id, counter: models.CounterRejectedManuscripts})
		}
		clearDeadlines(m)
		reviewersToNotify = keep

	case models.StatusForRevisionMinor:
		reviewersToNotify = append([]string{}, m.AssignedReviewers...)
		archiveAssignment(m)
		retainReviewers(m, nil)
		m.InvitationDeadline = nil
		m.ReviewDeadline = nil
		m.FinalizationDeadline = nil
		m.RevisionDeadline = s.at(s.settings.RevisionWindow)
		m.RevisionReminderSentAt = nil

	case models.StatusForRevisionMajor:
		keep := workflow.FilterAcceptedReviewers(m.ReviewerDecisionMeta, m.AssignedReviewers)
		archiveAssignment(m)
		retainReviewers(m, keep)
		m.InvitationDeadline = nil
		m.ReviewDeadline = nil
		m.FinalizationDeadline = nil
		m.RevisionDeadline = s.at(s.settings.RevisionWindow)
		m.RevisionReminderSentAt = nil
		reviewersToNotify = keep

	case models.StatusBackToAdmin:
		m.FinalizationDeadline = s.at(s.settings.FinalizationWindow)
		m.RevisionDeadline = nil
		m.FinalDecisionBy = ""
		m.FinalDecisionAt = nil

	case models.StatusRejected:
		s.finalize(m, actor, now)

	case models.StatusNonAcceptance:
		clearDeadlines(m)

	case models.StatusAssigningPeerReviewer:
		// Starting a fresh round: the previous reviewer set is archived.
		if len(m.AssignedReviewers) > 0 {
			archiveAssignment(m)
			retainReviewers(m, nil)
		}
		clearDeadlines(m)
	}

	appendHistory(m, to, actor.ID, note, now)
	m.Status = to
	fx.transitions = append(fx.transitions, transition{from: from, to: to, source: sourceAdmin})

	s.notifyStatus(m, fx)
	if len(reviewersToNotify) > 0 {
		if n, ok := s.statusNotice(m, models.RolePeerReviewer, reviewersToNotify); ok {
			fx.notify(n)
		}
	}
}

func (s *ManuscriptService) finalize(m *models.Manuscript, actor models.CurrentUser, now time.Time) {
	clearDeadlines(m)
	m.FinalDecisionBy = actor.ID
	decidedAt := now
	m.FinalDecisionAt = &decidedAt
}

// recompute re-derives the status of a review-active manuscript from its
// reviewer records and reports whether it changed.
func (s *ManuscriptService) recompute(m *models.Manuscript, by string, fx *effects) bool {
	if !m.Status.IsReviewActive() {
		return false
	}
	next := workflow.StatusFor(m)
	if next == m.Status {
		return false
	}

	from := m.Status
	appendHistory(m, next, by, "recomputed from reviewer activity", s.now())
	m.Status = next
	if next == models.StatusBackToAdmin && m.FinalizationDeadline == nil {
		m.FinalizationDeadline = s.at(s.settings.FinalizationWindow)
	}
	if from == models.StatusBackToAdmin {
		m.FinalizationDeadline = nil
	}
	fx.transitions = append(fx.transitions, transition{from: from, to: next, source: sourceRecompute})
	s.notifyStatus(m, fx)
	return true
}

// Recompute re-derives a manuscript's canonical status. It only acts on
// review-active manuscripts and is a no-op when nothing changed.
func (s *ManuscriptService) Recompute(ctx context.Context, id string, actor models.CurrentUser) (*models.Manuscript, error) {
	if err := requireAdmin(actor, "recompute manuscript status"); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "recompute", func(m *models.Manuscript, fx *effects) error {
		if !s.recompute(m, actor.ID, fx) {
			fx.noop = true
		}
		return nil
	})
}
