package services

import (
	"context"
	"strings"
	"time"

	"manuscript-review-api/models"
	"manuscript-review-api/store"
	"manuscript-review-api/utils"
	"manuscript-review-api/workflow"

	"github.com/google/uuid"
)

// ReviewPayload is what a reviewer files with a completed review.
type ReviewPayload struct {
	Comment        string
	Recommendation models.Recommendation
	ReviewFile     string
}

func appendVersion(versions []int, v int) []int {
	for _, existing := range versions {
		if existing == v {
			return versions
		}
	}
	return append(versions, v)
}

func requireReviewActive(m *models.Manuscript, action string) error {
	if !m.Status.IsReviewActive() {
		return newError(ErrInvalidTransition, "cannot %s while manuscript is %s", action, m.Status)
	}
	return nil
}

func requireSelf(actor models.CurrentUser, reviewerID string) error {
	if !actor.IsReviewer() || actor.ID != reviewerID {
		return newError(ErrPermissionDenied, "reviewers can only act on their own assignment")
	}
	return nil
}

// AssignReviewer invites reviewerID to review the current version.
func (s *ManuscriptService) AssignReviewer(ctx context.Context, id, reviewerID string, actor models.CurrentUser) (*models.Manuscript, error) {
	if err := requireAdmin(actor, "assign reviewers"); err != nil {
		return nil, err
	}
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return nil, newError(ErrInvalidInput, "reviewer_id is required")
	}
	user, err := s.users.GetUser(ctx, reviewerID)
	if err != nil {
		return nil, fromStore(err, "reviewer")
	}
	if user.Role != models.RolePeerReviewer {
		return nil, newError(ErrInvalidInput, "user %s is not a peer reviewer", reviewerID)
	}

	return s.mutate(ctx, id, "assign_reviewer", func(m *models.Manuscript, fx *effects) error {
		if err := requireReviewActive(m, "assign reviewers"); err != nil {
			return err
		}
		if m.IsAuthor(reviewerID) {
			return newError(ErrInvalidInput, "authors cannot review their own manuscript")
		}
		meta, existing := m.AssignedReviewersMeta[reviewerID]
		if m.IsAssigned(reviewerID) && existing && meta.HasVersion(m.VersionNumber) && meta.InvitationStatus != models.InvitationDeclined {
			fx.noop = true
			return nil
		}

		now := s.now()
		deadline := s.at(s.settings.InvitationWindow)
		meta.AssignedAt = now
		meta.AssignedBy = actor.ID
		meta.InvitationStatus = models.InvitationPending
		meta.RespondedAt = nil
		meta.AcceptedAt = nil
		meta.DeclinedAt = nil
		meta.UnassignedAt = nil
		meta.ReminderSentAt = nil
		meta.Deadline = deadline
		meta.AssignedVersions = appendVersion(meta.AssignedVersions, m.VersionNumber)
		m.AssignedReviewersMeta[reviewerID] = meta

		m.AssignedReviewers = workflow.AppendUnique(m.AssignedReviewers, reviewerID)
		m.PreviousReviewers = workflow.Without(m.PreviousReviewers, reviewerID)
		delete(m.ReviewerDecisionMeta, reviewerID)
		m.InvitationDeadline = deadline

		s.recompute(m, actor.ID, fx)
		s.notifyEvent(m, fx, workflow.EventInvitation, []string{reviewerID}, deadline)
		return nil
	})
}

// UnassignReviewer removes reviewerID, or every assigned reviewer when
// reviewerID is empty.
func (s *ManuscriptService) UnassignReviewer(ctx context.Context, id, reviewerID string, actor models.CurrentUser) (*models.Manuscript, error) {
	if err := requireAdmin(actor, "unassign reviewers"); err != nil {
		return nil, err
	}
	reviewerID = strings.TrimSpace(reviewerID)

	return s.mutate(ctx, id, "unassign_reviewer", func(m *models.Manuscript, fx *effects) error {
		targets := append([]string{}, m.AssignedReviewers...)
		if reviewerID != "" {
			if !m.IsAssigned(reviewerID) {
				return newError(ErrNotFound, "reviewer %s is not assigned", reviewerID)
			}
			targets = []string{reviewerID}
		}
		if len(targets) == 0 {
			fx.noop = true
			return nil
		}

		now := s.now()
		for _, rid := range targets {
			meta := m.AssignedReviewersMeta[rid]
			meta.UnassignedAt = &now
			m.AssignedReviewersMeta[rid] = meta
			delete(m.ReviewerDecisionMeta, rid)
		}
		m.AssignedReviewers = workflow.Without(m.AssignedReviewers, targets...)
		m.PreviousReviewers = workflow.AppendUnique(m.PreviousReviewers, targets...)
		if len(m.AssignedReviewers) == 0 {
			m.InvitationDeadline = nil
			m.ReviewDeadline = nil
		}

		s.recompute(m, actor.ID, fx)
		s.notifyEvent(m, fx, workflow.EventUnassigned, targets, nil)
		return nil
	})
}

// SubmitReviewerDecision records the reviewer's answer to the invitation:
// accept, reject (decline) or backedOut (withdraw after accepting).
func (s *ManuscriptService) SubmitReviewerDecision(ctx context.Context, id, reviewerID string, decision models.ReviewingDecision, actor models.CurrentUser) (*models.Manuscript, error) {
	if err := requireSelf(actor, reviewerID); err != nil {
		return nil, err
	}
	if !decision.Known() {
		return nil, newError(ErrInvalidInput, "unknown decision %q", decision)
	}

	return s.mutate(ctx, id, "reviewer_decision", func(m *models.Manuscript, fx *effects) error {
		if err := requireReviewActive(m, "respond to the invitation"); err != nil {
			return err
		}
		meta, ok := m.AssignedReviewersMeta[reviewerID]
		if !m.IsAssigned(reviewerID) || !ok {
			return newError(ErrNotFound, "reviewer %s is not assigned", reviewerID)
		}
		current := m.ReviewerDecisionMeta[reviewerID]
		if current.Decision == decision {
			fx.noop = true
			return nil
		}

		now := s.now()
		switch decision {
		case models.DecisionAccept:
			if meta.InvitationStatus != models.InvitationPending && meta.InvitationStatus != "" {
				return newError(ErrInvalidTransition, "invitation was already %s", meta.InvitationStatus)
			}
			meta.InvitationStatus = models.InvitationAccepted
			meta.RespondedAt = &now
			meta.AcceptedAt = &now
			meta.ReminderSentAt = nil
			meta.Deadline = s.at(s.settings.ReviewWindow)
			if m.ReviewDeadline == nil || meta.Deadline.After(*m.ReviewDeadline) {
				m.ReviewDeadline = meta.Deadline
			}

		case models.DecisionReject:
			if meta.InvitationStatus == models.InvitationAccepted {
				return newError(ErrInvalidTransition, "invitation already accepted; back out instead")
			}
			meta.InvitationStatus = models.InvitationDeclined
			meta.RespondedAt = &now
			meta.DeclinedAt = &now

		case models.DecisionBackedOut:
			if meta.InvitationStatus != models.InvitationAccepted {
				return newError(ErrInvalidTransition, "only accepted invitations can be backed out of")
			}
			if workflow.HasCompletedSubmission(m.ReviewerSubmissions, reviewerID, m.VersionNumber) {
				return newError(ErrInvalidTransition, "review already submitted for version %d", m.VersionNumber)
			}
			meta.InvitationStatus = models.InvitationDeclined
			meta.DeclinedAt = &now
		}

		m.AssignedReviewersMeta[reviewerID] = meta
		current.Decision = decision
		current.DecidedAt = &now
		m.ReviewerDecisionMeta[reviewerID] = current

		s.recompute(m, reviewerID, fx)
		return nil
	})
}

// SubmitReview files the reviewer's completed review for the current version.
func (s *ManuscriptService) SubmitReview(ctx context.Context, id, reviewerID string, payload ReviewPayload, actor models.CurrentUser) (*models.Manuscript, error) {
	if err := requireSelf(actor, reviewerID); err != nil {
		return nil, err
	}
	if !payload.Recommendation.Known() {
		return nil, newError(ErrInvalidInput, "unknown recommendation %q", payload.Recommendation)
	}
	comment := utils.SanitizeInput(payload.Comment)
	if comment == "" && strings.TrimSpace(payload.ReviewFile) == "" {
		return nil, newError(ErrInvalidInput, "a comment or review file is required")
	}

	return s.mutate(ctx, id, "submit_review", func(m *models.Manuscript, fx *effects) error {
		if err := requireReviewActive(m, "submit a review"); err != nil {
			return err
		}
		meta, ok := m.AssignedReviewersMeta[reviewerID]
		if !m.IsAssigned(reviewerID) || !ok {
			return newError(ErrNotFound, "reviewer %s is not assigned", reviewerID)
		}
		decision := m.ReviewerDecisionMeta[reviewerID]
		if meta.InvitationStatus != models.InvitationAccepted || decision.Decision != models.DecisionAccept {
			return newError(ErrInvalidTransition, "the invitation must be accepted before submitting a review")
		}
		if workflow.HasCompletedSubmission(m.ReviewerSubmissions, reviewerID, m.VersionNumber) {
			return newError(ErrInvalidTransition, "review already submitted for version %d", m.VersionNumber)
		}

		now := s.now()
		sub := models.ReviewSubmission{
			ID:                      uuid.NewString(),
			ReviewerID:              reviewerID,
			ManuscriptVersionNumber: m.VersionNumber,
			Comment:                 comment,
			ReviewFile:              strings.TrimSpace(payload.ReviewFile),
			Recommendation:          payload.Recommendation,
			Status:                  models.SubmissionCompleted,
			CompletedAt:             now,
		}
		m.ReviewerSubmissions = append(m.ReviewerSubmissions, sub)
		decision.Recommendation = payload.Recommendation
		decision.RecommendedAt = &now
		m.ReviewerDecisionMeta[reviewerID] = decision

		fx.archive = append(fx.archive, completedReviewFor(m.ID, sub))
		s.notifyAdminsEvent(m, fx, workflow.EventReviewSubmitted)
		s.recompute(m, reviewerID, fx)
		return nil
	})
}

func completedReviewFor(manuscriptID string, sub models.ReviewSubmission) models.CompletedReview {
	review := models.CompletedReview{
		SubmissionID:   sub.ID,
		ManuscriptID:   manuscriptID,
		ReviewerID:     sub.ReviewerID,
		VersionNumber:  sub.ManuscriptVersionNumber,
		Recommendation: sub.Recommendation,
		CompletedAt:    sub.CompletedAt,
	}
	if sub.Comment != "" {
		comment := sub.Comment
		review.Comment = &comment
	}
	if sub.ReviewFile != "" {
		file := sub.ReviewFile
		review.ReviewFile = &file
	}
	return review
}

// ExtendReviewerDeadline moves one reviewer's deadline with a field-path
// patch so concurrent edits to other reviewers are untouched.
func (s *ManuscriptService) ExtendReviewerDeadline(ctx context.Context, id, reviewerID string, deadline time.Time, actor models.CurrentUser) error {
	if err := requireAdmin(actor, "extend reviewer deadlines"); err != nil {
		return err
	}
	if !deadline.After(s.now()) {
		return newError(ErrInvalidInput, "deadline must be in the future")
	}

	m, err := s.manuscripts.GetManuscript(ctx, id)
	if err != nil {
		return fromStore(err, "manuscript")
	}
	if err := requireReviewActive(m, "extend a reviewer deadline"); err != nil {
		return err
	}
	meta, ok := m.AssignedReviewersMeta[reviewerID]
	if !m.IsAssigned(reviewerID) || !ok {
		return newError(ErrNotFound, "reviewer %s is not assigned", reviewerID)
	}
	if !workflow.ReviewOutstanding(m, reviewerID, meta) {
		return newError(ErrInvalidTransition, "reviewer %s has no outstanding review on version %d", reviewerID, m.VersionNumber)
	}

	err = s.manuscripts.PatchManuscript(ctx, id, []store.FieldUpdate{
		{Path: []string{"assignedReviewersMeta", reviewerID, "deadline"}, Value: deadline},
		{Path: []string{"assignedReviewersMeta", reviewerID, "reminderSentAt"}, Value: nil},
	})
	if err != nil {
		return fromStore(err, "manuscript")
	}

	fx := &effects{}
	s.notifyEvent(m, fx, workflow.EventReviewerReminder, []string{reviewerID}, &deadline)
	s.afterCommit(ctx, m, fx)
	return nil
}
