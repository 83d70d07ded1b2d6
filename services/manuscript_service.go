package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"manuscript-review-api/config"
	"manuscript-review-api/models"
	"manuscript-review-api/store"
	"manuscript-review-api/utils"
	"manuscript-review-api/workflow"

	"github.com/google/uuid"
)

// ManuscriptService is the write surface for manuscripts. Every write reads
// a fresh document, mutates it, recomputes derived status and stores it with
// a compare-and-swap on the document revision. Side effects run after the
// write commits and never undo it.
type ManuscriptService struct {
	manuscripts store.ManuscriptRepository
	users       store.UserRepository
	notifier    Notifier
	settings    config.WorkflowSettings
	admins      *adminDirectory
	messages    *workflow.MessageTable

	now      func() time.Time
	dispatch func(ctx context.Context, job func(ctx context.Context))
}

func NewManuscriptService(st store.Store, notifier Notifier, settings config.WorkflowSettings) *ManuscriptService {
	if settings.MaxWriteAttempts <= 0 {
		settings.MaxWriteAttempts = config.DefaultWorkflowSettings().MaxWriteAttempts
	}
	return &ManuscriptService{
		manuscripts: st,
		users:       st,
		notifier:    notifier,
		settings:    settings,
		admins:      newAdminDirectory(st),
		messages:    workflow.Messages(),
		now:         time.Now,
		dispatch:    dispatchAsync,
	}
}

// dispatchAsync runs job in the background on a context that outlives the
// request.
func dispatchAsync(ctx context.Context, job func(ctx context.Context)) {
	bg, cancel := detachedContext(ctx)
	go func() {
		defer cancel()
		job(bg)
	}()
}

// RunEffectsInline makes post-commit side effects run before a write
// returns. Short-lived processes use it so notices are not lost on exit.
func (s *ManuscriptService) RunEffectsInline() *ManuscriptService {
	s.dispatch = func(ctx context.Context, job func(ctx context.Context)) {
		bg, cancel := detachedContext(ctx)
		defer cancel()
		job(bg)
	}
	return s
}

// NewManuscript is the input for CreateManuscript.
type NewManuscript struct {
	Title          string
	AuthorID       string
	CoAuthorIDs    []string
	FormResponseID string
	ManuscriptFile string
	Note           string
}

// notice is one notification to send after commit.
type notice struct {
	userIDs  []string
	toAdmins bool
	kind     string
	title    string
	message  string
}

type counterDelta struct {
	userID  string
	counter string
}

type transition struct {
	from, to models.ManuscriptStatus
	source   string
}

// effects collects what a mutation wants done once its write has committed.
type effects struct {
	noop        bool
	counters    []counterDelta
	archive     []models.CompletedReview
	notices     []notice
	transitions []transition
}

func (fx *effects) notify(n notice) {
	if len(n.userIDs) == 0 && !n.toAdmins {
		return
	}
	fx.notices = append(fx.notices, n)
}

type mutation func(m *models.Manuscript, fx *effects) error

// mutate runs fn against a fresh copy of the manuscript until the write
// lands or the attempt budget is spent.
func (s *ManuscriptService) mutate(ctx context.Context, id, operation string, fn mutation) (*models.Manuscript, error) {
	for attempt := 1; attempt <= s.settings.MaxWriteAttempts; attempt++ {
		m, err := s.manuscripts.GetManuscript(ctx, id)
		if err != nil {
			return nil, fromStore(err, "manuscript")
		}

		fx := &effects{}
		if err := fn(m, fx); err != nil {
			return nil, err
		}
		if fx.noop {
			return m, nil
		}

		m.UpdatedAt = s.now()
		err = s.manuscripts.ReplaceManuscript(ctx, m, m.Revision)
		if errors.Is(err, store.ErrConcurrentModification) {
			writeConflicts.WithLabelValues(operation).Inc()
			log.Printf("[manuscript] %s on %s hit a concurrent write (attempt %d/%d)", operation, id, attempt, s.settings.MaxWriteAttempts)
			continue
		}
		if err != nil {
			return nil, fromStore(err, "manuscript")
		}

		s.afterCommit(ctx, m, fx)
		return m, nil
	}
	return nil, newError(ErrConcurrentModification, "manuscript %s kept changing; gave up after %d attempts", id, s.settings.MaxWriteAttempts)
}

func (s *ManuscriptService) afterCommit(ctx context.Context, m *models.Manuscript, fx *effects) {
	bg, cancel := detachedContext(ctx)
	defer cancel()
	for _, t := range fx.transitions {
		statusTransitions.WithLabelValues(string(t.from), string(t.to), t.source).Inc()
	}
	for _, c := range fx.counters {
		if err := s.users.IncrementReviewerCounter(bg, c.userID, c.counter, 1); err != nil {
			sideEffectFailures.WithLabelValues("counter").Inc()
			log.Printf("[manuscript] failed to increment %s for reviewer %s on %s: %v", c.counter, c.userID, m.ID, err)
		}
	}
	for _, review := range fx.archive {
		if err := s.manuscripts.ArchiveCompletedReview(bg, review); err != nil {
			sideEffectFailures.WithLabelValues("archive").Inc()
			log.Printf("[manuscript] failed to archive review %s on %s: %v", review.SubmissionID, m.ID, err)
		}
	}
	if len(fx.notices) == 0 || s.notifier == nil {
		return
	}
	notices := fx.notices
	manuscriptID := m.ID
	s.dispatch(ctx, func(ctx context.Context) {
		s.sendNotices(ctx, manuscriptID, notices)
	})
}

func (s *ManuscriptService) sendNotices(ctx context.Context, manuscriptID string, notices []notice) {
	for _, n := range notices {
		recipients := n.userIDs
		if n.toAdmins {
			ids, err := s.admins.AdminIDs(ctx)
			if err != nil {
				log.Printf("[manuscript] %v", err)
			}
			recipients = append(append([]string{}, recipients...), ids...)
		}
		if len(recipients) == 0 {
			continue
		}
		meta := map[string]string{"manuscript_id": manuscriptID}
		if err := s.notifier.Notify(ctx, recipients, n.kind, n.title, n.message, meta); err != nil {
			sideEffectFailures.WithLabelValues("notification").Inc()
			log.Printf("[manuscript] notification %q for %s failed: %v", n.title, manuscriptID, err)
		}
	}
}

func placeholders(m *models.Manuscript, deadline *time.Time) map[string]string {
	return map[string]string{
		"title":    m.Title,
		"version":  strconv.Itoa(m.VersionNumber),
		"deadline": utils.FormatDatePtr(deadline),
	}
}

// statusNotice builds the notification for role about m's current status, or
// ok=false when the role has no sentence for it.
func (s *ManuscriptService) statusNotice(m *models.Manuscript, role models.Role, userIDs []string) (notice, bool) {
	msg, found := s.messages.ForStatus(m.Status)
	if !found {
		return notice{}, false
	}
	text := msg.Audience(role)
	if text == "" {
		return notice{}, false
	}
	n := notice{
		userIDs: userIDs,
		kind:    msg.Type,
		title:   msg.Title,
		message: workflow.ApplyPlaceholders(text, placeholders(m, nil)),
	}
	if role == models.RoleAdmin {
		n.toAdmins = true
	}
	return n, true
}

// notifyStatus queues the status message for authors and admins.
func (s *ManuscriptService) notifyStatus(m *models.Manuscript, fx *effects) {
	if n, ok := s.statusNotice(m, models.RoleResearcher, m.AuthorIDs()); ok {
		fx.notify(n)
	}
	if n, ok := s.statusNotice(m, models.RoleAdmin, nil); ok {
		fx.notify(n)
	}
}

func (s *ManuscriptService) eventNotice(m *models.Manuscript, event string, userIDs []string, deadline *time.Time) (notice, bool) {
	msg, found := s.messages.ForEvent(event)
	if !found {
		return notice{}, false
	}
	return notice{
		userIDs: userIDs,
		kind:    msg.Type,
		title:   workflow.ApplyPlaceholders(msg.Title, placeholders(m, deadline)),
		message: workflow.ApplyPlaceholders(msg.Message, placeholders(m, deadline)),
	}, true
}

func (s *ManuscriptService) notifyEvent(m *models.Manuscript, fx *effects, event string, userIDs []string, deadline *time.Time) {
	if n, ok := s.eventNotice(m, event, userIDs, deadline); ok {
		fx.notify(n)
	}
}

func (s *ManuscriptService) notifyAdminsEvent(m *models.Manuscript, fx *effects, event string) {
	if n, ok := s.eventNotice(m, event, nil, nil); ok {
		n.toAdmins = true
		fx.notify(n)
	}
}

func (s *ManuscriptService) at(d time.Duration) *time.Time {
	t := s.now().Add(d)
	return &t
}

func appendHistory(m *models.Manuscript, to models.ManuscriptStatus, by, note string, at time.Time) {
	m.StatusHistory = append(m.StatusHistory, models.StatusHistoryEntry{
		Status:         to,
		PreviousStatus: m.Status,
		Note:           note,
		ChangedBy:      by,
		Timestamp:      at,
	})
}

// CreateManuscript records a new submission at version 1 in Pending.
func (s *ManuscriptService) CreateManuscript(ctx context.Context, in NewManuscript, actor models.CurrentUser) (*models.Manuscript, error) {
	if !actor.IsResearcher() && !actor.IsAdmin() {
		return nil, newError(ErrPermissionDenied, "only researchers and admins can submit manuscripts")
	}
	title := utils.SanitizeInput(in.Title)
	if title == "" {
		return nil, newError(ErrInvalidInput, "title is required")
	}
	if strings.TrimSpace(in.ManuscriptFile) == "" {
		return nil, newError(ErrInvalidInput, "manuscript file is required")
	}

	authorID := actor.ID
	if actor.IsAdmin() && strings.TrimSpace(in.AuthorID) != "" {
		authorID = strings.TrimSpace(in.AuthorID)
		if _, err := s.users.GetUser(ctx, authorID); err != nil {
			return nil, fromStore(err, "author")
		}
	}

	now := s.now()
	m := &models.Manuscript{
		ID:             uuid.NewString(),
		Title:          title,
		AuthorID:       authorID,
		CoAuthorIDs:    workflow.Without(workflow.AppendUnique(nil, in.CoAuthorIDs...), authorID, ""),
		FormResponseID: strings.TrimSpace(in.FormResponseID),
		Status:         models.StatusPending,
		VersionNumber:  1,
		SubmissionHistory: []models.VersionSnapshot{{
			VersionNumber:  1,
			ManuscriptFile: in.ManuscriptFile,
			SubmittedBy:    actor.ID,
			SubmittedAt:    now,
			Note:           utils.SanitizeInput(in.Note),
		}},
		StatusHistory: []models.StatusHistoryEntry{{
			Status:    models.StatusPending,
			ChangedBy: actor.ID,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.EnsureMaps()

	if err := s.manuscripts.CreateManuscript(ctx, m); err != nil {
		return nil, fromStore(err, "manuscript")
	}

	fx := &effects{}
	s.notifyStatus(m, fx)
	s.afterCommit(ctx, m, fx)
	return m, nil
}

// GetManuscriptView returns the role-filtered read model.
func (s *ManuscriptService) GetManuscriptView(ctx context.Context, id string, viewer models.CurrentUser) (*workflow.ManuscriptView, error) {
	m, err := s.manuscripts.GetManuscript(ctx, id)
	if err != nil {
		return nil, fromStore(err, "manuscript")
	}
	if !canView(m, viewer) {
		return nil, newError(ErrPermissionDenied, "manuscript %s is not visible to this user", id)
	}
	view := workflow.BuildView(m, viewer)
	return &view, nil
}

// AuthorizeFile checks that path is a manuscript version or a review file
// the viewer may read on manuscript id.
func (s *ManuscriptService) AuthorizeFile(ctx context.Context, id, path string, viewer models.CurrentUser) error {
	m, err := s.manuscripts.GetManuscript(ctx, id)
	if err != nil {
		return fromStore(err, "manuscript")
	}
	if !canView(m, viewer) {
		return newError(ErrPermissionDenied, "manuscript %s is not visible to this user", id)
	}
	if path == "" {
		return newError(ErrInvalidInput, "path is required")
	}
	for _, v := range m.SubmissionHistory {
		if v.ManuscriptFile == path {
			return nil
		}
	}
	for _, sub := range workflow.VisibleSubmissions(m, viewer) {
		if sub.ReviewFile == path {
			return nil
		}
	}
	return newError(ErrNotFound, "file not found on manuscript %s", id)
}

func canView(m *models.Manuscript, viewer models.CurrentUser) bool {
	switch viewer.Role {
	case models.RoleAdmin:
		return true
	case models.RoleResearcher:
		return m.IsAuthor(viewer.ID)
	case models.RolePeerReviewer:
		for _, id := range workflow.AllReviewers(m) {
			if id == viewer.ID {
				return true
			}
		}
	}
	return false
}

// ListManuscriptViews pages through the manuscripts the viewer may see.
func (s *ManuscriptService) ListManuscriptViews(ctx context.Context, viewer models.CurrentUser, statuses []models.ManuscriptStatus, limit int, cursor string) ([]workflow.ManuscriptView, string, error) {
	q := store.ManuscriptQuery{Statuses: statuses, Limit: limit, Cursor: cursor}
	switch viewer.Role {
	case models.RoleAdmin:
	case models.RoleResearcher:
		q.AuthorID = viewer.ID
	case models.RolePeerReviewer:
		q.ReviewerID = viewer.ID
	default:
		return nil, "", newError(ErrPermissionDenied, "unknown role %q", viewer.Role)
	}

	page, next, err := s.manuscripts.ListManuscripts(ctx, q)
	if err != nil {
		return nil, "", fromStore(err, "manuscripts")
	}
	views := make([]workflow.ManuscriptView, 0, len(page))
	for i := range page {
		m := &page[i]
		if !canView(m, viewer) {
			continue
		}
		views = append(views, workflow.BuildView(m, viewer))
	}
	return views, next, nil
}

func requireAdmin(actor models.CurrentUser, action string) error {
	if !actor.IsAdmin() {
		return newError(ErrPermissionDenied, "only admins can %s", action)
	}
	return nil
}
