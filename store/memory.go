package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"manuscript-review-api/models"
)

type memoryDoc struct {
	raw      []byte
	revision int64
	status   models.ManuscriptStatus
	authorID string
	version  int
}

// MemoryStore keeps everything in process memory. Documents are stored
// encoded so that every read hands out an independent copy.
type MemoryStore struct {
	mu            sync.RWMutex
	manuscripts   map[string]*memoryDoc
	reviews       map[string]models.CompletedReview
	users         map[string]models.User
	notifications []models.Notification
	nextNotifID   uint
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		manuscripts: make(map[string]*memoryDoc),
		reviews:     make(map[string]models.CompletedReview),
		users:       make(map[string]models.User),
		now:         time.Now,
	}
}

func (s *MemoryStore) CreateManuscript(ctx context.Context, m *models.Manuscript) error {
	raw, err := encodeManuscript(m)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.manuscripts[m.ID]; exists {
		return fmt.Errorf("manuscript %s already exists", m.ID)
	}
	s.manuscripts[m.ID] = &memoryDoc{raw: raw, revision: 1, status: m.Status, authorID: m.AuthorID, version: m.VersionNumber}
	m.Revision = 1
	return nil
}

func (s *MemoryStore) GetManuscript(ctx context.Context, id string) (*models.Manuscript, error) {
	s.mu.RLock()
	doc, ok := s.manuscripts[id]
	var (
		raw      []byte
		revision int64
	)
	if ok {
		raw, revision = doc.raw, doc.revision
	}
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return decodeManuscript(raw, revision)
}

func (s *MemoryStore) ReplaceManuscript(ctx context.Context, m *models.Manuscript, expectedRevision int64) error {
	raw, err := encodeManuscript(m)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.manuscripts[m.ID]
	if !ok {
		return ErrNotFound
	}
	if doc.revision != expectedRevision {
		return ErrConcurrentModification
	}
	doc.raw = raw
	doc.revision++
	doc.status = m.Status
	doc.authorID = m.AuthorID
	doc.version = m.VersionNumber
	m.Revision = doc.revision
	return nil
}

func (s *MemoryStore) PatchManuscript(ctx context.Context, id string, updates []FieldUpdate) error {
	for _, u := range updates {
		if err := validatePath(u.Path); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.manuscripts[id]
	if !ok {
		return ErrNotFound
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(doc.raw, &generic); err != nil {
		return fmt.Errorf("failed to decode manuscript %s: %w", id, err)
	}
	for _, u := range updates {
		if err := setPath(generic, u.Path, u.Value); err != nil {
			return err
		}
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to encode manuscript %s: %w", id, err)
	}
	doc.raw = raw
	doc.revision++
	return nil
}

func (s *MemoryStore) ListManuscripts(ctx context.Context, q ManuscriptQuery) ([]models.Manuscript, string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.manuscripts))
	for id := range s.manuscripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type candidate struct {
		raw      []byte
		revision int64
	}
	limit := q.limit()
	picked := make([]candidate, 0, limit+1)
	for _, id := range ids {
		if q.Cursor != "" && strings.Compare(id, q.Cursor) <= 0 {
			continue
		}
		doc := s.manuscripts[id]
		if len(q.Statuses) > 0 && !statusIn(doc.status, q.Statuses) {
			continue
		}
		if q.AuthorID != "" && doc.authorID != q.AuthorID {
			continue
		}
		picked = append(picked, candidate{raw: doc.raw, revision: doc.revision})
	}
	s.mu.RUnlock()

	out := make([]models.Manuscript, 0, limit)
	var next string
	for _, c := range picked {
		m, err := decodeManuscript(c.raw, c.revision)
		if err != nil {
			return nil, "", err
		}
		if q.ReviewerID != "" {
			if _, ok := m.AssignedReviewersMeta[q.ReviewerID]; !ok {
				continue
			}
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, *m)
	}
	return out, next, nil
}

func statusIn(status models.ManuscriptStatus, statuses []models.ManuscriptStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func completedReviewKey(r models.CompletedReview) string {
	return fmt.Sprintf("%s|%s|%d", r.ManuscriptID, r.ReviewerID, r.VersionNumber)
}

func (s *MemoryStore) ArchiveCompletedReview(ctx context.Context, review models.CompletedReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := completedReviewKey(review)
	if _, exists := s.reviews[key]; exists {
		return nil
	}
	review.ReviewID = uint(len(s.reviews) + 1)
	s.reviews[key] = review
	return nil
}

// CompletedReviews returns the archived reviews for a manuscript.
func (s *MemoryStore) CompletedReviews(manuscriptID string) []models.CompletedReview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CompletedReview, 0)
	for _, r := range s.reviews {
		if r.ManuscriptID == manuscriptID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewID < out[j].ReviewID })
	return out
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.UserID]; exists {
		return fmt.Errorf("user %s already exists", u.UserID)
	}
	for _, existing := range s.users {
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("email %s already registered", u.Email)
		}
	}
	s.users[u.UserID] = *u
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || u.DeleteAt != nil {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) && u.DeleteAt == nil {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUserIDsByRole(ctx context.Context, role models.Role) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for id, u := range s.users {
		if u.Role == role && u.DeleteAt == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) IncrementReviewerCounter(ctx context.Context, userID, counter string, delta int) error {
	if !validCounter(counter) {
		return fmt.Errorf("unknown counter %q", counter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	switch counter {
	case models.CounterAcceptedManuscripts:
		u.AcceptedManuscripts += delta
	case models.CounterRejectedManuscripts:
		u.RejectedManuscripts += delta
	}
	s.users[userID] = u
	return nil
}

func (s *MemoryStore) CreateNotifications(ctx context.Context, rows []models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range rows {
		s.nextNotifID++
		rows[i].NotificationID = s.nextNotifID
		if rows[i].CreateAt.IsZero() {
			rows[i].CreateAt = s.now()
		}
		s.notifications = append(s.notifications, rows[i])
	}
	return nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, 0)
	for i := len(s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *MemoryStore) MarkNotificationRead(ctx context.Context, userID string, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.NotificationID == id && n.UserID == userID {
			now := s.now()
			n.IsRead = true
			n.UpdateAt = &now
			return nil
		}
	}
	return ErrNotFound
}
