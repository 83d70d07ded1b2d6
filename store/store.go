// Package store persists manuscript documents, users and notifications.
//
// Manuscripts are stored whole, one JSON document per row, with a revision
// counter used for compare-and-swap writes. Narrow field-path patches are
// available for updates that must not clobber sibling map entries.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"manuscript-review-api/models"
)

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentModification is returned when a compare-and-swap write
	// finds a newer revision than the one read.
	ErrConcurrentModification = errors.New("document was modified concurrently")
)

// FieldUpdate sets the value at a document path, one segment per key, e.g.
// {"assignedReviewersMeta", reviewerID, "deadline"}.
type FieldUpdate struct {
	Path  []string
	Value interface{}
}

// ManuscriptQuery filters ListManuscripts. Zero values mean no filter.
type ManuscriptQuery struct {
	Statuses   []models.ManuscriptStatus
	AuthorID   string
	ReviewerID string
	Limit      int
	Cursor     string
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (q ManuscriptQuery) limit() int {
	switch {
	case q.Limit <= 0:
		return defaultListLimit
	case q.Limit > maxListLimit:
		return maxListLimit
	}
	return q.Limit
}

type ManuscriptRepository interface {
	CreateManuscript(ctx context.Context, m *models.Manuscript) error
	GetManuscript(ctx context.Context, id string) (*models.Manuscript, error)
	ReplaceManuscript(ctx context.Context, m *models.Manuscript, expectedRevision int64) error
	PatchManuscript(ctx context.Context, id string, updates []FieldUpdate) error
	ListManuscripts(ctx context.Context, q ManuscriptQuery) ([]models.Manuscript, string, error)
	ArchiveCompletedReview(ctx context.Context, review models.CompletedReview) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUserIDsByRole(ctx context.Context, role models.Role) ([]string, error)
	IncrementReviewerCounter(ctx context.Context, userID, counter string, delta int) error
}

type NotificationRepository interface {
	CreateNotifications(ctx context.Context, rows []models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID string, id uint) error
}

// Store bundles every repository.
type Store interface {
	ManuscriptRepository
	UserRepository
	NotificationRepository
}

func validCounter(counter string) bool {
	return counter == models.CounterAcceptedManuscripts || counter == models.CounterRejectedManuscripts
}

func encodeManuscript(m *models.Manuscript) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manuscript %s: %w", m.ID, err)
	}
	return raw, nil
}

func decodeManuscript(raw []byte, revision int64) (*models.Manuscript, error) {
	var m models.Manuscript
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manuscript document: %w", err)
	}
	m.EnsureMaps()
	m.Revision = revision
	return &m, nil
}

func validatePath(path []string) error {
	if len(path) == 0 {
		return errors.New("field path is empty")
	}
	for _, seg := range path {
		if seg == "" {
			return errors.New("field path has an empty segment")
		}
	}
	return nil
}

// jsonPath renders segments as a MySQL JSON path with every key quoted, so
// IDs containing dashes address the right member.
func jsonPath(path []string) string {
	quoted := make([]string, len(path))
	for i, seg := range path {
		quoted[i] = `"` + strings.ReplaceAll(seg, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, ".")
}

// setPath writes value into doc at path, creating intermediate objects.
func setPath(doc map[string]interface{}, path []string, value interface{}) error {
	node := doc
	for i, seg := range path[:len(path)-1] {
		next, ok := node[seg]
		if !ok || next == nil {
			child := make(map[string]interface{})
			node[seg] = child
			node = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return fmt.Errorf("field path %s: %q is not an object", strings.Join(path[:i+1], "."), seg)
		}
		node = child
	}

	generic, err := normalizeValue(value)
	if err != nil {
		return err
	}
	node[path[len(path)-1]] = generic
	return nil
}

// normalizeValue round-trips value through JSON so the stored shape matches
// what encoding the typed document would have produced (times as RFC 3339).
func normalizeValue(value interface{}) (interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode field value: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode field value: %w", err)
	}
	return generic, nil
}
