package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"manuscript-review-api/config"
	"manuscript-review-api/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const documentColumn = "document"

// GormStore keeps manuscripts as JSON documents in MySQL.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	if db == nil {
		db = config.DB
	}
	return &GormStore{db: db, now: time.Now}
}

// AutoMigrate creates or updates every table the store uses.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.ManuscriptRecord{},
		&models.CompletedReview{},
		&models.Notification{},
	)
}

func (s *GormStore) CreateManuscript(ctx context.Context, m *models.Manuscript) error {
	raw, err := encodeManuscript(m)
	if err != nil {
		return err
	}
	now := s.now()
	rec := models.ManuscriptRecord{
		ManuscriptID:  m.ID,
		AuthorID:      m.AuthorID,
		Status:        string(m.Status),
		VersionNumber: m.VersionNumber,
		Document:      datatypes.JSON(raw),
		Revision:      1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create manuscript %s: %w", m.ID, err)
	}
	m.Revision = rec.Revision
	return nil
}

func (s *GormStore) GetManuscript(ctx context.Context, id string) (*models.Manuscript, error) {
	var rec models.ManuscriptRecord
	err := s.db.WithContext(ctx).Where("manuscript_id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeManuscript(rec.Document, rec.Revision)
}

func (s *GormStore) ReplaceManuscript(ctx context.Context, m *models.Manuscript, expectedRevision int64) error {
	raw, err := encodeManuscript(m)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Model(&models.ManuscriptRecord{}).
		Where("manuscript_id = ? AND revision = ?", m.ID, expectedRevision).
		Updates(map[string]interface{}{
			"document":       datatypes.JSON(raw),
			"status":         string(m.Status),
			"author_id":      m.AuthorID,
			"version_number": m.VersionNumber,
			"revision":       gorm.Expr("revision + ?", 1),
			"updated_at":     s.now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, m.ID)
	}
	m.Revision = expectedRevision + 1
	return nil
}

func (s *GormStore) missOrConflict(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ManuscriptRecord{}).Where("manuscript_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConcurrentModification
}

func (s *GormStore) PatchManuscript(ctx context.Context, id string, updates []FieldUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	set := datatypes.JSONSet(documentColumn)
	for _, u := range updates {
		if err := validatePath(u.Path); err != nil {
			return err
		}
		value, err := normalizeValue(u.Value)
		if err != nil {
			return err
		}
		set = set.Set(jsonPath(u.Path), value)
	}

	res := s.db.WithContext(ctx).
		Model(&models.ManuscriptRecord{}).
		Where("manuscript_id = ?", id).
		Updates(map[string]interface{}{
			documentColumn: set,
			"revision":     gorm.Expr("revision + ?", 1),
			"updated_at":   s.now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListManuscripts(ctx context.Context, q ManuscriptQuery) ([]models.Manuscript, string, error) {
	limit := q.limit()
	tx := s.db.WithContext(ctx).Model(&models.ManuscriptRecord{})
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			statuses[i] = string(st)
		}
		tx = tx.Where("status IN ?", statuses)
	}
	if q.AuthorID != "" {
		tx = tx.Where("author_id = ?", q.AuthorID)
	}
	if q.ReviewerID != "" {
		tx = tx.Where(datatypes.JSONQuery(documentColumn).HasKey("assignedReviewersMeta", `"`+strings.ReplaceAll(q.ReviewerID, `"`, `\"`)+`"`))
	}
	if q.Cursor != "" {
		tx = tx.Where("manuscript_id > ?", q.Cursor)
	}

	var recs []models.ManuscriptRecord
	if err := tx.Order("manuscript_id ASC").Limit(limit + 1).Find(&recs).Error; err != nil {
		return nil, "", err
	}

	var next string
	if len(recs) > limit {
		recs = recs[:limit]
		next = recs[len(recs)-1].ManuscriptID
	}
	out := make([]models.Manuscript, 0, len(recs))
	for _, rec := range recs {
		m, err := decodeManuscript(rec.Document, rec.Revision)
		if err != nil {
			return nil, "", fmt.Errorf("manuscript %s: %w", rec.ManuscriptID, err)
		}
		out = append(out, *m)
	}
	return out, next, nil
}

func (s *GormStore) ArchiveCompletedReview(ctx context.Context, review models.CompletedReview) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&review).Error
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreateAt == nil {
		now := s.now()
		u.CreateAt = &now
	}
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("user_id = ? AND delete_at IS NULL", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ? AND delete_at IS NULL", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) ListUserIDsByRole(ctx context.Context, role models.Role) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ? AND delete_at IS NULL", string(role)).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (s *GormStore) IncrementReviewerCounter(ctx context.Context, userID, counter string, delta int) error {
	if !validCounter(counter) {
		return fmt.Errorf("unknown counter %q", counter)
	}
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ?", userID).
		UpdateColumn(counter, gorm.Expr(counter+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateNotifications(ctx context.Context, rows []models.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	now := s.now()
	for i := range rows {
		if rows[i].CreateAt.IsZero() {
			rows[i].CreateAt = now
		}
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *GormStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	var rows []models.Notification
	err := tx.Order("create_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (s *GormStore) MarkNotificationRead(ctx context.Context, userID string, id uint) error {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("notification_id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "update_at": s.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
