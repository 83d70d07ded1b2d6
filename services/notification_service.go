package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"manuscript-review-api/config"
	"manuscript-review-api/models"
	"manuscript-review-api/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notifier delivers in-app (and optionally email) notifications.
type Notifier interface {
	Notify(ctx context.Context, userIDs []string, kind, title, message string, metadata map[string]string) error
}

// NotificationService stores one notification row per recipient and, when
// SMTP is configured, emails each recipient that has an address.
type NotificationService struct {
	notifications store.NotificationRepository
	users         store.UserRepository
	sendMail      func(to []string, subject, html string) error
	mailEnabled   func() bool
	baseURL       string
}

func NewNotificationService(notifications store.NotificationRepository, users store.UserRepository) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		sendMail:      config.SendMail,
		mailEnabled:   config.MailConfigured,
		baseURL:       strings.TrimRight(config.EnvOrDefault("APP_BASE_URL", ""), "/"),
	}
}

func (s *NotificationService) Notify(ctx context.Context, userIDs []string, kind, title, message string, metadata map[string]string) error {
	recipients := dedupeIDs(userIDs)
	if len(recipients) == 0 {
		return nil
	}

	batch := uuid.NewString()

	var related *string
	if id := metadata["manuscript_id"]; id != "" {
		related = &id
	}

	now := time.Now()
	rows := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		meta := make(datatypes.JSONMap, len(metadata)+1)
		for k, v := range metadata {
			meta[k] = v
		}
		meta["notification_batch"] = batch
		rows = append(rows, models.Notification{
			UserID:              id,
			Title:               title,
			Message:             message,
			Type:                kind,
			RelatedManuscriptID: related,
			Metadata:            meta,
			CreateAt:            now,
		})
	}
	if err := s.notifications.CreateNotifications(ctx, rows); err != nil {
		return fmt.Errorf("store notifications: %w", err)
	}

	if s.mailEnabled != nil && s.mailEnabled() {
		s.emailRecipients(ctx, recipients, title, message, related)
	}
	return nil
}

func (s *NotificationService) emailRecipients(ctx context.Context, recipients []string, title, message string, related *string) {
	buttonURL := ""
	if related != nil && s.baseURL != "" {
		buttonURL = fmt.Sprintf("%s/manuscripts/%s", s.baseURL, *related)
	}
	for _, id := range recipients {
		user, err := s.users.GetUser(ctx, id)
		if err != nil {
			log.Printf("notification email skipped for %s: %v", id, err)
			continue
		}
		if strings.TrimSpace(user.Email) == "" {
			continue
		}
		html := buildFormalEmailHTML(title, user.DisplayName(), message, buttonURL)
		if err := s.sendMail([]string{user.Email}, title, html); err != nil {
			sideEffectFailures.WithLabelValues("email").Inc()
			log.Printf("notification email send failed (subject=%q to=%s): %v", title, user.Email, err)
		}
	}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// adminDirectory caches the admin user IDs for a short TTL; admins are
// notified on every submission and status change.
type adminDirectory struct {
	users store.UserRepository
	ttl   time.Duration

	mu        sync.RWMutex
	ids       []string
	fetchedAt time.Time
}

func newAdminDirectory(users store.UserRepository) *adminDirectory {
	return &adminDirectory{users: users, ttl: 5 * time.Minute}
}

func (d *adminDirectory) AdminIDs(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	if d.ids != nil && time.Since(d.fetchedAt) < d.ttl {
		ids := d.ids
		d.mu.RUnlock()
		return ids, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ids != nil && time.Since(d.fetchedAt) < d.ttl {
		return d.ids, nil
	}
	ids, err := d.users.ListUserIDsByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin users: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	d.ids = ids
	d.fetchedAt = time.Now()
	return ids, nil
}

// Clear drops the cached admin list.
func (d *adminDirectory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = nil
}
