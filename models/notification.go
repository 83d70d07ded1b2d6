package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is one in-app message for one recipient. Rows written by the
// same Notify call share metadata["notification_batch"].
type Notification struct {
	NotificationID      uint              `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	UserID              string            `gorm:"column:user_id;type:varchar(64);index:idx_notifications_user_read" json:"user_id"`
	Title               string            `gorm:"column:title" json:"title"`
	Message             string            `gorm:"column:message;type:text" json:"message"`
	Type                string            `gorm:"column:type;type:varchar(32)" json:"type"`
	RelatedManuscriptID *string           `gorm:"column:related_manuscript_id;type:varchar(64)" json:"related_manuscript_id,omitempty"`
	Metadata            datatypes.JSONMap `gorm:"column:metadata;type:json" json:"metadata,omitempty"`
	IsRead              bool              `gorm:"column:is_read;index:idx_notifications_user_read" json:"is_read"`
	CreateAt            time.Time         `gorm:"column:create_at" json:"created_at"`
	UpdateAt            *time.Time        `gorm:"column:update_at" json:"-"`
}

func (Notification) TableName() string { return "notifications" }
