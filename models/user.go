package models

import (
	"time"
)

// Counter columns on users incremented when a reviewer's round closes.
const (
	CounterAcceptedManuscripts = "accepted_manuscripts"
	CounterRejectedManuscripts = "rejected_manuscripts"
)

type User struct {
	UserID              string     `gorm:"primaryKey;column:user_id;type:varchar(64)" json:"user_id"`
	UserFname           string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname           string     `gorm:"column:user_lname" json:"user_lname"`
	Email               string     `gorm:"column:email;unique;type:varchar(255)" json:"email"`
	Password            string     `gorm:"column:password" json:"-"`
	Role                Role       `gorm:"column:role;type:varchar(32);index" json:"role"`
	Affiliation         *string    `gorm:"column:affiliation" json:"affiliation,omitempty"`
	AcceptedManuscripts int        `gorm:"column:accepted_manuscripts;not null;default:0" json:"accepted_manuscripts"`
	RejectedManuscripts int        `gorm:"column:rejected_manuscripts;not null;default:0" json:"rejected_manuscripts"`
	CreateAt            *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt            *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt            *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

// DisplayName joins first and last name, falling back to the email.
func (u User) DisplayName() string {
	name := u.UserFname
	if u.UserLname != "" {
		if name != "" {
			name += " "
		}
		name += u.UserLname
	}
	if name == "" {
		return u.Email
	}
	return name
}
