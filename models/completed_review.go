package models

import "time"

// CompletedReview is the audit record archived once per
// (manuscript, reviewer, version) when a reviewer files a review.
type CompletedReview struct {
	ReviewID       uint           `gorm:"primaryKey;column:review_id" json:"review_id"`
	SubmissionID   string         `gorm:"column:submission_id;type:varchar(64)" json:"submission_id"`
	ManuscriptID   string         `gorm:"column:manuscript_id;type:varchar(64);uniqueIndex:idx_completed_review" json:"manuscript_id"`
	ReviewerID     string         `gorm:"column:reviewer_id;type:varchar(64);uniqueIndex:idx_completed_review" json:"reviewer_id"`
	VersionNumber  int            `gorm:"column:version_number;uniqueIndex:idx_completed_review" json:"version_number"`
	Recommendation Recommendation `gorm:"column:recommendation;type:varchar(32)" json:"recommendation"`
	Comment        *string        `gorm:"column:comment;type:text" json:"comment"`
	ReviewFile     *string        `gorm:"column:review_file" json:"review_file"`
	CompletedAt    time.Time      `gorm:"column:completed_at" json:"completed_at"`
}

// TableName specifies the table name for CompletedReview.
func (CompletedReview) TableName() string {
	return "completed_reviews"
}
