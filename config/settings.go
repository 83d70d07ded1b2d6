package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// WorkflowSettings holds the review windows and write-retry budget used by
// the manuscript service.
type WorkflowSettings struct {
	InvitationWindow   time.Duration
	ReviewWindow       time.Duration
	RevisionWindow     time.Duration
	FinalizationWindow time.Duration
	ReminderLead       time.Duration
	MaxWriteAttempts   int
}

func DefaultWorkflowSettings() WorkflowSettings {
	return WorkflowSettings{
		InvitationWindow:   7 * 24 * time.Hour,
		ReviewWindow:       21 * 24 * time.Hour,
		RevisionWindow:     30 * 24 * time.Hour,
		FinalizationWindow: 7 * 24 * time.Hour,
		ReminderLead:       48 * time.Hour,
		MaxWriteAttempts:   5,
	}
}

// LoadWorkflowSettings reads overrides from the environment. Invalid or
// non-positive values keep the default.
func LoadWorkflowSettings() WorkflowSettings {
	s := DefaultWorkflowSettings()
	s.InvitationWindow = envDays("INVITATION_WINDOW_DAYS", s.InvitationWindow)
	s.ReviewWindow = envDays("REVIEW_WINDOW_DAYS", s.ReviewWindow)
	s.RevisionWindow = envDays("REVISION_WINDOW_DAYS", s.RevisionWindow)
	s.FinalizationWindow = envDays("FINALIZATION_WINDOW_DAYS", s.FinalizationWindow)
	if hours := envInt("REMINDER_LEAD_HOURS", 0); hours > 0 {
		s.ReminderLead = time.Duration(hours) * time.Hour
	}
	s.MaxWriteAttempts = envInt("MAX_WRITE_ATTEMPTS", s.MaxWriteAttempts)
	return s
}

func envDays(key string, fallback time.Duration) time.Duration {
	if days := envInt(key, 0); days > 0 {
		return time.Duration(days) * 24 * time.Hour
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("Warning: ignoring invalid %s=%q", key, raw)
		return fallback
	}
	return v
}

// EnvOrDefault returns the environment value for key, or fallback when unset.
func EnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
