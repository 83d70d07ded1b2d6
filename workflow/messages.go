package workflow

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"manuscript-review-api/models"
)

//go:embed status_messages.yaml
var statusMessagesYAML []byte

// Event keys for notifications that are not tied to a status change.
const (
	EventInvitation       = "invitation"
	EventReviewerReminder = "reviewer_reminder"
	EventRevisionReminder = "revision_reminder"
	EventResubmitted      = "resubmitted"
	EventReviewSubmitted  = "review_submitted"
	EventUnassigned       = "unassigned"
)

// StatusMessage is the notification text for one status, per audience.
type StatusMessage struct {
	Type       string `yaml:"type"`
	Title      string `yaml:"title"`
	Researcher string `yaml:"researcher"`
	Reviewer   string `yaml:"reviewer"`
	Admin      string `yaml:"admin"`
}

// EventMessage is the text of a non-status notification.
type EventMessage struct {
	Type    string `yaml:"type"`
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
}

// MessageTable is the parsed status message table.
type MessageTable struct {
	Statuses map[models.ManuscriptStatus]StatusMessage `yaml:"statuses"`
	Events   map[string]EventMessage                   `yaml:"events"`
}

var (
	messagesOnce sync.Once
	messages     *MessageTable
	messagesErr  error
)

// ParseMessageTable decodes a message table and checks that every status has
// an entry with a title.
func ParseMessageTable(data []byte) (*MessageTable, error) {
	var table MessageTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse status messages: %w", err)
	}
	missing := make([]string, 0)
	for _, status := range models.AllStatuses {
		msg, ok := table.Statuses[status]
		if !ok || strings.TrimSpace(msg.Title) == "" {
			missing = append(missing, string(status))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("status messages missing for: %s", strings.Join(missing, ", "))
	}
	return &table, nil
}

// Messages returns the embedded message table. The table is validated on
// first use; a broken table is a build defect and panics.
func Messages() *MessageTable {
	messagesOnce.Do(func() {
		messages, messagesErr = ParseMessageTable(statusMessagesYAML)
	})
	if messagesErr != nil {
		panic(messagesErr)
	}
	return messages
}

// ForStatus returns the message for status and whether one exists.
func (t *MessageTable) ForStatus(status models.ManuscriptStatus) (StatusMessage, bool) {
	msg, ok := t.Statuses[status]
	return msg, ok
}

// ForEvent returns the message for an event key and whether one exists.
func (t *MessageTable) ForEvent(key string) (EventMessage, bool) {
	msg, ok := t.Events[key]
	return msg, ok
}

// Audience picks the sentence meant for role, or "" when the role is not
// notified for this status.
func (m StatusMessage) Audience(role models.Role) string {
	switch role {
	case models.RoleResearcher:
		return m.Researcher
	case models.RolePeerReviewer:
		return m.Reviewer
	case models.RoleAdmin:
		return m.Admin
	}
	return ""
}

// ApplyPlaceholders replaces every {{key}} in text with data[key].
func ApplyPlaceholders(text string, data map[string]string) string {
	result := text
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}
