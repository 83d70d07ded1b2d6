package utils

import (
	"fmt"
	"strings"

	"manuscript-review-api/models"
)

var (
	// Aliases accepted for each status in query strings and request bodies.
	statusSynonyms = map[models.ManuscriptStatus][]string{
		models.StatusPending:               {"pending", "submitted", "received"},
		models.StatusAssigningPeerReviewer: {"assigning_peer_reviewer", "assigning", "screened"},
		models.StatusPeerReviewerAssigned:  {"peer_reviewer_assigned", "assigned", "invited"},
		models.StatusPeerReviewerReviewing: {"peer_reviewer_reviewing", "reviewing", "under_review"},
		models.StatusBackToAdmin:           {"back_to_admin", "reviews_complete", "awaiting_decision"},
		models.StatusForRevisionMinor:      {"for_revision_minor", "minor_revision", "minor"},
		models.StatusForRevisionMajor:      {"for_revision_major", "major_revision", "major"},
		models.StatusForPublication:        {"for_publication", "accepted", "publication"},
		models.StatusRejected:              {"rejected", "reject"},
		models.StatusPeerReviewerRejected:  {"peer_reviewer_rejected", "reviewer_rejected"},
		models.StatusNonAcceptance:         {"non_acceptance", "non-acceptance", "desk_rejected"},
	}
	statusAliasToCanonical = buildStatusAliasMap()
)

func buildStatusAliasMap() map[string]models.ManuscriptStatus {
	aliasMap := make(map[string]models.ManuscriptStatus)
	for canonical, synonyms := range statusSynonyms {
		aliasMap[normalizeStatusKey(string(canonical))] = canonical
		for _, alias := range synonyms {
			if key := normalizeStatusKey(alias); key != "" {
				aliasMap[key] = canonical
			}
		}
	}
	return aliasMap
}

// normalizeStatusKey lowercases and collapses spaces, dashes and brackets
// into underscores so "For Revision (Minor)" and "for_revision_minor" match.
func normalizeStatusKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == ' ', r == '_', r == '-', r == '(', r == ')':
			if b.Len() > 0 && !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ParseStatus resolves a status label or alias to its canonical value.
func ParseStatus(value string) (models.ManuscriptStatus, error) {
	if status := models.ManuscriptStatus(strings.TrimSpace(value)); status.Valid() {
		return status, nil
	}
	if status, ok := statusAliasToCanonical[normalizeStatusKey(value)]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown manuscript status %q", value)
}

// ParseStatusList parses a comma-separated list, skipping empty entries.
func ParseStatusList(value string) ([]models.ManuscriptStatus, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	out := make([]models.ManuscriptStatus, 0, len(parts))
	seen := make(map[models.ManuscriptStatus]struct{}, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		status, err := ParseStatus(part)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[status]; dup {
			continue
		}
		seen[status] = struct{}{}
		out = append(out, status)
	}
	return out, nil
}
