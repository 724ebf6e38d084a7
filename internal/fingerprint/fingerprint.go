// Package fingerprint computes the stable dedup key for opportunity records.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Compute hashes the canonical-normalized core fields of an opportunity:
// lower-cased whitespace-collapsed title, lower-cased agency, and the due
// date as an ISO date (empty when unknown). The result is stable across
// re-scrapes of the same listing even when incidental casing or spacing
// differs. When agency and due date are both empty the source URL is folded
// in, so generic titles on different portals do not collide.
func Compute(title, agency string, dueDate *time.Time, sourceURL string) string {
	due := ""
	if dueDate != nil {
		due = dueDate.Format("2006-01-02")
	}
	normAgency := strings.ToLower(strings.TrimSpace(agency))

	parts := []string{Canonical(title), normAgency, due}
	if normAgency == "" && due == "" {
		parts = append(parts, strings.TrimSpace(sourceURL))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Identity hashes the fields that name a logical opportunity independent of
// its schedule: canonical title and lower-cased agency. A listing whose due
// date is extended keeps its identity key even though its fingerprint moves.
// When the agency is empty the source URL is folded in instead.
func Identity(title, agency, sourceURL string) string {
	normAgency := strings.ToLower(strings.TrimSpace(agency))
	parts := []string{Canonical(title), normAgency}
	if normAgency == "" {
		parts = append(parts, strings.TrimSpace(sourceURL))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Canonical lower-cases a string and collapses runs of whitespace to single
// spaces.
func Canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
