// Package normalize turns raw source candidates into canonical opportunity
// records: trimmed fields, parsed dates, inferred category, extracted value,
// and a content fingerprint for deduplication.
package normalize

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
	"github.com/Texasdada13/procurement-intel-tool/internal/fingerprint"
)

type Normalizer struct {
	logger *zap.Logger
}

func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize builds a canonical record from a raw candidate. Candidates with
// neither a usable title nor a URL carry no identity and are rejected with
// ErrMalformedRecord.
func (n *Normalizer) Normalize(raw engine.RawCandidate, now time.Time) (engine.OpportunityRecord, error) {
	title := collapseWhitespace(raw.Title)
	url := strings.TrimSpace(raw.URL)
	if title == "" && url == "" {
		return engine.OpportunityRecord{}, engine.ErrMalformedRecord
	}
	if title == "" {
		n.logger.Debug("candidate has no title", zap.String("source", raw.SourceID), zap.String("url", url))
		return engine.OpportunityRecord{}, engine.ErrMalformedRecord
	}

	agency := collapseWhitespace(raw.Agency)
	description := collapseWhitespace(raw.Body)
	posted := ParseDate(raw.PostedDateRaw)
	due := ParseDate(raw.DueDateRaw)
	if raw.DueDateRaw != "" && due == nil {
		n.logger.Debug("unparseable due date",
			zap.String("source", raw.SourceID),
			zap.String("raw", raw.DueDateRaw))
	}

	status := engine.StatusOpen
	if due != nil && due.Before(now) {
		status = engine.StatusClosed
	}

	record := engine.OpportunityRecord{
		SourceID:           raw.SourceID,
		Title:              title,
		Description:        description,
		Agency:             agency,
		SolicitationNumber: collapseWhitespace(raw.SolicitationNumber),
		Category:           InferCategory(title, description),
		PostedDate:         posted,
		DueDate:            due,
		URL:                url,
		EstimatedValue:     ExtractEstimatedValue(title + " " + description),
		Fingerprint:        fingerprint.Compute(title, agency, due, url),
		IdentityKey:        fingerprint.Identity(title, agency, url),
		Status:             status,
		DiscoveredAt:       now,
		LastSeenAt:         now,
	}
	return record, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
