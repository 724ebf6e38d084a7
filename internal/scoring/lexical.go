// Package scoring implements the relevance strategies and the pipeline that
// combines them into a single 0-100 score per opportunity.
package scoring

import (
	"context"
	"strings"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// KeywordTiers holds the weighted vocabularies the lexical strategy matches
// against. Negative terms subtract from the normalized positive score.
type KeywordTiers struct {
	High     map[string]float64
	Medium   map[string]float64
	Negative map[string]float64
}

// Lexical scores by weighted keyword coverage: the sum of matched positive
// weights over the sum of all positive weights, scaled to 100, with negative
// matches subtracted afterwards. Matching every positive term yields 100.
type Lexical struct {
	tiers       KeywordTiers
	totalWeight float64
}

func NewLexical(tiers KeywordTiers) *Lexical {
	var total float64
	for _, w := range tiers.High {
		total += w
	}
	for _, w := range tiers.Medium {
		total += w
	}
	return &Lexical{tiers: tiers, totalWeight: total}
}

func (l *Lexical) Name() string { return "lexical" }

func (l *Lexical) Score(_ context.Context, record engine.OpportunityRecord) (float64, error) {
	if l.totalWeight == 0 {
		return 0, nil
	}
	text := strings.ToLower(record.Title + " " + record.Description)

	var matched float64
	for term, weight := range l.tiers.High {
		if strings.Contains(text, strings.ToLower(term)) {
			matched += weight
		}
	}
	for term, weight := range l.tiers.Medium {
		if strings.Contains(text, strings.ToLower(term)) {
			matched += weight
		}
	}

	score := matched / l.totalWeight * 100

	for term, penalty := range l.tiers.Negative {
		if strings.Contains(text, strings.ToLower(term)) {
			score -= penalty
		}
	}

	if score < 0 {
		return 0, nil
	}
	if score > 100 {
		return 100, nil
	}
	return score, nil
}
