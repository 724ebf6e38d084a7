package api

import (
	"time"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// opportunityDTO is the wire shape for a persisted opportunity. It adds the
// display tier so consumers do not re-derive score bands.
type opportunityDTO struct {
	ID                 string     `json:"id"`
	SourceID           string     `json:"source_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Agency             string     `json:"agency,omitempty"`
	SolicitationNumber string     `json:"solicitation_number,omitempty"`
	Category           string     `json:"category"`
	PostedDate         *time.Time `json:"posted_date,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	URL                string     `json:"url"`
	EstimatedValue     float64    `json:"estimated_value,omitempty"`
	RelevanceScore     *int       `json:"relevance_score,omitempty"`
	RelevanceTier      string     `json:"relevance_tier"`
	Status             string     `json:"status"`
	DiscoveredAt       time.Time  `json:"discovered_at"`
	LastSeenAt         time.Time  `json:"last_seen_at"`
}

func toDTO(rec engine.OpportunityRecord) opportunityDTO {
	return opportunityDTO{
		ID:                 rec.ID,
		SourceID:           rec.SourceID,
		Title:              rec.Title,
		Description:        rec.Description,
		Agency:             rec.Agency,
		SolicitationNumber: rec.SolicitationNumber,
		Category:           string(rec.Category),
		PostedDate:         rec.PostedDate,
		DueDate:            rec.DueDate,
		URL:                rec.URL,
		EstimatedValue:     rec.EstimatedValue,
		RelevanceScore:     rec.RelevanceScore,
		RelevanceTier:      rec.RelevanceTier(),
		Status:             string(rec.Status),
		DiscoveredAt:       rec.DiscoveredAt,
		LastSeenAt:         rec.LastSeenAt,
	}
}

func toDTOs(records []engine.OpportunityRecord) []opportunityDTO {
	out := make([]opportunityDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, toDTO(rec))
	}
	return out
}
