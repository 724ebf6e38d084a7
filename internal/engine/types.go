// Package engine defines the core types and interfaces for the procurement
// discovery engine: source adapters, the canonical opportunity record, the
// persistence contract, and the scoring pipeline contracts.
package engine

import "time"

// AdapterKind selects a source adapter implementation.
type AdapterKind string

// Adapter kinds configured per source.
const (
	AdapterStatic   AdapterKind = "static"
	AdapterRendered AdapterKind = "rendered"
	AdapterAPI      AdapterKind = "api"
	AdapterFeed     AdapterKind = "feed"
)

// Category classifies an opportunity by service line.
type Category string

// Opportunity categories, ordered by inference priority.
const (
	CategoryITConsulting         Category = "it-consulting"
	CategoryCybersecurity        Category = "cybersecurity"
	CategorySoftware             Category = "software"
	CategoryCloud                Category = "cloud"
	CategoryData                 Category = "data"
	CategoryProfessionalServices Category = "professional-services"
	CategoryOther                Category = "other"
)

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryITConsulting, CategoryCybersecurity, CategorySoftware,
		CategoryCloud, CategoryData, CategoryProfessionalServices, CategoryOther:
		return true
	}
	return false
}

// Status tracks the lifecycle of a persisted opportunity.
type Status string

// Opportunity status values.
const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusAwarded Status = "awarded"
	StatusUnknown Status = "unknown"
)

// SourceConfig describes one configured procurement portal. The engine treats
// it as read-only input owned by configuration management.
type SourceConfig struct {
	ID                string            `mapstructure:"id"`
	Name              string            `mapstructure:"name"`
	Kind              AdapterKind       `mapstructure:"kind"`
	URL               string            `mapstructure:"url"`
	Agency            string            `mapstructure:"agency"`
	Enabled           bool              `mapstructure:"enabled"`
	MaxPages          int               `mapstructure:"max_pages"`
	PageParam         string            `mapstructure:"page_param"`
	WaitSelector      string            `mapstructure:"wait_selector"`
	Selectors         Selectors         `mapstructure:"selectors"`
	FieldPaths        map[string]string `mapstructure:"field_paths"`
	ItemsPath         string            `mapstructure:"items_path"`
	FetchDelay        time.Duration     `mapstructure:"fetch_delay"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second"`
}

// Selectors holds the CSS selectors used to extract candidate fields from a
// markup source. Item is required; the rest are resolved relative to it.
type Selectors struct {
	Item       string `mapstructure:"item"`
	Title      string `mapstructure:"title"`
	Agency     string `mapstructure:"agency"`
	Body       string `mapstructure:"body"`
	PostedDate string `mapstructure:"posted_date"`
	DueDate    string `mapstructure:"due_date"`
	Link       string `mapstructure:"link"`
	Number     string `mapstructure:"number"`
	Attachment string `mapstructure:"attachment"`
}

// RawCandidate is the source-shaped record yielded by one adapter invocation.
// It is never persisted; the normalizer consumes it immediately.
type RawCandidate struct {
	SourceID           string
	Title              string
	Body               string
	Agency             string
	SolicitationNumber string
	PostedDateRaw      string
	DueDateRaw         string
	URL                string
	Attachments        []string
}

// OpportunityRecord is the canonical, persisted opportunity entity.
type OpportunityRecord struct {
	ID                 string     `json:"id"`
	SourceID           string     `json:"source_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Agency             string     `json:"agency"`
	SolicitationNumber string     `json:"solicitation_number,omitempty"`
	Category           Category   `json:"category"`
	PostedDate         *time.Time `json:"posted_date,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	URL                string     `json:"url"`
	EstimatedValue     float64    `json:"estimated_value,omitempty"`
	Fingerprint        string     `json:"fingerprint"`
	IdentityKey        string     `json:"identity_key"`
	RelevanceScore     *int       `json:"relevance_score,omitempty"`
	Status             Status     `json:"status"`
	DiscoveredAt       time.Time  `json:"discovered_at"`
	LastSeenAt         time.Time  `json:"last_seen_at"`
}

// RelevanceTier is a display convention over the relevance score.
func (r OpportunityRecord) RelevanceTier() string {
	if r.RelevanceScore == nil {
		return "unscored"
	}
	switch score := *r.RelevanceScore; {
	case score >= 70:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

// StrategyScore is one strategy's contribution to a combined score.
type StrategyScore struct {
	Strategy  string  `json:"strategy"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Available bool    `json:"available"`
}

// ScoreBreakdown carries per-strategy sub-scores and the combined final score.
// It lives only for the duration of a scoring call.
type ScoreBreakdown struct {
	Strategies []StrategyScore `json:"strategies"`
	Final      int             `json:"final"`
	Category   Category        `json:"category,omitempty"`
}

// Resolution is the deduplicator's verdict for a normalized record.
type Resolution int

// Dedup resolutions.
const (
	ResolutionNew Resolution = iota
	ResolutionUpdated
	ResolutionUnchanged
)

// String implements fmt.Stringer for log fields.
func (r Resolution) String() string {
	switch r {
	case ResolutionNew:
		return "new"
	case ResolutionUpdated:
		return "updated"
	case ResolutionUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// DedupResult pairs a resolution with the surviving record identity.
type DedupResult struct {
	Resolution     Resolution
	ExistingID     string
	ContentChanged bool
}

// SourceFailure records one source that failed during a run.
type SourceFailure struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// RunSummary is emitted after every discovery run.
type RunSummary struct {
	RunID         string          `json:"run_id"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	Processed     int             `json:"processed"`
	New           int             `json:"new"`
	Updated       int             `json:"updated"`
	Unchanged     int             `json:"unchanged"`
	Malformed     int             `json:"malformed"`
	FailedSources []SourceFailure `json:"failed_sources"`
}

// FailedSourceIDs returns just the identifiers, for summary logging.
func (s RunSummary) FailedSourceIDs() []string {
	ids := make([]string, 0, len(s.FailedSources))
	for _, f := range s.FailedSources {
		ids = append(ids, f.SourceID)
	}
	return ids
}
