package engine

import (
	"context"
	"time"
)

// Adapter fetches and parses one configured source into raw candidates.
// Implementations must apply per-request timeouts, bounded retries, and a
// polite delay between requests to the same host.
type Adapter interface {
	Fetch(ctx context.Context, src SourceConfig) ([]RawCandidate, error)
}

// Store persists opportunity records. The FindByFingerprint/Insert sequence
// must be safe under concurrent sightings of the same fingerprint: either the
// caller serializes per fingerprint, or the store enforces uniqueness and
// returns ErrDedupConflict on a losing insert.
type Store interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (*OpportunityRecord, error)
	// FindByIdentity looks a record up by its identity key, which survives
	// due-date changes. When several records share a key the most recently
	// discovered one is returned.
	FindByIdentity(ctx context.Context, key string) (*OpportunityRecord, error)
	Insert(ctx context.Context, record OpportunityRecord) error
	Update(ctx context.Context, id string, fields UpdateFields) error
	List(ctx context.Context, filter ListFilter) ([]OpportunityRecord, error)
	DueWithin(ctx context.Context, window time.Duration, now time.Time) ([]OpportunityRecord, error)
	Close() error
}

// UpdateFields carries the volatile fields rewritten on a repeat sighting.
// Nil pointers leave the stored value untouched.
type UpdateFields struct {
	Status         *Status
	DueDate        *time.Time
	Description    *string
	Category       *Category
	RelevanceScore *int
	LastSeenAt     *time.Time
	// Fingerprint is rewritten when a volatile fingerprint input (the due
	// date) moved on the same logical opportunity.
	Fingerprint *string
}

// ListFilter narrows the opportunity listing exposed to consumers.
type ListFilter struct {
	Status   Status
	Category Category
	MinScore int
	Limit    int
}

// Strategy is one independent relevance-estimation method. Score returns
// ErrStrategyUnavailable when the strategy cannot produce a value; the
// pipeline renormalizes weights over the strategies that did.
type Strategy interface {
	Name() string
	Score(ctx context.Context, record OpportunityRecord) (float64, error)
}

// Publisher pushes run summaries to notification consumers.
type Publisher interface {
	PublishSummary(ctx context.Context, summary RunSummary) error
	Close() error
}

// SnapshotStore archives raw source payloads that failed to parse, so markup
// drift can be diagnosed without re-fetching.
type SnapshotStore interface {
	Save(ctx context.Context, sourceID string, fetchedAt time.Time, payload []byte) (string, error)
}

// Clock returns the current time (swappable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces stable record identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
