package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// MemoryStore is an in-process store for tests and single-shot runs. It
// enforces fingerprint uniqueness the same way the SQL stores do, returning
// ErrDedupConflict on a losing insert.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]engine.OpportunityRecord
	byFinger   map[string]string
	byIdentity map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]engine.OpportunityRecord),
		byFinger:   make(map[string]string),
		byIdentity: make(map[string]string),
	}
}

func (m *MemoryStore) FindByFingerprint(_ context.Context, fingerprint string) (*engine.OpportunityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byFinger[fingerprint]
	if !ok {
		return nil, nil
	}
	rec := m.byID[id]
	return &rec, nil
}

func (m *MemoryStore) FindByIdentity(_ context.Context, key string) (*engine.OpportunityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byIdentity[key]
	if !ok {
		return nil, nil
	}
	rec := m.byID[id]
	return &rec, nil
}

func (m *MemoryStore) Insert(_ context.Context, record engine.OpportunityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byFinger[record.Fingerprint]; ok {
		return engine.ErrDedupConflict
	}
	m.byID[record.ID] = record
	m.byFinger[record.Fingerprint] = record.ID
	if record.IdentityKey != "" {
		m.byIdentity[record.IdentityKey] = record.ID
	}
	return nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fields engine.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return engine.ErrStoreUnavailable
	}
	if fields.Fingerprint != nil && *fields.Fingerprint != rec.Fingerprint {
		delete(m.byFinger, rec.Fingerprint)
		m.byFinger[*fields.Fingerprint] = id
	}
	applyFields(&rec, fields)
	m.byID[id] = rec
	return nil
}

func (m *MemoryStore) List(_ context.Context, filter engine.ListFilter) ([]engine.OpportunityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.OpportunityRecord
	for _, rec := range m.byID {
		if !matchesFilter(rec, filter) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DiscoveredAt.After(out[j].DiscoveredAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) DueWithin(_ context.Context, window time.Duration, now time.Time) ([]engine.OpportunityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := now.Add(window)
	var out []engine.OpportunityRecord
	for _, rec := range m.byID {
		if rec.Status != engine.StatusOpen || rec.DueDate == nil {
			continue
		}
		if rec.DueDate.After(now) && !rec.DueDate.After(cutoff) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DueDate.Before(*out[j].DueDate)
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func applyFields(rec *engine.OpportunityRecord, fields engine.UpdateFields) {
	if fields.Status != nil {
		rec.Status = *fields.Status
	}
	if fields.DueDate != nil {
		rec.DueDate = fields.DueDate
	}
	if fields.Description != nil {
		rec.Description = *fields.Description
	}
	if fields.Category != nil {
		rec.Category = *fields.Category
	}
	if fields.RelevanceScore != nil {
		rec.RelevanceScore = fields.RelevanceScore
	}
	if fields.LastSeenAt != nil {
		rec.LastSeenAt = *fields.LastSeenAt
	}
	if fields.Fingerprint != nil {
		rec.Fingerprint = *fields.Fingerprint
	}
}

func matchesFilter(rec engine.OpportunityRecord, filter engine.ListFilter) bool {
	if filter.Status != "" && rec.Status != filter.Status {
		return false
	}
	if filter.Category != "" && rec.Category != filter.Category {
		return false
	}
	if filter.MinScore > 0 {
		if rec.RelevanceScore == nil || *rec.RelevanceScore < filter.MinScore {
			return false
		}
	}
	return true
}
