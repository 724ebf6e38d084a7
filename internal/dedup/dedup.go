// Package dedup resolves normalized records against the store by content
// fingerprint, classifying each as new, updated, or unchanged.
package dedup

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

const lockStripes = 64

// Deduplicator serializes resolution per identity key so two sources carrying
// the same opportunity in one run cannot both insert it. Locks are striped
// rather than per-key to bound memory.
type Deduplicator struct {
	store  engine.Store
	logger *zap.Logger
	locks  [lockStripes]sync.Mutex
}

func NewDeduplicator(store engine.Store, logger *zap.Logger) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduplicator{store: store, logger: logger}
}

// Resolve classifies a record against the store. New records are not inserted
// here; the caller persists them after scoring. Updated and unchanged records
// have their volatile fields reconciled in place. A fingerprint miss falls
// back to the identity key so a listing whose due date moved resolves to its
// existing record instead of a duplicate.
func (d *Deduplicator) Resolve(ctx context.Context, rec engine.OpportunityRecord) (engine.DedupResult, error) {
	lock := &d.locks[stripe(rec.IdentityKey)]
	lock.Lock()
	defer lock.Unlock()

	existing, err := d.lookup(ctx, rec)
	if err != nil {
		return engine.DedupResult{}, err
	}
	if existing == nil {
		return engine.DedupResult{Resolution: engine.ResolutionNew}, nil
	}

	fields := diffVolatile(existing, rec)
	contentChanged := existing.Description != rec.Description || existing.Category != rec.Category
	if fields == nil && !contentChanged {
		touch := engine.UpdateFields{LastSeenAt: &rec.LastSeenAt}
		if err := d.store.Update(ctx, existing.ID, touch); err != nil {
			return engine.DedupResult{}, err
		}
		return engine.DedupResult{Resolution: engine.ResolutionUnchanged, ExistingID: existing.ID}, nil
	}

	if fields == nil {
		fields = &engine.UpdateFields{}
	}
	fields.LastSeenAt = &rec.LastSeenAt
	if contentChanged {
		fields.Description = &rec.Description
		if rec.Category != existing.Category && rec.Category != "" {
			fields.Category = &rec.Category
		}
	}
	if err := d.store.Update(ctx, existing.ID, *fields); err != nil {
		return engine.DedupResult{}, err
	}

	d.logger.Debug("record updated",
		zap.String("id", existing.ID),
		zap.String("fingerprint", rec.Fingerprint[:12]),
		zap.Bool("content_changed", contentChanged))
	return engine.DedupResult{
		Resolution:     engine.ResolutionUpdated,
		ExistingID:     existing.ID,
		ContentChanged: contentChanged,
	}, nil
}

// lookup finds the stored record the sighting corresponds to: exact
// fingerprint first, then identity key. A losing race against a concurrent
// insert gets one retry before it is surfaced.
func (d *Deduplicator) lookup(ctx context.Context, rec engine.OpportunityRecord) (*engine.OpportunityRecord, error) {
	existing, err := d.store.FindByFingerprint(ctx, rec.Fingerprint)
	if errors.Is(err, engine.ErrDedupConflict) {
		existing, err = d.store.FindByFingerprint(ctx, rec.Fingerprint)
	}
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return d.store.FindByIdentity(ctx, rec.IdentityKey)
}

// diffVolatile returns the volatile fields that differ between the stored
// record and a fresh sighting, or nil when none do.
func diffVolatile(existing *engine.OpportunityRecord, rec engine.OpportunityRecord) *engine.UpdateFields {
	var fields engine.UpdateFields
	changed := false

	if rec.Status != existing.Status && rec.Status != engine.StatusUnknown {
		fields.Status = &rec.Status
		changed = true
	}
	if !sameDate(existing.DueDate, rec.DueDate) && rec.DueDate != nil {
		fields.DueDate = rec.DueDate
		changed = true
	}
	if rec.Fingerprint != existing.Fingerprint {
		fields.Fingerprint = &rec.Fingerprint
		changed = true
	}
	if !changed {
		return nil
	}
	return &fields
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func stripe(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}
