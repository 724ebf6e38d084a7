// Package orchestrator drives one discovery run: fan out over the configured
// sources, normalize and deduplicate what they yield, score what is new or
// changed, and persist the results.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/dedup"
	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
	"github.com/Texasdada13/procurement-intel-tool/internal/metrics"
	"github.com/Texasdada13/procurement-intel-tool/internal/normalize"
	"github.com/Texasdada13/procurement-intel-tool/internal/scoring"
	"github.com/Texasdada13/procurement-intel-tool/internal/snapshot"
	"github.com/Texasdada13/procurement-intel-tool/internal/source"
)

// Orchestrator owns the discovery run plumbing. A single instance serves the
// whole process; Run may be invoked repeatedly but runs are not concurrent
// with themselves (the scheduler guards that).
type Orchestrator struct {
	sources     []engine.SourceConfig
	registry    *source.Registry
	normalizer  *normalize.Normalizer
	dedup       *dedup.Deduplicator
	pipeline    *scoring.Pipeline
	store       engine.Store
	publisher   engine.Publisher
	snapshots   engine.SnapshotStore
	clock       engine.Clock
	ids         engine.IDGenerator
	concurrency int
	logger      *zap.Logger
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Sources     []engine.SourceConfig
	Registry    *source.Registry
	Normalizer  *normalize.Normalizer
	Dedup       *dedup.Deduplicator
	Pipeline    *scoring.Pipeline
	Store       engine.Store
	Publisher   engine.Publisher
	Snapshots   engine.SnapshotStore
	Clock       engine.Clock
	IDs         engine.IDGenerator
	Concurrency int
	Logger      *zap.Logger
}

func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Registry == nil:
		return nil, fmt.Errorf("registry is required")
	case cfg.Normalizer == nil:
		return nil, fmt.Errorf("normalizer is required")
	case cfg.Dedup == nil:
		return nil, fmt.Errorf("deduplicator is required")
	case cfg.Pipeline == nil:
		return nil, fmt.Errorf("scoring pipeline is required")
	case cfg.Store == nil:
		return nil, fmt.Errorf("store is required")
	case cfg.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	case cfg.IDs == nil:
		return nil, fmt.Errorf("id generator is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Snapshots == nil {
		cfg.Snapshots = snapshot.Discard{}
	}
	return &Orchestrator{
		sources:     cfg.Sources,
		registry:    cfg.Registry,
		normalizer:  cfg.Normalizer,
		dedup:       cfg.Dedup,
		pipeline:    cfg.Pipeline,
		store:       cfg.Store,
		publisher:   cfg.Publisher,
		snapshots:   cfg.Snapshots,
		clock:       cfg.Clock,
		ids:         cfg.IDs,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}, nil
}

// sourceTally carries one source's contribution back to the run accumulator.
type sourceTally struct {
	processed, created, updated, unchanged, malformed int
	failure                                           *engine.SourceFailure
}

// Run executes one full discovery pass over all enabled sources. A failing
// source never aborts the run; it is recorded in the summary and the rest
// proceed. Run itself only fails on publish problems, never on source ones.
func (o *Orchestrator) Run(ctx context.Context) (engine.RunSummary, error) {
	runID, err := o.ids.NewID()
	if err != nil {
		return engine.RunSummary{}, fmt.Errorf("generate run id: %w", err)
	}
	started := o.clock.Now()
	summary := engine.RunSummary{RunID: runID, StartedAt: started}
	o.logger.Info("discovery run started",
		zap.String("run_id", runID),
		zap.Int("sources", len(o.sources)))

	tallies := make(chan sourceTally, len(o.sources))
	slots := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	for _, src := range o.sources {
		if !src.Enabled {
			continue
		}
		// Once the run is cancelled, no further sources start. In-flight
		// sources wind down through their own context checks.
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case slots <- struct{}{}:
			wg.Add(1)
			go func(src engine.SourceConfig) {
				defer wg.Done()
				defer func() { <-slots }()
				tallies <- o.runSource(ctx, src)
			}(src)
			continue
		}
		break
	}
	wg.Wait()
	close(tallies)

	for tally := range tallies {
		summary.Processed += tally.processed
		summary.New += tally.created
		summary.Updated += tally.updated
		summary.Unchanged += tally.unchanged
		summary.Malformed += tally.malformed
		if tally.failure != nil {
			summary.FailedSources = append(summary.FailedSources, *tally.failure)
		}
	}

	summary.FinishedAt = o.clock.Now()
	metrics.ObserveRunDuration(summary.FinishedAt.Sub(summary.StartedAt))
	o.logger.Info("discovery run finished",
		zap.String("run_id", runID),
		zap.Int("processed", summary.Processed),
		zap.Int("new", summary.New),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("malformed", summary.Malformed),
		zap.Strings("failed_sources", summary.FailedSourceIDs()))

	if o.publisher != nil {
		if err := o.publisher.PublishSummary(ctx, summary); err != nil {
			return summary, fmt.Errorf("publish run summary: %w", err)
		}
	}
	return summary, nil
}

// runSource fetches and processes one source end to end.
func (o *Orchestrator) runSource(ctx context.Context, src engine.SourceConfig) sourceTally {
	logger := o.logger.With(zap.String("source", src.ID))

	adapter, ok := o.registry.For(src.Kind)
	if !ok {
		metrics.ObserveSourceFailure(src.ID, "config")
		return sourceTally{failure: &engine.SourceFailure{
			SourceID: src.ID,
			Reason:   fmt.Sprintf("no adapter registered for kind %q", src.Kind),
		}}
	}

	candidates, err := adapter.Fetch(ctx, src)
	if err != nil {
		kind := failureKind(err)
		metrics.ObserveSourceFailure(src.ID, kind)
		logger.Warn("source fetch failed", zap.String("kind", kind), zap.Error(err))
		o.archiveParseFailure(ctx, src.ID, err)
		return sourceTally{failure: &engine.SourceFailure{SourceID: src.ID, Reason: err.Error()}}
	}

	var tally sourceTally
	now := o.clock.Now()
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		record, err := o.normalizer.Normalize(candidate, now)
		if err != nil {
			if errors.Is(err, engine.ErrMalformedRecord) {
				tally.malformed++
				metrics.ObserveMalformed(src.ID)
				continue
			}
			logger.Warn("normalize failed", zap.Error(err))
			continue
		}
		tally.processed++

		disposition, err := o.processRecord(ctx, record)
		if err != nil {
			logger.Warn("record processing failed",
				zap.String("title", record.Title),
				zap.Error(err))
			continue
		}
		metrics.ObserveRecord(src.ID, disposition.String())
		switch disposition {
		case engine.ResolutionNew:
			tally.created++
		case engine.ResolutionUpdated:
			tally.updated++
		case engine.ResolutionUnchanged:
			tally.unchanged++
		}
	}

	logger.Debug("source complete",
		zap.Int("processed", tally.processed),
		zap.Int("new", tally.created))
	return tally
}

// processRecord resolves a normalized record against the store, scoring it
// when it is new or its content changed. Unchanged records skip scoring.
func (o *Orchestrator) processRecord(ctx context.Context, record engine.OpportunityRecord) (engine.Resolution, error) {
	result, err := o.dedup.Resolve(ctx, record)
	if err != nil {
		return 0, err
	}

	switch result.Resolution {
	case engine.ResolutionNew:
		breakdown := o.pipeline.Score(ctx, record)
		score := breakdown.Final
		record.RelevanceScore = &score
		if breakdown.Category != "" {
			record.Category = breakdown.Category
		}
		metrics.ObserveScore(score)

		record.ID, err = o.ids.NewID()
		if err != nil {
			return 0, fmt.Errorf("generate record id: %w", err)
		}
		if err := o.store.Insert(ctx, record); err != nil {
			if errors.Is(err, engine.ErrDedupConflict) {
				// Lost a cross-run race; the record exists now, so treat this
				// sighting as unchanged.
				return engine.ResolutionUnchanged, nil
			}
			return 0, err
		}
		return engine.ResolutionNew, nil

	case engine.ResolutionUpdated:
		if result.ContentChanged {
			breakdown := o.pipeline.Score(ctx, record)
			score := breakdown.Final
			metrics.ObserveScore(score)
			fields := engine.UpdateFields{RelevanceScore: &score}
			if breakdown.Category != "" {
				fields.Category = &breakdown.Category
			}
			if err := o.store.Update(ctx, result.ExistingID, fields); err != nil {
				return 0, err
			}
		}
		return engine.ResolutionUpdated, nil

	default:
		return engine.ResolutionUnchanged, nil
	}
}

// archiveParseFailure snapshots the offending payload sample when a fetch
// failed at the parse stage.
func (o *Orchestrator) archiveParseFailure(ctx context.Context, sourceID string, err error) {
	var parseErr *engine.ParseError
	if !errors.As(err, &parseErr) || len(parseErr.Sample) == 0 {
		return
	}
	uri, saveErr := o.snapshots.Save(ctx, sourceID, o.clock.Now(), []byte(parseErr.Sample))
	if saveErr != nil {
		o.logger.Warn("snapshot archive failed",
			zap.String("source", sourceID),
			zap.Error(saveErr))
		return
	}
	if uri != "" {
		o.logger.Info("parse failure archived",
			zap.String("source", sourceID),
			zap.String("uri", uri))
	}
}

func failureKind(err error) string {
	var renderErr *engine.RenderTimeoutError
	var parseErr *engine.ParseError
	var unavailableErr *engine.SourceUnavailableError
	switch {
	case errors.As(err, &renderErr):
		return "render_timeout"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &unavailableErr):
		return "unavailable"
	default:
		return "other"
	}
}
