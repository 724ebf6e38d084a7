package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrMalformedRecord marks a candidate missing the fields needed to form
	// a canonical record. The candidate is dropped and counted, never fatal.
	ErrMalformedRecord = errors.New("malformed candidate record")

	// ErrStrategyUnavailable marks a scoring strategy that could not produce
	// a value. The pipeline renormalizes weights; never surfaced to callers.
	ErrStrategyUnavailable = errors.New("scoring strategy unavailable")

	// ErrDedupConflict marks a concurrent-write race on one fingerprint.
	// The update path is retried once; a second conflict is a store bug.
	ErrDedupConflict = errors.New("dedup fingerprint conflict")

	// ErrStoreUnavailable marks an unrecoverable store connection loss. It is
	// the only condition that suspends the scheduler.
	ErrStoreUnavailable = errors.New("persisted store unavailable")
)

// SourceUnavailableError reports a source that could not be fetched after
// exhausting retries. The orchestrator records it and moves on.
type SourceUnavailableError struct {
	SourceID string
	Err      error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.SourceID, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// RenderTimeoutError reports a rendering session that exceeded its page-load
// budget. A rendering-adapter-specific instance of source unavailability.
type RenderTimeoutError struct {
	SourceID string
	Timeout  string
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("source %s render timed out after %s", e.SourceID, e.Timeout)
}

// ParseError reports a structural mismatch between expected and actual source
// markup. Sample holds a bounded excerpt of the offending input.
type ParseError struct {
	SourceID string
	Sample   string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("source %s parse failure: %v", e.SourceID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseSample truncates raw source input for inclusion in a ParseError.
func ParseSample(payload []byte) string {
	const max = 256
	if len(payload) <= max {
		return string(payload)
	}
	return string(payload[:max])
}
