package publisher

import (
	"context"
	"sync"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// MemoryPublisher records published summaries in process. Used when no
// notification transport is configured, and by tests to observe publishes.
type MemoryPublisher struct {
	mu        sync.Mutex
	summaries []engine.RunSummary
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) PublishSummary(_ context.Context, summary engine.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, summary)
	return nil
}

// Summaries returns a copy of everything published so far.
func (m *MemoryPublisher) Summaries() []engine.RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]engine.RunSummary, len(m.summaries))
	copy(out, m.summaries)
	return out
}

func (m *MemoryPublisher) Close() error { return nil }
