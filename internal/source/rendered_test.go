package source

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

func renderedTestConfig() engine.SourceConfig {
	cfg := staticTestConfig("https://portal.example.gov/bids")
	cfg.ID = "portal-js"
	cfg.Kind = engine.AdapterRendered
	return cfg
}

func TestNewRenderedAdapterDefaults(t *testing.T) {
	t.Parallel()

	adapter := NewRenderedAdapter(FetchOptions{}, 0, 0, NewHostLimiter(0), zap.NewNop())
	defer adapter.Close()

	require.Equal(t, 30*time.Second, adapter.navTimeout)
	require.Equal(t, 1, cap(adapter.slots))
}

func TestRenderedAdapterSlotAcquireRelease(t *testing.T) {
	t.Parallel()

	adapter := NewRenderedAdapter(FetchOptions{}, time.Second, 2, NewHostLimiter(0), zap.NewNop())
	defer adapter.Close()

	require.NoError(t, adapter.acquire(context.Background()))
	require.NoError(t, adapter.acquire(context.Background()))

	// Pool exhausted: a cancelled waiter fails instead of hanging.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, adapter.acquire(ctx))

	adapter.release()
	require.NoError(t, adapter.acquire(context.Background()))
}

func TestRenderedFetchTimeoutYieldsRenderTimeout(t *testing.T) {
	t.Parallel()

	adapter := NewRenderedAdapter(FetchOptions{}, 50*time.Millisecond, 1, NewHostLimiter(0), zap.NewNop())
	defer adapter.Close()
	adapter.renderFn = func(context.Context, engine.SourceConfig) (string, error) {
		return "", fmt.Errorf("browser session: %w", context.DeadlineExceeded)
	}

	candidates, err := adapter.Fetch(context.Background(), renderedTestConfig())
	require.Empty(t, candidates)

	var timeoutErr *engine.RenderTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, "portal-js", timeoutErr.SourceID)
	require.Equal(t, "50ms", timeoutErr.Timeout)

	// The slot came back despite the failure.
	require.NoError(t, adapter.acquire(context.Background()))
}

func TestRenderedFetchExtractsCandidates(t *testing.T) {
	t.Parallel()

	adapter := NewRenderedAdapter(FetchOptions{}, time.Second, 1, NewHostLimiter(0), zap.NewNop())
	defer adapter.Close()
	adapter.renderFn = func(context.Context, engine.SourceConfig) (string, error) {
		return listingPage, nil
	}

	candidates, err := adapter.Fetch(context.Background(), renderedTestConfig())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "IT Assessment and Technology Modernization Study", candidates[0].Title)
}

func TestRenderedFetchSelectorMissIsParseError(t *testing.T) {
	t.Parallel()

	adapter := NewRenderedAdapter(FetchOptions{}, time.Second, 1, NewHostLimiter(0), zap.NewNop())
	defer adapter.Close()
	adapter.renderFn = func(context.Context, engine.SourceConfig) (string, error) {
		return "<html><body><p>maintenance window</p></body></html>", nil
	}

	_, err := adapter.Fetch(context.Background(), renderedTestConfig())

	var parseErr *engine.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Contains(t, parseErr.Sample, "maintenance")
}
