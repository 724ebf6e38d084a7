package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

const listingPage = `<html><body>
<div class="solicitation">
  <a href="/bids/101">IT Assessment and Technology Modernization Study</a>
  <span class="agency">Orange County</span>
  <span class="due">09/15/2026</span>
  <span class="number">RFP-26-101</span>
</div>
<div class="solicitation">
  <a href="/bids/102">Cybersecurity Audit and Vulnerability Assessment</a>
  <span class="agency">Lake County</span>
  <span class="due">10/01/2026</span>
</div>
<div class="solicitation">
  <a href="/nav">View All</a>
</div>
</body></html>`

func staticTestConfig(url string) engine.SourceConfig {
	return engine.SourceConfig{
		ID:      "portal",
		Kind:    engine.AdapterStatic,
		URL:     url,
		Agency:  "State of Florida",
		Enabled: true,
		Selectors: engine.Selectors{
			Item:    "div.solicitation",
			Title:   "a",
			Agency:  "span.agency",
			DueDate: "span.due",
			Number:  "span.number",
			Link:    "a",
		},
	}
}

func newStaticAdapter(t *testing.T) *StaticAdapter {
	t.Helper()
	return NewStaticAdapter(
		FetchOptions{UserAgent: "test-bot", Timeout: 5 * time.Second},
		NewHostLimiter(0),
		NewRetryPolicy(2, time.Millisecond, 5*time.Millisecond),
		zap.NewNop(),
	)
}

func TestStaticAdapterParsesListing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, listingPage)
	}))
	defer srv.Close()

	adapter := newStaticAdapter(t)
	candidates, err := adapter.Fetch(context.Background(), staticTestConfig(srv.URL))
	require.NoError(t, err)
	require.Len(t, candidates, 2, "navigation link should be skipped")

	first := candidates[0]
	require.Equal(t, "IT Assessment and Technology Modernization Study", first.Title)
	require.Equal(t, "Orange County", first.Agency)
	require.Equal(t, "09/15/2026", first.DueDateRaw)
	require.Equal(t, "RFP-26-101", first.SolicitationNumber)
	require.Equal(t, srv.URL+"/bids/101", first.URL)

	// Missing per-item agency falls back to the source default.
	require.Equal(t, "Lake County", candidates[1].Agency)
}

func TestStaticAdapterFollowsPaginationUntilEmptyPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" || page == "1" || page == "2" {
			fmt.Fprint(w, listingPage)
			return
		}
		fmt.Fprint(w, `<html><body><p>No more results</p></body></html>`)
	}))
	defer srv.Close()

	cfg := staticTestConfig(srv.URL)
	cfg.PageParam = "page"
	cfg.MaxPages = 5

	adapter := newStaticAdapter(t)
	candidates, err := adapter.Fetch(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, candidates, 4, "two pages of two candidates each")
}

func TestStaticAdapterReportsParseFailureOnUnexpectedMarkup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><table id="legacy-layout"></table></body></html>`)
	}))
	defer srv.Close()

	adapter := newStaticAdapter(t)
	_, err := adapter.Fetch(context.Background(), staticTestConfig(srv.URL))

	var parseErr *engine.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "portal", parseErr.SourceID)
	require.Contains(t, parseErr.Sample, "legacy-layout")
}

func TestStaticAdapterReportsSourceUnavailableAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter := newStaticAdapter(t)
	_, err := adapter.Fetch(context.Background(), staticTestConfig(srv.URL))

	var srcErr *engine.SourceUnavailableError
	require.ErrorAs(t, err, &srcErr)
	require.Equal(t, "portal", srcErr.SourceID)
	require.Greater(t, calls, 1, "transient failures should be retried")
}

func TestStaticAdapterHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := newStaticAdapter(t)
	_, err := adapter.Fetch(ctx, staticTestConfig("http://127.0.0.1:0"))

	var srcErr *engine.SourceUnavailableError
	require.ErrorAs(t, err, &srcErr)
	require.ErrorIs(t, err, context.Canceled)
}
