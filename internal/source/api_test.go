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

func newAPIAdapter(t *testing.T) *APIAdapter {
	t.Helper()
	return NewAPIAdapter(
		FetchOptions{UserAgent: "test-bot", Timeout: 5 * time.Second},
		NewHostLimiter(0),
		NewRetryPolicy(2, time.Millisecond, 5*time.Millisecond),
		zap.NewNop(),
	)
}

func TestAPIAdapterDecodesPaginatedListing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprint(w, `{"result":{"bids":[
				{"title":"ERP System Implementation","description":"countywide ERP replacement",
				 "agency":"Osceola County","due_date":"2026-11-01","url":"https://bids.example/1",
				 "solicitation_number":"26-ERP-7"},
				{"title":"Cloud Migration Consulting","due_date":"2026-10-15","url":"https://bids.example/2"}
			]}}`)
		case "2":
			fmt.Fprint(w, `{"result":{"bids":[
				{"title":"Data Analytics Platform","url":"https://bids.example/3"}
			]}}`)
		default:
			fmt.Fprint(w, `{"result":{"bids":[]}}`)
		}
	}))
	defer srv.Close()

	cfg := engine.SourceConfig{
		ID:        "demandstar",
		Kind:      engine.AdapterAPI,
		URL:       srv.URL,
		Agency:    "DemandStar Florida",
		PageParam: "page",
		MaxPages:  10,
		ItemsPath: "result.bids",
	}

	adapter := newAPIAdapter(t)
	candidates, err := adapter.Fetch(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	require.Equal(t, "ERP System Implementation", candidates[0].Title)
	require.Equal(t, "Osceola County", candidates[0].Agency)
	require.Equal(t, "26-ERP-7", candidates[0].SolicitationNumber)
	require.Equal(t, "2026-11-01", candidates[0].DueDateRaw)

	// Missing agency field falls back to the source default.
	require.Equal(t, "DemandStar Florida", candidates[1].Agency)
}

func TestAPIAdapterMapsCustomFieldPaths(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"name":"Network Assessment","meta":{"buyer":"City of Tampa","closes":"11/20/2026"},"link":"https://x/1"}]`)
	}))
	defer srv.Close()

	cfg := engine.SourceConfig{
		ID:   "bonfire",
		Kind: engine.AdapterAPI,
		URL:  srv.URL,
		FieldPaths: map[string]string{
			"title":    "name",
			"agency":   "meta.buyer",
			"due_date": "meta.closes",
			"url":      "link",
		},
	}

	adapter := newAPIAdapter(t)
	candidates, err := adapter.Fetch(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "Network Assessment", candidates[0].Title)
	require.Equal(t, "City of Tampa", candidates[0].Agency)
	require.Equal(t, "11/20/2026", candidates[0].DueDateRaw)
}

func TestAPIAdapterReportsParseFailureOnNonListingPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":"maintenance"}`)
	}))
	defer srv.Close()

	cfg := engine.SourceConfig{ID: "demandstar", Kind: engine.AdapterAPI, URL: srv.URL}

	adapter := newAPIAdapter(t)
	_, err := adapter.Fetch(context.Background(), cfg)

	var parseErr *engine.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Contains(t, parseErr.Sample, "maintenance")
}

func TestAPIAdapterRetriesServerErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"title":"Feasibility Study for Permitting System","url":"https://x/9"}]`)
	}))
	defer srv.Close()

	cfg := engine.SourceConfig{ID: "demandstar", Kind: engine.AdapterAPI, URL: srv.URL}

	adapter := newAPIAdapter(t)
	candidates, err := adapter.Fetch(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, 2, calls)
}
