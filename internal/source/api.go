package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// APIAdapter calls a paginated JSON listing endpoint directly. Simplest and
// most reliable of the adapter shapes; preferred when a source offers one.
type APIAdapter struct {
	opts    FetchOptions
	client  *http.Client
	limiter *HostLimiter
	retry   *RetryPolicy
	logger  *zap.Logger
}

// NewAPIAdapter constructs an APIAdapter.
func NewAPIAdapter(opts FetchOptions, limiter *HostLimiter, retry *RetryPolicy, logger *zap.Logger) *APIAdapter {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &APIAdapter{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: limiter,
		retry:   retry,
		logger:  logger,
	}
}

// Fetch implements engine.Adapter.
func (a *APIAdapter) Fetch(ctx context.Context, src engine.SourceConfig) ([]engine.RawCandidate, error) {
	maxPages := src.MaxPages
	if maxPages <= 0 || src.PageParam == "" {
		maxPages = 1
	}

	var all []engine.RawCandidate
	for page := 1; page <= maxPages; page++ {
		pageURL := paginateURL(src.URL, src.PageParam, page)

		body, err := a.fetchJSON(ctx, src, pageURL)
		if err != nil {
			return nil, err
		}

		items, err := decodeItems(body, src)
		if err != nil {
			return nil, &engine.ParseError{
				SourceID: src.ID,
				Sample:   engine.ParseSample(body),
				Err:      err,
			}
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			all = append(all, candidateFromItem(item, src))
		}
		a.logger.Debug("api page decoded",
			zap.String("source", src.ID),
			zap.Int("page", page),
			zap.Int("items", len(items)),
		)
	}
	return all, nil
}

func (a *APIAdapter) fetchJSON(ctx context.Context, src engine.SourceConfig, pageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := a.limiter.WaitRate(ctx, pageURL, src.RequestsPerSecond); err != nil {
			return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: err}
		}

		body, err := a.get(ctx, pageURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !a.retry.ShouldRetry(err, attempt) {
			break
		}
		if err := a.retry.Sleep(ctx, attempt); err != nil {
			break
		}
	}
	return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: lastErr}
}

func (a *APIAdapter) get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", a.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", pageURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// decodeItems locates the listing array in a JSON payload: either the payload
// itself is an array, or items_path names a (dot-separated) object path to it.
func decodeItems(body []byte, src engine.SourceConfig) ([]map[string]any, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	node := root
	if src.ItemsPath != "" {
		for _, key := range strings.Split(src.ItemsPath, ".") {
			obj, ok := node.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("items_path %q: %q is not an object", src.ItemsPath, key)
			}
			node, ok = obj[key]
			if !ok {
				return nil, fmt.Errorf("items_path %q: key %q missing", src.ItemsPath, key)
			}
		}
	}

	arr, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("listing payload is not an array")
	}

	items := make([]map[string]any, 0, len(arr))
	for _, entry := range arr {
		if obj, ok := entry.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items, nil
}

func candidateFromItem(item map[string]any, src engine.SourceConfig) engine.RawCandidate {
	field := func(name, fallback string) string {
		path, ok := src.FieldPaths[name]
		if !ok {
			path = fallback
		}
		return lookupString(item, path)
	}

	agency := field("agency", "agency")
	if agency == "" {
		agency = src.Agency
	}

	return engine.RawCandidate{
		SourceID:           src.ID,
		Title:              field("title", "title"),
		Body:               field("body", "description"),
		Agency:             agency,
		SolicitationNumber: field("number", "solicitation_number"),
		PostedDateRaw:      field("posted_date", "posted_date"),
		DueDateRaw:         field("due_date", "due_date"),
		URL:                field("url", "url"),
	}
}

func lookupString(item map[string]any, path string) string {
	if path == "" {
		return ""
	}
	var node any = item
	for _, key := range strings.Split(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return ""
		}
		node, ok = obj[key]
		if !ok {
			return ""
		}
	}
	switch v := node.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	default:
		return ""
	}
}
