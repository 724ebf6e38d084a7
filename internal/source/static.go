package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// FetchOptions carries the HTTP client knobs shared by adapters.
type FetchOptions struct {
	UserAgent string
	Timeout   time.Duration
}

// StaticAdapter fetches a listing via plain HTTP and parses structured markup
// with the source's selector set, following pagination until an empty page or
// the configured page cap.
type StaticAdapter struct {
	opts    FetchOptions
	limiter *HostLimiter
	retry   *RetryPolicy
	logger  *zap.Logger
}

// NewStaticAdapter constructs a StaticAdapter.
func NewStaticAdapter(opts FetchOptions, limiter *HostLimiter, retry *RetryPolicy, logger *zap.Logger) *StaticAdapter {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &StaticAdapter{
		opts:    opts,
		limiter: limiter,
		retry:   retry,
		logger:  logger,
	}
}

// Fetch implements engine.Adapter.
func (a *StaticAdapter) Fetch(ctx context.Context, src engine.SourceConfig) ([]engine.RawCandidate, error) {
	maxPages := src.MaxPages
	if maxPages <= 0 || src.PageParam == "" {
		maxPages = 1
	}

	var all []engine.RawCandidate
	for page := 1; page <= maxPages; page++ {
		pageURL := paginateURL(src.URL, src.PageParam, page)

		body, err := a.fetchPage(ctx, src, pageURL)
		if err != nil {
			return nil, err
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, &engine.ParseError{
				SourceID: src.ID,
				Sample:   engine.ParseSample(body),
				Err:      fmt.Errorf("parse markup: %w", err),
			}
		}

		candidates := extractCandidates(doc, src, pageURL)
		if len(candidates) == 0 {
			if page == 1 {
				return nil, &engine.ParseError{
					SourceID: src.ID,
					Sample:   engine.ParseSample(body),
					Err:      fmt.Errorf("selector %q matched no items", src.Selectors.Item),
				}
			}
			// Ran off the end of pagination.
			break
		}

		a.logger.Debug("static page parsed",
			zap.String("source", src.ID),
			zap.Int("page", page),
			zap.Int("candidates", len(candidates)),
		)
		all = append(all, candidates...)
	}
	return all, nil
}

func (a *StaticAdapter) fetchPage(ctx context.Context, src engine.SourceConfig, pageURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := a.limiter.WaitRate(ctx, pageURL, src.RequestsPerSecond); err != nil {
			return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: err}
		}

		body, err := a.visit(ctx, pageURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !a.retry.ShouldRetry(err, attempt) {
			break
		}
		a.logger.Warn("static fetch retrying",
			zap.String("source", src.ID),
			zap.String("url", pageURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if err := a.retry.Sleep(ctx, attempt); err != nil {
			break
		}
	}
	return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: lastErr}
}

func (a *StaticAdapter) visit(ctx context.Context, pageURL string) ([]byte, error) {
	collector := colly.NewCollector(colly.Async(false))
	collector.UserAgent = a.opts.UserAgent
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(a.opts.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", pageURL, err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", pageURL, fetchErr)
		}
		return body, nil
	}
}

func paginateURL(rawURL, pageParam string, page int) string {
	if pageParam == "" || page <= 1 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%d", rawURL, sep, pageParam, page)
}
