package source

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// FeedAdapter reads RSS/Atom feeds published by procurement news sources and
// agency announcement pages.
type FeedAdapter struct {
	parser  *gofeed.Parser
	limiter *HostLimiter
	retry   *RetryPolicy
	logger  *zap.Logger
}

// NewFeedAdapter constructs a FeedAdapter.
func NewFeedAdapter(opts FetchOptions, limiter *HostLimiter, retry *RetryPolicy, logger *zap.Logger) *FeedAdapter {
	parser := gofeed.NewParser()
	if opts.UserAgent != "" {
		parser.UserAgent = opts.UserAgent
	}
	return &FeedAdapter{
		parser:  parser,
		limiter: limiter,
		retry:   retry,
		logger:  logger,
	}
}

// Fetch implements engine.Adapter.
func (a *FeedAdapter) Fetch(ctx context.Context, src engine.SourceConfig) ([]engine.RawCandidate, error) {
	var (
		feed    *gofeed.Feed
		lastErr error
	)
	for attempt := 0; ; attempt++ {
		if err := a.limiter.WaitRate(ctx, src.URL, src.RequestsPerSecond); err != nil {
			return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: err}
		}

		var err error
		feed, err = a.parser.ParseURLWithContext(src.URL, ctx)
		if err == nil {
			break
		}
		lastErr = err

		if !a.retry.ShouldRetry(err, attempt) {
			return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: lastErr}
		}
		if err := a.retry.Sleep(ctx, attempt); err != nil {
			return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: lastErr}
		}
	}

	candidates := make([]engine.RawCandidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Title == "" {
			continue
		}
		candidates = append(candidates, engine.RawCandidate{
			SourceID:      src.ID,
			Title:         item.Title,
			Body:          item.Description,
			Agency:        src.Agency,
			PostedDateRaw: feedPublished(item),
			URL:           item.Link,
		})
	}

	a.logger.Debug("feed parsed",
		zap.String("source", src.ID),
		zap.Int("items", len(candidates)),
	)
	return candidates, nil
}

func feedPublished(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Format(time.RFC3339)
	}
	return item.Published
}
