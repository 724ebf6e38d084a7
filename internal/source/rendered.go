package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// RenderedAdapter drives a headless browser to execute client-side script
// before extraction. Each session is bounded by a page-load timeout; an
// exceeded budget fails with RenderTimeoutError rather than hanging.
type RenderedAdapter struct {
	opts        FetchOptions
	navTimeout  time.Duration
	limiter     *HostLimiter
	slots       chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger

	// renderFn performs the browser session; tests swap it out.
	renderFn func(ctx context.Context, src engine.SourceConfig) (string, error)
}

// NewRenderedAdapter constructs a RenderedAdapter. maxParallel bounds the
// number of concurrent browser sessions; each one holds a Chrome process.
func NewRenderedAdapter(
	opts FetchOptions,
	navTimeout time.Duration,
	maxParallel int,
	limiter *HostLimiter,
	logger *zap.Logger,
) *RenderedAdapter {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	if maxParallel <= 0 {
		maxParallel = 1
	}

	chromeOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), chromeOpts...)

	a := &RenderedAdapter{
		opts:        opts,
		navTimeout:  navTimeout,
		limiter:     limiter,
		slots:       make(chan struct{}, maxParallel),
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}
	a.renderFn = a.render
	return a
}

// Close cancels the browser allocator.
func (a *RenderedAdapter) Close() {
	a.allocCancel()
}

// Fetch implements engine.Adapter.
func (a *RenderedAdapter) Fetch(ctx context.Context, src engine.SourceConfig) ([]engine.RawCandidate, error) {
	if err := a.acquire(ctx); err != nil {
		return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: err}
	}
	defer a.release()

	if err := a.limiter.WaitRate(ctx, src.URL, src.RequestsPerSecond); err != nil {
		return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: err}
	}

	html, err := a.renderFn(ctx, src)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &engine.RenderTimeoutError{SourceID: src.ID, Timeout: a.navTimeout.String()}
		}
		return nil, &engine.SourceUnavailableError{SourceID: src.ID, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &engine.ParseError{
			SourceID: src.ID,
			Sample:   engine.ParseSample([]byte(html)),
			Err:      fmt.Errorf("parse rendered markup: %w", err),
		}
	}

	candidates := extractCandidates(doc, src, src.URL)
	if len(candidates) == 0 {
		return nil, &engine.ParseError{
			SourceID: src.ID,
			Sample:   engine.ParseSample([]byte(html)),
			Err:      fmt.Errorf("selector %q matched no items after render", src.Selectors.Item),
		}
	}

	a.logger.Debug("rendered page parsed",
		zap.String("source", src.ID),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

func (a *RenderedAdapter) render(ctx context.Context, src engine.SourceConfig) (string, error) {
	taskCtx, taskCancel := chromedp.NewContext(a.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, a.navTimeout)
	defer cancel()

	// Propagate caller cancellation into the browser session.
	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	wait := src.WaitSelector
	if wait == "" {
		wait = "body"
	}

	var html string
	actions := []chromedp.Action{
		chromedp.ActionFunc(func(c context.Context) error {
			if a.opts.UserAgent == "" {
				return nil
			}
			return emulation.SetUserAgentOverride(a.opts.UserAgent).Do(c)
		}),
		chromedp.Navigate(src.URL),
		chromedp.WaitVisible(wait, chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (a *RenderedAdapter) acquire(ctx context.Context) error {
	select {
	case a.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("render slot wait canceled: %w", ctx.Err())
	}
}

func (a *RenderedAdapter) release() {
	<-a.slots
}
