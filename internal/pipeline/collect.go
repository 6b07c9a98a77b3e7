package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/browser/detect"
	"github.com/jaeho-dev/marketscout/internal/browser/session"
	"github.com/jaeho-dev/marketscout/internal/config"
	"github.com/jaeho-dev/marketscout/internal/humanoid"
	"github.com/jaeho-dev/marketscout/internal/market"
	"github.com/jaeho-dev/marketscout/internal/relay"
)

// Collector walks the relay work list store by store, extracting
// products and posting them back. One run at a time; a second Run call
// while active is refused.
type Collector struct {
	cfg        config.CollectConfig
	browser    Browser
	detector   Detector
	relay      Relay
	extractors map[market.Platform]market.Extractor
	progress   *Progress
	logger     *zap.Logger

	running atomic.Bool
	stop    atomic.Bool

	// tick paces the inter-item countdown; tests shrink it.
	tick time.Duration

	// cleanup scrubs automation artifacts after each item.
	cleanup func(ctx context.Context, tab *session.Tab) error

	// navigateHome brings the tab to the marketplace home page so the
	// sign-in check reads a real surface, not a blank tab.
	navigateHome func(ctx context.Context, tab *session.Tab) error
}

func NewCollector(
	cfg config.CollectConfig,
	browser Browser,
	detector Detector,
	relayClient Relay,
	extractors map[market.Platform]market.Extractor,
	logger *zap.Logger,
) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		cfg:        cfg,
		browser:    browser,
		detector:   detector,
		relay:      relayClient,
		extractors: extractors,
		progress:   NewProgress(),
		logger:     logger.Named("collect"),
		tick:       time.Second,
	}
	c.cleanup = func(ctx context.Context, tab *session.Tab) error {
		return humanoid.CleanupArtifacts(ctx, humanoid.NewCDPStorage(tab.Context()), c.logger)
	}
	c.navigateHome = func(ctx context.Context, tab *session.Tab) error {
		navCtx, cancel := context.WithTimeout(tab.Context(), 45*time.Second)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
		return chromedp.Run(navCtx,
			chromedp.Navigate(searchHomeURL),
			chromedp.Sleep(2*time.Second),
		)
	}
	return c
}

// Progress exposes the run's progress reporter.
func (c *Collector) Progress() *Progress { return c.progress }

// Running reports whether a run is active.
func (c *Collector) Running() bool { return c.running.Load() }

// Stop asks the active run to wind down at the next safe point.
func (c *Collector) Stop() { c.stop.Store(true) }

// Run executes one collection pass for userID. An operator stop is a
// normal termination. Daily-quota exhaustion, an empty work list,
// session loss, an anonymous session, a block page and an unresolved
// captcha all end the run with an error.
func (c *Collector) Run(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("collection requires a user id")
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)
	c.stop.Store(false)

	c.progress.Begin(0)
	err := c.run(ctx, userID)
	switch {
	case err == nil:
		c.progress.End("completed")
	case errors.Is(err, relay.ErrTodayStop):
		c.progress.Logf("daily quota exceeded")
		c.progress.End("failed")
	case errors.Is(err, ErrEmptyWorkList):
		c.progress.End("failed")
	case errors.Is(err, ErrAuthRequired):
		c.progress.End("authentication required")
	default:
		c.progress.Logf("run failed: %v", err)
		c.progress.End("failed")
	}
	return err
}

func (c *Collector) run(ctx context.Context, userID string) error {
	c.progress.SetStatus("fetching work list")
	list, err := c.relay.FetchWorkList(ctx, userID)
	if err != nil {
		return err
	}
	if len(list.Items) == 0 {
		c.progress.Logf("work list is empty")
		return ErrEmptyWorkList
	}

	c.progress.SetStatus("preparing session")
	if err := c.browser.EnsureReady(ctx); err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	if err := c.browser.ConsolidateTabs(ctx); err != nil {
		c.logger.Warn("Tab consolidation failed", zap.Error(err))
	}
	tab, err := c.browser.AcquireTab(ctx)
	if err != nil {
		return fmt.Errorf("acquiring tab: %w", err)
	}

	if err := c.navigateHome(ctx, tab); err != nil {
		return fmt.Errorf("opening marketplace home: %w", err)
	}
	verdict, err := c.detector.Session(ctx, tab)
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if verdict.Kind != detect.KindAuthenticated {
		c.progress.Logf("marketplace session is not signed in")
		return ErrAuthRequired
	}

	c.progress.Begin(len(list.Items))
	c.progress.SetStatus("processing")
	c.progress.Logf("work list loaded: %d items", len(list.Items))

	for i, item := range list.Items {
		if c.stop.Load() {
			c.progress.Logf("stopped by operator after %d/%d items", i, len(list.Items))
			c.progress.SetStatus("stopped")
			return nil
		}
		if !c.browser.Alive() || tab.Closed() {
			return fmt.Errorf("item %s: %w", item.ID, ErrSessionLost)
		}

		c.progress.Step(i+1, item.StoreName)
		if err := c.processItem(ctx, tab, list.InsertURL, userID, item); err != nil {
			if isFatal(err) {
				return err
			}
			c.progress.Logf("item %s failed: %v", item.ID, err)
			c.logger.Warn("Item failed, continuing",
				zap.String("item", item.ID), zap.Error(err))
		}

		if err := c.cleanup(ctx, tab); err != nil {
			c.logger.Warn("Artifact cleanup failed", zap.Error(err))
		}

		if i < len(list.Items)-1 {
			delay := humanoid.JitterDuration(c.cfg.ItemDelayMin, c.cfg.ItemDelayMax)
			if err := waitWithTicks(ctx, c.progress, &c.stop, delay, c.tick); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Collector) processItem(ctx context.Context, tab *session.Tab, insertURL, userID string, item market.WorkItem) error {
	blocked, err := c.detector.Blocked(ctx, tab)
	if err != nil {
		return fmt.Errorf("block check: %w", err)
	}
	if blocked.Kind == detect.KindBlocked {
		return fmt.Errorf("item %s: %w", item.ID, ErrBlocked)
	}

	extractor, ok := c.extractors[item.Platform]
	if !ok {
		return fmt.Errorf("no extractor for platform %s", item.Platform)
	}

	result, err := extractor.Extract(ctx, tab, market.ExtractRequest{
		URL:         item.TargetURL,
		StoreName:   item.StoreName,
		Price:       item.Price,
		IncludeBest: item.IncludeBest,
		IncludeNew:  item.IncludeNew,
	})
	if err != nil {
		return err
	}
	if result.Message != "" {
		c.progress.Logf("%s: %s", item.StoreName, result.Message)
	}
	if len(result.Products) == 0 {
		c.progress.Logf("%s: no products matched", item.StoreName)
		return nil
	}

	if _, err := c.relay.PostResult(ctx, insertURL, relay.ResultPayload{
		UserID:   userID,
		ItemID:   item.ID,
		Platform: item.Platform,
		Products: result.Products,
	}); err != nil {
		return err
	}
	c.progress.Logf("%s: %d products posted", item.StoreName, len(result.Products))
	return nil
}

// isFatal decides whether an item-level failure kills the whole run.
func isFatal(err error) bool {
	return errors.Is(err, ErrSessionLost) ||
		errors.Is(err, ErrBlocked) ||
		errors.Is(err, ErrCaptchaTimeout) ||
		errors.Is(err, relay.ErrTodayStop) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
