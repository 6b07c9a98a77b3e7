// Package naver extracts smart-store product listings from the state
// blob the storefront embeds into its pages.
package naver

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/browser/detect"
	"github.com/jaeho-dev/marketscout/internal/browser/session"
	"github.com/jaeho-dev/marketscout/internal/market"
)

const (
	stateExpression = `JSON.stringify(window.__PRELOADED_STATE__ ?? null)`
	searchURLFormat = "https://search.shopping.naver.com/search/all?query=%s"

	navigateTimeout = 45 * time.Second
	settleDelay     = 1500 * time.Millisecond
)

// Extractor pulls product listings off smart-store pages. Navigation
// pauses for captcha resolution when the challenge page intercepts the
// load.
type Extractor struct {
	detector    *detect.Detector
	logger      *zap.Logger
	captchaWait time.Duration

	// readState is swappable for tests.
	readState func(ctx context.Context, tab *session.Tab) ([]byte, error)
}

func NewExtractor(detector *detect.Detector, captchaWait time.Duration, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		detector:    detector,
		logger:      logger.Named("naver"),
		captchaWait: captchaWait,
		readState:   readPreloadedState,
	}
}

func (e *Extractor) Platform() market.Platform { return market.PlatformNaver }

// Extract navigates the tab to the storefront page, waits out any
// captcha challenge, and decodes the embedded state blob. With no URL
// and fetch-only unset the tab's current page is read as rendered,
// which is how keyword results typed in by the searcher are consumed.
func (e *Extractor) Extract(ctx context.Context, tab *session.Tab, req market.ExtractRequest) (*market.Result, error) {
	pageURL := req.URL
	if pageURL == "" && req.FetchOnly && req.Keyword != "" {
		pageURL = fmt.Sprintf(searchURLFormat, url.QueryEscape(req.Keyword))
	}

	if pageURL != "" {
		navCtx, cancel := context.WithTimeout(tab.Context(), navigateTimeout)
		defer cancel()

		if err := chromedp.Run(navCtx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(settleDelay),
		); err != nil {
			return nil, &market.ExtractionError{
				Platform: market.PlatformNaver,
				Reason:   "navigation failed",
				Err:      err,
			}
		}
	}

	if e.detector != nil {
		hooks := detect.WaitHooks{
			OnDetected: func() { e.logger.Warn("Captcha challenge intercepted page load") },
			OnResolved: func() { e.logger.Info("Captcha resolved, resuming") },
		}
		resolved, err := e.detector.AwaitCaptcha(ctx, tab, hooks, e.captchaWait)
		if err != nil {
			return nil, err
		}
		if !resolved {
			return nil, detect.ErrCaptchaTimeout
		}
	}

	raw, err := e.readState(ctx, tab)
	if err != nil {
		return nil, &market.ExtractionError{
			Platform: market.PlatformNaver,
			Reason:   "state read failed",
			Err:      err,
		}
	}

	result, err := ParsePreloadedState(raw, req)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Storefront extraction complete",
		zap.String("store", req.StoreName),
		zap.Int("products", len(result.Products)))
	return result, nil
}

func readPreloadedState(ctx context.Context, tab *session.Tab) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(tab.Context(), 10*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var raw string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(stateExpression, &raw)); err != nil {
		return nil, err
	}
	return []byte(raw), nil
}
