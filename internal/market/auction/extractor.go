// Package auction extracts listings from the auction marketplace's
// search results, which embed a region/module/row state blob.
package auction

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
	stateExpression = `JSON.stringify(window.__INITIAL_STATE__ ?? null)`
	searchURLFormat = "https://browse.auction.co.kr/search?keyword=%s"

	navigateTimeout = 45 * time.Second
	settleDelay     = 1500 * time.Millisecond
)

type Extractor struct {
	detector    *detect.Detector
	logger      *zap.Logger
	captchaWait time.Duration

	readState func(ctx context.Context, tab *session.Tab) ([]byte, error)
}

func NewExtractor(detector *detect.Detector, captchaWait time.Duration, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		detector:    detector,
		logger:      logger.Named("auction"),
		captchaWait: captchaWait,
		readState:   readSearchState,
	}
}

func (e *Extractor) Platform() market.Platform { return market.PlatformAuction }

// Extract loads the listing page and decodes the embedded search state.
// In fetch-only mode the page URL is synthesized from the keyword, which
// keeps the run going when the interactive search surface is blocked.
func (e *Extractor) Extract(ctx context.Context, tab *session.Tab, req market.ExtractRequest) (*market.Result, error) {
	pageURL := req.URL
	if pageURL == "" && req.Keyword != "" {
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
				Platform: market.PlatformAuction,
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
			Platform: market.PlatformAuction,
			Reason:   "state read failed",
			Err:      err,
		}
	}

	result, err := ParseSearchState(raw, req)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Search extraction complete",
		zap.String("keyword", req.Keyword),
		zap.Int("products", len(result.Products)))
	return result, nil
}

func readSearchState(ctx context.Context, tab *session.Tab) ([]byte, error) {
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
