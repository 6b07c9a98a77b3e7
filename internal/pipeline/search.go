package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/browser/session"
	"github.com/jaeho-dev/marketscout/internal/humanoid"
)

const (
	searchHomeURL       = "https://shopping.naver.com/home"
	searchInputSelector = `input[name="query"], input#search-input, input._searchInput_search_text`
	fallbackSearchURL   = "https://search.shopping.naver.com/search/all?query=%s"

	searchNavTimeout = 45 * time.Second
	searchSettle     = 2 * time.Second
)

// Searcher performs a keyword search on a live tab.
type Searcher interface {
	Search(ctx context.Context, tab *session.Tab, keyword string, firstVisit bool) error
}

// HumanoidSearcher types queries through the input simulator so the
// search surface sees human-shaped keystrokes.
type HumanoidSearcher struct {
	human  func(tab *session.Tab) *humanoid.Humanoid
	logger *zap.Logger
}

func NewHumanoidSearcher(newHumanoid func(tab *session.Tab) *humanoid.Humanoid, logger *zap.Logger) *HumanoidSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HumanoidSearcher{human: newHumanoid, logger: logger.Named("search")}
}

// Search navigates to the marketplace home on first visit, types the
// keyword naturally into the search box and submits it. On repeat
// visits it retypes into the results page's own search box.
func (s *HumanoidSearcher) Search(ctx context.Context, tab *session.Tab, keyword string, firstVisit bool) error {
	navCtx, cancel := context.WithTimeout(tab.Context(), searchNavTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if firstVisit {
		if err := chromedp.Run(navCtx,
			chromedp.Navigate(searchHomeURL),
			chromedp.Sleep(searchSettle),
		); err != nil {
			return fmt.Errorf("opening search surface: %w", err)
		}
	}

	h := s.human(tab)
	h.SimulateMouseMovement(ctx)

	if err := h.TypeNaturally(ctx, searchInputSelector, keyword); err != nil {
		// The interactive box can be missing on stripped-down result
		// pages. Fall back to a direct results navigation.
		s.logger.Warn("Search box not typeable, navigating directly",
			zap.String("keyword", keyword), zap.Error(err))
		direct := fmt.Sprintf(fallbackSearchURL, url.QueryEscape(keyword))
		if err := chromedp.Run(navCtx,
			chromedp.Navigate(direct),
			chromedp.Sleep(searchSettle),
		); err != nil {
			return fmt.Errorf("direct search navigation: %w", err)
		}
		return nil
	}

	if err := chromedp.Run(navCtx,
		chromedp.SendKeys(searchInputSelector, kb.Enter, chromedp.ByQuery),
		chromedp.Sleep(searchSettle),
	); err != nil {
		return fmt.Errorf("submitting search: %w", err)
	}

	h.SimulateScroll(ctx)
	return nil
}
