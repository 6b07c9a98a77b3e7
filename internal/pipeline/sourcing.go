package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/browser/detect"
	"github.com/jaeho-dev/marketscout/internal/browser/session"
	"github.com/jaeho-dev/marketscout/internal/config"
	"github.com/jaeho-dev/marketscout/internal/humanoid"
	"github.com/jaeho-dev/marketscout/internal/market"
	"github.com/jaeho-dev/marketscout/internal/relay"
)

// Sourcer runs keyword searches across the enabled marketplaces and
// relays whatever listings come back. When the interactive search
// surface gets blocked mid-run it degrades to fetch-only extraction
// instead of aborting.
type Sourcer struct {
	cfg        config.SourcingConfig
	browser    Browser
	detector   Detector
	relay      Relay
	searcher   Searcher
	extractors map[market.Platform]market.Extractor
	progress   *Progress
	logger     *zap.Logger

	running atomic.Bool
	stop    atomic.Bool
	tick    time.Duration
}

func NewSourcer(
	cfg config.SourcingConfig,
	browser Browser,
	detector Detector,
	relayClient Relay,
	searcher Searcher,
	extractors map[market.Platform]market.Extractor,
	logger *zap.Logger,
) *Sourcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sourcer{
		cfg:        cfg,
		browser:    browser,
		detector:   detector,
		relay:      relayClient,
		searcher:   searcher,
		extractors: extractors,
		progress:   NewProgress(),
		logger:     logger.Named("sourcing"),
		tick:       time.Second,
	}
}

func (s *Sourcer) Progress() *Progress { return s.progress }

func (s *Sourcer) Running() bool { return s.running.Load() }

// Stop asks the active run to wind down after the current keyword.
func (s *Sourcer) Stop() { s.stop.Store(true) }

// ParseKeywords splits a comma-separated keyword list, trimming
// whitespace and dropping empties.
func ParseKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Run searches each keyword in the comma-separated list and posts the
// results. An empty keyword list is a no-op, not an error.
func (s *Sourcer) Run(ctx context.Context, userID, rawKeywords string) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)
	s.stop.Store(false)

	keywords := ParseKeywords(rawKeywords)
	s.progress.Begin(len(keywords))
	if len(keywords) == 0 {
		s.progress.Logf("no keywords to source")
		s.progress.End("completed")
		return nil
	}

	err := s.run(ctx, userID, keywords)
	switch {
	case err == nil:
		s.progress.End("completed")
	case errors.Is(err, relay.ErrTodayStop):
		s.progress.Logf("daily quota exceeded")
		s.progress.End("failed")
	default:
		s.progress.Logf("run failed: %v", err)
		s.progress.End("failed")
	}
	return err
}

func (s *Sourcer) run(ctx context.Context, userID string, keywords []string) error {
	s.progress.SetStatus("preparing session")
	if err := s.browser.EnsureReady(ctx); err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	homeTab, err := s.browser.AcquireTab(ctx)
	if err != nil {
		return fmt.Errorf("acquiring tab: %w", err)
	}

	s.progress.SetStatus("searching")
	s.progress.Step(1, keywords[0])

	before, err := s.browser.PageTargets(ctx)
	if err != nil {
		return fmt.Errorf("listing tabs: %w", err)
	}
	if err := s.searcher.Search(ctx, homeTab, keywords[0], true); err != nil {
		return fmt.Errorf("initial search: %w", err)
	}

	// Some search surfaces open results in a new tab; follow it when
	// the tab count grew, otherwise the results rendered in place.
	resultsTab := homeTab
	after, err := s.browser.PageTargets(ctx)
	if err == nil && len(after) > len(before) {
		if newest, attachErr := s.browser.AttachToNewestTab(ctx); attachErr == nil {
			resultsTab = newest
		} else {
			s.logger.Warn("Could not attach to results tab", zap.Error(attachErr))
		}
	}

	fetchOnly := false
	for i, keyword := range keywords {
		if s.stop.Load() {
			s.progress.Logf("stopped by operator after %d/%d keywords", i, len(keywords))
			s.progress.SetStatus("stopped")
			return nil
		}
		if !s.browser.Alive() || resultsTab.Closed() {
			return fmt.Errorf("keyword %q: %w", keyword, ErrSessionLost)
		}
		s.progress.Step(i+1, keyword)

		if !fetchOnly {
			// Check for a block page before spending another interactive
			// search on a surface that already turned hostile.
			verdict, err := s.detector.Blocked(ctx, resultsTab)
			if err != nil {
				s.progress.Logf("keyword %q: block check failed: %v", keyword, err)
			} else if verdict.Kind == detect.KindBlocked {
				fetchOnly = true
				s.progress.Logf("search surface blocked, switching to fetch-only extraction")
				s.logger.Warn("Search surface blocked, degrading to fetch-only")
			}
		}
		if !fetchOnly && i > 0 {
			if err := s.searcher.Search(ctx, resultsTab, keyword, false); err != nil {
				s.progress.Logf("keyword %q: search failed: %v", keyword, err)
				continue
			}
		}

		if err := s.sourceKeyword(ctx, resultsTab, userID, keyword, fetchOnly); err != nil {
			if isFatal(err) {
				return err
			}
			s.progress.Logf("keyword %q failed: %v", keyword, err)
		}

		if i < len(keywords)-1 {
			delay := humanoid.JitterDuration(s.cfg.KeywordDelayMin, s.cfg.KeywordDelayMax)
			if err := waitWithTicks(ctx, s.progress, &s.stop, delay, s.tick); err != nil {
				return err
			}
		}
	}
	return nil
}

// sourceKeyword extracts and relays one keyword on every enabled
// marketplace. Each marketplace posts independently so one failure does
// not lose the other's results.
func (s *Sourcer) sourceKeyword(ctx context.Context, tab *session.Tab, userID, keyword string, fetchOnly bool) error {
	var fatal error
	for _, platform := range s.enabledPlatforms() {
		extractor, ok := s.extractors[platform]
		if !ok {
			continue
		}
		result, err := extractor.Extract(ctx, tab, market.ExtractRequest{
			Keyword:     keyword,
			Price:       market.PriceRange{Min: s.cfg.PriceMin, Max: s.cfg.PriceMax},
			IncludeBest: s.cfg.IncludeBest,
			IncludeNew:  s.cfg.IncludeNew,
			FetchOnly:   fetchOnly || platform == market.PlatformAuction,
		})
		if err != nil {
			if isFatal(err) {
				return err
			}
			s.progress.Logf("keyword %q on %s: extraction failed: %v", keyword, platform, err)
			continue
		}
		if len(result.Products) == 0 {
			s.progress.Logf("keyword %q on %s: no products", keyword, platform)
			continue
		}

		if _, err := s.relay.PostResult(ctx, "", relay.ResultPayload{
			UserID:   userID,
			Keyword:  keyword,
			Platform: platform,
			Products: result.Products,
		}); err != nil {
			if errors.Is(err, relay.ErrTodayStop) {
				fatal = err
				break
			}
			s.progress.Logf("keyword %q on %s: relay post failed: %v", keyword, platform, err)
			continue
		}
		s.progress.Logf("keyword %q on %s: %d products posted", keyword, platform, len(result.Products))
	}
	return fatal
}

func (s *Sourcer) enabledPlatforms() []market.Platform {
	var out []market.Platform
	if s.cfg.SearchNaver {
		out = append(out, market.PlatformNaver)
	}
	if s.cfg.SearchAuction {
		out = append(out, market.PlatformAuction)
	}
	return out
}
