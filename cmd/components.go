package cmd

import (
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/browser/detect"
	"github.com/jaeho-dev/marketscout/internal/browser/session"
	"github.com/jaeho-dev/marketscout/internal/browser/stealth"
	"github.com/jaeho-dev/marketscout/internal/config"
	"github.com/jaeho-dev/marketscout/internal/humanoid"
	"github.com/jaeho-dev/marketscout/internal/market"
	"github.com/jaeho-dev/marketscout/internal/market/auction"
	"github.com/jaeho-dev/marketscout/internal/market/naver"
	"github.com/jaeho-dev/marketscout/internal/pipeline"
	"github.com/jaeho-dev/marketscout/internal/relay"
)

// components bundles everything a pipeline invocation needs. Both the
// one-shot commands and the control server build one.
type components struct {
	Browser   *session.Manager
	Collector *pipeline.Collector
	Sourcer   *pipeline.Sourcer
}

func buildComponents(cfg *config.Config, logger *zap.Logger) *components {
	browser := session.NewManager(cfg, stealth.DefaultPersona, logger)
	detector := detect.NewDetector(logger)

	relayClient := relay.NewClient(cfg.Relay.BaseURL, logger)
	if cfg.Relay.MinPostInterval > 0 {
		relayClient.SetPostInterval(cfg.Relay.MinPostInterval)
	}

	extractors := map[market.Platform]market.Extractor{
		market.PlatformNaver:   naver.NewExtractor(detector, cfg.Collect.CaptchaMaxWait, logger),
		market.PlatformAuction: auction.NewExtractor(detector, cfg.Collect.CaptchaMaxWait, logger),
	}

	searcher := pipeline.NewHumanoidSearcher(func(tab *session.Tab) *humanoid.Humanoid {
		exec := humanoid.NewCDPExecutor(tab.Context())
		return humanoid.New(cfg.Browser.Humanoid, exec, logger)
	}, logger)

	collector := pipeline.NewCollector(cfg.Collect, browser, detector, relayClient, extractors, logger)
	sourcer := pipeline.NewSourcer(cfg.Sourcing, browser, detector, relayClient, searcher, extractors, logger)

	return &components{
		Browser:   browser,
		Collector: collector,
		Sourcer:   sourcer,
	}
}

func (c *components) Shutdown() {
	c.Browser.Cleanup()
}
