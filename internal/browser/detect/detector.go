// File: internal/browser/detect/detector.go
package detect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/browser/session"
)

// Detector binds the pure predicates to live tabs. It is the concrete
// implementation the pipelines consume.
type Detector struct {
	waiter Waiter
	logger *zap.Logger
}

// NewDetector builds a Detector with the default 2s captcha poll cadence.
func NewDetector(logger *zap.Logger) *Detector {
	log := logger.Named("detect")
	return &Detector{
		waiter: Waiter{Logger: log},
		logger: log,
	}
}

// Session classifies the tab's authentication state.
func (d *Detector) Session(ctx context.Context, tab *session.Tab) (Verdict, error) {
	return Session(ctx, NewTabProbe(tab.Context()))
}

// Blocked classifies whether the tab shows a traffic-block page.
func (d *Detector) Blocked(ctx context.Context, tab *session.Tab) (Verdict, error) {
	return Blocked(ctx, NewTabProbe(tab.Context()))
}

// Captcha classifies whether a live captcha challenge is showing.
func (d *Detector) Captcha(ctx context.Context, tab *session.Tab) (Verdict, error) {
	return Captcha(ctx, NewTabProbe(tab.Context()))
}

// AwaitCaptcha blocks until a showing captcha clears or maxWait passes.
func (d *Detector) AwaitCaptcha(ctx context.Context, tab *session.Tab, hooks WaitHooks, maxWait time.Duration) (bool, error) {
	return d.waiter.Await(ctx, NewTabProbe(tab.Context()), hooks, maxWait)
}
