// Package pipeline runs the two long-lived jobs: batch collection of
// store work items and keyword sourcing. Both drive one shared browser
// session and report progress through a bounded in-memory log.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"

	"github.com/jaeho-dev/marketscout/internal/browser/detect"
	"github.com/jaeho-dev/marketscout/internal/browser/session"
	"github.com/jaeho-dev/marketscout/internal/relay"
)

// ErrAlreadyRunning guards against overlapping runs of the same
// pipeline.
var ErrAlreadyRunning = errors.New("run already in progress")

// Browser is the slice of the session manager the pipelines consume.
type Browser interface {
	EnsureReady(ctx context.Context) error
	AcquireTab(ctx context.Context) (*session.Tab, error)
	ConsolidateTabs(ctx context.Context) error
	AttachToNewestTab(ctx context.Context) (*session.Tab, error)
	PageTargets(ctx context.Context) ([]*target.Info, error)
	Alive() bool
}

// Detector classifies page state for the pipelines.
type Detector interface {
	Session(ctx context.Context, tab *session.Tab) (detect.Verdict, error)
	Blocked(ctx context.Context, tab *session.Tab) (detect.Verdict, error)
	AwaitCaptcha(ctx context.Context, tab *session.Tab, hooks detect.WaitHooks, maxWait time.Duration) (bool, error)
}

// Relay is the backend client surface the pipelines use.
type Relay interface {
	FetchWorkList(ctx context.Context, userID string) (*relay.WorkList, error)
	PostResult(ctx context.Context, insertURL string, payload relay.ResultPayload) (*relay.PostResponse, error)
}

// waitWithTicks sleeps for total in tick-sized slices, publishing the
// remaining seconds and bailing out early when the stop flag flips or
// the context dies.
func waitWithTicks(ctx context.Context, progress *Progress, stop *atomic.Bool, total, tick time.Duration) error {
	if total <= 0 {
		return nil
	}
	deadline := time.Now().Add(total)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	defer progress.SetWait(0)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 || stop.Load() {
			return nil
		}
		progress.SetWait(int(remaining.Round(time.Second) / time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
