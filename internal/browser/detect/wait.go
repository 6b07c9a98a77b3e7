// File: internal/browser/detect/wait.go
package detect

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrCaptchaTimeout means a captcha challenge stayed unresolved past the
// configured wait window.
var ErrCaptchaTimeout = errors.New("captcha unresolved within wait window")

// WaitHooks are side-channel notifications for the external UI/alert layer.
// Either may be nil.
type WaitHooks struct {
	// OnDetected fires once, when a live captcha is first observed.
	OnDetected func()
	// OnResolved fires when the captcha clears before the deadline.
	OnResolved func()
}

// defaultPollInterval is how often the captcha state is re-checked while a
// human works on the challenge.
const defaultPollInterval = 2 * time.Second

// Waiter polls a captcha until it resolves or a deadline passes.
type Waiter struct {
	// Interval overrides the poll cadence; zero means the 2s default.
	Interval time.Duration
	Logger   *zap.Logger
}

// Await returns (true, nil) immediately when no captcha is showing. Otherwise
// it fires OnDetected once and polls until the challenge clears (true) or
// maxWait elapses (false). A false return is a hard failure for the caller,
// not a retry signal: an indefinite captcha indicates a structural block.
func (w Waiter) Await(ctx context.Context, p Probe, hooks WaitHooks, maxWait time.Duration) (bool, error) {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	verdict, err := Captcha(ctx, p)
	if err != nil {
		return false, err
	}
	if verdict.Kind != KindCaptcha {
		return true, nil
	}

	logger.Info("Captcha challenge detected, waiting for operator",
		zap.Duration("max_wait", maxWait))
	if hooks.OnDetected != nil {
		hooks.OnDetected()
	}

	interval := w.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			verdict, err := Captcha(ctx, p)
			if err != nil {
				return false, err
			}
			if verdict.Kind != KindCaptcha {
				logger.Info("Captcha resolved")
				if hooks.OnResolved != nil {
					hooks.OnResolved()
				}
				return true, nil
			}
			if time.Now().After(deadline) {
				logger.Warn("Captcha wait deadline exceeded")
				return false, nil
			}
		}
	}
}
