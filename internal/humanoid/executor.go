// File: internal/humanoid/executor.go
package humanoid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// ErrInputTarget indicates the element being typed into became unavailable or
// non-interactable mid-sequence.
var ErrInputTarget = errors.New("input target not interactable")

// Executor is the surface the humanoid logic drives. The production
// implementation speaks CDP; tests substitute a recorder.
type Executor interface {
	// Sleep pauses, honoring context cancellation.
	Sleep(ctx context.Context, d time.Duration) error
	// Focus moves keyboard focus to the first element matching selector.
	Focus(ctx context.Context, selector string) error
	// ClearInput empties the value of the element matching selector.
	ClearInput(ctx context.Context, selector string) error
	// SendKeys types into the currently focused element.
	SendKeys(ctx context.Context, keys string) error
	// DispatchMouseMove moves the pointer to viewport coordinates.
	DispatchMouseMove(ctx context.Context, x, y float64) error
	// ScrollBy scrolls the page vertically by deltaY pixels.
	ScrollBy(ctx context.Context, deltaY float64) error
	// ViewportSize reports the layout viewport dimensions.
	ViewportSize(ctx context.Context) (width, height float64, err error)
}

// interactTimeout bounds every single element operation so a detached or
// hidden element fails fast instead of hanging the run.
const interactTimeout = 5 * time.Second

// CDPExecutor drives a chromedp tab context.
type CDPExecutor struct {
	tabCtx context.Context
}

// NewCDPExecutor wraps the tab's chromedp context.
func NewCDPExecutor(tabCtx context.Context) *CDPExecutor {
	return &CDPExecutor{tabCtx: tabCtx}
}

var _ Executor = (*CDPExecutor)(nil)

func (e *CDPExecutor) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *CDPExecutor) Focus(ctx context.Context, selector string) error {
	return e.runBounded(ctx, chromedp.Focus(selector, chromedp.ByQuery))
}

func (e *CDPExecutor) ClearInput(ctx context.Context, selector string) error {
	return e.runBounded(ctx, chromedp.SetValue(selector, "", chromedp.ByQuery))
}

func (e *CDPExecutor) SendKeys(ctx context.Context, keys string) error {
	return e.runBounded(ctx, chromedp.SendKeys("document.activeElement", keys, chromedp.ByJSPath))
}

func (e *CDPExecutor) DispatchMouseMove(ctx context.Context, x, y float64) error {
	return e.runBounded(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(cctx)
	}))
}

func (e *CDPExecutor) ScrollBy(ctx context.Context, deltaY float64) error {
	script := fmt.Sprintf(`window.scrollBy({top: %f, behavior: 'smooth'})`, deltaY)
	return e.runBounded(ctx, chromedp.Evaluate(script, nil))
}

func (e *CDPExecutor) ViewportSize(ctx context.Context) (float64, float64, error) {
	var dims [2]float64
	err := e.runBounded(ctx, chromedp.Evaluate(`[window.innerWidth, window.innerHeight]`, &dims))
	if err != nil {
		return 0, 0, err
	}
	return dims[0], dims[1], nil
}

// runBounded executes against the tab with a per-operation deadline, mapping
// timeouts and detached targets onto ErrInputTarget.
func (e *CDPExecutor) runBounded(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(e.tabCtx, interactTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(opCtx, actions...) }()

	select {
	case err := <-done:
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: %v", ErrInputTarget, err)
			}
			return err
		}
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}
