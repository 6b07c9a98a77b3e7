// File: internal/browser/detect/probe.go
package detect

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// TabProbe is the production Probe: it evaluates page state over CDP against
// the tab context it wraps.
type TabProbe struct {
	tabCtx context.Context
}

// NewTabProbe wraps a chromedp tab context.
func NewTabProbe(tabCtx context.Context) *TabProbe {
	return &TabProbe{tabCtx: tabCtx}
}

var _ Probe = (*TabProbe)(nil)

func (p *TabProbe) URL(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (p *TabProbe) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

func (p *TabProbe) HasCookie(ctx context.Context, name string) (bool, error) {
	var found bool
	err := p.run(ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		cookies, err := storage.GetCookies().Do(cctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			if c.Name == name {
				found = true
				return nil
			}
		}
		return nil
	}))
	return found, err
}

func (p *TabProbe) HasSelector(ctx context.Context, selector string) (bool, error) {
	var has bool
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	err := p.run(ctx, chromedp.Evaluate(script, &has))
	return has, err
}

func (p *TabProbe) SelectorHeight(ctx context.Context, selector string) (float64, error) {
	var height float64
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return 0;
		return el.getBoundingClientRect().height;
	})()`, selector)
	err := p.run(ctx, chromedp.Evaluate(script, &height))
	return height, err
}

func (p *TabProbe) BodyContains(ctx context.Context, needle string) (bool, error) {
	var has bool
	script := fmt.Sprintf(`(document.body ? document.body.innerText : '').includes(%q)`, needle)
	err := p.run(ctx, chromedp.Evaluate(script, &has))
	return has, err
}

// NeutralizeLoginForm strips submit behavior from any raw login form left in
// the DOM, so no later interaction can post credentials by accident.
func (p *TabProbe) NeutralizeLoginForm(ctx context.Context) error {
	script := fmt.Sprintf(`(() => {
		document.querySelectorAll(%q).forEach((form) => {
			form.onsubmit = (e) => { e.preventDefault(); return false; };
			form.removeAttribute('action');
			form.querySelectorAll('[type="submit"]').forEach((b) => { b.disabled = true; });
		});
	})()`, loginFormSelector)
	return p.run(ctx, chromedp.Evaluate(script, nil))
}

// run executes actions on the tab context while honoring the caller's
// cancellation/deadline.
func (p *TabProbe) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(p.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// combineContext derives a context canceled when either input is.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
