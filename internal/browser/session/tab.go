// File: internal/browser/session/tab.go
package session

import (
	"context"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// Tab is an opaque handle to one browsing context. Tabs are borrowed from the
// Manager; pipelines never own them.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newTab(ctx context.Context, cancel context.CancelFunc) *Tab {
	return &Tab{ctx: ctx, cancel: cancel}
}

// WrapContext builds a Tab around an existing context. Intended for tests and
// for adapters that already hold a chromedp context.
func WrapContext(ctx context.Context) *Tab {
	return &Tab{ctx: ctx, cancel: func() {}}
}

// Context returns the tab's chromedp context. Every browser interaction runs
// against it.
func (t *Tab) Context() context.Context { return t.ctx }

// Closed reports whether the tab's context has been torn down.
func (t *Tab) Closed() bool {
	if t == nil || t.ctx == nil {
		return true
	}
	return t.ctx.Err() != nil
}

// TargetID returns the CDP target identifier, or empty when unknown.
func (t *Tab) TargetID() target.ID {
	if t == nil || t.ctx == nil {
		return ""
	}
	if c := chromedp.FromContext(t.ctx); c != nil && c.Target != nil {
		return c.Target.TargetID
	}
	return ""
}

// URL reports the tab's current location.
func (t *Tab) URL(ctx context.Context) (string, error) {
	var loc string
	if err := chromedp.Run(t.ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (t *Tab) close() {
	if t != nil && t.cancel != nil {
		t.cancel()
	}
}
