// File: internal/humanoid/cdpstorage.go
package humanoid

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// CDPStorage is the CDP-backed PageStorage used against live tabs.
type CDPStorage struct {
	tabCtx context.Context
}

// NewCDPStorage wraps a chromedp tab context.
func NewCDPStorage(tabCtx context.Context) *CDPStorage {
	return &CDPStorage{tabCtx: tabCtx}
}

var _ PageStorage = (*CDPStorage)(nil)

func (s *CDPStorage) CookieNames(ctx context.Context) ([]string, error) {
	var names []string
	err := chromedp.Run(s.tabCtx, chromedp.ActionFunc(func(cctx context.Context) error {
		cookies, err := storage.GetCookies().Do(cctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			names = append(names, c.Name)
		}
		return nil
	}))
	return names, err
}

func (s *CDPStorage) DeleteCookie(ctx context.Context, name string) error {
	return chromedp.Run(s.tabCtx, chromedp.ActionFunc(func(cctx context.Context) error {
		cookies, err := storage.GetCookies().Do(cctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			if c.Name != name {
				continue
			}
			if err := network.DeleteCookies(c.Name).WithDomain(c.Domain).WithPath(c.Path).Do(cctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *CDPStorage) LocalStorageKeys(ctx context.Context) ([]string, error) {
	return s.storageKeys("localStorage")
}

func (s *CDPStorage) DeleteLocalStorageKey(ctx context.Context, key string) error {
	return s.deleteStorageKey("localStorage", key)
}

func (s *CDPStorage) SessionStorageKeys(ctx context.Context) ([]string, error) {
	return s.storageKeys("sessionStorage")
}

func (s *CDPStorage) DeleteSessionStorageKey(ctx context.Context, key string) error {
	return s.deleteStorageKey("sessionStorage", key)
}

func (s *CDPStorage) IndexedDBNames(ctx context.Context) ([]string, error) {
	var names []string
	script := `(async () => {
		if (!window.indexedDB || !window.indexedDB.databases) return [];
		const dbs = await window.indexedDB.databases();
		return dbs.map((d) => d.name).filter(Boolean);
	})()`
	err := chromedp.Run(s.tabCtx, chromedp.Evaluate(script, &names,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	return names, err
}

func (s *CDPStorage) DeleteIndexedDB(ctx context.Context, name string) error {
	script := fmt.Sprintf(`window.indexedDB && window.indexedDB.deleteDatabase(%q)`, name)
	return chromedp.Run(s.tabCtx, chromedp.Evaluate(script, nil))
}

func (s *CDPStorage) storageKeys(store string) ([]string, error) {
	var keys []string
	script := fmt.Sprintf(`Object.keys(window.%s || {})`, store)
	err := chromedp.Run(s.tabCtx, chromedp.Evaluate(script, &keys))
	return keys, err
}

func (s *CDPStorage) deleteStorageKey(store, key string) error {
	script := fmt.Sprintf(`window.%s && window.%s.removeItem(%q)`, store, store, key)
	return chromedp.Run(s.tabCtx, chromedp.Evaluate(script, nil))
}
