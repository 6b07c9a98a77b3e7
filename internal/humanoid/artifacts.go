// File: internal/humanoid/artifacts.go
package humanoid

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// fingerprintPatterns match storage keys and cookie names that automation
// frameworks leave behind.
var fingerprintPatterns = []string{
	"webdriver",
	"selenium",
	"puppeteer",
	"playwright",
	"automation",
	"cdc_",
	"__driver",
	"domautomation",
	"nightmare",
	"phantom",
	"headless",
}

// authAllowlist names the keys that carry login state. The allow-list takes
// precedence over any fingerprint match: evasion must never sign the user
// out as a side effect.
var authAllowlist = []string{
	"nid_aut",
	"nid_ses",
	"nid_jkl",
	"nid_",
	"login",
	"session",
	"auth",
	"token",
}

// ShouldRemove reports whether a cookie/storage key is an automation artifact
// that is safe to delete.
func ShouldRemove(key string) bool {
	lowered := strings.ToLower(key)
	for _, keep := range authAllowlist {
		if strings.Contains(lowered, keep) {
			return false
		}
	}
	for _, pattern := range fingerprintPatterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}

// PageStorage abstracts the storage surfaces cleanup sweeps. The production
// implementation is CDP-backed; tests use an in-memory fake.
type PageStorage interface {
	CookieNames(ctx context.Context) ([]string, error)
	DeleteCookie(ctx context.Context, name string) error
	LocalStorageKeys(ctx context.Context) ([]string, error)
	DeleteLocalStorageKey(ctx context.Context, key string) error
	SessionStorageKeys(ctx context.Context) ([]string, error)
	DeleteSessionStorageKey(ctx context.Context, key string) error
	IndexedDBNames(ctx context.Context) ([]string, error)
	DeleteIndexedDB(ctx context.Context, name string) error
}

// CleanupArtifacts removes automation fingerprints from cookies, local and
// session storage, and IndexedDB while preserving authentication entries.
// Individual deletion failures are logged and skipped; only a failure to
// enumerate a surface is returned.
func CleanupArtifacts(ctx context.Context, st PageStorage, logger *zap.Logger) error {
	log := logger.Named("artifact_cleanup")
	removed := 0

	cookies, err := st.CookieNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range cookies {
		if !ShouldRemove(name) {
			continue
		}
		if err := st.DeleteCookie(ctx, name); err != nil {
			log.Debug("Failed to delete cookie", zap.String("name", name), zap.Error(err))
			continue
		}
		removed++
	}

	localKeys, err := st.LocalStorageKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range localKeys {
		if !ShouldRemove(key) {
			continue
		}
		if err := st.DeleteLocalStorageKey(ctx, key); err != nil {
			log.Debug("Failed to delete localStorage key", zap.String("key", key), zap.Error(err))
			continue
		}
		removed++
	}

	sessionKeys, err := st.SessionStorageKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range sessionKeys {
		if !ShouldRemove(key) {
			continue
		}
		if err := st.DeleteSessionStorageKey(ctx, key); err != nil {
			log.Debug("Failed to delete sessionStorage key", zap.String("key", key), zap.Error(err))
			continue
		}
		removed++
	}

	databases, err := st.IndexedDBNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range databases {
		if !ShouldRemove(name) {
			continue
		}
		if err := st.DeleteIndexedDB(ctx, name); err != nil {
			log.Debug("Failed to delete IndexedDB database", zap.String("name", name), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Debug("Removed automation artifacts", zap.Int("count", removed))
	}
	return nil
}
