// File: internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jaeho-dev/marketscout/internal/browser/stealth"
	"github.com/jaeho-dev/marketscout/internal/config"
)

// State is the lifecycle state of the managed browser engine.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

var (
	// ErrEngineNotFound indicates that no usable Chrome/Chromium binary could
	// be located on this machine.
	ErrEngineNotFound = errors.New("browser executable not found")
	// ErrEngineRejected indicates the binary exists but the process failed to
	// start or respond.
	ErrEngineRejected = errors.New("browser failed to start")
)

// InitError wraps a launch failure. Use errors.Is with ErrEngineNotFound /
// ErrEngineRejected to distinguish the cause.
type InitError struct {
	Cause error
}

func (e *InitError) Error() string { return fmt.Sprintf("session init: %v", e.Cause) }
func (e *InitError) Unwrap() error { return e.Cause }

// Manager owns the single browser engine instance and tracks the active tab.
// It is safe for concurrent use: callers racing on EnsureReady observe the
// in-flight launch instead of starting a second engine.
type Manager struct {
	cfg     *config.Config
	logger  *zap.Logger
	persona stealth.Persona

	mu    sync.Mutex
	state State

	allocCtx    context.Context
	allocCancel context.CancelFunc
	// browserCtx is the context of the first tab; additional tabs derive
	// from it so they share the engine process.
	browserCtx    context.Context
	browserCancel context.CancelFunc
	current       *Tab

	// flight collapses concurrent launch attempts onto one.
	flight singleflight.Group

	// launch is swapped out in tests to avoid a real Chrome dependency.
	launch func(ctx context.Context) error

	cleanupOnce sync.Once
}

// NewManager creates a Manager. The engine is launched lazily on first use.
func NewManager(cfg *config.Config, persona stealth.Persona, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		logger:  logger.Named("session"),
		persona: persona,
	}
	m.launch = m.launchEngine
	return m
}

// CurrentState reports the lifecycle state.
func (m *Manager) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EnsureReady launches the engine if necessary. When a launch is already in
// flight the caller blocks until it finishes and shares its outcome; a Ready
// engine returns immediately.
func (m *Manager) EnsureReady(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateReady {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	ch := m.flight.DoChan("launch", func() (interface{}, error) {
		m.setState(StateInitializing)
		if err := m.launch(ctx); err != nil {
			m.setState(StateUninitialized)
			return nil, &InitError{Cause: err}
		}
		m.setState(StateReady)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		m.logger.Debug("Session state transition",
			zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// launchEngine starts the Chrome process and verifies it responds.
func (m *Manager) launchEngine(ctx context.Context) error {
	execPath, err := m.resolveExecPath()
	if err != nil {
		return err
	}

	opts := m.buildAllocatorOptions(execPath)

	// The allocator outlives the launching call, so it hangs off the
	// background context rather than the caller's.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Verify the browser starts and answers within a bounded window.
	probeCtx, probeCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer probeCancel()

	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("%w: %v", ErrEngineRejected, err)
	}

	if err := chromedp.Run(browserCtx, stealth.Apply(m.persona, m.logger)); err != nil {
		m.logger.Warn("Failed to apply stealth persona to initial tab", zap.Error(err))
	}

	m.mu.Lock()
	m.allocCtx = allocCtx
	m.allocCancel = allocCancel
	m.browserCtx = browserCtx
	m.browserCancel = browserCancel
	m.current = newTab(browserCtx, browserCancel)
	m.mu.Unlock()

	m.logger.Info("Browser engine launched",
		zap.String("exec_path", execPath),
		zap.Int("window_width", m.cfg.Browser.WindowWidth),
		zap.Int("window_height", m.cfg.Browser.WindowHeight),
	)
	return nil
}

// resolveExecPath finds a usable browser binary. The config override wins;
// otherwise well-known install locations are probed before falling back to
// PATH lookup.
func (m *Manager) resolveExecPath() (string, error) {
	if p := m.cfg.Browser.ExecPath; p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: configured path %q: %v", ErrEngineNotFound, p, err)
		}
		return p, nil
	}

	for _, candidate := range defaultExecCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrEngineNotFound
}

// defaultExecCandidates lists per-OS install paths that the default chromedp
// discovery misses on some machines.
func defaultExecCandidates() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	default:
		return []string{
			"/usr/bin/google-chrome-stable",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
		}
	}
}

// buildAllocatorOptions assembles launch flags for a visible, human-looking
// browser instance.
func (m *Manager) buildAllocatorOptions(execPath string) []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption

	// Start from the stock options, dropping the flag that advertises
	// automation to the page. Overriding a bool flag with false removes it
	// from the launch command line.
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("enable-automation", false),
		chromedp.ExecPath(execPath),
		// The session must stay visible so an operator can clear captchas
		// or re-login mid-run.
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("lang", m.persona.Locale),
		chromedp.WindowSize(m.cfg.Browser.WindowWidth, m.cfg.Browser.WindowHeight),
		chromedp.UserAgent(m.persona.UserAgent),
	)

	if m.cfg.Browser.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(m.cfg.Browser.UserDataDir))
	}
	for _, arg := range m.cfg.Browser.Args {
		name, value, ok := splitFlag(arg)
		if ok {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// AcquireTab returns the tab pipelines should operate on. A live current tab
// is reused; otherwise a fresh tab is opened in the running engine with the
// persona and navigation timeout applied.
func (m *Manager) AcquireTab(ctx context.Context) (*Tab, error) {
	if err := m.EnsureReady(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.Closed() {
		return m.current, nil
	}

	if m.browserCtx == nil || m.browserCtx.Err() != nil {
		return nil, fmt.Errorf("browser engine is gone")
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	tab := newTab(tabCtx, tabCancel)

	applyCtx, applyCancel := context.WithTimeout(tabCtx, m.cfg.Network.NavigationTimeout)
	defer applyCancel()
	if err := chromedp.Run(applyCtx, stealth.Apply(m.persona, m.logger)); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to prepare new tab: %w", err)
	}

	m.current = tab
	return tab, nil
}

// CurrentTab returns the active tab without creating one. May be nil.
func (m *Manager) CurrentTab() *Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Alive reports whether the engine and the active tab are still usable.
func (m *Manager) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady || m.allocCtx == nil || m.allocCtx.Err() != nil {
		return false
	}
	return m.current != nil && !m.current.Closed()
}

// PageTargets lists open page targets, oldest first.
func (m *Manager) PageTargets(ctx context.Context) ([]*target.Info, error) {
	m.mu.Lock()
	browserCtx := m.browserCtx
	m.mu.Unlock()
	if browserCtx == nil {
		return nil, fmt.Errorf("engine not running")
	}

	infos, err := chromedp.Targets(browserCtx)
	if err != nil {
		return nil, err
	}
	var pages []*target.Info
	for _, info := range infos {
		if info.Type == "page" {
			pages = append(pages, info)
		}
	}
	return pages, nil
}

// ConsolidateTabs closes every page target except the first. Block-recovery
// logic depends on there being exactly one non-blank tab afterwards.
func (m *Manager) ConsolidateTabs(ctx context.Context) error {
	pages, err := m.PageTargets(ctx)
	if err != nil {
		return err
	}
	if len(pages) <= 1 {
		return nil
	}

	m.mu.Lock()
	browserCtx := m.browserCtx
	m.mu.Unlock()

	for _, info := range pages[1:] {
		closeErr := chromedp.Run(browserCtx, chromedp.ActionFunc(func(cctx context.Context) error {
			return target.CloseTarget(info.TargetID).Do(cctx)
		}))
		if closeErr != nil {
			m.logger.Warn("Failed to close extra tab",
				zap.String("target_id", string(info.TargetID)), zap.Error(closeErr))
		}
	}
	m.logger.Debug("Consolidated tabs", zap.Int("closed", len(pages)-1))
	return nil
}

// AttachToNewestTab points the manager's active tab at the most recently
// opened page target. Used by the sourcing pipeline after a search opens a
// results tab.
func (m *Manager) AttachToNewestTab(ctx context.Context) (*Tab, error) {
	pages, err := m.PageTargets(ctx)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page targets open")
	}

	newest := pages[len(pages)-1]

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.TargetID() == newest.TargetID && !m.current.Closed() {
		return m.current, nil
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx, chromedp.WithTargetID(newest.TargetID))
	m.current = newTab(tabCtx, tabCancel)
	return m.current, nil
}

// Cleanup tears down the current tab and the engine. Idempotent; teardown
// failures are logged, never returned, because this also runs during process
// shutdown.
func (m *Manager) Cleanup() {
	m.cleanupOnce.Do(func() {
		m.mu.Lock()
		current := m.current
		browserCancel := m.browserCancel
		allocCancel := m.allocCancel
		m.current = nil
		m.state = StateUninitialized
		m.mu.Unlock()

		if current != nil {
			current.close()
		}
		if browserCancel != nil {
			browserCancel()
		}
		if allocCancel != nil {
			allocCancel()
		}
		m.logger.Info("Browser session cleaned up")
	})
}

// splitFlag parses "name=value" args from config into flag pairs.
func splitFlag(arg string) (name, value string, hasValue bool) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == '=' {
			return trimDashes(arg[:i]), arg[i+1:], true
		}
	}
	return trimDashes(arg), "", false
}

func trimDashes(s string) string {
	for len(s) > 0 && s[0] == '-' {
		s = s[1:]
	}
	return s
}
