// File: internal/humanoid/keyboard_test.go
package humanoid

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/config"
)

// mockExecutor records every call and can inject failures.
type mockExecutor struct {
	mu       sync.Mutex
	keys     []string
	sleeps   []time.Duration
	cleared  []string
	focused  []string
	scrolls  []float64
	moves    int
	viewport [2]float64

	focusErr error
	keysErr  error
	// failAfterKeys makes SendKeys fail once this many keys were sent.
	failAfterKeys int
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{viewport: [2]float64{1280, 1024}}
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, d)
	return ctx.Err()
}

func (m *mockExecutor) Focus(ctx context.Context, selector string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focused = append(m.focused, selector)
	return m.focusErr
}

func (m *mockExecutor) ClearInput(ctx context.Context, selector string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, selector)
	return nil
}

func (m *mockExecutor) SendKeys(ctx context.Context, keys string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keysErr != nil && (m.failAfterKeys == 0 || len(m.keys) >= m.failAfterKeys) {
		return m.keysErr
	}
	m.keys = append(m.keys, keys)
	return nil
}

func (m *mockExecutor) DispatchMouseMove(ctx context.Context, x, y float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves++
	return nil
}

func (m *mockExecutor) ScrollBy(ctx context.Context, deltaY float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrolls = append(m.scrolls, deltaY)
	return nil
}

func (m *mockExecutor) ViewportSize(ctx context.Context) (float64, float64, error) {
	return m.viewport[0], m.viewport[1], nil
}

// typedText replays the recorded key stream, applying backspaces, to recover
// what the field would contain.
func (m *mockExecutor) typedText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b []rune
	for _, k := range m.keys {
		if k == kb.Backspace {
			if len(b) > 0 {
				b = b[:len(b)-1]
			}
			continue
		}
		b = append(b, []rune(k)...)
	}
	return string(b)
}

func newTestHumanoid(cfg config.HumanoidConfig, exec Executor) *Humanoid {
	return New(cfg, exec, zap.NewNop())
}

func TestTypeNaturallyNoMistakes(t *testing.T) {
	exec := newMockExecutor()
	h := newTestHumanoid(config.HumanoidConfig{
		MistakeChance: 0, CorrectionChance: 1,
		MinKeyDelayMs: 0, MaxKeyDelayMs: 0, ThinkChance: 0,
	}, exec)

	require.NoError(t, h.TypeNaturally(context.Background(), "#query", "phone case"))

	assert.Equal(t, []string{"#query"}, exec.focused)
	assert.Equal(t, []string{"#query"}, exec.cleared, "existing content must be cleared first")
	assert.Equal(t, "phone case", exec.typedText())
}

func TestTypeNaturallyAlwaysMistakeAlwaysCorrect(t *testing.T) {
	exec := newMockExecutor()
	h := newTestHumanoid(config.HumanoidConfig{
		MistakeChance: 1, CorrectionChance: 1,
		MinKeyDelayMs: 0, MaxKeyDelayMs: 0,
	}, exec)

	require.NoError(t, h.TypeNaturally(context.Background(), "#q", "abc"))

	// Every corrected mistake nets out; the field must hold the intended text.
	assert.Equal(t, "abc", exec.typedText())
	// Wrong char + backspace + correct char per letter.
	assert.GreaterOrEqual(t, len(exec.keys), 9)
	assert.Contains(t, exec.keys, kb.Backspace)
}

func TestTypeNaturallyUncorrectedMistakesStay(t *testing.T) {
	exec := newMockExecutor()
	h := newTestHumanoid(config.HumanoidConfig{
		MistakeChance: 1, CorrectionChance: 0,
		MinKeyDelayMs: 0, MaxKeyDelayMs: 0,
	}, exec)

	require.NoError(t, h.TypeNaturally(context.Background(), "#q", "ab"))

	// A stray character precedes each intended one, but the intended text
	// is still typed in full.
	typed := []rune(exec.typedText())
	require.Len(t, typed, 4)
	assert.Equal(t, 'a', typed[1])
	assert.Equal(t, 'b', typed[3])
	assert.NotContains(t, exec.keys, kb.Backspace)
}

func TestTypeNaturallyPreservesCaseOnMistakes(t *testing.T) {
	exec := newMockExecutor()
	h := newTestHumanoid(config.HumanoidConfig{
		MistakeChance: 1, CorrectionChance: 1,
	}, exec)

	require.NoError(t, h.TypeNaturally(context.Background(), "#q", "A"))

	// The wrong character should be uppercase like the intended one.
	first := exec.keys[0]
	assert.Equal(t, strings.ToUpper(first), first)
	assert.Equal(t, "A", exec.typedText())
}

func TestTypeNaturallyCharWithoutNeighborsTypesStraight(t *testing.T) {
	exec := newMockExecutor()
	h := newTestHumanoid(config.HumanoidConfig{
		MistakeChance: 1, CorrectionChance: 1,
	}, exec)

	// Hangul has no entry in the QWERTY neighbor map.
	require.NoError(t, h.TypeNaturally(context.Background(), "#q", "폰케이스"))
	assert.Equal(t, "폰케이스", exec.typedText())
}

func TestTypeNaturallyFocusFailureWrapsInputTarget(t *testing.T) {
	exec := newMockExecutor()
	exec.focusErr = ErrInputTarget
	h := newTestHumanoid(config.HumanoidConfig{}, exec)

	err := h.TypeNaturally(context.Background(), "#gone", "text")
	assert.ErrorIs(t, err, ErrInputTarget)
}

func TestTypeNaturallyMidSequenceFailure(t *testing.T) {
	exec := newMockExecutor()
	exec.keysErr = errors.New("node detached")
	exec.failAfterKeys = 2
	h := newTestHumanoid(config.HumanoidConfig{}, exec)

	err := h.TypeNaturally(context.Background(), "#q", "abcdef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node detached")
}

func TestTypeNaturallyHonorsCancellation(t *testing.T) {
	exec := newMockExecutor()
	h := newTestHumanoid(config.HumanoidConfig{MinKeyDelayMs: 1, MaxKeyDelayMs: 2}, exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.TypeNaturally(ctx, "#q", "abcdef")
	assert.ErrorIs(t, err, context.Canceled)
}
