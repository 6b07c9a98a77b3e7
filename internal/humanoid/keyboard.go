// File: internal/humanoid/keyboard.go
package humanoid

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"github.com/chromedp/chromedp/kb"
)

// keyboardNeighbors maps each key to its physical neighbors on a QWERTY
// layout; mistakes are drawn from here so typos look plausible.
var keyboardNeighbors = map[rune]string{
	'1': "2q`", '2': "13wq", '3': "24we", '4': "35er", '5': "46rt", '6': "57ty",
	'7': "68yu", '8': "79ui", '9': "80io", '0': "9-op",
	'q': "wa1s", 'w': "qase23", 'e': "wsdr34", 'r': "edft45", 't': "rfgy56",
	'y': "tghu67", 'u': "yhji78", 'i': "ujko89", 'o': "iklp90", 'p': "ol;0-",
	'a': "qwsz", 's': "awedxz", 'd': "serfcx", 'f': "drtgvc", 'g': "ftyhbv",
	'h': "gyujnb", 'j': "huikmn", 'k': "jiol,m", 'l': "kop;.",
	'z': "asx", 'x': "zsdc", 'c': "xdfv", 'v': "cfgb", 'b': "vghn", 'n': "bhjm", 'm': "njk,",
}

// thinkPauseRange bounds the occasional longer pause a person takes while
// composing a query.
const (
	thinkPauseMin = 400 * time.Millisecond
	thinkPauseMax = 1200 * time.Millisecond
)

// TypeNaturally clears the target field and types text the way a person
// would: independent random inter-key delays, occasional neighbor-key
// mistakes that are (usually) noticed and corrected, and sporadic thinking
// pauses. A target that becomes non-interactable mid-sequence surfaces as an
// ErrInputTarget-wrapped failure instead of a hang.
func (h *Humanoid) TypeNaturally(ctx context.Context, selector, text string) error {
	if err := h.exec.Focus(ctx, selector); err != nil {
		return fmt.Errorf("focusing %q: %w", selector, err)
	}
	if err := h.exec.ClearInput(ctx, selector); err != nil {
		return fmt.Errorf("clearing %q: %w", selector, err)
	}

	for _, char := range text {
		if err := h.keyDelay(ctx); err != nil {
			return err
		}

		if h.chance(h.cfg.MistakeChance) {
			if err := h.typeMistake(ctx, char); err != nil {
				return fmt.Errorf("typing into %q: %w", selector, err)
			}
			continue
		}

		if err := h.exec.SendKeys(ctx, string(char)); err != nil {
			return fmt.Errorf("typing into %q: %w", selector, err)
		}

		if h.chance(h.cfg.ThinkChance) {
			pause := time.Duration(h.between(int(thinkPauseMin), int(thinkPauseMax)))
			if err := h.exec.Sleep(ctx, pause); err != nil {
				return err
			}
		}
	}
	return nil
}

// typeMistake sends a keyboard-adjacent wrong character and, with the
// configured probability, erases it before the intended one. An uncorrected
// mistake stays in the field, but the intended character is always typed.
func (h *Humanoid) typeMistake(ctx context.Context, intended rune) error {
	wrong, ok := h.neighborOf(intended)
	if !ok {
		// No neighbor known (digits beyond the map, Hangul, etc.):
		// type the intended character straight.
		return h.exec.SendKeys(ctx, string(intended))
	}

	if err := h.exec.SendKeys(ctx, string(wrong)); err != nil {
		return err
	}
	// Recognition pause before the fix.
	if err := h.keyDelay(ctx); err != nil {
		return err
	}

	if h.chance(h.cfg.CorrectionChance) {
		if err := h.exec.SendKeys(ctx, kb.Backspace); err != nil {
			return err
		}
		if err := h.keyDelay(ctx); err != nil {
			return err
		}
	}
	return h.exec.SendKeys(ctx, string(intended))
}

// neighborOf picks a random physical neighbor of the key, preserving case.
func (h *Humanoid) neighborOf(char rune) (rune, bool) {
	neighbors, ok := keyboardNeighbors[unicode.ToLower(char)]
	if !ok || len(neighbors) == 0 {
		return 0, false
	}
	picked := rune(neighbors[h.between(0, len(neighbors)-1)])
	if unicode.IsUpper(char) {
		picked = unicode.ToUpper(picked)
	}
	return picked, true
}

// keyDelay sleeps an independent random inter-key interval.
func (h *Humanoid) keyDelay(ctx context.Context) error {
	minMs, maxMs := h.cfg.MinKeyDelayMs, h.cfg.MaxKeyDelayMs
	if minMs <= 0 && maxMs <= 0 {
		return nil
	}
	delay := time.Duration(h.between(minMs, maxMs)) * time.Millisecond
	return h.exec.Sleep(ctx, delay)
}
