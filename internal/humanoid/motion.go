// File: internal/humanoid/motion.go
package humanoid

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SimulateScroll issues 2-4 randomized scroll motions with short pauses.
// Purely cosmetic: failures are logged and swallowed, never load-bearing.
func (h *Humanoid) SimulateScroll(ctx context.Context) {
	motions := h.between(2, 4)
	for i := 0; i < motions; i++ {
		delta := float64(h.between(200, 700))
		if h.chance(0.25) {
			// People scroll back up sometimes.
			delta = -delta / 2
		}
		if err := h.exec.ScrollBy(ctx, delta); err != nil {
			h.logger.Debug("Scroll simulation failed, ignoring", zap.Error(err))
			return
		}
		pause := time.Duration(h.between(300, 900)) * time.Millisecond
		if err := h.exec.Sleep(ctx, pause); err != nil {
			return
		}
	}
}

// SimulateMouseMovement traces 2-4 noisy pointer paths across the viewport.
// Like SimulateScroll, it is cosmetic only.
func (h *Humanoid) SimulateMouseMovement(ctx context.Context) {
	width, height, err := h.exec.ViewportSize(ctx)
	if err != nil || width <= 0 || height <= 0 {
		h.logger.Debug("Viewport unavailable, skipping mouse simulation", zap.Error(err))
		return
	}

	motions := h.between(2, 4)
	x := float64(h.between(0, int(width)))
	y := float64(h.between(0, int(height)))

	for i := 0; i < motions; i++ {
		targetX := float64(h.between(int(width)/8, int(width)*7/8))
		targetY := float64(h.between(int(height)/8, int(height)*7/8))

		const steps = 18
		for s := 1; s <= steps; s++ {
			t := float64(s) / steps
			nx, ny := h.noise()
			// Linear interpolation plus Perlin wobble; the wobble fades as
			// the pointer homes in on the target.
			px := x + (targetX-x)*t + nx*24*(1-t)
			py := y + (targetY-y)*t + ny*24*(1-t)

			if err := h.exec.DispatchMouseMove(ctx, clamp(px, 0, width), clamp(py, 0, height)); err != nil {
				h.logger.Debug("Mouse simulation failed, ignoring", zap.Error(err))
				return
			}
			if err := h.exec.Sleep(ctx, time.Duration(h.between(4, 14))*time.Millisecond); err != nil {
				return
			}
		}
		x, y = targetX, targetY

		pause := time.Duration(h.between(150, 500)) * time.Millisecond
		if err := h.exec.Sleep(ctx, pause); err != nil {
			return
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
