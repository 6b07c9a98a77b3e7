// File: internal/humanoid/humanoid.go
// Package humanoid holds the primitive actions that make scripted input
// indistinguishable from a person: jittered delays, noisy pointer motion,
// per-character typing with simulated mistakes, and cleanup of automation
// fingerprints that preserves authentication state.
package humanoid

import (
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/config"
)

// Humanoid manages the state and execution of human-like interactions
// against a single tab.
type Humanoid struct {
	cfg    config.HumanoidConfig
	exec   Executor
	logger *zap.Logger

	// mu guards the rng; chromedp callbacks may run on different goroutines.
	mu  sync.Mutex
	rng *rand.Rand

	// Perlin noise gives mouse trajectories their organic wobble.
	noiseX    *perlin.Perlin
	noiseY    *perlin.Perlin
	noiseTime float64
}

// New creates a Humanoid driving the given executor.
func New(cfg config.HumanoidConfig, exec Executor, logger *zap.Logger) *Humanoid {
	seed := time.Now().UnixNano()
	// Standard Perlin parameters.
	alpha, beta, n := 2.0, 2.0, int32(3)

	return &Humanoid{
		cfg:    cfg,
		exec:   exec,
		logger: logger.Named("humanoid"),
		rng:    rand.New(rand.NewSource(seed)),
		noiseX: perlin.NewPerlin(alpha, beta, n, seed),
		noiseY: perlin.NewPerlin(alpha, beta, n, seed+1),
	}
}

// chance returns true with probability p.
func (h *Humanoid) chance(p float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64() < p
}

// between returns a uniform value in [min, max].
func (h *Humanoid) between(min, max int) int {
	if max <= min {
		return min
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return min + h.rng.Intn(max-min+1)
}

// noise samples the Perlin fields at the current noise cursor.
func (h *Humanoid) noise() (x, y float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.noiseTime += 0.1
	return h.noiseX.Noise1D(h.noiseTime), h.noiseY.Noise1D(h.noiseTime)
}
