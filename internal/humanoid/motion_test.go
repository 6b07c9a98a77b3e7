// File: internal/humanoid/motion_test.go
package humanoid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaeho-dev/marketscout/internal/config"
)

func motionConfig() config.HumanoidConfig {
	// Zero key delays keep the mock fast; motion pauses go through the mock
	// Sleep which records instead of sleeping.
	return config.HumanoidConfig{}
}

func TestSimulateScrollIssuesBoundedMotions(t *testing.T) {
	exec := newMockExecutor()
	h := newTestHumanoid(motionConfig(), exec)

	h.SimulateScroll(context.Background())

	assert.GreaterOrEqual(t, len(exec.scrolls), 2)
	assert.LessOrEqual(t, len(exec.scrolls), 4)
	for _, delta := range exec.scrolls {
		assert.NotZero(t, delta)
	}
}

func TestSimulateMouseMovementDispatchesMoves(t *testing.T) {
	exec := newMockExecutor()
	h := newTestHumanoid(motionConfig(), exec)

	h.SimulateMouseMovement(context.Background())

	// 2-4 motions of 18 interpolation steps each.
	assert.GreaterOrEqual(t, exec.moves, 2*18)
	assert.LessOrEqual(t, exec.moves, 4*18)
}

func TestSimulateMouseMovementSkipsWithoutViewport(t *testing.T) {
	exec := newMockExecutor()
	exec.viewport = [2]float64{0, 0}
	h := newTestHumanoid(motionConfig(), exec)

	// Must be a silent no-op, never an error or panic.
	h.SimulateMouseMovement(context.Background())
	assert.Zero(t, exec.moves)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-5, 0, 10))
	assert.Equal(t, 10.0, clamp(15, 0, 10))
	assert.Equal(t, 5.0, clamp(5, 0, 10))
}
