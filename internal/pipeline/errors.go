package pipeline

import (
	"errors"

	"github.com/jaeho-dev/marketscout/internal/browser/detect"
)

// Sentinel failures shared across the collection and sourcing runs.
// Callers match them with errors.Is to decide between skipping an item
// and aborting the run.
var (
	// ErrSessionLost means the browser engine or its working tab died
	// mid-run. The whole run aborts.
	ErrSessionLost = errors.New("browser session lost")

	// ErrAuthRequired means the marketplace session is anonymous and a
	// human needs to sign in before collection can start.
	ErrAuthRequired = errors.New("authentication required")

	// ErrCaptchaTimeout re-exports the detect sentinel so run-level
	// callers can match it without reaching into the detect package.
	ErrCaptchaTimeout = detect.ErrCaptchaTimeout

	// ErrBlocked means the marketplace served an access-denied page.
	ErrBlocked = errors.New("access blocked by marketplace")

	// ErrEmptyWorkList means the management backend returned no items to
	// collect, which ends the run without any dispatches.
	ErrEmptyWorkList = errors.New("work list is empty")
)
