package market

import (
	"errors"
	"fmt"
)

// ErrNoStateBlob indicates the page rendered without the embedded state
// payload the extractor relies on.
var ErrNoStateBlob = errors.New("embedded state blob not found")

// ExtractionError wraps a failure while pulling products off a page,
// tagged with the marketplace it happened on.
type ExtractionError struct {
	Platform Platform
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s extraction: %s: %v", e.Platform, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s extraction: %s", e.Platform, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
