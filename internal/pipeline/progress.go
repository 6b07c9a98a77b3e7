package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// logCapacity bounds the in-memory run log. Oldest lines drop first.
const logCapacity = 100

// Snapshot is a point-in-time copy of a pipeline's progress, safe to
// hand to HTTP handlers and CLI renderers.
type Snapshot struct {
	IsRunning            bool     `json:"isRunning"`
	RunID                string   `json:"runId,omitempty"`
	Current              int      `json:"current"`
	Total                int      `json:"total"`
	Label                string   `json:"label"`
	Status               string   `json:"status"`
	WaitSecondsRemaining int      `json:"waitSecondsRemaining"`
	Log                  []string `json:"log"`
}

// Progress tracks one pipeline's run state for external observers. All
// methods are safe for concurrent use.
type Progress struct {
	mu   sync.Mutex
	snap Snapshot
	log  []string
}

func NewProgress() *Progress {
	return &Progress{snap: Snapshot{Status: "idle"}}
}

// Begin marks a fresh run. The previous run's log is discarded.
func (p *Progress) Begin(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = Snapshot{
		IsRunning: true,
		RunID:     uuid.NewString(),
		Total:     total,
		Status:    "running",
	}
	p.log = nil
}

// Step records position within the run.
func (p *Progress) Step(current int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Current = current
	p.snap.Label = label
	p.snap.WaitSecondsRemaining = 0
}

// SetStatus updates the short status line.
func (p *Progress) SetStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Status = status
}

// SetWait publishes the remaining seconds of a deliberate delay so a
// watching UI can show the countdown.
func (p *Progress) SetWait(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.WaitSecondsRemaining = seconds
}

// Logf appends a timestamped line to the run log, dropping the oldest
// line once the log is full.
func (p *Progress) Logf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := time.Now().Format("15:04:05") + " " + fmt.Sprintf(format, args...)
	p.log = append(p.log, line)
	if len(p.log) > logCapacity {
		p.log = p.log[len(p.log)-logCapacity:]
	}
}

// End marks the run finished with a final status. The log survives so
// observers can read how the run went.
func (p *Progress) End(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.IsRunning = false
	p.snap.Status = status
	p.snap.WaitSecondsRemaining = 0
}

// Reset returns the reporter to its idle state and clears the log.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = Snapshot{Status: "idle"}
	p.log = nil
}

// Snapshot returns a copy of the current state with its own log slice.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.snap
	out.Log = make([]string, len(p.log))
	copy(out.Log, p.log)
	return out
}
