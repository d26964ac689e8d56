// Package batch runs multi-file import and export with progress reporting
// and cooperative cancellation.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when Run is called while a batch is still active
// (running, or holding its final progress).
var ErrBusy = errors.New("batch already in progress")

// State is the controller lifecycle: Idle → Running → Completing or
// Cancelled → Idle.
type State int

const (
	Idle State = iota
	Running
	Completing
	Cancelled
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completing:
		return "completing"
	case Cancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Progress is the transient state of one batch. It is zeroed when the
// controller returns to Idle.
type Progress struct {
	State     State `json:"state"`
	Current   int   `json:"current"`
	Total     int   `json:"total"`
	Cancelled bool  `json:"cancelled"`
}

// Percent returns Current/Total in [0, 100].
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Current * 100 / p.Total
}

// tracker holds progress and the cancellation flag shared between the
// batch goroutine and callers polling or cancelling it.
type tracker struct {
	mu sync.Mutex
	p  Progress
}

func (t *tracker) begin(total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.p.State != Idle {
		return ErrBusy
	}
	t.p = Progress{State: Running, Total: total}
	return nil
}

func (t *tracker) advance(n int) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Current += n
	return t.p
}

// stopRequested reports whether the batch should stop before the next
// unit of work.
func (t *tracker) stopRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p.Cancelled
}

// cancel flags a running batch. It returns false when nothing is running.
func (t *tracker) cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.p.State != Running {
		return false
	}
	t.p.Cancelled = true
	return true
}

func (t *tracker) finish(stopped bool) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stopped {
		t.p.State = Cancelled
	} else {
		t.p.State = Completing
	}
	return t.p
}

func (t *tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p = Progress{}
}

func (t *tracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}

// settle keeps the terminal progress visible for hold, then goes Idle.
func (t *tracker) settle(ctx context.Context, hold time.Duration) {
	sleep(ctx, hold)
	t.reset()
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
