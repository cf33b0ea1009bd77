// Package debounce delays an action until a quiet period with no further
// triggers has elapsed. Both the content autosave and the editor-state
// store run on one of these, with different windows.
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid calls into a single callback invocation after
// a quiet period. At most one timer is pending at any time: a new call
// cancels and replaces the previous timer instead of stacking timers.
//
// All methods are safe for concurrent use. The callback never runs
// concurrently with itself: a flush waits for a timer-fired run that is
// already in flight.
type Debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	pending  bool
	seq      uint64 // invalidates callbacks from replaced timers
	callback func()

	// runMu is held for the duration of every callback invocation.
	runMu sync.Mutex
}

func New(delay time.Duration, callback func()) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: callback,
	}
}

// Call schedules the callback to run after the debounce delay, replacing
// any previously scheduled run.
func (d *Debouncer) Call() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if !d.pending || d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.mu.Unlock()

		d.runMu.Lock()
		d.callback()
		d.runMu.Unlock()
	})
}

// Flush runs the callback immediately and synchronously if a call is
// pending, canceling the scheduled timer. It is a no-op otherwise.
func (d *Debouncer) Flush() {
	d.mu.Lock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++

	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	d.runMu.Lock()
	d.callback()
	d.runMu.Unlock()
}

// Cancel drops any pending call without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
}

// Pending reports whether a call is scheduled but has not run yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
