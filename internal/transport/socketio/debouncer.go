package socketio

import (
	"sync"
	"time"
)

// StatusDebouncer collapses bursts of resolutions into one status broadcast.
// A library scan resolves hundreds of albums in a few seconds; clients only
// need the totals once things settle.
type StatusDebouncer struct {
	window   time.Duration
	callback func()

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
	stopped bool
}

// NewStatusDebouncer creates a debouncer with the given window duration.
func NewStatusDebouncer(window time.Duration, callback func()) *StatusDebouncer {
	return &StatusDebouncer{
		window:   window,
		callback: callback,
	}
}

// Trigger records a change. The callback runs once the window elapses
// without further triggers.
func (d *StatusDebouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *StatusDebouncer) flush() {
	d.mu.Lock()
	run := d.pending && !d.stopped
	d.pending = false
	d.mu.Unlock()

	if run && d.callback != nil {
		d.callback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *StatusDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}
