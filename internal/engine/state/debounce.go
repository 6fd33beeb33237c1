package state

import (
	"time"

	"github.com/bep/debounce"
)

// Windows holds the per-stream settle times. Each input stream gets
// its own window so a viewport drag never delays a typed query.
type Windows struct {
	Viewport time.Duration
	Buyer    time.Duration
	Query    time.Duration
	Filters  time.Duration
}

// DefaultWindows returns the settle times tuned for interactive use.
func DefaultWindows() Windows {
	return Windows{
		Viewport: 200 * time.Millisecond,
		Buyer:    300 * time.Millisecond,
		Query:    300 * time.Millisecond,
		Filters:  400 * time.Millisecond,
	}
}

// Debouncer collapses a burst of triggers into one callback after the
// wait elapses with no further trigger. Only the last callback of a
// burst runs.
type Debouncer struct {
	fire func(func())
}

func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{fire: debounce.New(wait)}
}

// Trigger schedules fn, replacing any pending callback.
func (d *Debouncer) Trigger(fn func()) {
	d.fire(fn)
}
