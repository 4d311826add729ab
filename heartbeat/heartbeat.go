// Package heartbeat emits rate-limited liveness logs during long stages.
package heartbeat

import (
	"log"
	"time"
)

const (
	// DefaultInterval is the longest a running stage may stay silent.
	DefaultInterval = 60 * time.Second
	// DefaultEvery forces an emit after this many recorded units of work.
	DefaultEvery = 25
)

// Heartbeat is an advisory progress logger shared by the clustering,
// narration and synthesis stages. It never gates correctness; a stage that
// stops ticking simply stops logging. Not safe for concurrent use; the
// synthesis gateway ticks it from a single collector goroutine.
type Heartbeat struct {
	label    string
	interval time.Duration
	every    int
	now      func() time.Time
	lastEmit time.Time
	ticks    int
}

// New returns a heartbeat that emits at least once per interval and after
// every `every` ticks, whichever comes first. Zero values fall back to the
// package defaults.
func New(label string, interval time.Duration, every int) *Heartbeat {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if every <= 0 {
		every = DefaultEvery
	}
	return &Heartbeat{
		label:    label,
		interval: interval,
		every:    every,
		now:      time.Now,
		lastEmit: time.Now(),
	}
}

// Tick records one unit of progress and emits when due.
func (h *Heartbeat) Tick(message string) {
	h.ticks++
	now := h.now()
	if h.ticks%h.every == 0 || now.Sub(h.lastEmit) >= h.interval {
		h.emit(message, now)
	}
}

// Force emits immediately and resets the interval clock.
func (h *Heartbeat) Force(message string) {
	h.emit(message, h.now())
}

func (h *Heartbeat) emit(message string, now time.Time) {
	log.Printf("[heartbeat] %s: %s", h.label, message)
	h.lastEmit = now
}
