// Package clock provides the millisecond uptime counter that stamps samples
// and flushes. Values are relative to process start, never wall-clock time.
package clock

import (
	"sync/atomic"
	"time"
)

type Clock interface {
	Millis() uint64
}

// Uptime counts milliseconds since it was created, using the monotonic clock.
type Uptime struct {
	start time.Time
}

func NewUptime() *Uptime {
	return &Uptime{start: time.Now()}
}

func (u *Uptime) Millis() uint64 {
	return uint64(time.Since(u.start).Milliseconds())
}

// Manual is a Clock that only moves when told to.
type Manual struct {
	ms atomic.Uint64
}

func NewManual(start uint64) *Manual {
	m := &Manual{}
	m.ms.Store(start)
	return m
}

func (m *Manual) Millis() uint64 { return m.ms.Load() }

func (m *Manual) Set(ms uint64) { m.ms.Store(ms) }

func (m *Manual) Advance(d time.Duration) {
	m.ms.Add(uint64(d.Milliseconds()))
}
