// Package batch holds the samples of the current scan window.
//
// The buffer has a fixed capacity. In a dense radio environment more
// qualifying advertisements can arrive in one window than fit; the overflow
// policy decides which ones are lost, and every loss is counted.
package batch

import (
	"fmt"
	"strings"
	"sync"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/telemetry"
)

type OverflowPolicy int

const (
	// DropOldest evicts the earliest sample of the window to make room.
	DropOldest OverflowPolicy = iota
	// DropNewest refuses the incoming sample.
	DropNewest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop-oldest", "":
		return DropOldest, nil
	case "drop-newest":
		return DropNewest, nil
	default:
		return DropOldest, fmt.Errorf("invalid overflow policy %q (allowed: drop-oldest, drop-newest)", s)
	}
}

// Buffer is an append-only ring of samples, emptied by Drain.
type Buffer struct {
	mu      sync.Mutex
	ring    []telemetry.Sample
	head    int // index of the oldest sample
	n       int
	policy  OverflowPolicy
	dropped uint64
}

func New(capacity int, policy OverflowPolicy) *Buffer {
	if capacity <= 0 {
		panic("batch: capacity must be positive")
	}
	return &Buffer{
		ring:   make([]telemetry.Sample, capacity),
		policy: policy,
	}
}

// Append adds s after every sample already held. It returns false when the
// buffer was full and a sample (s itself or the oldest one) was dropped.
func (b *Buffer) Append(s telemetry.Sample) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.ring)
	if b.n < capacity {
		b.ring[(b.head+b.n)%capacity] = s
		b.n++
		return true
	}

	b.dropped++
	if b.policy == DropNewest {
		return false
	}
	b.ring[b.head] = s
	b.head = (b.head + 1) % capacity
	return false
}

// Drain returns the held samples in append order and empties the buffer.
func (b *Buffer) Drain() []telemetry.Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.n == 0 {
		return nil
	}
	out := make([]telemetry.Sample, b.n)
	capacity := len(b.ring)
	for i := range b.n {
		out[i] = b.ring[(b.head+i)%capacity]
	}
	clear(b.ring)
	b.head = 0
	b.n = 0
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func (b *Buffer) Cap() int { return len(b.ring) }

func (b *Buffer) Policy() OverflowPolicy { return b.policy }

// TakeDropped returns how many samples overflow has cost since the last call.
func (b *Buffer) TakeDropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.dropped
	b.dropped = 0
	return d
}
