// Package beacon is the companion tag: a GATT peripheral whose only
// characteristic switches an audible and visual announcement on and off.
package beacon

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"
)

type Note struct {
	Frequency physic.Frequency
	Duration  time.Duration
}

// Melody is played once per announcement, rising.
var Melody = []Note{
	{Frequency: 1000 * physic.Hertz, Duration: 200 * time.Millisecond},
	{Frequency: 1200 * physic.Hertz, Duration: 200 * time.Millisecond},
	{Frequency: 1500 * physic.Hertz, Duration: 200 * time.Millisecond},
	{Frequency: 1800 * physic.Hertz, Duration: 200 * time.Millisecond},
	{Frequency: 2000 * physic.Hertz, Duration: 400 * time.Millisecond},
}

const (
	NoteGap = 50 * time.Millisecond
	Rest    = time.Second
)

// Indicator drives the LED and the buzzer.
type Indicator interface {
	SetLED(on bool) error
	// Tone sounds f for d, or until ctx is done.
	Tone(ctx context.Context, f physic.Frequency, d time.Duration) error
}

type Announcer struct {
	indicator Indicator
	poll      time.Duration
	logger    *slog.Logger
	active    atomic.Bool

	sleep func(ctx context.Context, d time.Duration) error
}

func NewAnnouncer(indicator Indicator, poll time.Duration, logger *slog.Logger) *Announcer {
	if logger == nil {
		logger = slog.Default()
	}
	if poll <= 0 {
		poll = 20 * time.Millisecond
	}
	return &Announcer{
		indicator: indicator,
		poll:      poll,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnWrite is the characteristic's write callback. Any non-empty value
// toggles the announcement; the content is not interpreted.
func (a *Announcer) OnWrite(value []byte) {
	if len(value) == 0 {
		return
	}
	for {
		old := a.active.Load()
		if a.active.CompareAndSwap(old, !old) {
			a.logger.Info("announcement toggled", "active", !old, "bytes", len(value))
			return
		}
	}
}

func (a *Announcer) Active() bool { return a.active.Load() }

// Run plays announcements back to back while active and polls otherwise.
// A toggle-off takes effect after the announcement in progress.
func (a *Announcer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !a.active.Load() {
			if err := a.sleep(ctx, a.poll); err != nil {
				return err
			}
			continue
		}
		if err := a.announce(ctx); err != nil {
			return err
		}
	}
}

func (a *Announcer) announce(ctx context.Context) error {
	if err := a.indicator.SetLED(true); err != nil {
		return fmt.Errorf("led on: %w", err)
	}
	for _, n := range Melody {
		if err := a.indicator.Tone(ctx, n.Frequency, n.Duration); err != nil {
			_ = a.indicator.SetLED(false)
			return fmt.Errorf("tone %s: %w", n.Frequency, err)
		}
		if err := a.sleep(ctx, NoteGap); err != nil {
			_ = a.indicator.SetLED(false)
			return err
		}
	}
	if err := a.indicator.SetLED(false); err != nil {
		return fmt.Errorf("led off: %w", err)
	}
	return a.sleep(ctx, Rest)
}
