// Package scan drives the antenna's duty cycle: wait out the window, scan
// for one window, flush, repeat.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/ble"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/clock"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/telemetry"
)

type State int

const (
	Idle State = iota
	Scanning
)

func (s State) String() string {
	if s == Scanning {
		return "scanning"
	}
	return "idle"
}

// Scanner blocks for d while delivering observations; *ble.Scanner implements it.
type Scanner interface {
	Scan(ctx context.Context, d time.Duration, onObservation func(ble.Observation)) error
}

// Flusher is called once after every scan; *publisher.Publisher implements it.
type Flusher interface {
	FlushAndSend(ctx context.Context) error
}

type Filter interface {
	Accept(address string, rssi int) bool
}

type Appender interface {
	Append(s telemetry.Sample) bool
}

type Config struct {
	Window time.Duration
}

// Controller owns the window state. Observe is safe to call from the radio
// goroutine; everything else runs on the goroutine that calls Run.
type Controller struct {
	cfg     Config
	scanner Scanner
	filter  Filter
	buffer  Appender
	flusher Flusher
	clock   clock.Clock
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	started   bool
	lastStart uint64
	late      uint64

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewController(cfg Config, scanner Scanner, filter Filter, buffer Appender, flusher Flusher, clk clock.Clock, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:     cfg,
		scanner: scanner,
		filter:  filter,
		buffer:  buffer,
		flusher: flusher,
		clock:   clk,
		logger:  logger,
		sleep:   sleepCtx,
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

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Late returns how many observations arrived outside a scan window.
func (c *Controller) Late() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.late
}

// Observe is the radio callback. Samples are stamped on arrival; anything
// that arrives while not scanning belongs to no window and is discarded.
func (c *Controller) Observe(o ble.Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Scanning {
		c.late++
		return
	}
	if !c.filter.Accept(o.Address, o.RSSI) {
		return
	}
	c.buffer.Append(telemetry.Sample{
		Address:    o.Address,
		RSSI:       o.RSSI,
		ObservedAt: c.clock.Millis(),
	})
}

// untilDue is how long to stay idle before the next scan. The window is
// measured from the start of the previous scan, so once a scan and its flush
// are done the next scan is already due. The first scan is due at start-up.
func (c *Controller) untilDue() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return 0
	}
	elapsed := time.Duration(c.clock.Millis()-c.lastStart) * time.Millisecond
	if elapsed >= c.cfg.Window {
		return 0
	}
	return c.cfg.Window - elapsed
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run loops until ctx is done or the radio fails for good.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("scan loop started", "window", c.cfg.Window)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if wait := c.untilDue(); wait > 0 {
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}
		if err := c.Cycle(ctx); err != nil {
			return err
		}
	}
}

// Cycle runs one scan of exactly one window and then flushes, whatever the
// batch holds. The window timer restarts when the scan starts.
func (c *Controller) Cycle(ctx context.Context) error {
	c.mu.Lock()
	c.state = Scanning
	c.lastStart = c.clock.Millis()
	c.started = true
	c.mu.Unlock()
	err := c.scanner.Scan(ctx, c.cfg.Window, c.Observe)
	c.setState(Idle)

	switch {
	case errors.Is(err, ble.ErrAdapter):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		c.logger.Warn("scan failed", "error", err)
	}

	if err := c.flusher.FlushAndSend(ctx); err != nil {
		c.logger.Debug("flush ended without publish", "error", err)
	}

	c.mu.Lock()
	late := c.late
	c.late = 0
	c.mu.Unlock()

	if late > 0 {
		c.logger.Debug("observations outside scan window discarded", "count", late)
	}
	return nil
}
