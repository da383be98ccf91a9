package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// ErrAdapter marks failures of the radio itself; retrying the scan will not help.
var ErrAdapter = errors.New("ble adapter unavailable")

// Observation is a single advertisement as seen by the radio.
type Observation struct {
	Address string
	RSSI    int
}

type Options struct {
	Adapter string // "hci0" by default
}

// Scanner wraps BlueZ scanning with a fixed duration and context cancellation.
type Scanner struct {
	adapter *bluetooth.Adapter
	opts    Options
	logger  *slog.Logger

	enableOnce sync.Once
	enableErr  error
}

func NewScanner(opts Options, logger *slog.Logger) *Scanner {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scanner{
		adapter: bluetooth.NewAdapter(opts.Adapter),
		opts:    opts,
		logger:  logger,
	}
}

func (s *Scanner) enable() error {
	s.enableOnce.Do(func() {
		s.logger.Info("ble: enabling adapter", "adapter", s.opts.Adapter)
		if err := s.adapter.Enable(); err != nil {
			s.enableErr = fmt.Errorf("%w: enable %s: %v", ErrAdapter, s.opts.Adapter, err)
			return
		}
		s.logger.Info("ble: adapter enabled", "adapter", s.opts.Adapter)
	})
	return s.enableErr
}

// Scan listens for advertisements for d and blocks until the window closes or
// ctx is cancelled. onObservation runs on the radio stack's goroutine.
func (s *Scanner) Scan(ctx context.Context, d time.Duration, onObservation func(Observation)) error {
	if err := s.enable(); err != nil {
		return err
	}

	stopTimer := time.AfterFunc(d, func() {
		_ = s.adapter.StopScan()
	})
	defer stopTimer.Stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.adapter.StopScan()
		case <-done:
		}
	}()

	s.logger.Debug("ble: scan started", "duration", d)

	// adapter.Scan blocks until StopScan() or error.
	err := s.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		onObservation(Observation{
			Address: r.Address.String(),
			RSSI:    int(r.RSSI),
		})
	})

	if ctx.Err() != nil {
		s.logger.Debug("ble: scan stopped (context canceled)")
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("ble scan: %w", err)
	}

	s.logger.Debug("ble: scan stopped")
	return nil
}
