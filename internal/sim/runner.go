package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/clock"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/locate"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/telemetry"
)

type Appender interface {
	Append(s telemetry.Sample) bool
}

type Flusher interface {
	FlushAndSend(ctx context.Context) error
}

// Antenna is one simulated receiver. Each tick it buffers a single sample
// for the tag and flushes it as its own batch.
type Antenna struct {
	ID       string
	Position locate.Point
	Buffer   Appender
	Out      Flusher
}

// AntennaID names the i-th antenna (0-based) the way the feed expects.
func AntennaID(i int) string {
	return fmt.Sprintf("scan%d", i+1)
}

type Config struct {
	TagAddr   string
	Delay     time.Duration
	Speed     float64
	Threshold float64
	PathLoss  PathLoss
}

// Reading is what one tick produced.
type Reading struct {
	True     locate.Point
	Estimate locate.Point
	RSSI     []float64
}

type Runner struct {
	cfg      Config
	antennas []Antenna
	walker   *Walker
	clock    clock.Clock
	rng      *rand.Rand
	logger   *slog.Logger
}

func NewRunner(cfg Config, antennas []Antenna, clk clock.Clock, rng *rand.Rand, logger *slog.Logger) (*Runner, error) {
	if len(antennas) < 4 {
		return nil, locate.ErrTooFewAntennas
	}
	if logger == nil {
		logger = slog.Default()
	}
	points := make([]locate.Point, len(antennas))
	for i, a := range antennas {
		points[i] = a.Position
	}
	return &Runner{
		cfg:      cfg,
		antennas: antennas,
		walker:   NewWalker(Centroid(points), BoundsOf(points), cfg.Speed, rng),
		clock:    clk,
		rng:      rng,
		logger:   logger,
	}, nil
}

// Tick moves the tag, publishes one batch per antenna and estimates the
// position from the same readings.
func (r *Runner) Tick(ctx context.Context) (Reading, error) {
	dt := max(r.cfg.Delay.Seconds(), 1e-3)
	pos := r.walker.Step(dt)

	points := make([]locate.Point, len(r.antennas))
	rssi := make([]float64, len(r.antennas))
	var errs []error
	for i, a := range r.antennas {
		points[i] = a.Position
		rssi[i] = r.cfg.PathLoss.Sample(Distance(pos, a.Position), r.rng)

		a.Buffer.Append(telemetry.Sample{
			Address:    r.cfg.TagAddr,
			RSSI:       int(math.Round(rssi[i])),
			ObservedAt: r.clock.Millis(),
		})
		if err := a.Out.FlushAndSend(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.ID, err))
		}
	}

	est, err := locate.Center4(points, rssi, r.cfg.Threshold)
	if err != nil {
		return Reading{}, err
	}

	r.logger.Info("tick",
		"true_x", round2(pos.X), "true_y", round2(pos.Y),
		"est_x", round2(est.X), "est_y", round2(est.Y),
		"error_m", round2(Distance(pos, est)),
	)
	return Reading{True: pos, Estimate: est, RSSI: rssi}, errors.Join(errs...)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Run ticks every Delay until ctx is done. Publish failures are logged and
// the walk goes on.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Delay)
	defer ticker.Stop()

	r.logger.Info("simulation started",
		"antennas", len(r.antennas),
		"tag", r.cfg.TagAddr,
		"delay", r.cfg.Delay,
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("tick incomplete", "error", err)
			}
		}
	}
}
