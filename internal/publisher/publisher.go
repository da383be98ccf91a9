// Package publisher turns the samples of a window into one feed message and
// puts it on the uplink.
//
// Delivery is at most once per batch: the buffer is drained exactly once per
// flush, the drained batch is kept across reconnect attempts, and a failed
// publish drops it.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/batch"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/clock"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/mqtt"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/retry"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/telemetry"
)

// ErrPublish marks a flush whose batch was dropped.
var ErrPublish = errors.New("batch not published")

// Uplink is the broker session; *mqtt.Client implements it.
type Uplink interface {
	IsConnected() bool
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Drainer is the window's sample store; *batch.Buffer implements it.
type Drainer interface {
	Drain() []telemetry.Sample
	TakeDropped() uint64
	Cap() int
	Policy() batch.OverflowPolicy
}

type Config struct {
	AntennaID string
	Topic     string
	Retry     retry.Strategy
}

type Publisher struct {
	cfg    Config
	uplink Uplink
	buffer Drainer
	clock  clock.Clock
	logger *slog.Logger
}

func New(cfg Config, uplink Uplink, buffer Drainer, clk clock.Clock, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = func(attempt uint64, err error, next time.Duration) {
			logger.Warn("mqtt connect failed, retrying",
				"attempt", attempt,
				"error", err,
				"retry_in", next,
			)
		}
	}
	return &Publisher{
		cfg:    cfg,
		uplink: uplink,
		buffer: buffer,
		clock:  clk,
		logger: logger,
	}
}

// EnsureConnected returns once the uplink is connected, retrying at the
// configured interval. It gives up only when ctx is done, the attempt budget
// is spent, or the uplink has been shut down.
func (p *Publisher) EnsureConnected(ctx context.Context) error {
	if p.uplink.IsConnected() {
		return nil
	}
	return p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		err := p.uplink.Connect(ctx)
		if errors.Is(err, mqtt.ErrStopped) {
			return retry.Permanent(err)
		}
		return err
	})
}

// FlushAndSend drains the buffer and publishes its samples as one batch.
// An empty window costs nothing: no connection, no message.
func (p *Publisher) FlushAndSend(ctx context.Context) error {
	samples := p.buffer.Drain()
	if dropped := p.buffer.TakeDropped(); dropped > 0 {
		p.logger.Warn("batch buffer overflowed",
			"dropped", dropped,
			"kept", len(samples),
			"capacity", p.buffer.Cap(),
			"policy", p.buffer.Policy().String(),
		)
	}
	if len(samples) == 0 {
		p.logger.Debug("no samples in window")
		return nil
	}

	msg := telemetry.Batch{
		AntennaID: p.cfg.AntennaID,
		Time:      p.clock.Millis(),
		Events:    samples,
	}
	payload, err := telemetry.Encode(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	if err := p.EnsureConnected(ctx); err != nil {
		p.logger.Warn("uplink unavailable, batch dropped", "events", len(samples), "error", err)
		return fmt.Errorf("%w: connect: %w", ErrPublish, err)
	}

	if err := p.uplink.Publish(ctx, p.cfg.Topic, payload); err != nil {
		p.logger.Warn("publish failed, batch dropped", "events", len(samples), "error", err)
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	p.logger.Info("batch published",
		"aid", msg.AntennaID,
		"time", msg.Time,
		"events", len(samples),
		"bytes", len(payload),
	)
	return nil
}
