package app

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/batch"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/clock"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/locate"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/mqtt"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/publisher"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/retry"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/sim"
)

// simBufferCapacity is generous: each antenna buffers one sample per tick.
const simBufferCapacity = 16

// RunSimulator publishes synthetic batches for a tag walking among the
// configured antennas.
func RunSimulator(ctx context.Context, cfg config.Simulator) error {
	logger := slog.Default()
	logger.Info("config loaded",
		"antennas", len(cfg.Antennas),
		"tag", cfg.TagAddr,
		"delay", cfg.Delay,
		"speed", cfg.Speed,
		"noise", cfg.Noise,
		"rssiAt1m", cfg.RSSIAt1m,
		"pathLossN", cfg.PathLossN,
		"threshold", cfg.Threshold,
		"mqttBroker", cfg.MQTT.Broker,
		"mqttTopic", cfg.MQTT.Topic,
	)

	client := mqtt.NewClient(cfg.MQTT, logger)
	defer client.Disconnect()

	clk := clock.NewUptime()
	strategy := retry.Strategy{
		Interval:    cfg.MQTT.ReconnectInterval,
		MaxAttempts: cfg.MQTT.ReconnectMaxAttempts,
	}

	antennas := make([]sim.Antenna, len(cfg.Antennas))
	for i, xy := range cfg.Antennas {
		id := sim.AntennaID(i)
		buffer := batch.New(simBufferCapacity, batch.DropOldest)
		pub := publisher.New(publisher.Config{
			AntennaID: id,
			Topic:     cfg.MQTT.Topic,
			Retry:     strategy,
		}, client, buffer, clk, logger.With("aid", id))
		antennas[i] = sim.Antenna{
			ID:       id,
			Position: locate.Point{X: xy[0], Y: xy[1]},
			Buffer:   buffer,
			Out:      pub,
		}
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	runner, err := sim.NewRunner(sim.Config{
		TagAddr:   cfg.TagAddr,
		Delay:     cfg.Delay,
		Speed:     cfg.Speed,
		Threshold: cfg.Threshold,
		PathLoss: sim.PathLoss{
			RSSIAt1m: cfg.RSSIAt1m,
			N:        cfg.PathLossN,
			Noise:    cfg.Noise,
		},
	}, antennas, clk, rng, logger)
	if err != nil {
		return err
	}

	return runner.Run(ctx)
}
