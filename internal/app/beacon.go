package app

import (
	"context"
	"log/slog"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/beacon"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"
)

// RunBeacon advertises the announce service and plays the melody while it
// is toggled on.
func RunBeacon(ctx context.Context, cfg config.Beacon) error {
	logger := slog.Default()
	logger.Info("config loaded",
		"name", cfg.Name,
		"bleAdapter", cfg.BLEAdapter,
		"ledPin", cfg.LEDPin,
		"buzzerPins", cfg.BuzzerPins,
		"pollInterval", cfg.PollInterval,
	)

	indicator, err := beacon.OpenGPIO(cfg.LEDPin, cfg.BuzzerPins)
	if err != nil {
		return err
	}
	defer func() {
		if err := indicator.Close(); err != nil {
			logger.Error("gpio close", "error", err)
		}
	}()

	announcer := beacon.NewAnnouncer(indicator, cfg.PollInterval, logger)

	peripheral := beacon.NewPeripheral(cfg.BLEAdapter, cfg.Name, logger)
	if err := peripheral.Start(announcer.OnWrite); err != nil {
		return err
	}
	defer func() {
		if err := peripheral.Stop(); err != nil {
			logger.Error("advertising stop", "error", err)
		}
	}()

	return announcer.Run(ctx)
}
