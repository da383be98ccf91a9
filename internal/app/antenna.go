package app

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/batch"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/ble"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/clock"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/mqtt"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/publisher"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/retry"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/scan"
)

// RunAntenna connects to the broker, then scans and publishes one batch per
// window until ctx is done.
func RunAntenna(ctx context.Context, cfg config.Antenna) error {
	logger := slog.Default()
	logger.Info("config loaded",
		"nodeId", cfg.NodeID,
		"knownDevices", len(cfg.KnownDevices),
		"rssiCeiling", cfg.RSSICeiling,
		"scanWindow", cfg.ScanWindow,
		"batchCapacity", cfg.BatchCapacity,
		"batchOverflow", cfg.BatchOverflow.String(),
		"bleAdapter", cfg.BLEAdapter,
		"mqttBroker", cfg.MQTT.Broker,
		"mqttPort", cfg.MQTT.Port,
		"mqttTopic", cfg.MQTT.Topic,
	)

	buffer := batch.New(cfg.BatchCapacity, cfg.BatchOverflow)
	filter := ble.NewFilter(cfg.KnownDevices, cfg.RSSICeiling)
	scanner := ble.NewScanner(ble.Options{Adapter: cfg.BLEAdapter}, logger)
	clk := clock.NewUptime()

	client := mqtt.NewClient(cfg.MQTT, logger)
	defer client.Disconnect()

	pub := publisher.New(publisher.Config{
		AntennaID: cfg.NodeID,
		Topic:     cfg.MQTT.Topic,
		Retry: retry.Strategy{
			Interval:    cfg.MQTT.ReconnectInterval,
			MaxAttempts: cfg.MQTT.ReconnectMaxAttempts,
		},
	}, client, buffer, clk, logger)

	controller := scan.NewController(scan.Config{Window: cfg.ScanWindow}, scanner, filter, buffer, pub, clk, logger)

	// The node does nothing useful offline, so start-up blocks on the broker.
	if err := pub.EnsureConnected(ctx); err != nil {
		return err
	}
	logger.Info("mqtt connected", "broker", cfg.MQTT.Broker)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("mqtt disconnecting")
		client.Disconnect()
		return nil
	})
	return g.Wait()
}
