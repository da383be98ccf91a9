package service

import (
	"log/slog"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/mqtt"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence/repository"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/telemetry"
)

// registerMQTTHandler stores every batch arriving on the feed.
func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, repo repository.PresenceRepository, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(batch telemetry.Batch) error {
		logger.Debug("processing batch",
			"aid", batch.AntennaID,
			"time", batch.Time,
			"events", len(batch.Events),
		)

		id, err := repo.InsertBatch(batch)
		if err != nil {
			logger.Error("failed to store batch",
				"aid", batch.AntennaID,
				"error", err,
			)
			return err
		}

		logger.Debug("stored batch", "aid", batch.AntennaID, "batch_id", id)
		return nil
	})
}
