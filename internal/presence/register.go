package presence

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/mqtt"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence/controller"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence/repository"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence/service"
)

// RegisterFeature wires the presence store into the HTTP mux and the feed subscriber.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, subscriber mqtt.MQTTSubscriber, logger *slog.Logger) {
	presenceRepository := repository.NewRepository(db)
	presenceController := controller.NewPresenceController(presenceRepository)
	presenceController.RegisterRoutes(mux)
	service.NewService(presenceRepository, logger).Register(subscriber)
}
