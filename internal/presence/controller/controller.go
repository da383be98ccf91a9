package controller

import (
	"net/http"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence/repository"
)

type PresenceController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type presenceControllerImpl struct {
	repository repository.PresenceRepository
}

func NewPresenceController(repository repository.PresenceRepository) PresenceController {
	return &presenceControllerImpl{repository: repository}
}

func (c *presenceControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/antennas", c.handleAntennas)
	mux.HandleFunc("GET /api/devices/{addr}/events", c.handleDeviceEvents)
}
