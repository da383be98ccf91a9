package service

import (
	"log/slog"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/mqtt"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence/repository"
)

type Service struct {
	repository repository.PresenceRepository
	logger     *slog.Logger
}

func NewService(repository repository.PresenceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repository: repository, logger: logger}
}

func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	registerMQTTHandler(subscriber, s.repository, s.logger)
}
