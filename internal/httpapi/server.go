package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"
)

func NewServer(cfg config.Collector, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
