package controller

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence/types"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/utils"
)

func (c *presenceControllerImpl) handleAntennas(w http.ResponseWriter, r *http.Request) {
	antennas, err := c.repository.GetAntennas()
	if err != nil {
		slog.Error("failed to load antennas", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load antennas")
		return
	}
	if antennas == nil {
		antennas = []types.Antenna{}
	}
	utils.WriteJSON(w, http.StatusOK, antennas)
}

func (c *presenceControllerImpl) handleDeviceEvents(w http.ResponseWriter, r *http.Request) {
	addr := strings.ToUpper(strings.TrimSpace(r.PathValue("addr")))
	if addr == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing device address")
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := c.repository.GetDeviceEvents(addr, limit)
	if err != nil {
		slog.Error("failed to load device events", "addr", addr, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load device events")
		return
	}
	if events == nil {
		events = []types.Event{}
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"addr":  addr,
		"limit": limit,
		"items": events,
	})
}
