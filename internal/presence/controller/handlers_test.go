package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence/types"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/telemetry"
)

type mockRepo struct {
	antennas    []types.Antenna
	antennasErr error
	events      []types.Event
	eventsErr   error

	gotAddr  string
	gotLimit int
}

func (m *mockRepo) InsertBatch(telemetry.Batch) (int64, error) { return 0, nil }

func (m *mockRepo) GetAntennas() ([]types.Antenna, error) {
	return m.antennas, m.antennasErr
}

func (m *mockRepo) GetDeviceEvents(addr string, limit int) ([]types.Event, error) {
	m.gotAddr, m.gotLimit = addr, limit
	return m.events, m.eventsErr
}

func serve(t *testing.T, repo *mockRepo, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewPresenceController(repo).RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func Test_handleAntennas(t *testing.T) {
	t.Run("returns antennas", func(t *testing.T) {
		seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		repo := &mockRepo{antennas: []types.Antenna{{ID: "scan1", Batches: 4, LastUptimeMs: 12000, LastSeen: seen}}}

		rec := serve(t, repo, "/api/antennas")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		var got []types.Antenna
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 1 || got[0].ID != "scan1" || got[0].Batches != 4 || !got[0].LastSeen.Equal(seen) {
			t.Errorf("body = %+v", got)
		}
	})

	t.Run("empty list is an array", func(t *testing.T) {
		rec := serve(t, &mockRepo{}, "/api/antennas")

		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("body = %q; want []", rec.Body.String())
		}
	})

	t.Run("repository error is a 500", func(t *testing.T) {
		rec := serve(t, &mockRepo{antennasErr: errors.New("disk I/O error")}, "/api/antennas")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
		if !strings.Contains(rec.Body.String(), "failed to load antennas") {
			t.Errorf("body = %q", rec.Body.String())
		}
	})
}

func Test_handleDeviceEvents(t *testing.T) {
	t.Run("upper-cases the address and applies the default limit", func(t *testing.T) {
		repo := &mockRepo{events: []types.Event{
			{BatchID: 7, AntennaID: "scan1", Address: "7C:EC:79:47:6C:5E", RSSI: -60, ObservedAt: 2900},
		}}

		rec := serve(t, repo, "/api/devices/7c:ec:79:47:6c:5e/events")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if repo.gotAddr != "7C:EC:79:47:6C:5E" || repo.gotLimit != 100 {
			t.Errorf("repository called with (%q, %d)", repo.gotAddr, repo.gotLimit)
		}
		var body struct {
			Addr  string        `json:"addr"`
			Limit int           `json:"limit"`
			Items []types.Event `json:"items"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Addr != "7C:EC:79:47:6C:5E" || body.Limit != 100 || len(body.Items) != 1 {
			t.Errorf("body = %+v", body)
		}
		if body.Items[0].RSSI != -60 || body.Items[0].ObservedAt != 2900 {
			t.Errorf("item = %+v", body.Items[0])
		}
	})

	t.Run("passes the limit through", func(t *testing.T) {
		repo := &mockRepo{}
		rec := serve(t, repo, "/api/devices/D4:F5:13:79:E2:39/events?limit=5")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if repo.gotLimit != 5 {
			t.Errorf("limit = %d; want 5", repo.gotLimit)
		}
		if !strings.Contains(rec.Body.String(), `"items":[]`) {
			t.Errorf("body = %q; want empty items array", rec.Body.String())
		}
	})

	t.Run("invalid limit is a 400", func(t *testing.T) {
		repo := &mockRepo{}
		rec := serve(t, repo, "/api/devices/D4:F5:13:79:E2:39/events?limit=0")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
		}
		if repo.gotAddr != "" {
			t.Error("repository should not be queried for a bad request")
		}
	})

	t.Run("blank address is a 400", func(t *testing.T) {
		rec := serve(t, &mockRepo{}, "/api/devices/%20/events")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("repository error is a 500", func(t *testing.T) {
		rec := serve(t, &mockRepo{eventsErr: errors.New("boom")}, "/api/devices/AA/events")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}
