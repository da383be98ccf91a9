package repository

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/presence/types"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/telemetry"
)

//go:embed sql/insert-batch.sql
var insertBatchSQL string

//go:embed sql/insert-event.sql
var insertEventSQL string

//go:embed sql/get-antennas.sql
var getAntennasSQL string

//go:embed sql/get-device-events.sql
var getDeviceEventsSQL string

type PresenceRepository interface {
	InsertBatch(batch telemetry.Batch) (int64, error)
	GetAntennas() ([]types.Antenna, error)
	GetDeviceEvents(addr string, limit int) ([]types.Event, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) PresenceRepository {
	return &repositoryImpl{db: db}
}

// InsertBatch stores a batch and all of its events in one transaction and
// returns the batch id. Addresses are stored upper-case.
func (r *repositoryImpl) InsertBatch(batch telemetry.Batch) (id int64, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("rollback batch insert", "error", rbErr)
			}
		}
	}()

	res, err := tx.Exec(insertBatchSQL, batch.AntennaID, batch.Time)
	if err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("batch id: %w", err)
	}

	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare event insert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close event statement", "error", err)
		}
	}()

	for i, e := range batch.Events {
		if _, err = stmt.Exec(id, strings.ToUpper(e.Address), e.RSSI, e.ObservedAt); err != nil {
			return 0, fmt.Errorf("insert event %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *repositoryImpl) GetAntennas() ([]types.Antenna, error) {
	rows, err := r.db.Query(getAntennasSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close antennas rows", "error", err)
		}
	}()
	var out []types.Antenna
	for rows.Next() {
		var a types.Antenna
		var lastSeen string
		if err := rows.Scan(&a.ID, &a.Batches, &a.LastUptimeMs, &lastSeen); err != nil {
			return nil, err
		}
		a.LastSeen = parseTimestamp(lastSeen)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetDeviceEvents(addr string, limit int) ([]types.Event, error) {
	rows, err := r.db.Query(getDeviceEventsSQL, strings.ToUpper(addr), limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close device events rows", "error", err)
		}
	}()
	var out []types.Event
	for rows.Next() {
		var e types.Event
		var receivedAt string
		if err := rows.Scan(&e.BatchID, &e.AntennaID, &e.Address, &e.RSSI, &e.ObservedAt, &receivedAt); err != nil {
			return nil, err
		}
		e.ReceivedAt = parseTimestamp(receivedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
