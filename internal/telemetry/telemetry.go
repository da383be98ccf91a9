package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned when a batch without events would be put on the wire.
var ErrEmptyBatch = errors.New("batch has no events")

// Sample is one accepted advertisement: who, how strong, and when (ms of uptime).
type Sample struct {
	Address    string `json:"addr"`
	RSSI       int    `json:"rssi"`
	ObservedAt uint64 `json:"t"`
}

// Batch is the feed message: one per flush per antenna.
type Batch struct {
	AntennaID string   `json:"aid"`
	Time      uint64   `json:"time"`
	Events    []Sample `json:"events"`
}

// Encode serializes a batch. Empty batches are refused.
func Encode(b Batch) ([]byte, error) {
	if len(b.Events) == 0 {
		return nil, ErrEmptyBatch
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}
	return data, nil
}

// Decode parses and validates a feed message.
func Decode(data []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return Batch{}, fmt.Errorf("unmarshal batch: %w", err)
	}
	if err := Validate(b); err != nil {
		return Batch{}, err
	}
	return b, nil
}

func Validate(b Batch) error {
	if b.AntennaID == "" {
		return fmt.Errorf("aid is required")
	}
	if len(b.Events) == 0 {
		return ErrEmptyBatch
	}
	for i, e := range b.Events {
		if e.Address == "" {
			return fmt.Errorf("events[%d]: addr is required", i)
		}
	}
	return nil
}
