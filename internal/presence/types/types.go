package types

import "time"

// Antenna summarizes what the collector has heard from one antenna.
type Antenna struct {
	ID           string    `json:"id"`
	Batches      int       `json:"batches"`
	LastUptimeMs uint64    `json:"lastUptimeMs"`
	LastSeen     time.Time `json:"lastSeen"`
}

type Event struct {
	BatchID    int64     `json:"batchId"`
	AntennaID  string    `json:"antennaId"`
	Address    string    `json:"addr"`
	RSSI       int       `json:"rssi"`
	ObservedAt uint64    `json:"t"`
	ReceivedAt time.Time `json:"receivedAt"`
}
