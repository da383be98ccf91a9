package ble

import "strings"

// DefaultRSSICeiling is the strongest signal still accepted. Anything louder is
// treated as a saturated near-field reading and dropped.
const DefaultRSSICeiling = -35

// Filter decides whether an advertisement is worth keeping.
type Filter struct {
	known   map[string]struct{}
	ceiling int
}

// NewFilter builds a filter over a fixed set of addresses. Matching is
// case-insensitive.
func NewFilter(knownDevices []string, rssiCeiling int) *Filter {
	known := make(map[string]struct{}, len(knownDevices))
	for _, addr := range knownDevices {
		known[strings.ToUpper(strings.TrimSpace(addr))] = struct{}{}
	}
	return &Filter{known: known, ceiling: rssiCeiling}
}

// Accept reports whether an observation from address at rssi passes.
func (f *Filter) Accept(address string, rssi int) bool {
	if rssi > f.ceiling {
		return false
	}
	_, ok := f.known[strings.ToUpper(address)]
	return ok
}

// Known returns the number of devices in the allowlist.
func (f *Filter) Known() int { return len(f.known) }
