// Package locate estimates a tag position from per-antenna signal strength.
package locate

import (
	"errors"
	"fmt"
	"slices"
)

var ErrTooFewAntennas = errors.New("center4 needs at least 4 antennas")

type Point struct {
	X, Y float64
}

// Center4 takes the four antennas hearing the tag loudest and returns their
// centroid. When the four readings spread by more than threshold dB the
// result is pulled toward an RSSI-weighted mean, fully so at 2*threshold.
func Center4(antennas []Point, rssi []float64, threshold float64) (Point, error) {
	if len(antennas) < 4 {
		return Point{}, ErrTooFewAntennas
	}
	if len(rssi) != len(antennas) {
		return Point{}, fmt.Errorf("center4: %d readings for %d antennas", len(rssi), len(antennas))
	}

	idx := make([]int, len(rssi))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case rssi[a] > rssi[b]:
			return -1
		case rssi[a] < rssi[b]:
			return 1
		}
		return 0
	})
	top := idx[:4]

	var center Point
	lo, hi := rssi[top[0]], rssi[top[0]]
	for _, i := range top {
		center.X += antennas[i].X / 4
		center.Y += antennas[i].Y / 4
		lo = min(lo, rssi[i])
		hi = max(hi, rssi[i])
	}

	spread := hi - lo
	if spread <= threshold {
		return center, nil
	}

	var weighted Point
	var total float64
	for _, i := range top {
		w := rssi[i] - lo + 1e-6
		weighted.X += antennas[i].X * w
		weighted.Y += antennas[i].Y * w
		total += w
	}
	weighted.X /= total
	weighted.Y /= total

	alpha := 1.0
	if threshold > 0 {
		alpha = min(spread/(threshold*2), 1)
	}
	return Point{
		X: center.X*(1-alpha) + weighted.X*alpha,
		Y: center.Y*(1-alpha) + weighted.Y*alpha,
	}, nil
}
