package locate

import (
	"errors"
	"math"
	"testing"
)

var square = []Point{{10, 0}, {0, 0}, {0, 10}, {10, 10}}

func near(a, b Point) bool {
	return math.Abs(a.X-b.X) < 1e-4 && math.Abs(a.Y-b.Y) < 1e-4
}

func TestCenter4(t *testing.T) {
	tests := []struct {
		name     string
		antennas []Point
		rssi     []float64
		want     Point
	}{
		{
			name:     "equal readings give the centroid",
			antennas: square,
			rssi:     []float64{-60, -60, -60, -60},
			want:     Point{5, 5},
		},
		{
			name:     "spread within threshold stays at the centroid",
			antennas: square,
			rssi:     []float64{-60, -61, -62, -61},
			want:     Point{5, 5},
		},
		{
			name:     "spread of twice the threshold is fully weighted",
			antennas: square,
			rssi:     []float64{-56, -60, -60, -60},
			// weights ~4, ~0, ~0, ~0 -> the loudest antenna
			want: Point{10, 0},
		},
		{
			name:     "only the four loudest antennas count",
			antennas: append([]Point{{100, 100}}, square...),
			rssi:     []float64{-90, -60, -60, -60, -60},
			want:     Point{5, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Center4(tt.antennas, tt.rssi, 2)
			if err != nil {
				t.Fatalf("Center4() error = %v", err)
			}
			if !near(got, tt.want) {
				t.Errorf("Center4() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCenter4_PartialBlend(t *testing.T) {
	// spread 3 with threshold 2: alpha = 0.75
	got, err := Center4(square, []float64{-57, -60, -60, -60}, 2)
	if err != nil {
		t.Fatalf("Center4() error = %v", err)
	}
	if got.X <= 5 || got.X >= 10 || got.Y >= 5 || got.Y <= 0 {
		t.Errorf("Center4() = %+v, want between centroid and (10,0)", got)
	}
	want := Point{X: 5*0.25 + 10*0.75, Y: 5*0.25 + 0*0.75}
	if !near(got, want) {
		t.Errorf("Center4() = %+v, want %+v", got, want)
	}
}

func TestCenter4_Errors(t *testing.T) {
	if _, err := Center4(square[:3], []float64{-1, -2, -3}, 2); !errors.Is(err, ErrTooFewAntennas) {
		t.Errorf("3 antennas: error = %v, want ErrTooFewAntennas", err)
	}
	if _, err := Center4(square, []float64{-1, -2}, 2); err == nil {
		t.Error("mismatched readings: error = nil")
	}
}
