// Package sim fakes a room full of antennas hearing one moving tag.
package sim

import (
	"math"
	"math/rand/v2"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/locate"
)

const (
	drag          = 0.15
	accelPerSpeed = 3.0
)

type Bounds struct {
	Min, Max locate.Point
}

// BoundsOf is the bounding box of the antenna layout.
func BoundsOf(points []locate.Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = min(b.Min.X, p.X)
		b.Min.Y = min(b.Min.Y, p.Y)
		b.Max.X = max(b.Max.X, p.X)
		b.Max.Y = max(b.Max.Y, p.Y)
	}
	return b
}

// Centroid is the mean of points.
func Centroid(points []locate.Point) locate.Point {
	var c locate.Point
	for _, p := range points {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(points))
	if n == 0 {
		return c
	}
	return locate.Point{X: c.X / n, Y: c.Y / n}
}

// Walker moves at a constant speed in a smoothly wandering direction and
// bounces off the walls of its box.
type Walker struct {
	pos, vel locate.Point
	bounds   Bounds
	speed    float64
	rng      *rand.Rand
}

func NewWalker(start locate.Point, bounds Bounds, speed float64, rng *rand.Rand) *Walker {
	return &Walker{pos: start, bounds: bounds, speed: speed, rng: rng}
}

func (w *Walker) Position() locate.Point { return w.pos }

// Step advances the walker by dt seconds and returns the new position.
func (w *Walker) Step(dt float64) locate.Point {
	accel := w.speed * accelPerSpeed
	w.vel.X = (1-drag)*w.vel.X + w.rng.NormFloat64()*accel*dt
	w.vel.Y = (1-drag)*w.vel.Y + w.rng.NormFloat64()*accel*dt

	if v := math.Hypot(w.vel.X, w.vel.Y); v > 1e-6 {
		w.vel.X *= w.speed / v
		w.vel.Y *= w.speed / v
	}

	w.pos.X += w.vel.X * dt
	w.pos.Y += w.vel.Y * dt
	w.pos, w.vel = Reflect(w.pos, w.vel, w.bounds)
	return w.pos
}

// Reflect mirrors a point that left the box back inside and points the
// velocity away from the wall it crossed.
func Reflect(p, v locate.Point, b Bounds) (locate.Point, locate.Point) {
	switch {
	case p.X < b.Min.X:
		p.X = b.Min.X + (b.Min.X - p.X)
		v.X = math.Abs(v.X)
	case p.X > b.Max.X:
		p.X = b.Max.X - (p.X - b.Max.X)
		v.X = -math.Abs(v.X)
	}
	switch {
	case p.Y < b.Min.Y:
		p.Y = b.Min.Y + (b.Min.Y - p.Y)
		v.Y = math.Abs(v.Y)
	case p.Y > b.Max.Y:
		p.Y = b.Max.Y - (p.Y - b.Max.Y)
		v.Y = -math.Abs(v.Y)
	}
	p.X = min(max(p.X, b.Min.X), b.Max.X)
	p.Y = min(max(p.Y, b.Min.Y), b.Max.Y)
	return p, v
}

// PathLoss is the log-distance model: rssi = A - 10*n*log10(d), d >= 10 cm.
type PathLoss struct {
	RSSIAt1m float64
	N        float64
	Noise    float64 // standard deviation, dB
}

func (m PathLoss) Mean(d float64) float64 {
	d = max(d, 0.1)
	return m.RSSIAt1m - 10*m.N*math.Log10(d)
}

func (m PathLoss) Sample(d float64, rng *rand.Rand) float64 {
	return m.Mean(d) + rng.NormFloat64()*m.Noise
}

func Distance(a, b locate.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
