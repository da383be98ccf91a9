package beacon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// GPIO is an Indicator on real pins: a digital LED and one or more buzzers
// driven together with a 50% duty square wave.
type GPIO struct {
	led     gpio.PinOut
	buzzers []gpio.PinOut
}

// OpenGPIO initialises the host drivers and resolves pins by name
// (e.g. "GPIO18").
func OpenGPIO(ledPin string, buzzerPins []string) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	led, err := pinByName(ledPin)
	if err != nil {
		return nil, err
	}
	buzzers := make([]gpio.PinOut, 0, len(buzzerPins))
	for _, name := range buzzerPins {
		p, err := pinByName(name)
		if err != nil {
			return nil, err
		}
		buzzers = append(buzzers, p)
	}
	return NewGPIO(led, buzzers...)
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return p, nil
}

func NewGPIO(led gpio.PinOut, buzzers ...gpio.PinOut) (*GPIO, error) {
	if led == nil {
		return nil, errors.New("led pin is required")
	}
	g := &GPIO{led: led, buzzers: buzzers}
	if err := g.silence(); err != nil {
		return nil, err
	}
	if err := led.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("led %s: %w", led, err)
	}
	return g, nil
}

func (g *GPIO) SetLED(on bool) error {
	return g.led.Out(gpio.Level(on))
}

func (g *GPIO) Tone(ctx context.Context, f physic.Frequency, d time.Duration) error {
	for _, p := range g.buzzers {
		if err := p.PWM(gpio.DutyHalf, f); err != nil {
			_ = g.silence()
			return fmt.Errorf("buzzer %s: %w", p, err)
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	if err := g.silence(); err != nil {
		return err
	}
	return ctx.Err()
}

func (g *GPIO) silence() error {
	for _, p := range g.buzzers {
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("buzzer %s: %w", p, err)
		}
	}
	return nil
}

// Close turns everything off.
func (g *GPIO) Close() error {
	return errors.Join(g.silence(), g.led.Out(gpio.Low))
}
