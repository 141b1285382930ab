// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package pwm

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/irq"
	"github.com/binkynet/LocalPWM/pkg/platform"
)

const (
	// Levels is the number of steps in a single RGB cycle and
	// the maximum brightness of a channel.
	Levels = 16
	// DefaultStepTicks is the number of timer ticks of a single step (CCR0 = 0Fh).
	DefaultStepTicks = 16
)

var channelNames = [3]string{"red", "green", "blue"}

// Color holds the brightness (0..16) of the red, green and blue channels.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Validate returns a ConfigurationError when a channel exceeds Levels.
func (c Color) Validate() error {
	for i, v := range c.values() {
		if v > Levels {
			return platform.InvalidArgument("%s brightness must be in 0..%d range, got %d", channelNames[i], Levels, v)
		}
	}
	return nil
}

// String returns the color as r/g/b.
func (c Color) String() string {
	return fmt.Sprintf("%d/%d/%d", c.R, c.G, c.B)
}

func (c Color) values() [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

// RGBConfig holds the settings of an RGB PWM.
type RGBConfig struct {
	// Red, green & blue output pins
	Pins [3]hal.Pin
	// Number of timer ticks per step
	StepTicks uint32
}

// RGB drives three pins with a 16 level duty cycle each, one step per
// timer overflow. All pins go high together at the start of a cycle and
// each pin goes low once its brightness is used up.
type RGB struct {
	log    zerolog.Logger
	gpio   *hal.GPIO
	timer  *hal.Timer
	irq    *irq.Controller
	config RGBConfig

	// Only accessed with interrupts masked
	decrementers [3]uint8
	step         uint8

	mutex      sync.Mutex
	brightness [3]uint8
	running    bool
	cycles     uint64
}

// RGBStatus is a snapshot of the state of an RGB PWM.
type RGBStatus struct {
	Pins      [3]string `json:"pins"`
	Timer     string    `json:"timer"`
	Running   bool      `json:"running"`
	StepTicks uint32    `json:"step_ticks"`
	Color     Color     `json:"color"`
	Cycles    uint64    `json:"cycles"`
}

// NewRGB creates an RGB PWM on the given pins & timer.
// Nothing is written until Start is called.
func NewRGB(log zerolog.Logger, gpio *hal.GPIO, timer *hal.Timer, ctrl *irq.Controller, config RGBConfig) (*RGB, error) {
	for _, pin := range config.Pins {
		if _, err := gpio.Pin(pin.Port, pin.Index); err != nil {
			return nil, err
		}
	}
	for i := 0; i < len(config.Pins); i++ {
		for j := i + 1; j < len(config.Pins); j++ {
			if config.Pins[i] == config.Pins[j] {
				return nil, platform.InvalidArgument("pin %s used for multiple channels", config.Pins[i])
			}
		}
	}
	if config.StepTicks == 0 {
		config.StepTicks = DefaultStepTicks
	}
	if config.StepTicks > hal.MaxPeriodTicks {
		return nil, platform.InvalidArgument("step must be in 1..%d ticks, got %d", hal.MaxPeriodTicks, config.StepTicks)
	}
	return &RGB{
		log:    log.With().Str("component", "rgb-pwm").Logger(),
		gpio:   gpio,
		timer:  timer,
		irq:    ctrl,
		config: config,
	}, nil
}

// Start configures the timer and pins and starts the cycles.
func (r *RGB) Start(ctx context.Context) error {
	r.mutex.Lock()
	running := r.running
	r.mutex.Unlock()
	if running {
		return platform.InvalidArgument("RGB PWM already started")
	}
	t := r.timer
	if err := r.irq.Bind(t.Registers().Vector, r.handleInterrupt); err != nil {
		return err
	}
	steps := []func() error{
		func() error { return t.SetMode(ctx, platform.TimerModeStop) },
		func() error { return t.SetClockSource(ctx, platform.ClockSourceSMCLK) },
		func() error { return t.SetDividerExponent(ctx, 0) },
		func() error { return t.SetPeriod(ctx, r.config.StepTicks) },
		func() error { return t.Reset(ctx) },
		func() error { return t.EnableOverflowInterrupt(ctx) },
	}
	for _, pin := range r.config.Pins {
		pin := pin
		steps = append(steps,
			func() error { return r.gpio.SetAsOutput(ctx, pin) },
			func() error { return r.gpio.ClearPinValue(ctx, pin) },
		)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			r.irq.Unbind(t.Registers().Vector)
			return err
		}
	}
	if err := r.irq.Critical(ctx, func(ctx context.Context) error {
		r.step = 0
		r.decrementers = [3]uint8{}
		return nil
	}); err != nil {
		return err
	}
	r.mutex.Lock()
	r.running = true
	r.mutex.Unlock()
	if err := t.SetMode(ctx, platform.TimerModeUp); err != nil {
		return err
	}
	r.log.Info().
		Str("timer", t.Name()).
		Uint32("step-ticks", r.config.StepTicks).
		Msg("Started RGB PWM")
	return nil
}

// SetBrightness changes the target brightness of all channels.
// The new values are used from the start of the next cycle.
func (r *RGB) SetBrightness(ctx context.Context, c Color) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := r.irq.Critical(ctx, func(ctx context.Context) error {
		r.mutex.Lock()
		r.brightness = c.values()
		r.mutex.Unlock()
		return nil
	}); err != nil {
		return err
	}
	for i, v := range c.values() {
		rgbBrightness.WithLabelValues(channelNames[i]).Set(float64(v))
	}
	return nil
}

// Brightness returns the current target brightness.
func (r *RGB) Brightness() Color {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return Color{R: r.brightness[0], G: r.brightness[1], B: r.brightness[2]}
}

// Stop halts the timer and drives all pins low.
func (r *RGB) Stop(ctx context.Context) error {
	r.mutex.Lock()
	running := r.running
	r.mutex.Unlock()
	if !running {
		return nil
	}
	t := r.timer
	if err := r.irq.Critical(ctx, func(ctx context.Context) error {
		if err := t.SetMode(ctx, platform.TimerModeStop); err != nil {
			return err
		}
		if err := t.DisableOverflowInterrupt(ctx); err != nil {
			return err
		}
		for _, pin := range r.config.Pins {
			if err := r.gpio.ClearPinValue(ctx, pin); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	r.irq.Unbind(t.Registers().Vector)
	r.mutex.Lock()
	r.running = false
	r.mutex.Unlock()
	r.log.Info().Msg("Stopped RGB PWM")
	return nil
}

// Status returns a snapshot of the current state.
func (r *RGB) Status() RGBStatus {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var pins [3]string
	for i, pin := range r.config.Pins {
		pins[i] = pin.String()
	}
	return RGBStatus{
		Pins:      pins,
		Timer:     r.timer.Name(),
		Running:   r.running,
		StepTicks: r.config.StepTicks,
		Color:     Color{R: r.brightness[0], G: r.brightness[1], B: r.brightness[2]},
		Cycles:    r.cycles,
	}
}

// portUpdate collects the pin changes of a single port.
type portUpdate struct {
	port       int
	set, clear uint8
}

// handleInterrupt is bound to the timer vector and runs one step.
func (r *RGB) handleInterrupt(ctx context.Context) error {
	source, err := r.timer.PendingVector(ctx)
	if err != nil {
		return err
	}
	switch source {
	case hal.SourceNone:
		return nil
	case hal.SourceOverflow:
		// Handled below
	default:
		unexpectedSourcesTotal.WithLabelValues(r.timer.Name()).Inc()
		return nil
	}

	var updates []portUpdate
	update := func(pin hal.Pin) *portUpdate {
		for i := range updates {
			if updates[i].port == pin.Port {
				return &updates[i]
			}
		}
		updates = append(updates, portUpdate{port: pin.Port})
		return &updates[len(updates)-1]
	}

	if r.step == 0 {
		// Cycle restart
		r.mutex.Lock()
		r.decrementers = r.brightness
		r.cycles++
		r.mutex.Unlock()
		rgbCyclesTotal.Inc()
		for _, pin := range r.config.Pins {
			update(pin).set |= pin.Mask()
		}
	}
	for i, pin := range r.config.Pins {
		if r.decrementers[i] == 0 {
			update(pin).clear |= pin.Mask()
		} else {
			r.decrementers[i]--
		}
	}
	r.step = (r.step + 1) % Levels

	for _, u := range updates {
		if err := r.gpio.WritePort(ctx, u.port, u.set, u.clear); err != nil {
			return err
		}
	}
	return nil
}
