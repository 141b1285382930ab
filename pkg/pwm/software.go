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
	"sync"

	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/irq"
	"github.com/binkynet/LocalPWM/pkg/platform"
)

const (
	// DefaultPeriodTicks is the period of the software PWM (CCR0 = 12000).
	DefaultPeriodTicks = 12001
	// Compare channel that ends the high part of a period
	softwareCompareChannel = 1
)

// DutySteps are the duty cycles (in percent) that CycleDuty walks through.
var DutySteps = []uint32{10, 25, 50, 75, 90}

// SoftwareConfig holds the settings of a software PWM.
type SoftwareConfig struct {
	// Output pin
	Pin hal.Pin
	// Period in timer ticks
	PeriodTicks uint32
	// Input divider exponent of the timer (0..3)
	DividerExponent uint8
}

// Software is a single channel PWM that drives a GPIO pin from timer
// interrupts: the overflow sets the pin, the compare match of channel 1
// clears it.
type Software struct {
	log    zerolog.Logger
	gpio   *hal.GPIO
	timer  *hal.Timer
	irq    *irq.Controller
	hooks  SignalHooks
	config SoftwareConfig

	mutex     sync.Mutex
	running   bool
	highTicks uint32
	high      bool
	periods   uint64
	dutyStep  int
}

// SoftwareStatus is a snapshot of the state of a software PWM.
type SoftwareStatus struct {
	Pin         string  `json:"pin"`
	Timer       string  `json:"timer"`
	Running     bool    `json:"running"`
	PeriodTicks uint32  `json:"period_ticks"`
	HighTicks   uint32  `json:"high_ticks"`
	DutyPercent float64 `json:"duty_percent"`
	High        bool    `json:"high"`
	Periods     uint64  `json:"periods"`
}

// NewSoftware creates a software PWM on the given pin & timer.
// Nothing is written until Start is called.
func NewSoftware(log zerolog.Logger, gpio *hal.GPIO, timer *hal.Timer, ctrl *irq.Controller, config SoftwareConfig, hooks SignalHooks) (*Software, error) {
	if _, err := gpio.Pin(config.Pin.Port, config.Pin.Index); err != nil {
		return nil, err
	}
	if config.PeriodTicks == 0 {
		config.PeriodTicks = DefaultPeriodTicks
	}
	if config.PeriodTicks < 2 || config.PeriodTicks > hal.MaxPeriodTicks {
		return nil, platform.InvalidArgument("period must be in 2..%d ticks, got %d", hal.MaxPeriodTicks, config.PeriodTicks)
	}
	if config.DividerExponent > platform.MaxDividerExponent {
		return nil, platform.InvalidArgument("divider exponent must be in 0..%d range, got %d", platform.MaxDividerExponent, config.DividerExponent)
	}
	if timer.Channels() <= softwareCompareChannel {
		return nil, platform.InvalidArgument("timer %s has no compare channel %d", timer.Name(), softwareCompareChannel)
	}
	if hooks == nil {
		hooks = NoHooks()
	}
	return &Software{
		log:    log.With().Str("component", "software-pwm").Str("pin", config.Pin.String()).Logger(),
		gpio:   gpio,
		timer:  timer,
		irq:    ctrl,
		hooks:  hooks,
		config: config,
	}, nil
}

// Start configures the timer and pin and starts generating the signal
// with the given high time.
func (s *Software) Start(ctx context.Context, highTimeUS uint32) error {
	highTicks, err := s.highTicksFor(highTimeUS)
	if err != nil {
		return err
	}
	return s.StartTicks(ctx, highTicks)
}

// StartTicks starts generating the signal with a high time in timer ticks.
func (s *Software) StartTicks(ctx context.Context, highTicks uint32) error {
	if err := s.checkHighTicks(highTicks); err != nil {
		return err
	}
	s.mutex.Lock()
	running := s.running
	s.mutex.Unlock()
	if running {
		return platform.InvalidArgument("software PWM on %s already started", s.config.Pin)
	}
	pin := s.config.Pin
	t := s.timer
	if err := s.irq.Bind(t.Registers().Vector, s.handleInterrupt); err != nil {
		return err
	}
	steps := []func() error{
		func() error { return t.SetMode(ctx, platform.TimerModeStop) },
		func() error { return s.gpio.SetAsOutput(ctx, pin) },
		func() error { return s.gpio.ClearPinValue(ctx, pin) },
		func() error { return t.SetClockSource(ctx, platform.ClockSourceSMCLK) },
		func() error { return t.SetDividerExponent(ctx, s.config.DividerExponent) },
		func() error { return t.SetPeriod(ctx, s.config.PeriodTicks) },
		func() error { return t.SetCompare(ctx, softwareCompareChannel, uint16(highTicks)) },
		func() error { return t.Reset(ctx) },
		func() error { return t.EnableOverflowInterrupt(ctx) },
		func() error { return t.EnableCompareInterrupt(ctx, softwareCompareChannel) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			s.irq.Unbind(t.Registers().Vector)
			return err
		}
	}
	s.mutex.Lock()
	s.running = true
	s.high = false
	s.highTicks = highTicks
	s.mutex.Unlock()
	softwareHighTicks.Set(float64(highTicks))
	if err := t.SetMode(ctx, platform.TimerModeUp); err != nil {
		return err
	}
	s.log.Info().
		Str("timer", t.Name()).
		Uint32("period-ticks", s.config.PeriodTicks).
		Uint32("high-ticks", highTicks).
		Msg("Started software PWM")
	return nil
}

// SetHighTime changes the high time of a running PWM.
// The new value takes effect within the current or next period.
func (s *Software) SetHighTime(ctx context.Context, highTimeUS uint32) error {
	highTicks, err := s.highTicksFor(highTimeUS)
	if err != nil {
		return err
	}
	return s.SetHighTicks(ctx, highTicks)
}

// SetHighTicks changes the high time of a running PWM in timer ticks.
func (s *Software) SetHighTicks(ctx context.Context, highTicks uint32) error {
	if err := s.checkHighTicks(highTicks); err != nil {
		return err
	}
	if err := s.irq.Critical(ctx, func(ctx context.Context) error {
		if err := s.timer.SetCompare(ctx, softwareCompareChannel, uint16(highTicks)); err != nil {
			return err
		}
		s.mutex.Lock()
		s.highTicks = highTicks
		s.mutex.Unlock()
		return nil
	}); err != nil {
		return err
	}
	softwareHighTicks.Set(float64(highTicks))
	s.log.Debug().Uint32("high-ticks", highTicks).Msg("Changed high time")
	return nil
}

// CycleDuty moves to the next entry of DutySteps.
func (s *Software) CycleDuty(ctx context.Context) error {
	s.mutex.Lock()
	s.dutyStep = (s.dutyStep + 1) % len(DutySteps)
	percent := DutySteps[s.dutyStep]
	s.mutex.Unlock()
	highTicks := s.config.PeriodTicks * percent / 100
	if highTicks < 1 {
		highTicks = 1
	}
	return s.SetHighTicks(ctx, highTicks)
}

// Stop halts the timer and drives the pin low.
func (s *Software) Stop(ctx context.Context) error {
	s.mutex.Lock()
	running := s.running
	s.mutex.Unlock()
	if !running {
		return nil
	}
	t := s.timer
	if err := s.irq.Critical(ctx, func(ctx context.Context) error {
		if err := t.SetMode(ctx, platform.TimerModeStop); err != nil {
			return err
		}
		if err := t.DisableOverflowInterrupt(ctx); err != nil {
			return err
		}
		if err := t.DisableCompareInterrupt(ctx, softwareCompareChannel); err != nil {
			return err
		}
		return s.gpio.ClearPinValue(ctx, s.config.Pin)
	}); err != nil {
		return err
	}
	s.irq.Unbind(t.Registers().Vector)
	s.hooks.SignalLow()
	s.mutex.Lock()
	s.running = false
	s.high = false
	s.mutex.Unlock()
	s.log.Info().Msg("Stopped software PWM")
	return nil
}

// Status returns a snapshot of the current state.
func (s *Software) Status() SoftwareStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SoftwareStatus{
		Pin:         s.config.Pin.String(),
		Timer:       s.timer.Name(),
		Running:     s.running,
		PeriodTicks: s.config.PeriodTicks,
		HighTicks:   s.highTicks,
		DutyPercent: float64(s.highTicks) * 100 / float64(s.config.PeriodTicks),
		High:        s.high,
		Periods:     s.periods,
	}
}

// handleInterrupt is bound to the timer vector.
func (s *Software) handleInterrupt(ctx context.Context) error {
	source, err := s.timer.PendingVector(ctx)
	if err != nil {
		return err
	}
	pin := s.config.Pin
	switch source {
	case hal.SourceNone:
		return nil
	case hal.SourceOverflow:
		if err := s.gpio.SetPinValue(ctx, pin); err != nil {
			return err
		}
		s.setHigh(true)
		softwarePeriodsTotal.Inc()
		edgesTotal.WithLabelValues(pin.String(), "high").Inc()
		s.hooks.SignalHigh()
	case hal.CompareSource(softwareCompareChannel):
		if err := s.gpio.ClearPinValue(ctx, pin); err != nil {
			return err
		}
		s.setHigh(false)
		edgesTotal.WithLabelValues(pin.String(), "low").Inc()
		s.hooks.SignalLow()
	default:
		unexpectedSourcesTotal.WithLabelValues(s.timer.Name()).Inc()
	}
	return nil
}

func (s *Software) setHigh(high bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.high = high
	if high {
		s.periods++
	}
}

// highTicksFor converts a high time into ticks of the configured clock.
func (s *Software) highTicksFor(highTimeUS uint32) (uint32, error) {
	return hal.TicksFor(s.timer.Platform(), platform.ClockSourceSMCLK, s.config.DividerExponent, highTimeUS)
}

// checkHighTicks returns a ConfigurationError unless 1 <= ticks < period.
func (s *Software) checkHighTicks(highTicks uint32) error {
	if highTicks < 1 || highTicks >= s.config.PeriodTicks {
		return platform.InvalidArgument("high time must be in 1..%d ticks, got %d", s.config.PeriodTicks-1, highTicks)
	}
	return nil
}
