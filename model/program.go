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

package model

import "github.com/pkg/errors"

// ProgramType identifies the signal generation program.
type ProgramType string

const (
	// Single channel PWM toggled from timer interrupts
	ProgramSoftwarePWM ProgramType = "software-pwm"
	// Three channel, 16 level PWM with a fixed color
	ProgramRGB ProgramType = "rgb"
	// Three channel, 16 level PWM walking the hue wheel
	ProgramRGBFade ProgramType = "rgb-fade"
)

// Validate the given type, returning nil on ok,
// or an error upon validation issues.
func (t ProgramType) Validate() error {
	switch t {
	case ProgramSoftwarePWM, ProgramRGB, ProgramRGBFade:
		return nil
	default:
		return errors.Wrapf(ValidationError, "invalid program '%s'", string(t))
	}
}

// UsesRGB returns true when the program drives the RGB pins.
func (t ProgramType) UsesRGB() bool {
	return t == ProgramRGB || t == ProgramRGBFade
}

// SoftwarePWM holds the settings of the software-timed PWM.
type SoftwarePWM struct {
	// Index of the timer (0...)
	Timer int `json:"timer"`
	// Output pin
	Pin Pin `json:"pin"`
	// Period in timer ticks (CCR0+1)
	PeriodTicks uint32 `json:"period_ticks,omitempty"`
	// Timer input divider exponent (0..3)
	DividerExponent uint8 `json:"divider_exponent,omitempty"`
	// Initial high time in microseconds
	HighTimeUS uint32 `json:"high_time_us"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (c SoftwarePWM) Validate() error {
	if c.Timer < 0 {
		return errors.Wrapf(ValidationError, "timer must be 0 or higher, got %d", c.Timer)
	}
	if err := c.Pin.Validate(); err != nil {
		return errors.Wrapf(ValidationError, "Error in software PWM pin: %s", err.Error())
	}
	if c.DividerExponent > 3 {
		return errors.Wrapf(ValidationError, "divider exponent must be in 0..3 range, got %d", c.DividerExponent)
	}
	if c.HighTimeUS == 0 {
		return errors.Wrap(ValidationError, "high time is empty")
	}
	return nil
}

// Color holds the brightness (0..16) per channel.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBPWM holds the settings of the hardware-timed RGB PWM.
type RGBPWM struct {
	// Index of the timer (0...)
	Timer int `json:"timer"`
	// Output pins
	Red   Pin `json:"red"`
	Green Pin `json:"green"`
	Blue  Pin `json:"blue"`
	// Number of timer ticks per step
	StepTicks uint32 `json:"step_ticks,omitempty"`
	// Initial color
	Color Color `json:"color"`
	// Fade speed (1 slowest .. 8 fastest)
	FadeSpeed int `json:"fade_speed,omitempty"`
}

// Pins returns the red, green and blue pins.
func (c RGBPWM) Pins() [3]Pin {
	return [3]Pin{c.Red, c.Green, c.Blue}
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (c RGBPWM) Validate() error {
	if c.Timer < 0 {
		return errors.Wrapf(ValidationError, "timer must be 0 or higher, got %d", c.Timer)
	}
	for _, p := range c.Pins() {
		if err := p.Validate(); err != nil {
			return errors.Wrapf(ValidationError, "Error in RGB pin: %s", err.Error())
		}
	}
	if c.Color.R > 16 || c.Color.G > 16 || c.Color.B > 16 {
		return errors.Wrapf(ValidationError, "color brightness must be in 0..16 range, got %d/%d/%d", c.Color.R, c.Color.G, c.Color.B)
	}
	if c.FadeSpeed < 0 || c.FadeSpeed > 8 {
		return errors.Wrapf(ValidationError, "fade speed must be in 1..8 range, got %d", c.FadeSpeed)
	}
	return nil
}
