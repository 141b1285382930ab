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

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// LocalConfiguration holds the configuration of a single local PWM worker.
type LocalConfiguration struct {
	// Name of the platform (register layout)
	Platform string `json:"platform"`
	// Program to run
	Program ProgramType `json:"program"`
	// Settings of the software PWM
	SoftwarePWM SoftwarePWM `json:"software_pwm"`
	// Settings of the RGB PWM
	RGB RGBPWM `json:"rgb"`
	// Push buttons
	Buttons []Button `json:"buttons,omitempty"`
}

// DefaultConfiguration returns the configuration of the reference board:
// red LED on P1.0, green LED on P6.6, RGB LED on P6.0..P6.2 and
// buttons on P2.1 and P4.3.
func DefaultConfiguration() LocalConfiguration {
	greenLED := Pin{Port: 6, Pin: 6}
	return LocalConfiguration{
		Platform: "msp430fr2355",
		Program:  ProgramSoftwarePWM,
		SoftwarePWM: SoftwarePWM{
			Timer:       0,
			Pin:         Pin{Port: 1, Pin: 0},
			PeriodTicks: 12001,
			HighTimeUS:  3000,
		},
		RGB: RGBPWM{
			Timer:     0,
			Red:       Pin{Port: 6, Pin: 0},
			Green:     Pin{Port: 6, Pin: 1},
			Blue:      Pin{Port: 6, Pin: 2},
			StepTicks: 16,
			Color:     Color{R: 16, G: 4, B: 0},
			FadeSpeed: 2,
		},
		Buttons: []Button{
			{ID: "s1", Pin: Pin{Port: 2, Pin: 1}, Action: ButtonActionToggleOutput, Output: &greenLED},
			{ID: "s2", Pin: Pin{Port: 4, Pin: 3}, Action: ButtonActionNextStep},
		},
	}
}

// LoadConfiguration reads a JSON configuration file.
// Fields missing in the file keep their default value.
func LoadConfiguration(path string) (LocalConfiguration, error) {
	c := DefaultConfiguration()
	data, err := os.ReadFile(path)
	if err != nil {
		return LocalConfiguration{}, maskAny(err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return LocalConfiguration{}, errors.Wrapf(ValidationError, "cannot parse '%s': %s", path, err.Error())
	}
	if err := c.Validate(); err != nil {
		return LocalConfiguration{}, maskAny(err)
	}
	return c, nil
}

// ButtonByID returns the button with given ID.
// Return false if not found.
func (c LocalConfiguration) ButtonByID(id string) (Button, bool) {
	for _, b := range c.Buttons {
		if b.ID == id {
			return b, true
		}
	}
	return Button{}, false
}

// OutputPins returns all pins driven as output by the configuration.
func (c LocalConfiguration) OutputPins() []Pin {
	var result []Pin
	if c.Program.UsesRGB() {
		rgb := c.RGB.Pins()
		result = append(result, rgb[:]...)
	} else {
		result = append(result, c.SoftwarePWM.Pin)
	}
	for _, b := range c.Buttons {
		if b.Output != nil {
			result = append(result, *b.Output)
		}
	}
	return result
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (c LocalConfiguration) Validate() error {
	if c.Platform == "" {
		return errors.Wrap(ValidationError, "platform is empty")
	}
	if err := c.Program.Validate(); err != nil {
		return maskAny(err)
	}
	if c.Program.UsesRGB() {
		if err := c.RGB.Validate(); err != nil {
			return maskAny(err)
		}
	} else {
		if err := c.SoftwarePWM.Validate(); err != nil {
			return maskAny(err)
		}
	}
	owners := make(map[Pin]string)
	claim := func(p Pin, owner string) error {
		if other, found := owners[p]; found {
			return errors.Wrapf(ValidationError, "Pin %s used by '%s' and '%s'", p, other, owner)
		}
		owners[p] = owner
		return nil
	}
	if c.Program.UsesRGB() {
		for _, p := range c.RGB.Pins() {
			if err := claim(p, "rgb"); err != nil {
				return err
			}
		}
	} else {
		if err := claim(c.SoftwarePWM.Pin, "software-pwm"); err != nil {
			return err
		}
	}
	ids := make(map[string]struct{})
	for _, b := range c.Buttons {
		if err := b.Validate(); err != nil {
			return maskAny(err)
		}
		if _, found := ids[b.ID]; found {
			return errors.Wrapf(ValidationError, "Duplicate button ID '%s'", b.ID)
		}
		ids[b.ID] = struct{}{}
		if err := claim(b.Pin, b.ID); err != nil {
			return err
		}
		if b.Output != nil {
			if err := claim(*b.Output, b.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
