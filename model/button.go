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

// Button holds the configuration of a push button between an input pin
// and ground. A press triggers an action from a pin interrupt.
type Button struct {
	// Unique identifier of the button
	ID string `json:"id"`
	// Input pin of the button
	Pin Pin `json:"pin"`
	// What to do when pressed
	Action ButtonAction `json:"action"`
	// Output pin to toggle (toggle-output action only)
	Output *Pin `json:"output,omitempty"`
}

// ButtonAction identifies what happens when a button is pressed.
type ButtonAction string

const (
	// Toggle an output pin (e.g. a LED)
	ButtonActionToggleOutput ButtonAction = "toggle-output"
	// Move the running program to its next step: the next duty cycle
	// of the software PWM, the next color of the RGB PWM or the next
	// speed of the color fade.
	ButtonActionNextStep ButtonAction = "next-step"
)

// Validate the given action, returning nil on ok,
// or an error upon validation issues.
func (a ButtonAction) Validate() error {
	switch a {
	case ButtonActionToggleOutput, ButtonActionNextStep:
		return nil
	default:
		return errors.Wrapf(ValidationError, "invalid button action '%s'", string(a))
	}
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (b Button) Validate() error {
	if b.ID == "" {
		return errors.Wrap(ValidationError, "ID is empty")
	}
	if err := b.Pin.Validate(); err != nil {
		return errors.Wrapf(ValidationError, "Error in Pin of '%s': %s", b.ID, err.Error())
	}
	if err := b.Action.Validate(); err != nil {
		return errors.Wrapf(ValidationError, "Error in Action of '%s': %s", b.ID, err.Error())
	}
	if b.Action == ButtonActionToggleOutput {
		if b.Output == nil {
			return errors.Wrapf(ValidationError, "Output of '%s' is required", b.ID)
		}
		if err := b.Output.Validate(); err != nil {
			return errors.Wrapf(ValidationError, "Error in Output of '%s': %s", b.ID, err.Error())
		}
	}
	return nil
}
