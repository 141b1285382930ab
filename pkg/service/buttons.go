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

package service

import (
	"context"
	"sync/atomic"

	"github.com/binkynet/LocalPWM/model"
	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/irq"
	"github.com/binkynet/LocalPWM/pkg/platform"
)

// button is a push button between an input pin and ground.
type button struct {
	config  model.Button
	pin     hal.Pin
	output  *hal.Pin
	vector  platform.Vector
	presses uint64
}

// ButtonStatus is a snapshot of the state of a button.
type ButtonStatus struct {
	ID      string             `json:"id"`
	Pin     string             `json:"pin"`
	Action  model.ButtonAction `json:"action"`
	Output  string             `json:"output,omitempty"`
	Presses uint64             `json:"presses"`
}

// buildButtons validates the button & output pins against the platform.
func (s *Service) buildButtons() error {
	for _, c := range s.Configuration.Buttons {
		pin, err := s.pin(c.Pin)
		if err != nil {
			return maskAny(err)
		}
		regs, err := s.platform.Port(pin.Port)
		if err != nil {
			return maskAny(err)
		}
		b := &button{
			config: c,
			pin:    pin,
			vector: regs.Vector,
		}
		if c.Output != nil {
			output, err := s.pin(*c.Output)
			if err != nil {
				return maskAny(err)
			}
			b.output = &output
			s.outputs = append(s.outputs, output)
		}
		s.buttons = append(s.buttons, b)
	}
	return nil
}

// configureOutputs makes all button driven outputs low outputs.
func (s *Service) configureOutputs(ctx context.Context) error {
	for _, pin := range s.outputs {
		if err := s.gpio.ClearPinValue(ctx, pin); err != nil {
			return maskAny(err)
		}
		if err := s.gpio.SetAsOutput(ctx, pin); err != nil {
			return maskAny(err)
		}
	}
	return nil
}

// configureButtons makes all button pins pulled up inputs with a falling
// edge interrupt and binds a handler to every port that has buttons.
func (s *Service) configureButtons(ctx context.Context) error {
	byVector := make(map[platform.Vector][]*button)
	var vectors []platform.Vector
	for _, b := range s.buttons {
		pin := b.pin
		steps := []func() error{
			func() error { return s.gpio.SetAsInput(ctx, pin) },
			func() error { return s.gpio.EnablePullResistor(ctx, pin, true) },
			func() error { return s.gpio.SetInterruptEdgeFalling(ctx, pin) },
			func() error { return s.gpio.ClearPinInterruptFlag(ctx, pin) },
			func() error { return s.gpio.EnablePinInterrupt(ctx, pin) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return maskAny(err)
			}
		}
		if s.mcu != nil {
			// The pull-up holds a released button high
			if err := s.mcu.DriveInput(ctx, pin, true); err != nil {
				return maskAny(err)
			}
		}
		if _, found := byVector[b.vector]; !found {
			vectors = append(vectors, b.vector)
		}
		byVector[b.vector] = append(byVector[b.vector], b)
	}
	for _, v := range vectors {
		s.irq.Unbind(v)
		if err := s.irq.Bind(v, s.portHandler(byVector[v])); err != nil {
			return maskAny(err)
		}
	}
	return nil
}

// portHandler returns the interrupt handler of a port with given buttons.
func (s *Service) portHandler(buttons []*button) irq.Handler {
	return func(ctx context.Context) error {
		for _, b := range buttons {
			pending, err := s.gpio.PinInterruptPending(ctx, b.pin)
			if err != nil {
				return err
			}
			if !pending {
				continue
			}
			if err := s.gpio.ClearPinInterruptFlag(ctx, b.pin); err != nil {
				return err
			}
			if err := s.runAction(ctx, b); err != nil {
				return err
			}
		}
		return nil
	}
}

// runAction performs the action of a pressed button.
func (s *Service) runAction(ctx context.Context, b *button) error {
	atomic.AddUint64(&b.presses, 1)
	buttonPressesTotal.WithLabelValues(b.config.ID).Inc()
	s.log.Debug().Str("button", b.config.ID).Str("action", string(b.config.Action)).Msg("Button pressed")
	defer s.notifyChange()
	switch b.config.Action {
	case model.ButtonActionToggleOutput:
		return s.gpio.TogglePinValue(ctx, *b.output)
	case model.ButtonActionNextStep:
		return s.nextStep(ctx)
	}
	return nil
}

// buttonAt returns the button on the given pin.
func (s *Service) buttonAt(port, index int) (*button, bool) {
	for _, b := range s.buttons {
		if b.pin.Port == port && b.pin.Index == index {
			return b, true
		}
	}
	return nil, false
}

func (b *button) status() ButtonStatus {
	result := ButtonStatus{
		ID:      b.config.ID,
		Pin:     b.pin.String(),
		Action:  b.config.Action,
		Presses: atomic.LoadUint64(&b.presses),
	}
	if b.output != nil {
		result.Output = b.output.String()
	}
	return result
}
