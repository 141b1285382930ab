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
	"time"

	"github.com/pkg/errors"

	"github.com/binkynet/LocalPWM/model"
	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/platform"
	"github.com/binkynet/LocalPWM/pkg/pwm"
)

// Status is a snapshot of the state of the service.
type Status struct {
	Platform          string              `json:"platform"`
	Program           model.ProgramType   `json:"program"`
	Simulated         bool                `json:"simulated"`
	SimRate           uint32              `json:"sim_rate,omitempty"`
	Ticks             uint64              `json:"ticks,omitempty"`
	Running           bool                `json:"running"`
	InterruptsEnabled bool                `json:"interrupts_enabled"`
	PendingVectors    []platform.Vector   `json:"pending_vectors,omitempty"`
	Software          *pwm.SoftwareStatus `json:"software,omitempty"`
	RGB               *pwm.RGBStatus      `json:"rgb,omitempty"`
	Fade              *FadeStatus         `json:"fade,omitempty"`
	Buttons           []ButtonStatus      `json:"buttons,omitempty"`
	MQTTConnected     bool                `json:"mqtt_connected"`
}

// FadeStatus is a snapshot of the state of the color fade.
type FadeStatus struct {
	Speed    int           `json:"speed"`
	Position int           `json:"position"`
	Interval time.Duration `json:"interval"`
}

// Status returns a snapshot of the current state.
func (s *Service) Status() Status {
	s.mutex.Lock()
	running := s.running
	s.mutex.Unlock()
	result := Status{
		Platform:          s.platform.Name,
		Program:           s.Configuration.Program,
		Simulated:         s.mcu != nil,
		Running:           running,
		InterruptsEnabled: s.irq.Enabled(),
		PendingVectors:    s.irq.Pending(),
	}
	if s.mcu != nil {
		result.SimRate = s.SimRate
		result.Ticks = s.mcu.Ticks()
	}
	if s.software != nil {
		st := s.software.Status()
		result.Software = &st
	}
	if s.rgb != nil {
		st := s.rgb.Status()
		result.RGB = &st
	}
	if s.fader != nil {
		result.Fade = &FadeStatus{
			Speed:    s.fader.Speed(),
			Position: s.fader.Position(),
			Interval: s.fader.Interval(),
		}
	}
	for _, b := range s.buttons {
		result.Buttons = append(result.Buttons, b.status())
	}
	if s.mqtt != nil {
		result.MQTTConnected = s.mqtt.Connected()
	}
	return result
}

// Ports returns the registers of all ports.
func (s *Service) Ports(ctx context.Context) ([]hal.PortState, error) {
	result, err := s.gpio.Snapshot(ctx)
	if err != nil {
		return nil, maskAny(err)
	}
	return result, nil
}

// SetHighTime changes the high time of the software PWM.
func (s *Service) SetHighTime(ctx context.Context, highTimeUS uint32) error {
	if s.software == nil {
		return errors.Wrapf(platform.ConfigurationError, "program '%s' has no software PWM", s.Configuration.Program)
	}
	if err := s.software.SetHighTime(ctx, highTimeUS); err != nil {
		return maskAny(err)
	}
	s.log.Info().Uint32("high-time-us", highTimeUS).Msg("Changed high time")
	s.notifyChange()
	return nil
}

// SetRGB changes the brightness of the RGB PWM.
func (s *Service) SetRGB(ctx context.Context, c pwm.Color) error {
	if s.rgb == nil {
		return errors.Wrapf(platform.ConfigurationError, "program '%s' has no RGB PWM", s.Configuration.Program)
	}
	if s.fader != nil {
		return errors.Wrap(platform.ConfigurationError, "color is controlled by the fade")
	}
	if err := s.rgb.SetBrightness(ctx, c); err != nil {
		return maskAny(err)
	}
	s.log.Info().Str("color", c.String()).Msg("Changed color")
	s.notifyChange()
	return nil
}

// SetFadeSpeed changes the speed of the color fade.
func (s *Service) SetFadeSpeed(ctx context.Context, speed int) error {
	if s.fader == nil {
		return errors.Wrapf(platform.ConfigurationError, "program '%s' has no color fade", s.Configuration.Program)
	}
	if err := s.fader.SetSpeed(speed); err != nil {
		return maskAny(err)
	}
	s.log.Info().Int("speed", speed).Msg("Changed fade speed")
	s.notifyChange()
	return nil
}

// PressButton presses the button on the given pin.
// In a simulation the input is driven low and released, raising the pin
// interrupt. On hardware the action of the button is performed directly.
func (s *Service) PressButton(ctx context.Context, port, index int) error {
	pin, err := s.gpio.Pin(port, index)
	if err != nil {
		return maskAny(err)
	}
	b, found := s.buttonAt(pin.Port, pin.Index)
	if !found {
		return errors.Wrapf(platform.ConfigurationError, "no button on %s", pin)
	}
	if s.mcu != nil {
		return maskAny(s.mcu.Press(ctx, pin))
	}
	return maskAny(s.irq.Critical(ctx, func(ctx context.Context) error {
		return s.runAction(ctx, b)
	}))
}

// SubscribeStatus calls the given callback on every status publication
// until the returned function is called.
func (s *Service) SubscribeStatus(cb func(Status) error) context.CancelFunc {
	wcb := func(x Status) {
		if err := cb(x); err != nil {
			s.log.Warn().Err(err).Msg("Status processing error")
		}
	}
	s.statusChanges.Sub(wcb)
	return func() {
		s.statusChanges.Leave(wcb)
	}
}
