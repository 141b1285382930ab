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

	"github.com/binkynet/LocalPWM/model"
	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/pwm"
)

// buildProgram creates the PWM controllers of the configured program.
func (s *Service) buildProgram() error {
	conf := s.Configuration
	switch conf.Program {
	case model.ProgramSoftwarePWM:
		c := conf.SoftwarePWM
		timer, err := hal.NewTimer(s.platform, s.bus, c.Timer)
		if err != nil {
			return maskAny(err)
		}
		pin, err := s.pin(c.Pin)
		if err != nil {
			return maskAny(err)
		}
		sw, err := pwm.NewSoftware(s.Log, s.gpio, timer, s.irq, pwm.SoftwareConfig{
			Pin:             pin,
			PeriodTicks:     c.PeriodTicks,
			DividerExponent: c.DividerExponent,
		}, s.Hooks)
		if err != nil {
			return maskAny(err)
		}
		s.timer = timer
		s.software = sw
	case model.ProgramRGB, model.ProgramRGBFade:
		c := conf.RGB
		timer, err := hal.NewTimer(s.platform, s.bus, c.Timer)
		if err != nil {
			return maskAny(err)
		}
		var pins [3]hal.Pin
		for i, p := range c.Pins() {
			if pins[i], err = s.pin(p); err != nil {
				return maskAny(err)
			}
		}
		rgb, err := pwm.NewRGB(s.Log, s.gpio, timer, s.irq, pwm.RGBConfig{
			Pins:      pins,
			StepTicks: c.StepTicks,
		})
		if err != nil {
			return maskAny(err)
		}
		s.timer = timer
		s.rgb = rgb
		if conf.Program == model.ProgramRGBFade {
			speed := c.FadeSpeed
			if speed == 0 {
				speed = pwm.DefaultFadeSpeed
			}
			if s.fader, err = pwm.NewFader(s.Log, rgb, speed, 0); err != nil {
				return maskAny(err)
			}
		}
	}
	return nil
}

// startProgram configures the timer and starts the signal generation.
func (s *Service) startProgram(ctx context.Context) error {
	conf := s.Configuration
	switch {
	case s.software != nil:
		if err := s.software.Start(ctx, conf.SoftwarePWM.HighTimeUS); err != nil {
			return maskAny(err)
		}
	case s.rgb != nil:
		c := conf.RGB.Color
		if err := s.rgb.SetBrightness(ctx, pwm.Color{R: c.R, G: c.G, B: c.B}); err != nil {
			return maskAny(err)
		}
		if err := s.rgb.Start(ctx); err != nil {
			return maskAny(err)
		}
	}
	programStartsTotal.WithLabelValues(string(conf.Program)).Inc()
	return nil
}

// stopProgram halts the timer and drives the program outputs low.
func (s *Service) stopProgram(ctx context.Context) error {
	switch {
	case s.software != nil:
		return s.software.Stop(ctx)
	case s.rgb != nil:
		return s.rgb.Stop(ctx)
	}
	return nil
}

// nextStep moves the program to its next step: the next duty cycle of
// the software PWM, the next hue segment of the RGB PWM or the next
// speed of the color fade.
// It is called from the button interrupt handler.
func (s *Service) nextStep(ctx context.Context) error {
	switch {
	case s.software != nil:
		return s.software.CycleDuty(ctx)
	case s.fader != nil:
		speed := s.fader.Speed()%pwm.MaxFadeSpeed + 1
		return s.fader.SetSpeed(speed)
	case s.rgb != nil:
		s.mutex.Lock()
		s.huePosition = (s.huePosition + pwm.Levels) % pwm.HueSteps
		color := pwm.HueColor(s.huePosition)
		s.mutex.Unlock()
		return s.rgb.SetBrightness(ctx, color)
	}
	return nil
}

// pin converts a configured pin into a validated pin of the platform.
func (s *Service) pin(p model.Pin) (hal.Pin, error) {
	return s.gpio.Pin(p.Port, p.Pin)
}
