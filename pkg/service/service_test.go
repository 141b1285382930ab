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
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/model"
	"github.com/binkynet/LocalPWM/pkg/bridge"
	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/platform"
	"github.com/binkynet/LocalPWM/pkg/pwm"
)

func newTestService(t *testing.T, program model.ProgramType) *Service {
	t.Helper()
	br, err := bridge.NewVirtualBridge(platform.MSP430FR2355())
	if err != nil {
		t.Fatalf("NewVirtualBridge failed: %v", err)
	}
	conf := model.DefaultConfiguration()
	conf.Program = program
	conf.SoftwarePWM.PeriodTicks = 100
	conf.SoftwarePWM.HighTimeUS = 30
	conf.RGB.StepTicks = 1
	s, err := NewService(Config{Configuration: conf, SimRate: 1000}, Dependencies{
		Log:    zerolog.Nop(),
		Bridge: br,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return s
}

// startTestService starts the program without running the simulation.
func startTestService(t *testing.T, program model.ProgramType) *Service {
	t.Helper()
	s := newTestService(t, program)
	if err := s.start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return s
}

func outputValue(t *testing.T, s *Service, port, index int) bool {
	t.Helper()
	v, err := s.gpio.OutputValue(context.Background(), hal.Pin{Port: port, Index: index})
	if err != nil {
		t.Fatalf("OutputValue failed: %v", err)
	}
	return v
}

func TestNewServicePlatformMismatch(t *testing.T) {
	br, _ := bridge.NewVirtualBridge(platform.MSP430FR2355())
	conf := model.DefaultConfiguration()
	conf.Platform = "other"
	if _, err := NewService(Config{Configuration: conf}, Dependencies{Log: zerolog.Nop(), Bridge: br}); !platform.IsHardwareUnavailable(err) {
		t.Errorf("expected hardware unavailable error, got %v", err)
	}
}

func TestNewServiceInvalidPin(t *testing.T) {
	br, _ := bridge.NewVirtualBridge(platform.MSP430FR2355())
	conf := model.DefaultConfiguration()
	conf.SoftwarePWM.Pin = model.Pin{Port: 9, Pin: 0}
	if _, err := NewService(Config{Configuration: conf}, Dependencies{Log: zerolog.Nop(), Bridge: br}); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSoftwareProgram(t *testing.T) {
	ctx := context.Background()
	s := startTestService(t, model.ProgramSoftwarePWM)
	if mode, _ := s.timer.Mode(ctx); mode != platform.TimerModeUp {
		t.Errorf("expected up mode, got %s", mode)
	}
	if err := s.mcu.Step(ctx, 250); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	st := s.Status()
	if st.Software == nil || st.RGB != nil {
		t.Fatalf("unexpected status %+v", st)
	}
	if !st.Software.Running || st.Software.HighTicks != 30 || st.Software.Periods < 2 {
		t.Errorf("unexpected software status %+v", st.Software)
	}
	if !st.Simulated || st.Ticks != 250 || !st.InterruptsEnabled {
		t.Errorf("unexpected status %+v", st)
	}
	if err := s.SetHighTime(ctx, 60); err != nil {
		t.Fatalf("SetHighTime failed: %v", err)
	}
	if err := s.SetHighTime(ctx, 100); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if err := s.SetRGB(ctx, pwm.Color{}); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestButtonToggleOutput(t *testing.T) {
	ctx := context.Background()
	s := startTestService(t, model.ProgramSoftwarePWM)
	if outputValue(t, s, 6, 6) {
		t.Fatal("P6.6 high before press")
	}
	if err := s.PressButton(ctx, 2, 1); err != nil {
		t.Fatalf("PressButton failed: %v", err)
	}
	if !outputValue(t, s, 6, 6) {
		t.Error("P6.6 not toggled by press")
	}
	s.PressButton(ctx, 2, 1)
	if outputValue(t, s, 6, 6) {
		t.Error("P6.6 not toggled back by second press")
	}
	if pending, _ := s.gpio.PinInterruptPending(ctx, hal.Pin{Port: 2, Index: 1}); pending {
		t.Error("interrupt flag not cleared by handler")
	}
	st := s.Status()
	if len(st.Buttons) != 2 || st.Buttons[0].Presses != 2 || st.Buttons[1].Presses != 0 {
		t.Errorf("unexpected buttons %+v", st.Buttons)
	}
}

func TestButtonNextStepSoftware(t *testing.T) {
	s := startTestService(t, model.ProgramSoftwarePWM)
	if err := s.PressButton(context.Background(), 4, 3); err != nil {
		t.Fatalf("PressButton failed: %v", err)
	}
	if st := s.software.Status(); st.HighTicks != 25 {
		t.Errorf("expected 25 high ticks, got %d", st.HighTicks)
	}
}

func TestPressButtonInvalid(t *testing.T) {
	ctx := context.Background()
	s := startTestService(t, model.ProgramSoftwarePWM)
	if err := s.PressButton(ctx, 3, 3); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error for pin without button, got %v", err)
	}
	if err := s.PressButton(ctx, 2, 8); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error for invalid pin, got %v", err)
	}
}

func TestRGBProgram(t *testing.T) {
	ctx := context.Background()
	s := startTestService(t, model.ProgramRGB)
	if c := s.rgb.Brightness(); c != (pwm.Color{R: 16, G: 4, B: 0}) {
		t.Errorf("unexpected initial color %s", c)
	}
	if err := s.SetRGB(ctx, pwm.Color{R: 1, G: 2, B: 3}); err != nil {
		t.Fatalf("SetRGB failed: %v", err)
	}
	if err := s.SetRGB(ctx, pwm.Color{R: 17}); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if err := s.SetHighTime(ctx, 10); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	s.PressButton(ctx, 4, 3)
	if c := s.rgb.Brightness(); c != pwm.HueColor(pwm.Levels) {
		t.Errorf("expected next hue segment, got %s", c)
	}
	if err := s.mcu.Step(ctx, 3*pwm.Levels); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if st := s.Status(); st.RGB == nil || st.RGB.Cycles < 2 {
		t.Errorf("unexpected status %+v", st.RGB)
	}
}

func TestRGBFadeProgram(t *testing.T) {
	ctx := context.Background()
	s := startTestService(t, model.ProgramRGBFade)
	if err := s.SetRGB(ctx, pwm.Color{R: 1}); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error while fading, got %v", err)
	}
	s.PressButton(ctx, 4, 3)
	if speed := s.fader.Speed(); speed != 3 {
		t.Errorf("expected speed 3, got %d", speed)
	}
	if err := s.SetFadeSpeed(ctx, 8); err != nil {
		t.Fatalf("SetFadeSpeed failed: %v", err)
	}
	s.PressButton(ctx, 4, 3)
	if speed := s.fader.Speed(); speed != 1 {
		t.Errorf("expected speed to wrap to 1, got %d", speed)
	}
	if st := s.Status(); st.Fade == nil || st.Fade.Speed != 1 {
		t.Errorf("unexpected fade status %+v", st.Fade)
	}
}

func TestPorts(t *testing.T) {
	s := startTestService(t, model.ProgramSoftwarePWM)
	ports, err := s.Ports(context.Background())
	if err != nil {
		t.Fatalf("Ports failed: %v", err)
	}
	if len(ports) != 6 {
		t.Fatalf("expected 6 ports, got %d", len(ports))
	}
	// P1.0 is the PWM output
	if ports[0].Registers["DIR"]&0x01 == 0 {
		t.Errorf("P1.0 not an output: %+v", ports[0].Registers)
	}
}

func TestSubscribeStatus(t *testing.T) {
	s := newTestService(t, model.ProgramSoftwarePWM)
	received := make(chan Status, 4)
	cancel := s.SubscribeStatus(func(st Status) error {
		received <- st
		return nil
	})
	defer cancel()
	s.statusChanges.Pub(s.Status())
	select {
	case st := <-received:
		if st.Program != model.ProgramSoftwarePWM {
			t.Errorf("unexpected status %+v", st)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no status received")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestService(t, model.ProgramSoftwarePWM)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	deadline := time.Now().Add(5 * time.Second)
	for !s.Status().Running && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	st := s.Status()
	if st.Running || st.Software.Running || st.InterruptsEnabled {
		t.Errorf("unexpected status after stop %+v", st)
	}
	if outputValue(t, s, 1, 0) {
		t.Error("PWM output high after stop")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
