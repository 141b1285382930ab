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
	"testing"

	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/pkg/bridge"
	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/irq"
	"github.com/binkynet/LocalPWM/pkg/platform"
	"github.com/binkynet/LocalPWM/pkg/sim"
)

type testEnv struct {
	p     *platform.Platform
	bus   bridge.Bus
	ctrl  *irq.Controller
	mcu   *sim.MCU
	gpio  *hal.GPIO
	timer *hal.Timer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	p := platform.MSP430FR2355()
	bus := bridge.NewVirtualBus()
	ctrl := irq.NewController(zerolog.Nop())
	tm, err := hal.NewTimer(p, bus, 0)
	if err != nil {
		t.Fatalf("NewTimer failed: %v", err)
	}
	return &testEnv{
		p:     p,
		bus:   bus,
		ctrl:  ctrl,
		mcu:   sim.NewMCU(zerolog.Nop(), p, bus, ctrl),
		gpio:  hal.NewGPIO(p, bus),
		timer: tm,
	}
}

// sample advances a single tick and returns the output latch of the given pins.
func (e *testEnv) sample(t *testing.T, pins ...hal.Pin) []bool {
	t.Helper()
	ctx := context.Background()
	if err := e.mcu.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	result := make([]bool, len(pins))
	for i, pin := range pins {
		v, err := e.gpio.OutputValue(ctx, pin)
		if err != nil {
			t.Fatalf("OutputValue failed: %v", err)
		}
		result[i] = v
	}
	return result
}

type countingHooks struct {
	high, low int
}

func (h *countingHooks) SignalHigh() { h.high++ }
func (h *countingHooks) SignalLow()  { h.low++ }

func TestMultiHooks(t *testing.T) {
	a, b := &countingHooks{}, &countingHooks{}
	m := MultiHooks{a, NoHooks(), b}
	m.SignalHigh()
	m.SignalLow()
	m.SignalLow()
	if a.high != 1 || b.high != 1 || a.low != 2 || b.low != 2 {
		t.Errorf("unexpected counts a=%+v b=%+v", a, b)
	}
}

func TestColorValidate(t *testing.T) {
	if err := (Color{R: 16, G: 0, B: 8}).Validate(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if err := (Color{R: 0, G: 17, B: 0}).Validate(); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestHueColor(t *testing.T) {
	tests := []struct {
		position int
		expected Color
	}{
		{0, Color{16, 0, 0}},
		{8, Color{16, 8, 0}},
		{16, Color{16, 16, 0}},
		{24, Color{8, 16, 0}},
		{32, Color{0, 16, 0}},
		{48, Color{0, 16, 16}},
		{64, Color{0, 0, 16}},
		{80, Color{16, 0, 16}},
		{95, Color{16, 0, 1}},
		{96, Color{16, 0, 0}},
		{-1, Color{16, 0, 1}},
	}
	for _, test := range tests {
		if c := HueColor(test.position); c != test.expected {
			t.Errorf("position %d: expected %s, got %s", test.position, test.expected, c)
		}
	}
	// Neighbouring positions differ by a single level in a single channel
	for i := 0; i < HueSteps; i++ {
		a, b := HueColor(i), HueColor(i+1)
		diff := absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B)
		if diff != 1 {
			t.Errorf("position %d->%d: %s -> %s", i, i+1, a, b)
		}
		if err := a.Validate(); err != nil {
			t.Errorf("position %d: %v", i, err)
		}
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

type recordingSetter struct {
	colors []Color
}

func (r *recordingSetter) SetBrightness(ctx context.Context, c Color) error {
	r.colors = append(r.colors, c)
	return nil
}

func TestFader(t *testing.T) {
	target := &recordingSetter{}
	if _, err := NewFader(zerolog.Nop(), target, 0, 0); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	f, err := NewFader(zerolog.Nop(), target, 2, 0)
	if err != nil {
		t.Fatalf("NewFader failed: %v", err)
	}
	if f.Interval() != DefaultFadeBaseInterval*7 {
		t.Errorf("unexpected interval %s", f.Interval())
	}
	f.SetSpeed(8)
	if f.Interval() != DefaultFadeBaseInterval {
		t.Errorf("unexpected interval at max speed %s", f.Interval())
	}
	if err := f.SetSpeed(9); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	ctx := context.Background()
	for i := 0; i < HueSteps+1; i++ {
		if err := f.Advance(ctx); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}
	if len(target.colors) != HueSteps+1 {
		t.Fatalf("expected %d colors, got %d", HueSteps+1, len(target.colors))
	}
	if target.colors[HueSteps] != target.colors[0] {
		t.Errorf("wheel does not wrap: %s vs %s", target.colors[HueSteps], target.colors[0])
	}
	if f.Position() != 1 {
		t.Errorf("expected position 1, got %d", f.Position())
	}
}
