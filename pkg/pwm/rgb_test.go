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

	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/platform"
)

var testRGBPins = [3]hal.Pin{{Port: 6, Index: 0}, {Port: 6, Index: 1}, {Port: 6, Index: 2}}

// newTestRGB creates a started RGB PWM with one step per tick.
func newTestRGB(t *testing.T, e *testEnv, c Color) *RGB {
	t.Helper()
	ctx := context.Background()
	r, err := NewRGB(zerolog.Nop(), e.gpio, e.timer, e.ctrl, RGBConfig{Pins: testRGBPins, StepTicks: 1})
	if err != nil {
		t.Fatalf("NewRGB failed: %v", err)
	}
	if err := r.SetBrightness(ctx, c); err != nil {
		t.Fatalf("SetBrightness failed: %v", err)
	}
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	e.ctrl.Enable(ctx)
	return r
}

// sampleCycle returns the pin levels of every step of a single cycle.
func sampleCycle(t *testing.T, e *testEnv) [][]bool {
	t.Helper()
	result := make([][]bool, Levels)
	for i := range result {
		result[i] = e.sample(t, testRGBPins[:]...)
	}
	return result
}

func TestRGBExactBrightness(t *testing.T) {
	colors := []Color{
		{0, 0, 0},
		{16, 16, 16},
		{1, 8, 15},
		{16, 0, 7},
		{3, 12, 0},
	}
	for _, c := range colors {
		e := newTestEnv(t)
		newTestRGB(t, e, c)
		for cycle := 0; cycle < 3; cycle++ {
			levels := sampleCycle(t, e)
			for ch, brightness := range c.values() {
				count := 0
				for step := 0; step < Levels; step++ {
					high := levels[step][ch]
					if high {
						count++
					}
					// High for the first steps of a cycle, then low
					if expected := step < int(brightness); high != expected {
						t.Errorf("color %s cycle %d ch %d step %d: expected %v, got %v", c, cycle, ch, step, expected, high)
					}
				}
				if count != int(brightness) {
					t.Errorf("color %s cycle %d ch %d: expected %d high steps, got %d", c, cycle, ch, brightness, count)
				}
			}
		}
	}
}

func TestRGBSimultaneousRiseOnlyAtRestart(t *testing.T) {
	e := newTestEnv(t)
	newTestRGB(t, e, Color{R: 5, G: 10, B: 16})
	prev := []bool{false, false, false}
	for i := 0; i < 4*Levels; i++ {
		cur := e.sample(t, testRGBPins[:]...)
		for ch := range cur {
			if cur[ch] && !prev[ch] && i%Levels != 0 {
				t.Errorf("step %d: channel %d rose outside cycle restart", i, ch)
			}
		}
		prev = cur
	}
}

func TestRGBBrightnessChangeAtNextCycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	r := newTestRGB(t, e, Color{R: 4, G: 4, B: 4})
	// Half a cycle with the old value
	for i := 0; i < Levels/2; i++ {
		e.sample(t, testRGBPins[:]...)
	}
	if err := r.SetBrightness(ctx, Color{R: 12, G: 0, B: 16}); err != nil {
		t.Fatalf("SetBrightness failed: %v", err)
	}
	for i := Levels / 2; i < Levels; i++ {
		if cur := e.sample(t, testRGBPins[:]...); cur[0] || cur[1] || cur[2] {
			t.Errorf("step %d: new brightness applied mid-cycle: %v", i, cur)
		}
	}
	levels := sampleCycle(t, e)
	counts := [3]int{}
	for _, l := range levels {
		for ch := range l {
			if l[ch] {
				counts[ch]++
			}
		}
	}
	if counts != [3]int{12, 0, 16} {
		t.Errorf("unexpected counts %v", counts)
	}
	if st := r.Status(); st.Color != (Color{R: 12, G: 0, B: 16}) || !st.Running || st.Cycles < 2 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestRGBSetBrightnessInvalid(t *testing.T) {
	e := newTestEnv(t)
	r := newTestRGB(t, e, Color{R: 1, G: 2, B: 3})
	if err := r.SetBrightness(context.Background(), Color{R: 17}); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if c := r.Brightness(); c != (Color{R: 1, G: 2, B: 3}) {
		t.Errorf("brightness changed by invalid value: %s", c)
	}
}

func TestRGBLeavesOtherPinsAlone(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	green, _ := e.gpio.Pin(6, 6)
	e.gpio.SetAsOutput(ctx, green)
	e.gpio.SetPinValue(ctx, green)
	newTestRGB(t, e, Color{R: 2, G: 2, B: 2})
	sampleCycle(t, e)
	sampleCycle(t, e)
	if v, _ := e.gpio.OutputValue(ctx, green); !v {
		t.Error("P6.6 changed by RGB PWM")
	}
}

func TestRGBStop(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	r := newTestRGB(t, e, Color{R: 16, G: 16, B: 16})
	e.sample(t, testRGBPins[:]...)
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	for i := 0; i < Levels; i++ {
		if cur := e.sample(t, testRGBPins[:]...); cur[0] || cur[1] || cur[2] {
			t.Fatalf("pins high after Stop: %v", cur)
		}
	}
}

func TestNewRGBInvalid(t *testing.T) {
	e := newTestEnv(t)
	dup := [3]hal.Pin{{Port: 6, Index: 0}, {Port: 6, Index: 0}, {Port: 6, Index: 2}}
	if _, err := NewRGB(zerolog.Nop(), e.gpio, e.timer, e.ctrl, RGBConfig{Pins: dup}); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error for duplicate pins, got %v", err)
	}
	bad := [3]hal.Pin{{Port: 6, Index: 8}, {Port: 6, Index: 1}, {Port: 6, Index: 2}}
	if _, err := NewRGB(zerolog.Nop(), e.gpio, e.timer, e.ctrl, RGBConfig{Pins: bad}); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error for invalid pin, got %v", err)
	}
}
