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

func newTestSoftware(t *testing.T, e *testEnv, period uint32, hooks SignalHooks) *Software {
	t.Helper()
	pin, _ := e.gpio.Pin(1, 0)
	s, err := NewSoftware(zerolog.Nop(), e.gpio, e.timer, e.ctrl, SoftwareConfig{Pin: pin, PeriodTicks: period}, hooks)
	if err != nil {
		t.Fatalf("NewSoftware failed: %v", err)
	}
	return s
}

// runUntilRise ticks until the pin goes high, returning false after limit ticks.
func runUntilRise(t *testing.T, e *testEnv, pin hal.Pin, limit int) bool {
	t.Helper()
	for i := 0; i < limit; i++ {
		if e.sample(t, pin)[0] {
			return true
		}
	}
	return false
}

func TestSoftwareHighLowTicks(t *testing.T) {
	ctx := context.Background()
	const period = 10
	for _, high := range []uint32{1, 3, 5, 9} {
		e := newTestEnv(t)
		hooks := &countingHooks{}
		s := newTestSoftware(t, e, period, hooks)
		if err := s.StartTicks(ctx, high); err != nil {
			t.Fatalf("StartTicks failed: %v", err)
		}
		e.ctrl.Enable(ctx)
		pin := hal.Pin{Port: 1, Index: 0}
		if !runUntilRise(t, e, pin, 2*period) {
			t.Fatalf("high=%d: pin never went high", high)
		}
		// Already one high sample
		for cycle := 0; cycle < 3; cycle++ {
			highCount, lowCount := 1, 0
			if cycle > 0 {
				highCount = 0
			}
			for i := 0; i < period; i++ {
				if cycle == 0 && i == period-1 {
					break
				}
				if e.sample(t, pin)[0] {
					if lowCount > 0 {
						t.Fatalf("high=%d: pin went high again after %d low ticks", high, lowCount)
					}
					highCount++
				} else {
					lowCount++
				}
			}
			if highCount != int(high) || lowCount != int(period-high) {
				t.Errorf("high=%d cycle %d: got %d high and %d low ticks", high, cycle, highCount, lowCount)
			}
		}
		if hooks.high != 3 || hooks.low != 3 {
			t.Errorf("high=%d: expected 3 rising and 3 falling hooks, got %+v", high, hooks)
		}
		if st := s.Status(); !st.Running || st.Periods != 3 || st.HighTicks != high {
			t.Errorf("high=%d: unexpected status %+v", high, st)
		}
	}
}

func TestSoftwareHighTimeValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	s := newTestSoftware(t, e, 10, nil)
	for _, high := range []uint32{0, 10, 11} {
		if err := s.StartTicks(ctx, high); !platform.IsConfiguration(err) {
			t.Errorf("high=%d: expected configuration error, got %v", high, err)
		}
	}
	// Nothing written
	if mode, _ := e.timer.Mode(ctx); mode != platform.TimerModeStop {
		t.Errorf("timer started after invalid high time")
	}
	if v := e.ctrl.Vectors(); len(v) != 0 {
		t.Errorf("handler bound after invalid high time: %v", v)
	}
}

func TestSoftwareStartMicroseconds(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	s := newTestSoftware(t, e, 0, nil)
	if err := s.Start(ctx, 3000); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if ccr1, _ := e.timer.Compare(ctx, 1); ccr1 != 3000 {
		t.Errorf("expected CCR1 3000, got %d", ccr1)
	}
	if p, _ := e.timer.Period(ctx); p != DefaultPeriodTicks {
		t.Errorf("expected period %d, got %d", DefaultPeriodTicks, p)
	}
	if mode, _ := e.timer.Mode(ctx); mode != platform.TimerModeUp {
		t.Errorf("expected up mode, got %s", mode)
	}
	if src, _ := e.timer.ClockSource(ctx); src != platform.ClockSourceSMCLK {
		t.Errorf("expected SMCLK, got %s", src)
	}
	if err := s.Start(ctx, 3000); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error on second start, got %v", err)
	}
	if err := s.SetHighTime(ctx, 13000); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error for high time beyond period, got %v", err)
	}
	if err := s.SetHighTime(ctx, 6000); err != nil {
		t.Fatalf("SetHighTime failed: %v", err)
	}
	if ccr1, _ := e.timer.Compare(ctx, 1); ccr1 != 6000 {
		t.Errorf("expected CCR1 6000, got %d", ccr1)
	}
}

func TestSoftwareSetHighTicksWhileRunning(t *testing.T) {
	ctx := context.Background()
	const period = 8
	e := newTestEnv(t)
	s := newTestSoftware(t, e, period, nil)
	pin := hal.Pin{Port: 1, Index: 0}
	s.StartTicks(ctx, 2)
	e.ctrl.Enable(ctx)
	runUntilRise(t, e, pin, 2*period)
	// Finish the current period with the old value
	for i := 0; i < period-1; i++ {
		e.sample(t, pin)
	}
	if err := s.SetHighTicks(ctx, 6); err != nil {
		t.Fatalf("SetHighTicks failed: %v", err)
	}
	highCount := 0
	for i := 0; i < period; i++ {
		if e.sample(t, pin)[0] {
			highCount++
		}
	}
	if highCount != 6 {
		t.Errorf("expected 6 high ticks after change, got %d", highCount)
	}
}

func TestSoftwareCycleDuty(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	s := newTestSoftware(t, e, 1000, nil)
	s.StartTicks(ctx, 100)
	for _, percent := range []uint32{25, 50, 75, 90, 10, 25} {
		if err := s.CycleDuty(ctx); err != nil {
			t.Fatalf("CycleDuty failed: %v", err)
		}
		if st := s.Status(); st.HighTicks != percent*10 {
			t.Errorf("expected %d high ticks, got %d", percent*10, st.HighTicks)
		}
	}
}

func TestSoftwareStop(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	s := newTestSoftware(t, e, 10, nil)
	pin := hal.Pin{Port: 1, Index: 0}
	s.StartTicks(ctx, 5)
	e.ctrl.Enable(ctx)
	runUntilRise(t, e, pin, 20)
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	for i := 0; i < 30; i++ {
		if e.sample(t, pin)[0] {
			t.Fatal("pin high after Stop")
		}
	}
	if s.Status().Running {
		t.Error("still running after Stop")
	}
	// Restart is possible after Stop
	if err := s.StartTicks(ctx, 5); err != nil {
		t.Errorf("restart failed: %v", err)
	}
}

func TestNewSoftwareInvalid(t *testing.T) {
	e := newTestEnv(t)
	cfgs := []SoftwareConfig{
		{Pin: hal.Pin{Port: 9, Index: 0}},
		{Pin: hal.Pin{Port: 1, Index: 0}, PeriodTicks: 1},
		{Pin: hal.Pin{Port: 1, Index: 0}, PeriodTicks: hal.MaxPeriodTicks + 1},
		{Pin: hal.Pin{Port: 1, Index: 0}, DividerExponent: 4},
	}
	for i, cfg := range cfgs {
		if _, err := NewSoftware(zerolog.Nop(), e.gpio, e.timer, e.ctrl, cfg, nil); !platform.IsConfiguration(err) {
			t.Errorf("config %d: expected configuration error, got %v", i, err)
		}
	}
}
