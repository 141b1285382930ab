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

package sim

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/pkg/bridge"
	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/irq"
	"github.com/binkynet/LocalPWM/pkg/platform"
)

type testEnv struct {
	p     *platform.Platform
	bus   bridge.Bus
	ctrl  *irq.Controller
	mcu   *MCU
	timer *hal.Timer
	gpio  *hal.GPIO
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
		mcu:   NewMCU(zerolog.Nop(), p, bus, ctrl),
		timer: tm,
		gpio:  hal.NewGPIO(p, bus),
	}
}

func (e *testEnv) counter(t *testing.T) uint16 {
	t.Helper()
	r, err := e.timer.Counter(context.Background())
	if err != nil {
		t.Fatalf("Counter failed: %v", err)
	}
	return r
}

func TestStoppedTimerDoesNotCount(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.timer.SetPeriod(ctx, 10)
	if err := e.mcu.Step(ctx, 5); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if r := e.counter(t); r != 0 {
		t.Errorf("expected counter 0, got %d", r)
	}
	if e.mcu.Ticks() != 5 {
		t.Errorf("expected 5 ticks, got %d", e.mcu.Ticks())
	}
}

func TestUpModeWrapsAtPeriod(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.timer.SetPeriod(ctx, 4) // CCR0 = 3
	e.timer.SetMode(ctx, platform.TimerModeUp)

	expected := []uint16{1, 2, 3, 0, 1, 2, 3, 0}
	for i, exp := range expected {
		e.mcu.Tick(ctx)
		if r := e.counter(t); r != exp {
			t.Errorf("tick %d: expected %d, got %d", i+1, exp, r)
		}
	}
	var ctl uint16
	e.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		ctl, _ = mem.ReadWordReg(e.timer.Registers().CTL)
		return nil
	})
	if ctl&platform.TimerIFG == 0 {
		t.Error("expected TBIFG after wrap")
	}
}

func TestDividerSlowsCounting(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.timer.SetPeriod(ctx, 100)
	e.timer.SetMode(ctx, platform.TimerModeUp)
	e.timer.SetDividerExponent(ctx, 2)
	e.mcu.Step(ctx, 12)
	if r := e.counter(t); r != 3 {
		t.Errorf("expected counter 3 after 12 ticks /4, got %d", r)
	}
}

func TestClearResetsCounter(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.timer.SetPeriod(ctx, 100)
	e.timer.SetMode(ctx, platform.TimerModeUp)
	e.mcu.Step(ctx, 10)
	e.timer.Reset(ctx)
	e.mcu.Tick(ctx)
	if r := e.counter(t); r != 1 {
		t.Errorf("expected counter 1 after clear and tick, got %d", r)
	}
	var ctl uint16
	e.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		ctl, _ = mem.ReadWordReg(e.timer.Registers().CTL)
		return nil
	})
	if ctl&platform.TimerClear != 0 {
		t.Error("TBCLR not cleared")
	}
}

func TestContinuousMode(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.timer.SetPeriod(ctx, 4)
	e.timer.SetMode(ctx, platform.TimerModeContinuous)
	e.mcu.Step(ctx, 10)
	if r := e.counter(t); r != 10 {
		t.Errorf("expected counter 10 (ignores CCR0), got %d", r)
	}
}

func TestUpDownMode(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.timer.SetPeriod(ctx, 4) // CCR0 = 3
	e.timer.SetMode(ctx, platform.TimerModeUpDown)
	expected := []uint16{1, 2, 3, 2, 1, 0, 1, 2, 3, 2}
	for i, exp := range expected {
		e.mcu.Tick(ctx)
		if r := e.counter(t); r != exp {
			t.Errorf("tick %d: expected %d, got %d", i+1, exp, r)
		}
	}
}

func TestTimerInterruptDelivery(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	var sources []hal.InterruptSource
	e.ctrl.Bind(e.timer.Registers().Vector, func(ctx context.Context) error {
		src, err := e.timer.PendingVector(ctx)
		if err != nil {
			return err
		}
		sources = append(sources, src)
		return nil
	})
	e.timer.SetPeriod(ctx, 10)
	e.timer.SetCompare(ctx, 1, 4)
	e.timer.EnableOverflowInterrupt(ctx)
	e.timer.EnableCompareInterrupt(ctx, 1)
	e.timer.SetMode(ctx, platform.TimerModeUp)
	e.ctrl.Enable(ctx)

	e.mcu.Step(ctx, 20)
	expected := []hal.InterruptSource{hal.CompareSource(1), hal.SourceOverflow, hal.CompareSource(1), hal.SourceOverflow}
	if len(sources) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, sources)
	}
	for i, exp := range expected {
		if sources[i] != exp {
			t.Errorf("interrupt %d: expected 0x%02x, got 0x%02x", i, exp, sources[i])
		}
	}
}

func TestCCR0Vector(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	calls := 0
	e.ctrl.Bind(e.timer.Registers().Vector0, func(ctx context.Context) error {
		calls++
		return nil
	})
	e.timer.SetPeriod(ctx, 5)
	e.timer.EnableCompareInterrupt(ctx, 0)
	e.timer.SetMode(ctx, platform.TimerModeUp)
	e.ctrl.Enable(ctx)
	e.mcu.Step(ctx, 10)
	if calls != 2 {
		t.Errorf("expected 2 CCR0 interrupts, got %d", calls)
	}
}

func TestDriveInputEdges(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	pin, _ := e.gpio.Pin(2, 1)
	calls := 0
	e.ctrl.Bind("PORT2", func(ctx context.Context) error {
		calls++
		return e.gpio.ClearPinInterruptFlag(ctx, pin)
	})
	e.gpio.SetAsInput(ctx, pin)
	e.gpio.SetInterruptEdgeFalling(ctx, pin)
	e.gpio.EnablePinInterrupt(ctx, pin)
	e.ctrl.Enable(ctx)

	e.mcu.DriveInput(ctx, pin, true) // rising, ignored
	if calls != 0 {
		t.Errorf("rising edge raised interrupt")
	}
	if high, _ := e.gpio.GetPinValue(ctx, pin); !high {
		t.Error("expected input high")
	}
	e.mcu.DriveInput(ctx, pin, false) // falling
	if calls != 1 {
		t.Errorf("expected 1 interrupt, got %d", calls)
	}
	e.mcu.DriveInput(ctx, pin, false) // no change
	if calls != 1 {
		t.Errorf("level without edge raised interrupt")
	}
	e.mcu.Press(ctx, pin)
	if calls != 1 {
		t.Errorf("press from low level: expected no new interrupt, got %d calls", calls)
	}
	e.mcu.Press(ctx, pin)
	if calls != 2 {
		t.Errorf("expected 2 interrupts, got %d", calls)
	}
	if pending, _ := e.gpio.PinInterruptPending(ctx, pin); pending {
		t.Error("interrupt flag not cleared by handler")
	}
}

func TestDriveInputInterruptDisabled(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	pin, _ := e.gpio.Pin(4, 3)
	e.gpio.SetInterruptEdgeRising(ctx, pin)
	e.ctrl.Enable(ctx)
	e.mcu.DriveInput(ctx, pin, true)
	if pending, _ := e.gpio.PinInterruptPending(ctx, pin); !pending {
		t.Error("expected flag set without interrupt enable")
	}
	if p := e.ctrl.Pending(); len(p) != 0 {
		t.Errorf("expected no pending vectors, got %v", p)
	}
}

func TestDriveInputInvalidPin(t *testing.T) {
	e := newTestEnv(t)
	if err := e.mcu.DriveInput(context.Background(), hal.Pin{Port: 7}, true); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()
	if err := e.mcu.Run(ctx, 10000); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if e.mcu.Ticks() == 0 {
		t.Error("expected ticks to advance")
	}
	if err := e.mcu.Run(context.Background(), 0); !platform.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
