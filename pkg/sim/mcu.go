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
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/pkg/bridge"
	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/irq"
	"github.com/binkynet/LocalPWM/pkg/platform"
)

const (
	// Interval between batches of ticks in Run
	runInterval = time.Millisecond * 10
	// Maximum number of times a timer vector is raised again in a
	// single tick while its IV register is non-zero.
	maxRedelivery = 8
)

// MCU simulates the port and timer peripherals of a platform on top of
// a register file. Interrupts are raised on the given controller.
type MCU struct {
	log      zerolog.Logger
	platform *platform.Platform
	bus      bridge.Bus
	irq      *irq.Controller

	mutex  sync.Mutex
	timers []timerState
	ticks  uint64
}

// timerState holds the internal state of a timer that is not visible
// in its registers.
type timerState struct {
	prescale uint32
	down     bool
}

// NewMCU creates a simulator for the given platform.
func NewMCU(log zerolog.Logger, p *platform.Platform, bus bridge.Bus, ctrl *irq.Controller) *MCU {
	return &MCU{
		log:      log.With().Str("component", "sim").Logger(),
		platform: p,
		bus:      bus,
		irq:      ctrl,
		timers:   make([]timerState, len(p.Timers)),
	}
}

// Ticks returns the number of simulated clock ticks.
func (m *MCU) Ticks() uint64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.ticks
}

// Tick advances all timers by a single clock tick.
func (m *MCU) Tick(ctx context.Context) error {
	return m.Step(ctx, 1)
}

// Step advances all timers by n clock ticks, delivering interrupts
// after every tick.
func (m *MCU) Step(ctx context.Context, n int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i := 0; i < n; i++ {
		if err := m.tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

// tick advances all timers once and raises the resulting vectors.
// The bus is released before raising, since handlers use the bus.
func (m *MCU) tick(ctx context.Context) error {
	var raise []platform.Vector
	var raisedTimers []int
	if err := m.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		for i := range m.platform.Timers {
			vectors, err := m.tickTimer(mem, i)
			if err != nil {
				return err
			}
			if len(vectors) > 0 {
				raise = append(raise, vectors...)
				raisedTimers = append(raisedTimers, i)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	m.ticks++
	ticksTotal.Inc()
	for _, v := range raise {
		if err := m.irq.Raise(ctx, v); err != nil {
			return err
		}
	}
	// A handler acknowledges one source per call.
	// Raise again while other sources remain pending.
	for _, i := range raisedTimers {
		regs := m.platform.Timers[i]
		var last uint16
		for n := 0; n < maxRedelivery && m.irq.Enabled(); n++ {
			iv, err := m.readWord(ctx, regs.IV)
			if err != nil {
				return err
			}
			if iv == platform.TimerIVNone || (n > 0 && iv == last) {
				break
			}
			last = iv
			if err := m.irq.Raise(ctx, regs.Vector); err != nil {
				return err
			}
		}
	}
	return nil
}

// tickTimer advances a single timer and returns the vectors to raise.
func (m *MCU) tickTimer(mem bridge.Memory, index int) ([]platform.Vector, error) {
	regs := m.platform.Timers[index]
	st := &m.timers[index]
	ctl, err := mem.ReadWordReg(regs.CTL)
	if err != nil {
		return nil, err
	}
	if ctl&platform.TimerClear != 0 {
		ctl &^= platform.TimerClear
		if err := mem.WriteWordReg(regs.CTL, ctl); err != nil {
			return nil, err
		}
		if err := mem.WriteWordReg(regs.R, 0); err != nil {
			return nil, err
		}
		st.prescale = 0
		st.down = false
	}
	mode := platform.TimerMode((ctl & platform.TimerModeMask) >> platform.TimerModeShift)
	if mode == platform.TimerModeStop {
		return nil, nil
	}
	id := (ctl & platform.TimerIDMask) >> platform.TimerIDShift
	st.prescale++
	if st.prescale < 1<<id {
		return nil, nil
	}
	st.prescale = 0

	r, err := mem.ReadWordReg(regs.R)
	if err != nil {
		return nil, err
	}
	ccr0, err := mem.ReadWordReg(regs.CCR[0])
	if err != nil {
		return nil, err
	}
	overflow := false
	switch mode {
	case platform.TimerModeUp:
		if r >= ccr0 {
			r = 0
			overflow = true
		} else {
			r++
		}
	case platform.TimerModeContinuous:
		if r == 0xFFFF {
			r = 0
			overflow = true
		} else {
			r++
		}
	case platform.TimerModeUpDown:
		switch {
		case ccr0 == 0:
			r = 0
		case st.down:
			r--
			if r == 0 {
				st.down = false
				overflow = true
			}
		default:
			r++
			if r >= ccr0 {
				r = ccr0
				st.down = true
			}
		}
	}
	if err := mem.WriteWordReg(regs.R, r); err != nil {
		return nil, err
	}

	// Compare flags
	for ch := 0; ch < regs.Channels(); ch++ {
		ccr, err := mem.ReadWordReg(regs.CCR[ch])
		if err != nil {
			return nil, err
		}
		if r == ccr {
			if err := setWordBits(mem, regs.CCTL[ch], platform.CompareIFG); err != nil {
				return nil, err
			}
		}
	}
	if overflow {
		timerOverflowsTotal.WithLabelValues(regs.Name).Inc()
		if err := setWordBits(mem, regs.CTL, platform.TimerIFG); err != nil {
			return nil, err
		}
	}
	if err := hal.UpdateInterruptVector(mem, regs); err != nil {
		return nil, err
	}

	var vectors []platform.Vector
	// CCR0 has its own vector; its flag is cleared when it is serviced.
	cctl0, err := mem.ReadWordReg(regs.CCTL[0])
	if err != nil {
		return nil, err
	}
	if cctl0&platform.CompareIFG != 0 && cctl0&platform.CompareIE != 0 {
		if err := mem.WriteWordReg(regs.CCTL[0], cctl0&^platform.CompareIFG); err != nil {
			return nil, err
		}
		vectors = append(vectors, regs.Vector0)
	}
	iv, err := mem.ReadWordReg(regs.IV)
	if err != nil {
		return nil, err
	}
	if iv != platform.TimerIVNone {
		vectors = append(vectors, regs.Vector)
	}
	return vectors, nil
}

// DriveInput sets the external level of an input pin.
// When the change matches the selected edge, the interrupt flag of the
// pin is set and, if enabled, the port vector is raised.
func (m *MCU) DriveInput(ctx context.Context, pin hal.Pin, high bool) error {
	regs, err := m.platform.Port(pin.Port)
	if err != nil {
		return err
	}
	if pin.Index < 0 || pin.Index >= platform.PinsPerPort {
		return platform.InvalidArgument("pin must be in 0..%d range, got %d", platform.PinsPerPort-1, pin.Index)
	}
	mask := pin.Mask()
	raise := false
	if err := m.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		in, err := mem.ReadByteReg(regs.In)
		if err != nil {
			return err
		}
		wasHigh := in&mask != 0
		if high {
			in |= mask
		} else {
			in &^= mask
		}
		if err := mem.WriteByteReg(regs.In, in); err != nil {
			return err
		}
		if wasHigh == high {
			return nil
		}
		ies, err := mem.ReadByteReg(regs.IES)
		if err != nil {
			return err
		}
		fallingEdge := ies&mask != 0
		if fallingEdge == high {
			// Not the selected edge
			return nil
		}
		inputEdgesTotal.WithLabelValues(pin.String()).Inc()
		ifg, err := mem.ReadByteReg(regs.IFG)
		if err != nil {
			return err
		}
		if err := mem.WriteByteReg(regs.IFG, ifg|mask); err != nil {
			return err
		}
		ie, err := mem.ReadByteReg(regs.IE)
		if err != nil {
			return err
		}
		raise = ie&mask != 0
		return nil
	}); err != nil {
		return err
	}
	if raise {
		return m.irq.Raise(ctx, regs.Vector)
	}
	return nil
}

// Press simulates a button between the pin and ground:
// the input goes low and is released again.
func (m *MCU) Press(ctx context.Context, pin hal.Pin) error {
	if err := m.DriveInput(ctx, pin, false); err != nil {
		return err
	}
	return m.DriveInput(ctx, pin, true)
}

// Run drives the simulation at the given number of ticks per second
// until the given context is canceled.
func (m *MCU) Run(ctx context.Context, ticksPerSecond uint32) error {
	if ticksPerSecond == 0 {
		return platform.InvalidArgument("tick rate must be positive")
	}
	log := m.log
	log.Info().
		Str("rate", humanize.SIWithDigits(float64(ticksPerSecond), 1, "Hz")).
		Msg("Starting simulation")
	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()
	perBatch := float64(ticksPerSecond) * runInterval.Seconds()
	var debt float64
	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("ticks", m.Ticks()).Msg("Stopping simulation; context canceled")
			return nil
		case <-ticker.C:
			debt += perBatch
			n := int(debt)
			debt -= float64(n)
			if n == 0 {
				continue
			}
			if err := m.Step(ctx, n); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error().Err(err).Msg("Simulation step failed")
				return err
			}
		}
	}
}

func (m *MCU) readWord(ctx context.Context, addr platform.Address) (uint16, error) {
	var value uint16
	if err := m.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		var err error
		value, err = mem.ReadWordReg(addr)
		return err
	}); err != nil {
		return 0, err
	}
	return value, nil
}

func setWordBits(mem bridge.Memory, addr platform.Address, bits uint16) error {
	value, err := mem.ReadWordReg(addr)
	if err != nil {
		return err
	}
	return mem.WriteWordReg(addr, value|bits)
}
