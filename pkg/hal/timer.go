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

package hal

import (
	"context"

	"github.com/binkynet/LocalPWM/pkg/bridge"
	"github.com/binkynet/LocalPWM/pkg/platform"
)

// MaxPeriodTicks is the longest period a 16-bit timer can count.
const MaxPeriodTicks = 1 << 16

// InterruptSource identifies the reason of a timer interrupt,
// using the values of the interrupt vector register.
type InterruptSource uint16

const (
	SourceNone     = InterruptSource(platform.TimerIVNone)
	SourceOverflow = InterruptSource(platform.TimerIVOverflow)
)

// CompareSource returns the interrupt source of compare channel ch (1...).
func CompareSource(ch int) InterruptSource {
	return InterruptSource(platform.CompareIV(ch))
}

// Timer gives access to a single timer block.
type Timer struct {
	index    int
	platform *platform.Platform
	regs     platform.TimerRegisters
	bus      bridge.Bus
}

// NewTimer creates an accessor for the timer with given index (0...).
func NewTimer(p *platform.Platform, bus bridge.Bus, index int) (*Timer, error) {
	regs, err := p.Timer(index)
	if err != nil {
		return nil, err
	}
	return &Timer{
		index:    index,
		platform: p,
		regs:     regs,
		bus:      bus,
	}, nil
}

// Index of the timer (0...)
func (t *Timer) Index() int {
	return t.index
}

// Name of the timer (e.g. TB0)
func (t *Timer) Name() string {
	return t.regs.Name
}

// Platform returns the platform of the timer.
func (t *Timer) Platform() *platform.Platform {
	return t.platform
}

// Registers returns the register addresses of the timer.
func (t *Timer) Registers() platform.TimerRegisters {
	return t.regs
}

// Channels returns the number of compare channels.
func (t *Timer) Channels() int {
	return t.regs.Channels()
}

// SetDividerExponent sets the input divider to 2^n.
// Only the ID bits (6..7) of the control register change.
func (t *Timer) SetDividerExponent(ctx context.Context, n uint8) error {
	if n > platform.MaxDividerExponent {
		return platform.InvalidArgument("divider exponent must be in 0..%d range, got %d", platform.MaxDividerExponent, n)
	}
	return t.modifyCTL(ctx, platform.TimerIDMask, uint16(n)<<platform.TimerIDShift)
}

// DividerExponent returns the current input divider exponent.
func (t *Timer) DividerExponent(ctx context.Context) (uint8, error) {
	ctl, err := t.readWord(ctx, t.regs.CTL)
	if err != nil {
		return 0, err
	}
	return uint8((ctl & platform.TimerIDMask) >> platform.TimerIDShift), nil
}

// SetClockSource selects the input clock of the timer.
func (t *Timer) SetClockSource(ctx context.Context, src platform.ClockSource) error {
	if src > platform.ClockSourceINCLK {
		return platform.InvalidArgument("invalid clock source %d", src)
	}
	return t.modifyCTL(ctx, platform.TimerSSELMask, uint16(src)<<platform.TimerSSELShift)
}

// ClockSource returns the selected input clock.
func (t *Timer) ClockSource(ctx context.Context) (platform.ClockSource, error) {
	ctl, err := t.readWord(ctx, t.regs.CTL)
	if err != nil {
		return 0, err
	}
	return platform.ClockSource((ctl & platform.TimerSSELMask) >> platform.TimerSSELShift), nil
}

// SetMode selects the counting mode. TimerModeStop halts the timer.
func (t *Timer) SetMode(ctx context.Context, mode platform.TimerMode) error {
	if mode > platform.TimerModeUpDown {
		return platform.InvalidArgument("invalid timer mode %d", mode)
	}
	return t.modifyCTL(ctx, platform.TimerModeMask, uint16(mode)<<platform.TimerModeShift)
}

// Mode returns the current counting mode.
func (t *Timer) Mode(ctx context.Context) (platform.TimerMode, error) {
	ctl, err := t.readWord(ctx, t.regs.CTL)
	if err != nil {
		return 0, err
	}
	return platform.TimerMode((ctl & platform.TimerModeMask) >> platform.TimerModeShift), nil
}

// Reset clears the counter, the divider logic and the count direction.
func (t *Timer) Reset(ctx context.Context) error {
	return t.modifyCTL(ctx, platform.TimerClear, platform.TimerClear)
}

// SetPeriod sets the number of ticks of one up-mode period (CCR0 = ticks-1).
func (t *Timer) SetPeriod(ctx context.Context, ticks uint32) error {
	if ticks < 1 || ticks > MaxPeriodTicks {
		return platform.InvalidArgument("period must be in 1..%d ticks, got %d", MaxPeriodTicks, ticks)
	}
	return t.writeWord(ctx, t.regs.CCR[0], uint16(ticks-1))
}

// Period returns the number of ticks of one up-mode period.
func (t *Timer) Period(ctx context.Context) (uint32, error) {
	ccr0, err := t.readWord(ctx, t.regs.CCR[0])
	if err != nil {
		return 0, err
	}
	return uint32(ccr0) + 1, nil
}

// SetCompare sets the compare register of channel ch.
func (t *Timer) SetCompare(ctx context.Context, ch int, value uint16) error {
	if err := t.checkChannel(ch); err != nil {
		return err
	}
	return t.writeWord(ctx, t.regs.CCR[ch], value)
}

// Compare returns the compare register of channel ch.
func (t *Timer) Compare(ctx context.Context, ch int) (uint16, error) {
	if err := t.checkChannel(ch); err != nil {
		return 0, err
	}
	return t.readWord(ctx, t.regs.CCR[ch])
}

// Counter returns the current counter value.
func (t *Timer) Counter(ctx context.Context) (uint16, error) {
	return t.readWord(ctx, t.regs.R)
}

// EnableOverflowInterrupt enables the overflow (period) interrupt.
func (t *Timer) EnableOverflowInterrupt(ctx context.Context) error {
	return t.modifyCTL(ctx, platform.TimerIE, platform.TimerIE)
}

// DisableOverflowInterrupt disables the overflow (period) interrupt.
func (t *Timer) DisableOverflowInterrupt(ctx context.Context) error {
	return t.modifyCTL(ctx, platform.TimerIE, 0)
}

// EnableCompareInterrupt enables the interrupt of compare channel ch.
func (t *Timer) EnableCompareInterrupt(ctx context.Context, ch int) error {
	return t.modifyCCTL(ctx, ch, platform.CompareIE, platform.CompareIE)
}

// DisableCompareInterrupt disables the interrupt of compare channel ch.
func (t *Timer) DisableCompareInterrupt(ctx context.Context, ch int) error {
	return t.modifyCCTL(ctx, ch, platform.CompareIE, 0)
}

// PendingVector reads the interrupt vector register, clears the flag of
// the highest priority pending source and returns that source.
// SourceNone is returned when nothing is pending.
func (t *Timer) PendingVector(ctx context.Context) (InterruptSource, error) {
	var source InterruptSource
	if err := t.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		iv, err := mem.ReadWordReg(t.regs.IV)
		if err != nil {
			return err
		}
		source = InterruptSource(iv)
		switch {
		case source == SourceNone:
			return nil
		case source == SourceOverflow:
			if err := modifyWord(mem, t.regs.CTL, platform.TimerIFG, 0); err != nil {
				return err
			}
		default:
			ch := int(source) / 2
			if ch < 1 || ch >= t.regs.Channels() {
				return platform.InvalidArgument("invalid interrupt vector 0x%02x", iv)
			}
			if err := modifyWord(mem, t.regs.CCTL[ch], platform.CompareIFG, 0); err != nil {
				return err
			}
		}
		return UpdateInterruptVector(mem, t.regs)
	}); err != nil {
		return SourceNone, err
	}
	return source, nil
}

// MicrosecondsToTicks converts a duration in microseconds into timer ticks,
// using the configured clock source and divider. Clock sources without a
// known frequency result in a ConfigurationError.
func (t *Timer) MicrosecondsToTicks(ctx context.Context, us uint32) (uint32, error) {
	src, err := t.ClockSource(ctx)
	if err != nil {
		return 0, err
	}
	n, err := t.DividerExponent(ctx)
	if err != nil {
		return 0, err
	}
	return TicksFor(t.platform, src, n, us)
}

// TicksFor converts a duration in microseconds into timer ticks for the
// given clock source and divider exponent, without touching any register.
func TicksFor(p *platform.Platform, src platform.ClockSource, dividerExponent uint8, us uint32) (uint32, error) {
	hz := p.ClockHz(src)
	if hz == 0 {
		return 0, platform.InvalidArgument("clock source %s has no known frequency", src)
	}
	if dividerExponent > platform.MaxDividerExponent {
		return 0, platform.InvalidArgument("divider exponent must be in 0..%d range, got %d", platform.MaxDividerExponent, dividerExponent)
	}
	ticks := (uint64(us) * uint64(hz)) / (1000000 << dividerExponent)
	return uint32(ticks), nil
}

// UpdateInterruptVector recomputes the interrupt vector register from
// the pending & enabled flags of the timer.
// Channel 1 has the highest priority, the overflow the lowest.
func UpdateInterruptVector(mem bridge.Memory, regs platform.TimerRegisters) error {
	iv := platform.TimerIVNone
	for ch := 1; ch < regs.Channels(); ch++ {
		cctl, err := mem.ReadWordReg(regs.CCTL[ch])
		if err != nil {
			return err
		}
		if cctl&platform.CompareIFG != 0 && cctl&platform.CompareIE != 0 {
			iv = platform.CompareIV(ch)
			break
		}
	}
	if iv == platform.TimerIVNone {
		ctl, err := mem.ReadWordReg(regs.CTL)
		if err != nil {
			return err
		}
		if ctl&platform.TimerIFG != 0 && ctl&platform.TimerIE != 0 {
			iv = platform.TimerIVOverflow
		}
	}
	return mem.WriteWordReg(regs.IV, iv)
}

func (t *Timer) checkChannel(ch int) error {
	if ch < 0 || ch >= t.regs.Channels() {
		return platform.InvalidArgument("channel of %s must be in 0..%d range, got %d", t.regs.Name, t.regs.Channels()-1, ch)
	}
	return nil
}

func (t *Timer) modifyCTL(ctx context.Context, mask, value uint16) error {
	return t.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		return modifyWord(mem, t.regs.CTL, mask, value)
	})
}

func (t *Timer) modifyCCTL(ctx context.Context, ch int, mask, value uint16) error {
	if err := t.checkChannel(ch); err != nil {
		return err
	}
	return t.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		return modifyWord(mem, t.regs.CCTL[ch], mask, value)
	})
}

func (t *Timer) readWord(ctx context.Context, addr platform.Address) (uint16, error) {
	var value uint16
	if err := t.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		var err error
		value, err = mem.ReadWordReg(addr)
		return err
	}); err != nil {
		return 0, err
	}
	return value, nil
}

func (t *Timer) writeWord(ctx context.Context, addr platform.Address, value uint16) error {
	return t.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		return mem.WriteWordReg(addr, value)
	})
}

// modifyWord replaces the bits in mask of the register with value.
func modifyWord(mem bridge.Memory, addr platform.Address, mask, value uint16) error {
	current, err := mem.ReadWordReg(addr)
	if err != nil {
		return err
	}
	return mem.WriteWordReg(addr, (current&^mask)|(value&mask))
}
