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

package platform

// Bits of the timer control register (TBxCTL)
const (
	TimerIFG       uint16 = 1 << 0 // Overflow interrupt flag
	TimerIE        uint16 = 1 << 1 // Overflow interrupt enable
	TimerClear     uint16 = 1 << 2 // Clear counter, divider and direction
	TimerModeShift        = 4
	TimerModeMask  uint16 = 0b11 << TimerModeShift
	TimerIDShift          = 6
	TimerIDMask    uint16 = 0b11 << TimerIDShift
	TimerSSELShift        = 8
	TimerSSELMask  uint16 = 0b11 << TimerSSELShift
)

// Bits of a capture/compare control register (TBxCCTLn)
const (
	CompareIFG uint16 = 1 << 0 // Compare interrupt flag
	CompareIE  uint16 = 1 << 4 // Compare interrupt enable
)

// Values of the interrupt vector register (TBxIV)
const (
	TimerIVNone     uint16 = 0x00
	TimerIVOverflow uint16 = 0x0E
)

// CompareIV returns the interrupt vector register value of compare channel ch (1..).
func CompareIV(ch int) uint16 {
	return uint16(ch * 2)
}

// MaxDividerExponent is the highest supported input divider exponent.
const MaxDividerExponent = 3

// ClockSource selects the input clock of a timer.
type ClockSource uint8

const (
	ClockSourceTBCLK ClockSource = 0
	ClockSourceACLK  ClockSource = 1
	ClockSourceSMCLK ClockSource = 2
	ClockSourceINCLK ClockSource = 3
)

// String returns the datasheet name of the clock source.
func (s ClockSource) String() string {
	switch s {
	case ClockSourceTBCLK:
		return "TBCLK"
	case ClockSourceACLK:
		return "ACLK"
	case ClockSourceSMCLK:
		return "SMCLK"
	case ClockSourceINCLK:
		return "INCLK"
	}
	return "invalid"
}

// TimerMode selects the counting mode of a timer.
type TimerMode uint8

const (
	// Timer halted
	TimerModeStop TimerMode = 0
	// Count up to CCR0, then restart at 0
	TimerModeUp TimerMode = 1
	// Count up to 0xFFFF, then restart at 0
	TimerModeContinuous TimerMode = 2
	// Count up to CCR0, then down to 0
	TimerModeUpDown TimerMode = 3
)

// String returns a human readable name of the mode.
func (m TimerMode) String() string {
	switch m {
	case TimerModeStop:
		return "stop"
	case TimerModeUp:
		return "up"
	case TimerModeContinuous:
		return "continuous"
	case TimerModeUpDown:
		return "up/down"
	}
	return "invalid"
}

// Watchdog and power management bits
const (
	WatchdogPassword uint16 = 0x5A00
	WatchdogHold     uint16 = 0x0080
	LockLPM5         uint16 = 0x0001
)
