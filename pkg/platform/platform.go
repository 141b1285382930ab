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

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Address of a memory mapped register.
type Address uint16

// String returns the address in datasheet notation (e.g. 0204h).
func (a Address) String() string {
	return fmt.Sprintf("%04Xh", uint16(a))
}

// Vector identifies an interrupt vector of the platform.
type Vector string

// RegisterKind selects one of the control registers of a port.
type RegisterKind uint8

const (
	RegisterIn RegisterKind = iota
	RegisterOut
	RegisterDir
	RegisterRen
	RegisterIES
	RegisterIE
	RegisterIFG
)

var registerKindNames = [...]string{"IN", "OUT", "DIR", "REN", "IES", "IE", "IFG"}

// String returns the datasheet name of the register kind.
func (k RegisterKind) String() string {
	if int(k) < len(registerKindNames) {
		return registerKindNames[k]
	}
	return fmt.Sprintf("REG%d", k)
}

// AllRegisterKinds lists all port register kinds in datasheet order.
var AllRegisterKinds = []RegisterKind{
	RegisterIn, RegisterOut, RegisterDir, RegisterRen, RegisterIES, RegisterIE, RegisterIFG,
}

// PortRegisters holds the register addresses of a single 8-bit I/O port.
type PortRegisters struct {
	In  Address
	Out Address
	Dir Address
	Ren Address
	IES Address
	IE  Address
	IFG Address
	// Vector raised when a pin interrupt of this port fires
	Vector Vector
}

// Address returns the address of the register of given kind.
func (r PortRegisters) Address(kind RegisterKind) Address {
	switch kind {
	case RegisterIn:
		return r.In
	case RegisterOut:
		return r.Out
	case RegisterDir:
		return r.Dir
	case RegisterRen:
		return r.Ren
	case RegisterIES:
		return r.IES
	case RegisterIE:
		return r.IE
	case RegisterIFG:
		return r.IFG
	}
	panic(fmt.Sprintf("unknown register kind %d", kind))
}

// TimerRegisters holds the register addresses of a single timer block.
type TimerRegisters struct {
	// Name of the timer (e.g. TB0)
	Name string
	CTL  Address
	R    Address
	EX0  Address
	IV   Address
	// Capture/compare control registers, one per channel
	CCTL []Address
	// Capture/compare registers, one per channel. CCR[0] holds the period.
	CCR []Address
	// Vector raised for channel 0
	Vector0 Vector
	// Vector raised for channels 1.. and the overflow
	Vector Vector
}

// Channels returns the number of capture/compare channels.
func (r TimerRegisters) Channels() int {
	return len(r.CCR)
}

// Platform describes the register layout of a specific microcontroller.
type Platform struct {
	// Name of the platform
	Name string
	// Device tree compatible string of boards that expose this register space.
	Compatible string
	// Frequency of the sub-main clock in Hz
	SMCLKHz uint32
	// Frequency of the auxiliary clock in Hz
	ACLKHz uint32
	// Ports, index 0 is port 1
	Ports []PortRegisters
	// Timers, index 0 is timer 0
	Timers []TimerRegisters
	// Watchdog control register
	WatchdogCTL Address
	// Power management control register that holds the GPIO lock
	PM5CTL0 Address
}

// PinsPerPort is the number of pins in every port.
const PinsPerPort = 8

// Port returns the registers of the port with given 1-based index.
func (p *Platform) Port(index int) (PortRegisters, error) {
	if index < 1 || index > len(p.Ports) {
		return PortRegisters{}, InvalidArgument("port must be in 1..%d range, got %d", len(p.Ports), index)
	}
	return p.Ports[index-1], nil
}

// Timer returns the registers of the timer with given 0-based index.
func (p *Platform) Timer(index int) (TimerRegisters, error) {
	if index < 0 || index >= len(p.Timers) {
		return TimerRegisters{}, InvalidArgument("timer must be in 0..%d range, got %d", len(p.Timers)-1, index)
	}
	return p.Timers[index], nil
}

// ClockHz returns the frequency of the given clock source in Hz.
// Sources without a known frequency return 0.
func (p *Platform) ClockHz(src ClockSource) uint32 {
	switch src {
	case ClockSourceSMCLK:
		return p.SMCLKHz
	case ClockSourceACLK:
		return p.ACLKHz
	}
	return 0
}

// Validate checks the register table, returning nil on ok,
// or an error upon validation issues.
func (p *Platform) Validate() error {
	if p.Name == "" {
		return InvalidArgument("platform name is empty")
	}
	if len(p.Ports) == 0 {
		return InvalidArgument("platform '%s' has no ports", p.Name)
	}
	owners := make(map[Address]string)
	claim := func(addr Address, owner string) error {
		if other, found := owners[addr]; found {
			return InvalidArgument("register %s of %s overlaps with %s", addr, owner, other)
		}
		owners[addr] = owner
		return nil
	}
	for i, port := range p.Ports {
		for _, kind := range AllRegisterKinds {
			if err := claim(port.Address(kind), fmt.Sprintf("P%d%s", i+1, kind)); err != nil {
				return maskAny(err)
			}
		}
		if port.Vector == "" {
			return InvalidArgument("port %d has no vector", i+1)
		}
	}
	for _, t := range p.Timers {
		if len(t.CCR) == 0 || len(t.CCR) != len(t.CCTL) {
			return InvalidArgument("timer %s has %d compare registers and %d control registers", t.Name, len(t.CCR), len(t.CCTL))
		}
		regs := map[string]Address{"CTL": t.CTL, "R": t.R, "EX0": t.EX0, "IV": t.IV}
		names := make([]string, 0, len(regs))
		for name := range regs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := claim(regs[name], t.Name+name); err != nil {
				return maskAny(err)
			}
		}
		for ch := range t.CCR {
			if err := claim(t.CCTL[ch], fmt.Sprintf("%sCCTL%d", t.Name, ch)); err != nil {
				return maskAny(err)
			}
			if err := claim(t.CCR[ch], fmt.Sprintf("%sCCR%d", t.Name, ch)); err != nil {
				return maskAny(err)
			}
		}
		if t.Vector == "" || t.Vector0 == "" {
			return InvalidArgument("timer %s has no vector", t.Name)
		}
	}
	return nil
}

// HighestAddress returns the highest register address used by the platform.
func (p *Platform) HighestAddress() Address {
	var max Address
	visit := func(a Address) {
		if a > max {
			max = a
		}
	}
	for _, port := range p.Ports {
		for _, kind := range AllRegisterKinds {
			visit(port.Address(kind))
		}
	}
	for _, t := range p.Timers {
		visit(t.CTL)
		visit(t.R)
		visit(t.EX0)
		visit(t.IV)
		for ch := range t.CCR {
			visit(t.CCTL[ch])
			visit(t.CCR[ch])
		}
	}
	visit(p.WatchdogCTL)
	visit(p.PM5CTL0)
	return max
}

var registry = map[string]func() *Platform{
	"msp430fr2355": MSP430FR2355,
}

// Lookup returns the platform with given name.
func Lookup(name string) (*Platform, error) {
	builder, found := registry[name]
	if !found {
		return nil, errors.Wrapf(HardwareUnavailableError, "unknown platform '%s'", name)
	}
	return builder(), nil
}

// Names returns the names of all known platforms.
func Names() []string {
	result := make([]string, 0, len(registry))
	for name := range registry {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
