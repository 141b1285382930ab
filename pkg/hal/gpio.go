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
	"fmt"

	"github.com/binkynet/LocalPWM/pkg/bridge"
	"github.com/binkynet/LocalPWM/pkg/platform"
)

// Pin identifies a single I/O line: P<Port>.<Index>
type Pin struct {
	// Port index (1...)
	Port int `json:"port"`
	// Bit index within the port (0..7)
	Index int `json:"pin"`
}

// String returns the pin in P1.0 notation.
func (p Pin) String() string {
	return fmt.Sprintf("P%d.%d", p.Port, p.Index)
}

// Mask returns the bit of this pin within its port registers.
func (p Pin) Mask() uint8 {
	return 1 << uint(p.Index)
}

// GPIO gives access to the digital I/O ports of a platform.
type GPIO struct {
	platform *platform.Platform
	bus      bridge.Bus
}

// NewGPIO creates a GPIO accessor for the ports of the given platform.
func NewGPIO(p *platform.Platform, bus bridge.Bus) *GPIO {
	return &GPIO{
		platform: p,
		bus:      bus,
	}
}

// Platform returns the platform of the ports.
func (g *GPIO) Platform() *platform.Platform {
	return g.platform
}

// Pin returns a validated pin for given port (1...) and bit index (0..7).
func (g *GPIO) Pin(port, index int) (Pin, error) {
	pin := Pin{Port: port, Index: index}
	if _, _, err := g.lookup(pin); err != nil {
		return Pin{}, err
	}
	return pin, nil
}

// lookup the registers & bit mask of the given pin.
func (g *GPIO) lookup(pin Pin) (platform.PortRegisters, uint8, error) {
	regs, err := g.platform.Port(pin.Port)
	if err != nil {
		return platform.PortRegisters{}, 0, err
	}
	if pin.Index < 0 || pin.Index >= platform.PinsPerPort {
		return platform.PortRegisters{}, 0, platform.InvalidArgument("pin must be in 0..%d range, got %d", platform.PinsPerPort-1, pin.Index)
	}
	return regs, pin.Mask(), nil
}

// SetAsOutput configures the pin as output.
func (g *GPIO) SetAsOutput(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterDir, setBits)
}

// SetAsInput configures the pin as input.
func (g *GPIO) SetAsInput(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterDir, clearBits)
}

// IsOutput returns true when the pin is configured as output.
func (g *GPIO) IsOutput(ctx context.Context, pin Pin) (bool, error) {
	return g.read(ctx, pin, platform.RegisterDir)
}

// SetPinValue drives the output of the pin to logic 1.
func (g *GPIO) SetPinValue(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterOut, setBits)
}

// ClearPinValue drives the output of the pin to logic 0.
func (g *GPIO) ClearPinValue(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterOut, clearBits)
}

// TogglePinValue inverts the output of the pin.
func (g *GPIO) TogglePinValue(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterOut, toggleBits)
}

// OutputValue returns the value of the output latch of the pin.
func (g *GPIO) OutputValue(ctx context.Context, pin Pin) (bool, error) {
	return g.read(ctx, pin, platform.RegisterOut)
}

// GetPinValue reads the input level of the pin.
// Hardware state is never modified.
func (g *GPIO) GetPinValue(ctx context.Context, pin Pin) (bool, error) {
	return g.read(ctx, pin, platform.RegisterIn)
}

// EnablePullResistor enables the pull resistor of an input pin.
// The output latch selects pull-up (true) or pull-down (false).
func (g *GPIO) EnablePullResistor(ctx context.Context, pin Pin, pullUp bool) error {
	regs, mask, err := g.lookup(pin)
	if err != nil {
		return err
	}
	return g.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		if err := modifyByte(mem, regs.Ren, mask, setBits); err != nil {
			return err
		}
		if pullUp {
			return modifyByte(mem, regs.Out, mask, setBits)
		}
		return modifyByte(mem, regs.Out, mask, clearBits)
	})
}

// EnablePinInterrupt enables the interrupt of the pin.
func (g *GPIO) EnablePinInterrupt(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterIE, setBits)
}

// DisablePinInterrupt disables the interrupt of the pin.
func (g *GPIO) DisablePinInterrupt(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterIE, clearBits)
}

// SetInterruptEdgeRising triggers the pin interrupt on a low-to-high transition.
func (g *GPIO) SetInterruptEdgeRising(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterIES, clearBits)
}

// SetInterruptEdgeFalling triggers the pin interrupt on a high-to-low transition.
func (g *GPIO) SetInterruptEdgeFalling(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterIES, setBits)
}

// PinInterruptPending returns true when the interrupt flag of the pin is set.
func (g *GPIO) PinInterruptPending(ctx context.Context, pin Pin) (bool, error) {
	return g.read(ctx, pin, platform.RegisterIFG)
}

// ClearPinInterruptFlag acknowledges the interrupt of the pin.
func (g *GPIO) ClearPinInterruptFlag(ctx context.Context, pin Pin) error {
	return g.modify(ctx, pin, platform.RegisterIFG, clearBits)
}

// WritePort sets the bits in setMask and clears the bits in clearMask of
// the output register of the given port in a single write.
func (g *GPIO) WritePort(ctx context.Context, port int, setMask, clearMask uint8) error {
	regs, err := g.platform.Port(port)
	if err != nil {
		return err
	}
	return g.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		value, err := mem.ReadByteReg(regs.Out)
		if err != nil {
			return err
		}
		return mem.WriteByteReg(regs.Out, (value|setMask)&^clearMask)
	})
}

// PortState holds the values of all registers of a single port.
type PortState struct {
	Port      int                         `json:"port"`
	Registers map[string]uint8            `json:"registers"`
	Addresses map[string]platform.Address `json:"-"`
}

// Snapshot reads all registers of all ports.
func (g *GPIO) Snapshot(ctx context.Context) ([]PortState, error) {
	result := make([]PortState, 0, len(g.platform.Ports))
	if err := g.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		for i, regs := range g.platform.Ports {
			state := PortState{
				Port:      i + 1,
				Registers: make(map[string]uint8),
				Addresses: make(map[string]platform.Address),
			}
			for _, kind := range platform.AllRegisterKinds {
				addr := regs.Address(kind)
				value, err := mem.ReadByteReg(addr)
				if err != nil {
					return err
				}
				state.Registers[kind.String()] = value
				state.Addresses[kind.String()] = addr
			}
			result = append(result, state)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// modify performs a read-modify-write on a single register of the port of the given pin.
func (g *GPIO) modify(ctx context.Context, pin Pin, kind platform.RegisterKind, fn func(value, mask uint8) uint8) error {
	regs, mask, err := g.lookup(pin)
	if err != nil {
		return err
	}
	addr := regs.Address(kind)
	return g.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		return modifyByte(mem, addr, mask, fn)
	})
}

// read the bit of the given pin from a single register.
func (g *GPIO) read(ctx context.Context, pin Pin, kind platform.RegisterKind) (bool, error) {
	regs, mask, err := g.lookup(pin)
	if err != nil {
		return false, err
	}
	addr := regs.Address(kind)
	var value uint8
	if err := g.bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		var err error
		value, err = mem.ReadByteReg(addr)
		return err
	}); err != nil {
		return false, err
	}
	return value&mask != 0, nil
}

func modifyByte(mem bridge.Memory, addr platform.Address, mask uint8, fn func(value, mask uint8) uint8) error {
	value, err := mem.ReadByteReg(addr)
	if err != nil {
		return err
	}
	return mem.WriteByteReg(addr, fn(value, mask))
}

func setBits(value, mask uint8) uint8 { return value | mask }
func clearBits(value, mask uint8) uint8 { return value &^ mask }
func toggleBits(value, mask uint8) uint8 { return value ^ mask }
