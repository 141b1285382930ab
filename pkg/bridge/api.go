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

package bridge

import (
	"context"

	"github.com/binkynet/LocalPWM/pkg/platform"
)

// API of the bridge, the hardware (or simulation of it) used to reach
// the register space of the microcontroller.
type API interface {
	// Platform returns the register layout this bridge gives access to.
	Platform() *platform.Platform
	// Simulated returns true when the register space is simulated
	// and nothing drives the peripherals except this process.
	Simulated() bool
	// Open the register bus
	Bus() (Bus, error)

	Close() error
}

// Bus serializes access to the register space.
type Bus interface {
	// Execute an operation on the bus.
	// The operation runs without any other bus operation in between,
	// which makes a read-modify-write sequence atomic.
	Execute(ctx context.Context, op func(ctx context.Context, mem Memory) error) error
	// Close the bus
	Close() error
}

// Memory gives access to the memory mapped registers.
type Memory interface {
	// Read a byte from given register
	ReadByteReg(addr platform.Address) (uint8, error)
	// Write a byte to given register
	WriteByteReg(addr platform.Address, val uint8) error
	// Read a 16-bit word from given register (must be word aligned)
	ReadWordReg(addr platform.Address) (uint16, error)
	// Write a 16-bit word to given register (must be word aligned)
	WriteWordReg(addr platform.Address, val uint16) error
}
