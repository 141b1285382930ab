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
	"sync"

	"github.com/binkynet/LocalPWM/pkg/platform"
)

const virtualMemorySize = 1 << 16

type virtualBridge struct {
	mutex    sync.Mutex
	platform *platform.Platform
	bus      *virtualBus
}

// NewVirtualBridge implements the bridge for a simulated register space
// of the given platform.
func NewVirtualBridge(p *platform.Platform) (API, error) {
	if err := p.Validate(); err != nil {
		return nil, maskAny(err)
	}
	return &virtualBridge{
		platform: p,
	}, nil
}

// Platform returns the register layout this bridge gives access to.
func (b *virtualBridge) Platform() *platform.Platform {
	return b.platform
}

// Simulated returns true.
func (b *virtualBridge) Simulated() bool {
	return true
}

// Open the register bus
func (b *virtualBridge) Bus() (Bus, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.bus == nil {
		b.bus = newVirtualBus()
	}
	return b.bus, nil
}

func (b *virtualBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.bus != nil {
		bus := b.bus
		b.bus = nil
		return bus.Close()
	}
	return nil
}

// virtualBus is a register file in process memory.
type virtualBus struct {
	mutex  sync.Mutex
	memory sliceMemory
	closed bool
}

// NewVirtualBus returns a bus backed by a zeroed 64KB register file.
func NewVirtualBus() Bus {
	return newVirtualBus()
}

func newVirtualBus() *virtualBus {
	return &virtualBus{
		memory: make(sliceMemory, virtualMemorySize),
	}
}

// Execute an operation on the bus.
func (b *virtualBus) Execute(ctx context.Context, op func(context.Context, Memory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	busExecuteCounters.WithLabelValues("virtual").Inc()
	if b.closed {
		busExecuteErrorCounters.WithLabelValues("virtual").Inc()
		return maskAny(BusClosedError)
	}
	if err := op(ctx, b.memory); err != nil {
		busExecuteErrorCounters.WithLabelValues("virtual").Inc()
		return err
	}
	return nil
}

// Close the bus
func (b *virtualBus) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.closed = true
	return nil
}
