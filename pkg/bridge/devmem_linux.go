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

//go:build linux

package bridge

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/binkynet/LocalPWM/pkg/environment"
	"github.com/binkynet/LocalPWM/pkg/platform"
)

type devMemBridge struct {
	mutex    sync.Mutex
	platform *platform.Platform
	path     string
	base     int64
	bus      *devMemBus
}

// NewDevMemBridge implements the bridge for a register space that is
// memory mapped through a device file (typically /dev/mem) starting
// at the given physical base address.
// The board must announce the platform in its device tree, otherwise
// HardwareUnavailableError is returned and nothing is mapped.
func NewDevMemBridge(p *platform.Platform, path string, base int64) (API, error) {
	if err := p.Validate(); err != nil {
		return nil, maskAny(err)
	}
	if err := environment.CheckCompatible(p); err != nil {
		return nil, maskAny(err)
	}
	if base%int64(os.Getpagesize()) != 0 {
		return nil, platform.InvalidArgument("base address 0x%x is not page aligned", base)
	}
	return &devMemBridge{
		platform: p,
		path:     path,
		base:     base,
	}, nil
}

// Platform returns the register layout this bridge gives access to.
func (b *devMemBridge) Platform() *platform.Platform {
	return b.platform
}

// Simulated returns false.
func (b *devMemBridge) Simulated() bool {
	return false
}

// Open the register bus
func (b *devMemBridge) Bus() (Bus, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.bus == nil {
		pageSize := os.Getpagesize()
		size := int(b.platform.HighestAddress()) + 2
		size = ((size + pageSize - 1) / pageSize) * pageSize
		bus, err := openDevMemBus(b.path, b.base, size)
		if err != nil {
			return nil, errors.Wrap(err, "openDevMemBus failed")
		}
		b.bus = bus
	}
	return b.bus, nil
}

func (b *devMemBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.bus != nil {
		bus := b.bus
		b.bus = nil
		if err := bus.Close(); err != nil {
			return errors.Wrap(err, "Close failed")
		}
	}
	return nil
}

type devMemBus struct {
	mutex  sync.Mutex
	file   *os.File
	memory sliceMemory
}

func openDevMemBus(path string, base int64, size int) (*devMemBus, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrapf(platform.HardwareUnavailableError, "cannot open %s: %s", path, err)
	}
	mem, err := unix.Mmap(int(f.Fd()), base, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(platform.HardwareUnavailableError, "cannot map %s: %s", path, err)
	}
	return &devMemBus{
		file:   f,
		memory: sliceMemory(mem),
	}, nil
}

// Execute an operation on the bus.
func (b *devMemBus) Execute(ctx context.Context, op func(context.Context, Memory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()

	busExecuteCounters.WithLabelValues("devmem").Inc()
	if b.memory == nil {
		busExecuteErrorCounters.WithLabelValues("devmem").Inc()
		return maskAny(BusClosedError)
	}
	if err := op(ctx, b.memory); err != nil {
		busExecuteErrorCounters.WithLabelValues("devmem").Inc()
		return err
	}
	return nil
}

// Close the bus
func (b *devMemBus) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.memory == nil {
		return nil
	}
	mem := b.memory
	b.memory = nil
	if err := unix.Munmap(mem); err != nil {
		b.file.Close()
		return maskAny(err)
	}
	return maskAny(b.file.Close())
}
