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
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/binkynet/LocalPWM/pkg/platform"
)

// sliceMemory implements Memory on top of a byte slice that starts
// at address 0. Words are little endian.
type sliceMemory []byte

// Read a byte from given register
func (m sliceMemory) ReadByteReg(addr platform.Address) (uint8, error) {
	if int(addr) >= len(m) {
		return 0, errors.Wrapf(OutOfRangeError, "read at %s", addr)
	}
	return m[addr], nil
}

// Write a byte to given register
func (m sliceMemory) WriteByteReg(addr platform.Address, val uint8) error {
	if int(addr) >= len(m) {
		return errors.Wrapf(OutOfRangeError, "write at %s", addr)
	}
	m[addr] = val
	return nil
}

// Read a 16-bit word from given register
func (m sliceMemory) ReadWordReg(addr platform.Address) (uint16, error) {
	if addr&1 != 0 {
		return 0, errors.Wrapf(AlignmentError, "read at %s", addr)
	}
	if int(addr)+2 > len(m) {
		return 0, errors.Wrapf(OutOfRangeError, "read at %s", addr)
	}
	return binary.LittleEndian.Uint16(m[addr:]), nil
}

// Write a 16-bit word to given register
func (m sliceMemory) WriteWordReg(addr platform.Address, val uint16) error {
	if addr&1 != 0 {
		return errors.Wrapf(AlignmentError, "write at %s", addr)
	}
	if int(addr)+2 > len(m) {
		return errors.Wrapf(OutOfRangeError, "write at %s", addr)
	}
	binary.LittleEndian.PutUint16(m[addr:], val)
	return nil
}
