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

package irq

import (
	"runtime"
	"sync/atomic"
)

// interruptMask is the global interrupt mask.
// While held, no handler is started.
// Critical sections are short, so waiters spin with exponential backoff.
type interruptMask struct {
	held uint32
}

// mask interrupts, waiting until the mask is available.
func (m *interruptMask) mask() {
	backoff := 1
	for {
		if m.tryMask() {
			return
		}
		for x := 0; x < backoff; x++ {
			runtime.Gosched()
		}
		if backoff < 64 {
			backoff *= 2
		}
	}
}

// tryMask masks interrupts when the mask is available.
// Returns true when masked, false otherwise.
func (m *interruptMask) tryMask() bool {
	return atomic.CompareAndSwapUint32(&m.held, 0, 1)
}

// unmask interrupts.
func (m *interruptMask) unmask() {
	atomic.StoreUint32(&m.held, 0)
}

// isMasked returns true when the mask is held by anyone.
func (m *interruptMask) isMasked() bool {
	return atomic.LoadUint32(&m.held) != 0
}
