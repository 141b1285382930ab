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

// StopWatchdog holds the watchdog timer.
func StopWatchdog(ctx context.Context, p *platform.Platform, bus bridge.Bus) error {
	return bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		return mem.WriteWordReg(p.WatchdogCTL, platform.WatchdogPassword|platform.WatchdogHold)
	})
}

// UnlockGPIO releases the high-impedance lock that is active on the
// I/O pins after power up.
func UnlockGPIO(ctx context.Context, p *platform.Platform, bus bridge.Bus) error {
	return bus.Execute(ctx, func(ctx context.Context, mem bridge.Memory) error {
		return modifyWord(mem, p.PM5CTL0, platform.LockLPM5, 0)
	})
}
