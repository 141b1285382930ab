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

package environment

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/binkynet/LocalPWM/pkg/platform"
)

const (
	// Bridge types
	BridgeTypeSim    = "sim"
	BridgeTypeDevMem = "devmem"

	deviceTreeCompatiblePath = "/proc/device-tree/compatible"
)

// CheckCompatible returns nil when the board announces the given platform
// in its device tree, HardwareUnavailableError otherwise.
func CheckCompatible(p *platform.Platform) error {
	list, err := os.ReadFile(deviceTreeCompatiblePath)
	if err != nil {
		return errors.Wrapf(platform.HardwareUnavailableError, "cannot read %s: %s", deviceTreeCompatiblePath, err)
	}
	if !containsCompatible(list, p.Compatible) {
		return errors.Wrapf(platform.HardwareUnavailableError, "board is not compatible with '%s'", p.Compatible)
	}
	return nil
}

// containsCompatible checks the NUL separated device tree compatible list.
func containsCompatible(list []byte, compatible string) bool {
	if compatible == "" {
		return false
	}
	for _, entry := range strings.Split(string(list), "\x00") {
		if entry == compatible {
			return true
		}
	}
	return false
}
