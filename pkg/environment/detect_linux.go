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

package environment

import (
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/binkynet/LocalPWM/pkg/platform"
)

// AutoDetectBridgeType detects the default bridge type based on the environment.
// Boards that announce the platform get the memory mapped bridge,
// everything else runs the simulation.
func AutoDetectBridgeType(log zerolog.Logger, p *platform.Platform) string {
	var name unix.Utsname
	release := "unknown"
	if err := unix.Uname(&name); err == nil {
		release = strings.TrimRight(string(name.Release[:]), "\x00")
	}
	if err := CheckCompatible(p); err != nil {
		log.Debug().Err(err).Str("release", release).Msg("Using simulated bridge")
		return BridgeTypeSim
	}
	log.Debug().Str("release", release).Str("compatible", p.Compatible).Msg("Using memory mapped bridge")
	return BridgeTypeDevMem
}
