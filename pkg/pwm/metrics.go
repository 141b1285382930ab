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

package pwm

import (
	"github.com/binkynet/LocalPWM/pkg/metrics"
)

const (
	subSystem = "pwm"
)

var (
	// Total number of output edges per pin & direction
	edgesTotal = metrics.MustRegisterCounterVec(subSystem,
		"edges_total",
		"Total number of output edges per pin and direction",
		"pin", "edge")
	// Total number of completed software PWM periods
	softwarePeriodsTotal = metrics.MustRegisterCounter(subSystem,
		"software_periods_total",
		"Total number of started software PWM periods")
	// Current software PWM high time in ticks
	softwareHighTicks = metrics.MustRegisterGauge(subSystem,
		"software_high_ticks",
		"Current software PWM high time in timer ticks")
	// Total number of completed RGB cycles
	rgbCyclesTotal = metrics.MustRegisterCounter(subSystem,
		"rgb_cycles_total",
		"Total number of started RGB PWM cycles")
	// Current brightness per RGB channel
	rgbBrightness = metrics.MustRegisterGaugeVec(subSystem,
		"rgb_brightness",
		"Current brightness (0..16) per RGB channel",
		"channel")
	// Total number of timer interrupts with an unexpected source
	unexpectedSourcesTotal = metrics.MustRegisterCounterVec(subSystem,
		"unexpected_sources_total",
		"Total number of timer interrupts with an unexpected source per timer",
		"timer")
)
