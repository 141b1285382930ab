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

package sim

import (
	"github.com/binkynet/LocalPWM/pkg/metrics"
)

const (
	subSystem = "sim"
)

var (
	// Total number of simulated clock ticks
	ticksTotal = metrics.MustRegisterCounter(subSystem,
		"ticks_total",
		"Total number of simulated clock ticks")
	// Total number of timer overflows per timer
	timerOverflowsTotal = metrics.MustRegisterCounterVec(subSystem,
		"timer_overflows_total",
		"Total number of timer overflows per timer",
		"timer")
	// Total number of detected input edges per pin
	inputEdgesTotal = metrics.MustRegisterCounterVec(subSystem,
		"input_edges_total",
		"Total number of input edges that set an interrupt flag per pin",
		"pin")
)
