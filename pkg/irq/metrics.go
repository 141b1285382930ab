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
	"github.com/binkynet/LocalPWM/pkg/metrics"
)

const (
	subSystem = "irq"
)

var (
	// Total number of raised interrupts per vector
	interruptsRaisedTotal = metrics.MustRegisterCounterVec(subSystem,
		"raised_total",
		"Total number of raised interrupts per vector",
		"vector")
	// Total number of delivered interrupts per vector
	interruptsDeliveredTotal = metrics.MustRegisterCounterVec(subSystem,
		"delivered_total",
		"Total number of interrupts delivered to a handler per vector",
		"vector")
	// Total number of interrupts without a bound handler
	spuriousInterruptsTotal = metrics.MustRegisterCounterVec(subSystem,
		"spurious_total",
		"Total number of interrupts without a bound handler per vector",
		"vector")
	// Total number of failed handlers
	handlerErrorsTotal = metrics.MustRegisterCounterVec(subSystem,
		"handler_errors_total",
		"Total number of handlers that returned an error per vector",
		"vector")
)
