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

package service

import "github.com/binkynet/LocalPWM/pkg/metrics"

const (
	subSystem = "service"
)

var (
	programStartsTotal      = metrics.MustRegisterCounterVec(subSystem, "program_starts_total", "Number of program starts", "program")
	buttonPressesTotal      = metrics.MustRegisterCounterVec(subSystem, "button_presses_total", "Number of button presses", "button")
	statusPublicationsTotal = metrics.MustRegisterCounter(subSystem, "status_publications_total", "Number of status publications")
)
