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

package mqtt

import "github.com/binkynet/LocalPWM/pkg/metrics"

const (
	subSystem = "mqtt"
)

var (
	connectsTotal          = metrics.MustRegisterCounter(subSystem, "connects_total", "Number of broker sessions established")
	messagesReceivedTotal  = metrics.MustRegisterCounterVec(subSystem, "messages_received_total", "Number of command messages received", "topic")
	messagesPublishedTotal = metrics.MustRegisterCounterVec(subSystem, "messages_published_total", "Number of messages published", "topic")
	commandErrorsTotal     = metrics.MustRegisterCounterVec(subSystem, "command_errors_total", "Number of command messages that failed", "topic")
)
