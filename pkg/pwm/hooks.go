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

// SignalHooks receives the edges of a PWM output.
// Hooks are called from an interrupt handler, after the pin has changed,
// and must not block.
type SignalHooks interface {
	// SignalHigh is called after the output went high.
	SignalHigh()
	// SignalLow is called after the output went low.
	SignalLow()
}

// NoHooks returns signal hooks that do nothing.
func NoHooks() SignalHooks {
	return noHooks{}
}

type noHooks struct{}

func (noHooks) SignalHigh() {}
func (noHooks) SignalLow()  {}

// MultiHooks forwards edges to all of its elements.
type MultiHooks []SignalHooks

// SignalHigh forwards the rising edge.
func (m MultiHooks) SignalHigh() {
	for _, h := range m {
		h.SignalHigh()
	}
}

// SignalLow forwards the falling edge.
func (m MultiHooks) SignalLow() {
	for _, h := range m {
		h.SignalLow()
	}
}
