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

import "testing"

func TestContainsCompatible(t *testing.T) {
	list := []byte("ti,msp430fr2355-bridge\x00ti,msp430\x00")
	tests := []struct {
		compatible string
		expected   bool
	}{
		{"ti,msp430fr2355-bridge", true},
		{"ti,msp430", true},
		{"ti,msp43", false},
		{"", false},
	}
	for _, test := range tests {
		if got := containsCompatible(list, test.compatible); got != test.expected {
			t.Errorf("%q: expected %v, got %v", test.compatible, test.expected, got)
		}
	}
}
