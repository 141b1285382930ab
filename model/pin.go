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

package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// Pin identifies a single I/O line of the microcontroller.
type Pin struct {
	// Port number (1...)
	Port int `json:"port"`
	// Bit number within the port (0..7)
	Pin int `json:"pin"`
}

// String returns the pin in P<port>.<pin> notation.
func (p Pin) String() string {
	return fmt.Sprintf("P%d.%d", p.Port, p.Pin)
}

// Validate the given pin, returning nil on ok,
// or an error upon validation issues.
// The upper port limit depends on the platform and is checked later.
func (p Pin) Validate() error {
	if p.Port < 1 {
		return errors.Wrapf(ValidationError, "port of %s must be 1 or higher", p)
	}
	if p.Pin < 0 || p.Pin > 7 {
		return errors.Wrapf(ValidationError, "pin of %s must be in 0..7 range", p)
	}
	return nil
}
