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

package platform

import "github.com/pkg/errors"

var (
	// ConfigurationError is returned when an invalid port, pin, timer,
	// channel or value is supplied. Nothing is written to hardware when
	// this error is returned.
	ConfigurationError = errors.New("configuration error")
	IsConfiguration    = isErrorFunc(ConfigurationError)
	// HardwareUnavailableError is returned when the platform does not match
	// the board that is attached.
	HardwareUnavailableError = errors.New("hardware unavailable")
	IsHardwareUnavailable    = isErrorFunc(HardwareUnavailableError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}

// InvalidArgument returns a ConfigurationError with given message.
func InvalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ConfigurationError, format, args...)
}
