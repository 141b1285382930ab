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

package bridge

import (
	"strconv"
	"sync"

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

// OutputPin is the interface satisfied by GPIO output pins.
type OutputPin interface {
	Write(bool) error
}

// GPIOSignal mirrors a PWM signal onto a local (sysfs) GPIO line.
// It implements the signal hooks of the PWM controllers.
type GPIOSignal struct {
	mutex sync.Mutex
	label string
	pin   OutputPin
	value bool
}

// NewGPIOSignal opens the local GPIO line with given number as output.
func NewGPIOSignal(pinNumber int, activeLow bool) (*GPIOSignal, error) {
	pin, err := gpio.Output(pinNumber, activeLow, false)
	if err != nil {
		return nil, errors.Wrapf(err, "Output[%d] failed", pinNumber)
	}
	return newGPIOSignal(strconv.Itoa(pinNumber), pin), nil
}

func newGPIOSignal(label string, pin OutputPin) *GPIOSignal {
	return &GPIOSignal{
		label: label,
		pin:   pin,
	}
}

// SignalHigh is called when the PWM output goes high.
func (s *GPIOSignal) SignalHigh() {
	s.write(true)
}

// SignalLow is called when the PWM output goes low.
func (s *GPIOSignal) SignalLow() {
	s.write(false)
}

// Value returns the last value written.
func (s *GPIOSignal) Value() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.value
}

func (s *GPIOSignal) write(value bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.pin.Write(value); err != nil {
		gpioSignalErrorsTotal.WithLabelValues(s.label).Inc()
		return
	}
	s.value = value
}
