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
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/pkg/platform"
)

const (
	// HueSteps is the number of positions on the hue wheel.
	HueSteps = 6 * Levels
	// MinFadeSpeed is the slowest fade speed.
	MinFadeSpeed = 1
	// MaxFadeSpeed is the fastest fade speed.
	MaxFadeSpeed = 8
	// DefaultFadeSpeed is the speed used when none is configured.
	DefaultFadeSpeed = 2
	// DefaultFadeBaseInterval is the interval between positions at the fastest speed.
	DefaultFadeBaseInterval = time.Millisecond * 20
)

// BrightnessSetter is implemented by RGB.
type BrightnessSetter interface {
	SetBrightness(ctx context.Context, c Color) error
}

// HueColor returns the color at the given position of the hue wheel.
// The wheel moves red, yellow, green, cyan, blue, magenta and back to red.
func HueColor(position int) Color {
	position %= HueSteps
	if position < 0 {
		position += HueSteps
	}
	level := uint8(position % Levels)
	switch position / Levels {
	case 0:
		return Color{R: Levels, G: level, B: 0}
	case 1:
		return Color{R: Levels - level, G: Levels, B: 0}
	case 2:
		return Color{R: 0, G: Levels, B: level}
	case 3:
		return Color{R: 0, G: Levels - level, B: Levels}
	case 4:
		return Color{R: level, G: 0, B: Levels}
	default:
		return Color{R: Levels, G: 0, B: Levels - level}
	}
}

// Fader walks the hue wheel, pushing every color into an RGB PWM.
// It runs in the main flow, never in an interrupt handler.
type Fader struct {
	log      zerolog.Logger
	target   BrightnessSetter
	base     time.Duration
	mutex    sync.Mutex
	speed    int
	position int
	changed  chan struct{}
}

// NewFader creates a fader with given speed (1 slowest .. 8 fastest).
// A zero base interval selects DefaultFadeBaseInterval.
func NewFader(log zerolog.Logger, target BrightnessSetter, speed int, base time.Duration) (*Fader, error) {
	if err := checkFadeSpeed(speed); err != nil {
		return nil, err
	}
	if base <= 0 {
		base = DefaultFadeBaseInterval
	}
	return &Fader{
		log:     log.With().Str("component", "fader").Logger(),
		target:  target,
		base:    base,
		speed:   speed,
		changed: make(chan struct{}, 1),
	}, nil
}

// Speed returns the current speed.
func (f *Fader) Speed() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.speed
}

// SetSpeed changes the speed (1 slowest .. 8 fastest).
func (f *Fader) SetSpeed(speed int) error {
	if err := checkFadeSpeed(speed); err != nil {
		return err
	}
	f.mutex.Lock()
	f.speed = speed
	f.mutex.Unlock()
	select {
	case f.changed <- struct{}{}:
	default:
	}
	return nil
}

// Position returns the current position on the hue wheel.
func (f *Fader) Position() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.position
}

// Interval returns the time between two positions at the current speed.
func (f *Fader) Interval() time.Duration {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.base * time.Duration(MaxFadeSpeed+1-f.speed)
}

// Advance pushes the color of the current position and moves to the next.
func (f *Fader) Advance(ctx context.Context) error {
	f.mutex.Lock()
	position := f.position
	f.mutex.Unlock()
	if err := f.target.SetBrightness(ctx, HueColor(position)); err != nil {
		return err
	}
	f.mutex.Lock()
	f.position = (position + 1) % HueSteps
	f.mutex.Unlock()
	return nil
}

// Run advances the fade until the given context is canceled.
func (f *Fader) Run(ctx context.Context) error {
	f.log.Info().Int("speed", f.Speed()).Dur("interval", f.Interval()).Msg("Starting color fade")
	for {
		if err := f.Advance(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		timer := time.NewTimer(f.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			f.log.Info().Msg("Stopping color fade; context canceled")
			return nil
		case <-f.changed:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func checkFadeSpeed(speed int) error {
	if speed < MinFadeSpeed || speed > MaxFadeSpeed {
		return platform.InvalidArgument("fade speed must be in %d..%d range, got %d", MinFadeSpeed, MaxFadeSpeed, speed)
	}
	return nil
}
