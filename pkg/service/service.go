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

import (
	"context"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/mattn/go-pubsub"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/LocalPWM/model"
	"github.com/binkynet/LocalPWM/pkg/bridge"
	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/irq"
	"github.com/binkynet/LocalPWM/pkg/logging"
	"github.com/binkynet/LocalPWM/pkg/mqtt"
	"github.com/binkynet/LocalPWM/pkg/platform"
	"github.com/binkynet/LocalPWM/pkg/pwm"
	"github.com/binkynet/LocalPWM/pkg/sim"
)

const (
	// DefaultSimRate is the number of simulated ticks per second.
	DefaultSimRate = 20000
	// DefaultStatusInterval is the time between two status publications.
	DefaultStatusInterval = time.Second
	// DefaultPollInterval is the time between two interrupt polls on hardware.
	DefaultPollInterval = time.Millisecond
	// Time allowed to bring the outputs to a safe state on exit.
	stopTimeout = time.Second * 5
)

// Config of the service.
type Config struct {
	// Pins, program & buttons
	Configuration model.LocalConfiguration
	// Simulated ticks per second (simulated bridge only)
	SimRate uint32
	// Time between two status publications
	StatusInterval time.Duration
	// Time between two interrupt polls (hardware bridge only)
	PollInterval time.Duration
	// MQTT link, disabled when the broker is empty
	MQTT mqtt.Config
}

// Dependencies of the service.
type Dependencies struct {
	Log    zerolog.Logger
	Bridge bridge.API
	// Extra hooks for the software PWM output (optional)
	Hooks pwm.SignalHooks
	// Log forwarding to MQTT (optional)
	MQTTLog logging.MQTTWriter
}

// Service runs a PWM program on a (simulated) microcontroller.
type Service struct {
	Config
	Dependencies

	log      zerolog.Logger
	platform *platform.Platform
	bus      bridge.Bus
	gpio     *hal.GPIO
	timer    *hal.Timer
	irq      *irq.Controller
	mcu      *sim.MCU
	software *pwm.Software
	rgb      *pwm.RGB
	fader    *pwm.Fader
	mqtt     *mqtt.Client
	buttons  []*button
	outputs  []hal.Pin

	statusChanges *pubsub.PubSub
	changed       chan struct{}

	mutex       sync.Mutex
	running     bool
	huePosition int
}

// NewService creates a Service for the given configuration.
// Nothing is written to the registers until Run is called.
func NewService(conf Config, deps Dependencies) (*Service, error) {
	log := deps.Log.With().Str("component", "service").Logger()
	if err := conf.Configuration.Validate(); err != nil {
		return nil, maskAny(err)
	}
	if deps.Bridge == nil {
		return nil, errors.Wrap(platform.ConfigurationError, "bridge is missing")
	}
	p := deps.Bridge.Platform()
	if p.Name != conf.Configuration.Platform {
		return nil, errors.Wrapf(platform.HardwareUnavailableError, "bridge platform '%s' does not match configured platform '%s'", p.Name, conf.Configuration.Platform)
	}
	if err := p.Validate(); err != nil {
		return nil, maskAny(err)
	}
	if conf.SimRate == 0 {
		conf.SimRate = DefaultSimRate
	}
	if conf.StatusInterval <= 0 {
		conf.StatusInterval = DefaultStatusInterval
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = DefaultPollInterval
	}
	if deps.Hooks == nil {
		deps.Hooks = pwm.NoHooks()
	}
	bus, err := deps.Bridge.Bus()
	if err != nil {
		return nil, maskAny(err)
	}
	s := &Service{
		Config:        conf,
		Dependencies:  deps,
		log:           log,
		platform:      p,
		bus:           bus,
		gpio:          hal.NewGPIO(p, bus),
		irq:           irq.NewController(deps.Log),
		statusChanges: pubsub.New(),
		changed:       make(chan struct{}, 1),
	}
	if deps.Bridge.Simulated() {
		s.mcu = sim.NewMCU(deps.Log, p, bus, s.irq)
	}
	if err := s.buildProgram(); err != nil {
		return nil, maskAny(err)
	}
	if err := s.buildButtons(); err != nil {
		return nil, maskAny(err)
	}
	if conf.MQTT.Broker != "" {
		client, err := mqtt.NewClient(deps.Log, conf.MQTT, s)
		if err != nil {
			return nil, maskAny(err)
		}
		s.mqtt = client
		if deps.MQTTLog != nil {
			deps.MQTTLog.SetDestination(client.Topic(mqtt.TopicLogs), client)
			deps.MQTTLog.Enable(true)
		}
	}
	return s, nil
}

// Run the program until the given context is canceled.
// On return all outputs are driven low.
func (s *Service) Run(ctx context.Context) error {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return errors.Wrap(platform.ConfigurationError, "service already running")
	}
	s.running = true
	s.mutex.Unlock()

	log := s.log
	if err := s.start(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start")
		s.stop()
		return maskAny(err)
	}
	defer s.stop()
	log.Info().
		Str("platform", s.platform.Name).
		Str("program", string(s.Configuration.Program)).
		Bool("simulated", s.mcu != nil).
		Msg("Service started")

	g, ctx := errgroup.WithContext(ctx)
	if s.mcu != nil {
		g.Go(func() error { return s.mcu.Run(ctx, s.SimRate) })
	} else {
		g.Go(func() error { return s.pollInterrupts(ctx) })
	}
	if s.fader != nil {
		g.Go(func() error { return s.fader.Run(ctx) })
	}
	if s.mqtt != nil {
		g.Go(func() error { return s.mqtt.Run(ctx) })
	}
	g.Go(func() error { return s.publishStatus(ctx) })
	return g.Wait()
}

// start unlocks the I/O, configures buttons & outputs and starts the program.
func (s *Service) start(ctx context.Context) error {
	if err := hal.StopWatchdog(ctx, s.platform, s.bus); err != nil {
		return maskAny(err)
	}
	if err := hal.UnlockGPIO(ctx, s.platform, s.bus); err != nil {
		return maskAny(err)
	}
	if err := s.configureOutputs(ctx); err != nil {
		return maskAny(err)
	}
	if err := s.configureButtons(ctx); err != nil {
		return maskAny(err)
	}
	if err := s.startProgram(ctx); err != nil {
		return maskAny(err)
	}
	s.irq.Enable(ctx)
	s.notifyChange()
	return nil
}

// stop disables interrupts and brings all outputs to a safe state.
func (s *Service) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.stopProgram(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to stop program")
	}
	s.irq.Disable()
	for _, pin := range s.outputs {
		if err := s.gpio.ClearPinValue(ctx, pin); err != nil {
			s.log.Warn().Err(err).Str("pin", pin.String()).Msg("Failed to clear output")
		}
	}
	s.mutex.Lock()
	s.running = false
	s.mutex.Unlock()
	s.log.Info().Msg("Service stopped")
}

// pollInterrupts raises all bound vectors at a fixed interval.
// Handlers read their own flags, so a raise without a pending source is harmless.
func (s *Service) pollInterrupts(ctx context.Context) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, v := range s.irq.Vectors() {
				if err := s.irq.Raise(ctx, v); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return maskAny(err)
				}
			}
		}
	}
}

// publishStatus publishes the status on every change and at a fixed interval.
func (s *Service) publishStatus(ctx context.Context) error {
	ticker := time.NewTicker(s.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-s.changed:
		}
		status := s.Status()
		s.statusChanges.Pub(status)
		statusPublicationsTotal.Inc()
		if s.mqtt != nil && s.mqtt.Connected() {
			if err := s.mqtt.PublishState(ctx, status); err != nil {
				s.log.Debug().Err(err).Msg("Failed to publish state")
			}
		}
	}
}

// notifyChange triggers a status publication.
// It never blocks and is safe to call from an interrupt handler.
func (s *Service) notifyChange() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Close detaches the log forwarding and releases the bridge.
func (s *Service) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if s.MQTTLog != nil {
		s.MQTTLog.Enable(false)
	}
	var ae aerr.AggregateError
	ae.Add(s.stopProgram(ctx))
	ae.Add(s.Bridge.Close())
	return ae.AsError()
}
