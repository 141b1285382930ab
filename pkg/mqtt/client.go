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

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/pkg/platform"
	"github.com/binkynet/LocalPWM/pkg/pwm"
	"github.com/binkynet/LocalPWM/pkg/util"
)

const (
	// Topic suffixes below the configured prefix
	TopicRGBSet      = "rgb/set"
	TopicHighTimeSet = "pwm/high-time/set"
	TopicState       = "state"
	TopicLogs        = "logs"

	publishTimeout    = time.Millisecond * 200
	disconnectQuiesce = 250
)

// Config of the MQTT link.
type Config struct {
	// Broker address (host:port, or a full URL)
	Broker string
	// Client ID used for the session
	ClientID string
	// Prefix of all topics
	Prefix string
}

// Commands is implemented by the service to apply received commands.
type Commands interface {
	// SetRGB changes the brightness of the RGB PWM.
	SetRGB(ctx context.Context, c pwm.Color) error
	// SetHighTime changes the high time of the software PWM.
	SetHighTime(ctx context.Context, highTimeUS uint32) error
}

// Client keeps a session with an MQTT broker, receives commands
// and publishes state.
type Client struct {
	log      zerolog.Logger
	config   Config
	commands Commands

	mutex  sync.Mutex
	client mqttapi.Client
}

// highTimeMsg is the payload of the high time command.
type highTimeMsg struct {
	HighTimeUS uint32 `json:"high_time_us"`
}

// NewClient creates a client for the given broker.
// Nothing is connected until Run is called.
func NewClient(log zerolog.Logger, config Config, commands Commands) (*Client, error) {
	if config.Broker == "" {
		return nil, platform.InvalidArgument("mqtt broker address is empty")
	}
	config.Prefix = strings.TrimSuffix(config.Prefix, "/")
	if config.ClientID == "" {
		config.ClientID = "localpwm"
	}
	return &Client{
		log:      log.With().Str("component", "mqtt").Str("broker", config.Broker).Logger(),
		config:   config,
		commands: commands,
	}, nil
}

// Topic returns the full topic name for the given suffix.
func (c *Client) Topic(suffix string) string {
	if c.config.Prefix == "" {
		return suffix
	}
	return c.config.Prefix + "/" + suffix
}

// Run keeps a session with the broker until the given context is canceled.
func (c *Client) Run(ctx context.Context) error {
	return util.UntilCanceled(ctx, c.log, "mqtt session", c.runSession)
}

// runSession connects, subscribes and waits until the connection is lost.
func (c *Client) runSession(ctx context.Context) error {
	lost := make(chan error, 1)
	broker := c.config.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts := mqttapi.NewClientOptions().
		AddBroker(broker).
		SetClientID(c.config.ClientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(false)
	opts.SetDefaultPublishHandler(func(mqttapi.Client, mqttapi.Message) {
		// Ignore messages when no subscription match
	})
	opts.SetConnectionLostHandler(func(_ mqttapi.Client, err error) {
		select {
		case lost <- err:
		default:
		}
	})

	client := mqttapi.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return errors.Wrap(token.Error(), "failed to connect to mqtt")
	}
	defer client.Disconnect(disconnectQuiesce)
	connectsTotal.Inc()

	for _, suffix := range []string{TopicRGBSet, TopicHighTimeSet} {
		topic := c.Topic(suffix)
		if token := client.Subscribe(topic, 0, func(_ mqttapi.Client, m mqttapi.Message) {
			if err := c.HandleMessage(ctx, m.Topic(), m.Payload()); err != nil {
				c.log.Warn().Err(err).Str("topic", m.Topic()).Msg("Failed to handle command")
			}
		}); token.Wait() && token.Error() != nil {
			return errors.Wrapf(token.Error(), "failed to subscribe to '%s'", topic)
		}
	}

	c.mutex.Lock()
	c.client = client
	c.mutex.Unlock()
	defer func() {
		c.mutex.Lock()
		c.client = nil
		c.mutex.Unlock()
	}()
	c.log.Info().Str("prefix", c.config.Prefix).Msg("Connected to MQTT broker")

	select {
	case <-ctx.Done():
		return nil
	case err := <-lost:
		return errors.Wrap(err, "connection lost")
	}
}

// HandleMessage decodes a command message and applies it.
func (c *Client) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	messagesReceivedTotal.WithLabelValues(topic).Inc()
	err := c.handleMessage(ctx, topic, payload)
	if err != nil {
		commandErrorsTotal.WithLabelValues(topic).Inc()
	}
	return err
}

func (c *Client) handleMessage(ctx context.Context, topic string, payload []byte) error {
	switch topic {
	case c.Topic(TopicRGBSet):
		var color pwm.Color
		if err := json.Unmarshal(payload, &color); err != nil {
			return errors.Wrapf(InvalidMessageError, "rgb: %s", err)
		}
		return c.commands.SetRGB(ctx, color)
	case c.Topic(TopicHighTimeSet):
		var msg highTimeMsg
		if err := json.Unmarshal(payload, &msg); err != nil {
			// Accept a bare number as well
			if err := json.Unmarshal(payload, &msg.HighTimeUS); err != nil {
				return errors.Wrapf(InvalidMessageError, "high time: %s", err)
			}
		}
		return c.commands.SetHighTime(ctx, msg.HighTimeUS)
	default:
		return errors.Wrapf(InvalidMessageError, "unknown topic '%s'", topic)
	}
}

// Publish a JSON encoded message on the given topic.
func (c *Client) Publish(ctx context.Context, topic string, msg interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mutex.Lock()
	client := c.client
	c.mutex.Unlock()
	if client == nil {
		return errors.Wrapf(NotConnectedError, "publish to '%s'", topic)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode message")
	}
	token := client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("publish to '%s' timed out", topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "publish to '%s' failed", topic)
	}
	messagesPublishedTotal.WithLabelValues(topic).Inc()
	return nil
}

// PublishState publishes a state snapshot on the state topic.
func (c *Client) PublishState(ctx context.Context, state interface{}) error {
	return c.Publish(ctx, c.Topic(TopicState), state)
}

// Connected returns true while a broker session is active.
func (c *Client) Connected() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.client != nil
}
