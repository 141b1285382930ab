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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/LocalPWM/model"
	"github.com/binkynet/LocalPWM/pkg/bridge"
	"github.com/binkynet/LocalPWM/pkg/environment"
	"github.com/binkynet/LocalPWM/pkg/logging"
	"github.com/binkynet/LocalPWM/pkg/mqtt"
	"github.com/binkynet/LocalPWM/pkg/platform"
	"github.com/binkynet/LocalPWM/pkg/pwm"
	"github.com/binkynet/LocalPWM/pkg/server"
	"github.com/binkynet/LocalPWM/pkg/service"
	"github.com/binkynet/LocalPWM/pkg/ui"
)

const (
	projectName     = "BinkyNet Local PWM"
	defaultHTTPPort = 7129
	defaultSSHPort  = 7122
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

func main() {
	var levelFlag string
	var bridgeType string
	var configPath string
	var programFlag string
	var devMemPath string
	var devMemBase int64
	var simRate uint32
	var serverHost string
	var httpPort int
	var sshPort int
	var sshHostKeyPath string
	var mqttBroker string
	var mqttPrefix string
	var mqttClientID string
	var gpioSignal int

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", "", "Type of bridge to use (sim|devmem), detected when empty")
	pflag.StringVarP(&configPath, "config", "c", "", "Path of JSON configuration file")
	pflag.StringVarP(&programFlag, "program", "p", "", "Program to run (software-pwm|rgb|rgb-fade), overrides the configuration")
	pflag.StringVar(&devMemPath, "devmem-path", "/dev/mem", "Path of the memory device (devmem bridge)")
	pflag.Int64Var(&devMemBase, "devmem-base", 0, "Physical address of the register space (devmem bridge)")
	pflag.Uint32Var(&simRate, "sim-rate", service.DefaultSimRate, "Simulated clock ticks per second (sim bridge)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP & SSH servers will listen on")
	pflag.IntVar(&httpPort, "http-port", defaultHTTPPort, "Port the HTTP server will listen on")
	pflag.IntVar(&sshPort, "ssh-port", defaultSSHPort, "Port the SSH server will listen on")
	pflag.StringVar(&sshHostKeyPath, "ssh-host-key", server.DefaultHostKeyPath, "Path of the SSH host key")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "Address of the MQTT broker (host:port), empty to disable")
	pflag.StringVar(&mqttPrefix, "mqtt-prefix", "binkynet/pwm", "Prefix of all MQTT topics")
	pflag.StringVar(&mqttClientID, "mqtt-client-id", "", "MQTT client ID")
	pflag.IntVar(&gpioSignal, "gpio-signal", -1, "Local GPIO line that mirrors the software PWM output, -1 to disable")
	pflag.Parse()

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())

	ring := logging.NewRingBuffer(logging.DefaultRingSize)
	mqttLog := logging.NewMQTTWriter(ctx)
	logOutput := logging.NewMultiWriter(
		zerolog.ConsoleWriter{Out: os.Stderr},
		zerolog.ConsoleWriter{Out: ring, NoColor: true},
	)
	if mqttBroker != "" {
		logOutput.Add(mqttLog)
	}
	logger := zerolog.New(logOutput).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(levelFlag); err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	} else {
		logger = logger.Level(level)
	}

	conf := model.DefaultConfiguration()
	if configPath != "" {
		var err error
		conf, err = model.LoadConfiguration(configPath)
		if err != nil {
			Exitf("Failed to load configuration: %v\n", err)
		}
	}
	if programFlag != "" {
		conf.Program = model.ProgramType(programFlag)
		if err := conf.Validate(); err != nil {
			Exitf("Invalid program: %v\n", err)
		}
	}
	p, err := platform.Lookup(conf.Platform)
	if err != nil {
		Exitf("Unknown platform '%s' (%v)\n", conf.Platform, platform.Names())
	}

	if bridgeType == "" {
		bridgeType = environment.AutoDetectBridgeType(logger, p)
	}
	var br bridge.API
	switch bridgeType {
	case environment.BridgeTypeSim:
		br, err = bridge.NewVirtualBridge(p)
		if err != nil {
			Exitf("Failed to initialize simulated bridge: %v\n", err)
		}
	case environment.BridgeTypeDevMem:
		br, err = bridge.NewDevMemBridge(p, devMemPath, devMemBase)
		if err != nil {
			Exitf("Failed to initialize devmem bridge: %v\n", err)
		}
	default:
		Exitf("Unknown bridge type '%s' (sim|devmem)\n", bridgeType)
	}

	var hooks pwm.SignalHooks
	if gpioSignal >= 0 {
		signal, err := bridge.NewGPIOSignal(gpioSignal, false)
		if err != nil {
			Exitf("Failed to open GPIO signal: %v\n", err)
		}
		hooks = signal
	}

	svc, err := service.NewService(service.Config{
		Configuration: conf,
		SimRate:       simRate,
		MQTT: mqtt.Config{
			Broker:   mqttBroker,
			ClientID: mqttClientID,
			Prefix:   mqttPrefix,
		},
	}, service.Dependencies{
		Log:     logger,
		Bridge:  br,
		Hooks:   hooks,
		MQTTLog: mqttLog,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}
	defer svc.Close()

	httpServer, err := server.New(server.Config{
		Host:        serverHost,
		HTTPPort:    httpPort,
		SSHPort:     sshPort,
		HostKeyPath: sshHostKeyPath,
	}, logger, ui.New(svc, ring), svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return maskAny(svc.Run(ctx)) })
	g.Go(func() error { return maskAny(httpServer.Run(ctx)) })
	if err := g.Wait(); err != nil {
		svc.Close()
		Exitf("Service run failed: %#v", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
