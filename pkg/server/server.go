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

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/pwm"
	"github.com/binkynet/LocalPWM/pkg/service"
)

const (
	// DefaultHostKeyPath is used when no SSH host key path is configured.
	DefaultHostKeyPath = ".ssh/id_ed25519"
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
	// Port to listen on for SSH requests
	SSHPort int
	// Path of the SSH host key
	HostKeyPath string
}

// Server runs the HTTP & SSH servers for the service.
type Server struct {
	Config
	log     zerolog.Logger
	ui      UI
	service Service
}

type UI interface {
	// You can wire any Bubble Tea model up to the middleware with a function that
	// handles the incoming ssh.Session.
	Handler(s ssh.Session) (tea.Model, []tea.ProgramOption)
}

// Service is the part of the service exposed by the server.
type Service interface {
	Status() service.Status
	Ports(ctx context.Context) ([]hal.PortState, error)
	SetHighTime(ctx context.Context, highTimeUS uint32) error
	SetRGB(ctx context.Context, c pwm.Color) error
	SetFadeSpeed(ctx context.Context, speed int) error
	PressButton(ctx context.Context, port, index int) error
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, ui UI, service Service) (*Server, error) {
	if cfg.HostKeyPath == "" {
		cfg.HostKeyPath = DefaultHostKeyPath
	}
	return &Server{
		Config:  cfg,
		log:     log.With().Str("component", "server").Logger(),
		ui:      ui,
		service: service,
	}, nil
}

// Router builds the HTTP routes.
func (s *Server) Router() *echo.Echo {
	httpRouter := echo.New()
	httpRouter.HideBanner = true
	httpRouter.HidePort = true
	httpRouter.GET("/health", echo.WrapHandler(http.HandlerFunc(healthHandler)))
	httpRouter.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	httpRouter.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))

	api := httpRouter.Group("/api/v1", s.countRequests)
	api.GET("/status", s.handleGetStatus)
	api.GET("/ports", s.handleGetPorts)
	api.PUT("/pwm/high-time", s.handlePutHighTime)
	api.PUT("/rgb", s.handlePutRGB)
	api.PUT("/fade/speed", s.handlePutFadeSpeed)
	api.POST("/pins/:port/:pin/press", s.handlePressPin)
	return httpRouter
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	// Prepare HTTP listener
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on address %s", httpAddr)
	}

	// Prepare HTTP server
	httpSrv := http.Server{
		Handler: s.Router(),
	}

	// Prepare SSH server
	sshAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.SSHPort))
	sshServer, err := wish.NewServer(
		// The address the server will listen to.
		wish.WithAddress(sshAddr),

		// The SSH server need its own keys, this will create a keypair in the
		// given path if it doesn't exist yet.
		wish.WithHostKeyPath(s.HostKeyPath),

		// Middlewares do something on a ssh.Session, and then call the next
		// middleware in the stack.
		wish.WithMiddleware(
			bubbletea.Middleware(s.ui.Handler),
			// The last item in the chain is the first to be called.
			activeterm.Middleware(),
			logging.Middleware(),
		),
	)
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("could not start SSH server: %w", err)
	}

	// Serve apis
	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve HTTP server")
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()
	// Serve UI
	log.Debug().Str("address", sshAddr).Msg("Serving SSH")
	go func() {
		if err := sshServer.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve SSH server")
		}
		log.Debug().Str("address", sshAddr).Msg("Done Serving SSH")
	}()

	// Wait until context closed
	<-ctx.Done()

	log.Info().Msg("Closing servers")
	httpSrv.Shutdown(context.Background())
	sshServer.Shutdown(context.Background())

	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "OK")
}
