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
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/binkynet/LocalPWM/pkg/platform"
	"github.com/binkynet/LocalPWM/pkg/pwm"
)

type highTimeRequest struct {
	HighTimeUS uint32 `json:"high_time_us"`
}

type fadeSpeedRequest struct {
	Speed int `json:"speed"`
}

// GET /api/v1/status
func (s *Server) handleGetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Status())
}

// GET /api/v1/ports
func (s *Server) handleGetPorts(c echo.Context) error {
	ports, err := s.service.Ports(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ports)
}

// PUT /api/v1/pwm/high-time
func (s *Server) handlePutHighTime(c echo.Context) error {
	var req highTimeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.service.SetHighTime(c.Request().Context(), req.HighTimeUS); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.service.Status())
}

// PUT /api/v1/rgb
func (s *Server) handlePutRGB(c echo.Context) error {
	var req pwm.Color
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.service.SetRGB(c.Request().Context(), req); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.service.Status())
}

// PUT /api/v1/fade/speed
func (s *Server) handlePutFadeSpeed(c echo.Context) error {
	var req fadeSpeedRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.service.SetFadeSpeed(c.Request().Context(), req.Speed); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.service.Status())
}

// POST /api/v1/pins/:port/:pin/press
func (s *Server) handlePressPin(c echo.Context) error {
	port, err := strconv.Atoi(c.Param("port"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid port")
	}
	pin, err := strconv.Atoi(c.Param("pin"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid pin")
	}
	if err := s.service.PressButton(c.Request().Context(), port, pin); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.service.Status())
}

// countRequests counts API requests per route & status code.
func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		code := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		apiRequestsTotal.WithLabelValues(c.Path(), strconv.Itoa(code)).Inc()
		if err != nil {
			s.log.Debug().Err(err).Str("path", c.Path()).Msg("API request failed")
		}
		return err
	}
}

// httpError converts a service error into an HTTP error.
func httpError(err error) error {
	switch {
	case platform.IsConfiguration(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case platform.IsHardwareUnavailable(err):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
