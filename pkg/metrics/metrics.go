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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "binkynet_localpwm"
)

// MustRegisterCounter creates and registers a counter in the default registry.
func MustRegisterCounter(subsystem, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	prometheus.MustRegister(c)
	return c
}

// MustRegisterCounterVec creates and registers a counter vector in the default registry.
func MustRegisterCounterVec(subsystem, name, help string, labelNames ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labelNames)
	prometheus.MustRegister(c)
	return c
}

// MustRegisterGauge creates and registers a gauge in the default registry.
func MustRegisterGauge(subsystem, name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	prometheus.MustRegister(g)
	return g
}

// MustRegisterGaugeVec creates and registers a gauge vector in the default registry.
func MustRegisterGaugeVec(subsystem, name, help string, labelNames ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labelNames)
	prometheus.MustRegister(g)
	return g
}
