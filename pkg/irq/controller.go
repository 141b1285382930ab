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

package irq

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/binkynet/LocalPWM/pkg/platform"
)

// Handler is an interrupt service routine.
// It is called with interrupts masked and must return quickly.
type Handler func(ctx context.Context) error

type handlerContextKey struct{}

type criticalContextKey struct{}

// InHandler returns true when the given context belongs to a running
// interrupt handler.
func InHandler(ctx context.Context) bool {
	_, found := ctx.Value(handlerContextKey{}).(platform.Vector)
	return found
}

// Controller dispatches raised interrupt vectors to their handlers.
// At most one handler runs at any time.
// Vectors raised while interrupts are disabled, masked or while another
// handler runs are kept pending and delivered later, once per vector.
type Controller struct {
	log  zerolog.Logger
	mask interruptMask

	mutex      sync.Mutex
	handlers   map[platform.Vector]Handler
	enabled    bool
	pending    []platform.Vector
	pendingSet map[platform.Vector]struct{}
}

// NewController creates a controller with interrupts disabled.
func NewController(log zerolog.Logger) *Controller {
	return &Controller{
		log:        log.With().Str("component", "irq").Logger(),
		handlers:   make(map[platform.Vector]Handler),
		pendingSet: make(map[platform.Vector]struct{}),
	}
}

// Bind installs the handler for the given vector.
// A vector can have only one handler.
func (c *Controller) Bind(v platform.Vector, h Handler) error {
	if v == "" || h == nil {
		return platform.InvalidArgument("vector and handler are required")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, found := c.handlers[v]; found {
		return platform.InvalidArgument("vector %s already has a handler", v)
	}
	c.handlers[v] = h
	c.log.Debug().Str("vector", string(v)).Msg("Bound interrupt handler")
	return nil
}

// Unbind removes the handler of the given vector.
func (c *Controller) Unbind(v platform.Vector) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.handlers, v)
}

// Vectors returns the vectors that have a handler, sorted by name.
func (c *Controller) Vectors() []platform.Vector {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	result := make([]platform.Vector, 0, len(c.handlers))
	for v := range c.handlers {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Enable interrupts (global interrupt enable) and deliver all pending vectors.
func (c *Controller) Enable(ctx context.Context) {
	c.mutex.Lock()
	c.enabled = true
	c.mutex.Unlock()
	c.deliver(ctx)
}

// Disable interrupts. Raised vectors remain pending until Enable.
// A handler that is already running completes.
func (c *Controller) Disable() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.enabled = false
}

// Enabled returns true when interrupts are enabled.
func (c *Controller) Enabled() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.enabled
}

// Pending returns the vectors that are waiting for delivery.
func (c *Controller) Pending() []platform.Vector {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]platform.Vector(nil), c.pending...)
}

// Raise signals the given vector.
// When interrupts are enabled and no handler runs, the handler is called
// before Raise returns. Otherwise the vector becomes pending.
func (c *Controller) Raise(ctx context.Context, v platform.Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	interruptsRaisedTotal.WithLabelValues(string(v)).Inc()
	c.mutex.Lock()
	if _, found := c.pendingSet[v]; !found {
		c.pendingSet[v] = struct{}{}
		c.pending = append(c.pending, v)
	}
	c.mutex.Unlock()
	c.deliver(ctx)
	return nil
}

// Critical runs fn with interrupts masked.
// Pending vectors are delivered after fn returns.
// Called from a handler or another critical section, fn runs directly
// since interrupts are already masked.
func (c *Controller) Critical(ctx context.Context, fn func(ctx context.Context) error) error {
	if InHandler(ctx) || ctx.Value(criticalContextKey{}) != nil {
		return fn(ctx)
	}
	c.mask.mask()
	err := fn(context.WithValue(ctx, criticalContextKey{}, true))
	c.mask.unmask()
	c.deliver(ctx)
	return err
}

// deliver runs the handlers of all pending vectors, unless interrupts are
// masked by someone else. The holder of the mask delivers after unmasking.
func (c *Controller) deliver(ctx context.Context) {
	for {
		if !c.mask.tryMask() {
			return
		}
		for ctx.Err() == nil {
			v, h, found := c.next()
			if !found {
				break
			}
			c.invoke(ctx, v, h)
		}
		c.mask.unmask()
		if ctx.Err() != nil || !c.deliverable() {
			return
		}
	}
}

// next removes the first pending vector, if interrupts are enabled.
func (c *Controller) next() (platform.Vector, Handler, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.enabled || len(c.pending) == 0 {
		return "", nil, false
	}
	v := c.pending[0]
	c.pending = c.pending[1:]
	delete(c.pendingSet, v)
	return v, c.handlers[v], true
}

// deliverable returns true when there is something to deliver.
func (c *Controller) deliverable() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.enabled && len(c.pending) > 0
}

// invoke the handler of a single vector.
func (c *Controller) invoke(ctx context.Context, v platform.Vector, h Handler) {
	if h == nil {
		spuriousInterruptsTotal.WithLabelValues(string(v)).Inc()
		c.log.Debug().Str("vector", string(v)).Msg("Spurious interrupt")
		return
	}
	interruptsDeliveredTotal.WithLabelValues(string(v)).Inc()
	if err := h(context.WithValue(ctx, handlerContextKey{}, v)); err != nil {
		handlerErrorsTotal.WithLabelValues(string(v)).Inc()
		c.log.Warn().Err(err).Str("vector", string(v)).Msg("Interrupt handler failed")
	}
}
