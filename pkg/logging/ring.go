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

package logging

import (
	"strings"
	"sync"
)

const (
	// DefaultRingSize is the number of lines kept when no size is given.
	DefaultRingSize = 256
)

// RingBuffer keeps the most recent log lines in memory.
type RingBuffer struct {
	mutex sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewRingBuffer creates a buffer holding up to size lines.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{
		lines: make([]string, size),
	}
}

// Write stores every line of p.
func (r *RingBuffer) Write(p []byte) (int, error) {
	text := strings.TrimRight(string(p), "\n")
	if text == "" {
		return len(p), nil
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, line := range strings.Split(text, "\n") {
		r.lines[r.next] = line
		r.next++
		if r.next == len(r.lines) {
			r.next = 0
			r.full = true
		}
	}
	return len(p), nil
}

// Lines returns the stored lines, oldest first.
func (r *RingBuffer) Lines() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if !r.full {
		return append([]string(nil), r.lines[:r.next]...)
	}
	result := make([]string, 0, len(r.lines))
	result = append(result, r.lines[r.next:]...)
	return append(result, r.lines[:r.next]...)
}
