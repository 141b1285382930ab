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
	"io"
	"sync"
)

// MultiWriter duplicates log output to all its writers.
type MultiWriter interface {
	io.Writer
	// Add an output on the fly.
	Add(w io.Writer)
}

type multiWriter struct {
	mutex   sync.RWMutex
	writers []io.Writer
}

// NewMultiWriter creates a new output for logs and can add outputs
// on the fly.
func NewMultiWriter(writers ...io.Writer) MultiWriter {
	l := &multiWriter{
		writers: writers,
	}
	return l
}

// Add an output on the fly.
func (l *multiWriter) Add(w io.Writer) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.writers = append(l.writers, w)
}

// Write p to all writers.
// All writers are tried, the first error is returned.
func (l *multiWriter) Write(p []byte) (int, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	var result error
	for _, w := range l.writers {
		if _, err := w.Write(p); err != nil && result == nil {
			result = err
		}
	}
	return len(p), result
}
