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
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("failed") }

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := NewMultiWriter(&a, failingWriter{})
	w.Add(&b)
	n, err := w.Write([]byte("hello\n"))
	if n != 6 {
		t.Errorf("expected 6 bytes written, got %d", n)
	}
	if err == nil {
		t.Error("expected error from failing writer")
	}
	if a.String() != "hello\n" || b.String() != "hello\n" {
		t.Errorf("unexpected output %q %q", a.String(), b.String())
	}
}

func TestRingBuffer(t *testing.T) {
	r := NewRingBuffer(3)
	if l := r.Lines(); len(l) != 0 {
		t.Errorf("expected no lines, got %v", l)
	}
	r.Write([]byte("one\n"))
	r.Write([]byte("two\nthree\n"))
	if l := fmt.Sprint(r.Lines()); l != "[one two three]" {
		t.Errorf("unexpected lines %s", l)
	}
	r.Write([]byte("four\n"))
	r.Write([]byte("\n"))
	if l := fmt.Sprint(r.Lines()); l != "[two three four]" {
		t.Errorf("unexpected lines %s", l)
	}
}

type recordingPublisher struct {
	mutex    sync.Mutex
	topics   []string
	messages []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, msg interface{}) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.topics = append(p.topics, topic)
	p.messages = append(p.messages, msg.(logMsg).Message)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.messages)
}

func TestMQTTWriter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewMQTTWriter(ctx)
	buf := []byte("first")
	w.Write(buf)
	// The writer must not keep a reference to the callers buffer
	copy(buf, "XXXXX")
	p := &recordingPublisher{}
	w.SetDestination("pwm/logs", p)
	w.Enable(true)
	deadline := time.Now().Add(5 * time.Second)
	for p.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if len(p.messages) != 1 || p.messages[0] != "first" || p.topics[0] != "pwm/logs" {
		t.Errorf("unexpected messages %v on %v", p.messages, p.topics)
	}
}
