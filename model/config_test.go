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

package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigurationIsValid(t *testing.T) {
	c := DefaultConfiguration()
	if err := c.Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
	for _, p := range []ProgramType{ProgramRGB, ProgramRGBFade} {
		c.Program = p
		if err := c.Validate(); err != nil {
			t.Errorf("default configuration with program %s invalid: %v", p, err)
		}
	}
	if b, found := c.ButtonByID("s1"); !found || b.Pin != (Pin{Port: 2, Pin: 1}) {
		t.Errorf("unexpected button s1: %+v", b)
	}
	if _, found := c.ButtonByID("unknown"); found {
		t.Error("unexpected button found")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *LocalConfiguration)
	}{
		{"empty platform", func(c *LocalConfiguration) { c.Platform = "" }},
		{"invalid program", func(c *LocalConfiguration) { c.Program = "blink" }},
		{"invalid pin", func(c *LocalConfiguration) { c.SoftwarePWM.Pin.Pin = 8 }},
		{"invalid port", func(c *LocalConfiguration) { c.SoftwarePWM.Pin.Port = 0 }},
		{"no high time", func(c *LocalConfiguration) { c.SoftwarePWM.HighTimeUS = 0 }},
		{"divider", func(c *LocalConfiguration) { c.SoftwarePWM.DividerExponent = 4 }},
		{"brightness", func(c *LocalConfiguration) { c.Program = ProgramRGB; c.RGB.Color.G = 17 }},
		{"fade speed", func(c *LocalConfiguration) { c.Program = ProgramRGBFade; c.RGB.FadeSpeed = 9 }},
		{"rgb pin shared", func(c *LocalConfiguration) { c.Program = ProgramRGB; c.RGB.Blue = c.RGB.Red }},
		{"button on output", func(c *LocalConfiguration) { c.Buttons[0].Pin = c.SoftwarePWM.Pin }},
		{"duplicate button", func(c *LocalConfiguration) { c.Buttons[1].ID = c.Buttons[0].ID }},
		{"missing output", func(c *LocalConfiguration) { c.Buttons[0].Output = nil }},
		{"invalid action", func(c *LocalConfiguration) { c.Buttons[1].Action = "explode" }},
	}
	for _, test := range tests {
		c := DefaultConfiguration()
		test.modify(&c)
		if err := c.Validate(); !IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", test.name, err)
		}
	}
}

func TestOutputPins(t *testing.T) {
	c := DefaultConfiguration()
	if pins := c.OutputPins(); len(pins) != 2 || pins[0] != (Pin{Port: 1, Pin: 0}) || pins[1] != (Pin{Port: 6, Pin: 6}) {
		t.Errorf("unexpected output pins %v", pins)
	}
	c.Program = ProgramRGB
	if pins := c.OutputPins(); len(pins) != 4 {
		t.Errorf("unexpected output pins %v", pins)
	}
}

func TestLoadConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{"program":"rgb-fade","rgb":{"timer":1,"red":{"port":5,"pin":0},"green":{"port":5,"pin":1},"blue":{"port":5,"pin":2},"fade_speed":8}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	c, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	if c.Program != ProgramRGBFade || c.RGB.Timer != 1 || c.RGB.FadeSpeed != 8 {
		t.Errorf("unexpected configuration %+v", c)
	}
	if c.Platform != "msp430fr2355" {
		t.Errorf("default platform not kept: %s", c.Platform)
	}
	if c.RGB.Red != (Pin{Port: 5, Pin: 0}) {
		t.Errorf("unexpected red pin %s", c.RGB.Red)
	}

	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadConfiguration(path); !IsValidation(err) {
		t.Errorf("expected validation error for bad JSON, got %v", err)
	}
	if _, err := LoadConfiguration(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
