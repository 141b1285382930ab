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

package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/binkynet/LocalPWM/pkg/hal"
	"github.com/binkynet/LocalPWM/pkg/platform"
	"github.com/binkynet/LocalPWM/pkg/service"
)

const (
	refreshInterval = time.Millisecond * 500
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type Root struct {
	source Source
	logs   LogSource
	term   string
	width  int
	height int

	status service.Status
	ports  []hal.PortState
	err    error

	showLogs bool
	logView  viewport.Model
}

var _ tea.Model = Root{}

// NewRoot creates the root model.
func NewRoot(source Source, logs LogSource, term string) Root {
	return Root{
		source: source,
		logs:   logs,
		term:   term,
	}
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (r Root) Init() tea.Cmd {
	return r.refresh()
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case refreshMsg:
		r.status = msg.status
		r.ports = msg.ports
		r.err = msg.err
		if r.showLogs {
			r.logView.SetContent(strings.Join(msg.lines, "\n"))
			r.logView.GotoBottom()
		}
		cmds = append(cmds, r.tick())
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
		if r.showLogs {
			r.logView.Width = r.width
			r.logView.Height = r.logHeight()
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case "l":
			if !r.showLogs {
				return r.openLogs(), nil
			}
		case "esc":
			r.showLogs = false
		}
	}

	// Handle keyboard and mouse events in the viewport
	if r.showLogs {
		var cmd tea.Cmd
		r.logView, cmd = r.logView.Update(msg)
		cmds = append(cmds, cmd)
	}

	return r, tea.Batch(cmds...)
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (r Root) View() string {
	s := r.headerView()
	if r.showLogs {
		return s + r.logView.View()
	}
	s += lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(r.programView()),
		boxStyle.Render(r.portsView()),
	) + "\n"
	if r.err != nil {
		s += "Error: " + r.err.Error() + "\n"
	}
	s += `l - View logs
esc - Back
q - Disconnect
`
	return s
}

func (r Root) headerView() string {
	mode := "hardware"
	if r.status.Simulated {
		mode = "simulated @ " + humanize.SIWithDigits(float64(r.status.SimRate), 1, "Hz")
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("BinkyNet Local PWM"),
		fmt.Sprintf("  %s (%s)", r.status.Platform, mode),
	) + "\n"
}

// programView shows the state of the running program & buttons.
func (r Root) programView() string {
	st := r.status
	lines := []string{
		titleStyle.Render(string(st.Program)),
		fmt.Sprintf("running: %v  interrupts: %v", st.Running, st.InterruptsEnabled),
	}
	if st.Simulated {
		lines = append(lines, "ticks: "+humanize.Comma(int64(st.Ticks)))
	}
	if sw := st.Software; sw != nil {
		lines = append(lines,
			fmt.Sprintf("%s on %s  %s", sw.Pin, sw.Timer, level(sw.High)),
			fmt.Sprintf("high %d / %d ticks (%.1f%%)", sw.HighTicks, sw.PeriodTicks, sw.DutyPercent),
			"periods: "+humanize.Comma(int64(sw.Periods)),
		)
	}
	if rgb := st.RGB; rgb != nil {
		lines = append(lines,
			fmt.Sprintf("%s on %s", strings.Join(rgb.Pins[:], ","), rgb.Timer),
			fmt.Sprintf("color r/g/b: %s", rgb.Color),
			"cycles: "+humanize.Comma(int64(rgb.Cycles)),
		)
	}
	if f := st.Fade; f != nil {
		lines = append(lines, fmt.Sprintf("fade speed %d, position %d, every %s", f.Speed, f.Position, f.Interval))
	}
	for _, b := range st.Buttons {
		lines = append(lines, fmt.Sprintf("button %s (%s): %s, %d presses", b.ID, b.Pin, b.Action, b.Presses))
	}
	if st.MQTTConnected {
		lines = append(lines, "mqtt: connected")
	}
	return strings.Join(lines, "\n")
}

// portsView shows the registers of all ports, one pin per column.
func (r Root) portsView() string {
	lines := []string{titleStyle.Render("ports") + "      7 6 5 4 3 2 1 0"}
	ports := append([]hal.PortState(nil), r.ports...)
	sort.Slice(ports, func(i, j int) bool { return ports[i].Port < ports[j].Port })
	for _, p := range ports {
		for _, kind := range []platform.RegisterKind{platform.RegisterDir, platform.RegisterOut, platform.RegisterIn} {
			value := p.Registers[kind.String()]
			lines = append(lines, fmt.Sprintf("P%d %-4s %02X %s", p.Port, kind, value, bits(value)))
		}
	}
	return strings.Join(lines, "\n")
}

func (r Root) logHeight() int {
	h := r.height - lipgloss.Height(r.headerView())
	if h < 1 {
		return 1
	}
	return h
}

func (r Root) openLogs() Root {
	r.logView = viewport.New(r.width, r.logHeight())
	r.logView.YPosition = lipgloss.Height(r.headerView())
	if r.logs != nil {
		r.logView.SetContent(strings.Join(r.logs.Lines(), "\n"))
		r.logView.GotoBottom()
	}
	r.showLogs = true
	return r
}

func level(high bool) string {
	if high {
		return highStyle.Render("HIGH")
	}
	return lowStyle.Render("low")
}

func bits(value uint8) string {
	var sb strings.Builder
	for i := 7; i >= 0; i-- {
		if value&(1<<uint(i)) != 0 {
			sb.WriteString(highStyle.Render("1"))
		} else {
			sb.WriteString(lowStyle.Render("0"))
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

type refreshMsg struct {
	status service.Status
	ports  []hal.PortState
	lines  []string
	err    error
}

// refresh loads the current state.
func (r Root) refresh() tea.Cmd {
	source, logs := r.source, r.logs
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		msg := refreshMsg{status: source.Status()}
		msg.ports, msg.err = source.Ports(ctx)
		if logs != nil {
			msg.lines = logs.Lines()
		}
		return msg
	}
}

// tick reloads the state after the refresh interval.
func (r Root) tick() tea.Cmd {
	reload := r.refresh()
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return reload()
	})
}
