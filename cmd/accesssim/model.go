// go-accesspad
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-accesspad.
//
// go-accesspad is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-accesspad is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-accesspad; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/ZaparooProject/go-accesspad/annunciator"
	"github.com/ZaparooProject/go-accesspad/display/ssd1306"
	"github.com/ZaparooProject/go-accesspad/keypad"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Characters per line and lines of a 128x32 panel with the 7x13 font.
const (
	oledCols  = 18
	oledLines = 2
	journalN  = 5
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			MarginBottom(1)

	oledStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5A5A5A")).
			Foreground(lipgloss.Color("#66CCFF")).
			Background(lipgloss.Color("#000000")).
			Width(oledCols).
			Padding(0, 1)

	ledOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF5F")).Bold(true)
	ledOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	beepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(10)
	deniedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).MarginTop(1)
)

type tickMsg time.Time

type model struct {
	ctrl   *accesspad.Controller
	keys   *keypad.Queue
	card   *virtualCard
	panel  *annunciator.Panel
	beeper *simBeeper
	clock  accesspad.Clock
	tick   time.Duration
}

func newModel(cfg *accesspad.Config, uid accesspad.UID, clock accesspad.Clock) (*model, error) {
	m := &model{
		keys:   keypad.NewQueue(),
		card:   &virtualCard{clock: clock, uid: uid},
		beeper: &simBeeper{clock: clock},
		clock:  clock,
		tick:   cfg.TickInterval,
	}

	panel, err := annunciator.NewPanel(nil, nil, m.beeper)
	if err != nil {
		return nil, err
	}
	m.panel = panel

	m.ctrl, err = accesspad.New(m.keys, m.card, m.panel,
		accesspad.WithConfig(cfg),
		accesspad.WithClock(clock))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) Init() tea.Cmd {
	m.ctrl.Start()
	return m.tickCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.ctrl.Tick(context.Background())
		return m, m.tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			m.card.tap()
		case "tab":
			m.card.toggleHeld()
		default:
			if k, ok := keyFor(msg.String()); ok {
				m.keys.Push(k)
			}
		}
	}
	return m, nil
}

// keyFor maps terminal input to keypad symbols; a-d select the letter keys.
func keyFor(s string) (accesspad.Key, bool) {
	if len(s) != 1 {
		return 0, false
	}
	k := accesspad.Key(strings.ToUpper(s)[0])
	return k, k.IsValid()
}

func (m *model) View() string {
	var b strings.Builder

	_, _ = b.WriteString(titleStyle.Render("accesspad simulator"))
	_, _ = b.WriteString("\n")

	lines := ssd1306.Wrap(m.panel.Text(), oledCols)
	for len(lines) < oledLines {
		lines = append(lines, "")
	}
	_, _ = b.WriteString(oledStyle.Render(strings.Join(lines[:oledLines], "\n")))
	_, _ = b.WriteString("\n")

	led := ledOffStyle.Render("● LED")
	if m.panel.LED() {
		led = ledOnStyle.Render("● LED")
	}
	beep := ""
	if p, ok := m.beeper.sounding(); ok {
		beep = beepStyle.Render(fmt.Sprintf("  ♪ beep x%d", p.Count))
	}
	_, _ = b.WriteString(led + beep + "\n\n")

	row := func(label, value string) {
		_, _ = b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	row("state", m.ctrl.State().String())
	row("buffer", strings.Repeat("*", len(m.ctrl.Buffer())))
	row("rfid", fmt.Sprintf("%t", m.ctrl.RFIDEnabled()))
	card := "absent"
	if m.card.present() {
		card = "present " + m.card.uid.String()
	}
	row("card", card)
	row("locked", fmt.Sprintf("%t", m.ctrl.Locked()))

	events := m.ctrl.Journal().Events()
	if len(events) > journalN {
		events = events[len(events)-journalN:]
	}
	if len(events) > 0 {
		_, _ = b.WriteString("\n")
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s  %-12s %-14s %s", ev.At.Format("15:04:05"), ev.Kind, ev.Method, ev.UID)
		if ev.Kind != accesspad.EventGranted {
			line = deniedStyle.Render(line)
		}
		_, _ = b.WriteString(line + "\n")
	}

	_, _ = b.WriteString(helpStyle.Render("0-9 a-d * #: keypad   enter: tap card   tab: hold card   q: quit"))
	return b.String()
}
