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
	"testing"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) (*model, *accesspad.FakeClock) {
	t.Helper()
	clock := accesspad.NewFakeClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	m, err := newModel(accesspad.DefaultConfig(), accesspad.UID{0xDE, 0xAD, 0xBE, 0xEF}, clock)
	require.NoError(t, err)
	m.Init()
	return m, clock
}

func press(m *model, clock *accesspad.FakeClock, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		step(m, clock)
	}
}

func step(m *model, clock *accesspad.FakeClock) {
	clock.Advance(100 * time.Millisecond)
	m.Update(tickMsg(clock.Now()))
}

func TestModel_PasswordThenCard(t *testing.T) {
	t.Parallel()
	m, clock := newTestModel(t)
	assert.Contains(t, m.View(), "Present card or")

	press(m, clock, "*12345#")
	assert.Equal(t, accesspad.StateAwaitingCard, m.ctrl.State())

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	step(m, clock)

	assert.Equal(t, accesspad.StateAccessGranted, m.ctrl.State())
	view := m.View()
	assert.Contains(t, view, "Access granted")
	assert.Contains(t, view, "granted")
	assert.Contains(t, view, "DEADBEEF")
	assert.True(t, m.panel.LED())
}

func TestModel_TapCardInIdle(t *testing.T) {
	t.Parallel()
	m, clock := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	step(m, clock)
	assert.Equal(t, accesspad.StateAccessGranted, m.ctrl.State())

	clock.Advance(tapDuration)
	assert.False(t, m.card.present())
}

func TestModel_WrongPasswordBeeps(t *testing.T) {
	t.Parallel()
	m, clock := newTestModel(t)

	press(m, clock, "*999#")
	assert.Equal(t, accesspad.StateIdle, m.ctrl.State())

	p, ok := m.beeper.sounding()
	require.True(t, ok)
	assert.Equal(t, 2, p.Count)
	assert.Contains(t, m.View(), "beep x2")
}

func TestModel_HoldCard(t *testing.T) {
	t.Parallel()
	m, clock := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	clock.Advance(time.Minute)
	assert.True(t, m.card.present())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, m.card.present())
}

func TestModel_Quit(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestKeyFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want accesspad.Key
		ok   bool
	}{
		{in: "5", want: '5', ok: true},
		{in: "*", want: accesspad.KeyStar, ok: true},
		{in: "#", want: accesspad.KeyHash, ok: true},
		{in: "b", want: 'B', ok: true},
		{in: "x", ok: false},
		{in: "ctrl+a", ok: false},
	}

	for _, tt := range tests {
		k, ok := keyFor(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, k, tt.in)
		}
	}
}
