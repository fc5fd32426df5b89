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

package accesspad

import (
	"context"
	"sync"
	"time"
)

// MockKeypad is a KeyInput that returns queued key batches, one per poll.
type MockKeypad struct {
	err     error
	batches [][]Key
	polls   int
	mu      sync.Mutex
}

// NewMockKeypad creates an empty mock keypad.
func NewMockKeypad() *MockKeypad {
	return &MockKeypad{}
}

// Press queues keys to be returned together by the next poll.
func (m *MockKeypad) Press(keys ...Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]Key(nil), keys...))
}

// PressString queues each character of s as a separate poll.
func (m *MockKeypad) PressString(s string) {
	for i := 0; i < len(s); i++ {
		m.Press(Key(s[i]))
	}
}

// SetError makes every poll fail with err until cleared with nil.
func (m *MockKeypad) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Pending returns the number of queued batches.
func (m *MockKeypad) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// Polls returns how many times PollKeys was called.
func (m *MockKeypad) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// PollKeys implements KeyInput.
func (m *MockKeypad) PollKeys(_ context.Context) ([]Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.batches) == 0 {
		return nil, nil
	}
	keys := m.batches[0]
	m.batches = m.batches[1:]
	return keys, nil
}

// MockCardReader is a CardReader whose field contents are set by the test.
type MockCardReader struct {
	err   error
	uid   UID
	polls int
	mu    sync.Mutex
}

// NewMockCardReader creates a reader with an empty field.
func NewMockCardReader() *MockCardReader {
	return &MockCardReader{}
}

// Present places a card in the field.
func (m *MockCardReader) Present(uid UID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uid = append(UID(nil), uid...)
}

// Remove empties the field.
func (m *MockCardReader) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uid = nil
}

// SetError makes every poll fail with err until cleared with nil.
func (m *MockCardReader) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Polls returns how many times PollCard was called.
func (m *MockCardReader) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// PollCard implements CardReader.
func (m *MockCardReader) PollCard(_ context.Context) (UID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	if m.err != nil {
		return nil, m.err
	}
	if m.uid == nil {
		return nil, nil
	}
	return append(UID(nil), m.uid...), nil
}

// Command is one call recorded by RecordingAnnunciator.
type Command struct {
	Op      string
	Text    string
	Pattern BeepPattern
	On      bool
}

// RecordingAnnunciator is an Annunciator that records every command and
// tracks the resulting display and LED state.
type RecordingAnnunciator struct {
	err      error
	text     string
	commands []Command
	led      bool
	mu       sync.Mutex
}

// NewRecordingAnnunciator creates an annunciator with a blank display.
func NewRecordingAnnunciator() *RecordingAnnunciator {
	return &RecordingAnnunciator{}
}

// SetError makes every command fail with err after being recorded.
func (r *RecordingAnnunciator) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Show implements Annunciator.
func (r *RecordingAnnunciator) Show(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
	r.commands = append(r.commands, Command{Op: "show", Text: text})
	return r.err
}

// Clear implements Annunciator.
func (r *RecordingAnnunciator) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = ""
	r.commands = append(r.commands, Command{Op: "clear"})
	return r.err
}

// SetLED implements Annunciator.
func (r *RecordingAnnunciator) SetLED(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.led = on
	r.commands = append(r.commands, Command{Op: "led", On: on})
	return r.err
}

// Beep implements Annunciator.
func (r *RecordingAnnunciator) Beep(pattern BeepPattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, Command{Op: "beep", Pattern: pattern})
	return r.err
}

// Text returns what the display currently shows.
func (r *RecordingAnnunciator) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// LED returns the current LED state.
func (r *RecordingAnnunciator) LED() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.led
}

// Commands returns a copy of the recorded commands.
func (r *RecordingAnnunciator) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Count returns how many commands with the given op were recorded.
func (r *RecordingAnnunciator) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets recorded commands but keeps the display and LED state.
func (r *RecordingAnnunciator) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

// FakeClock is a manually advanced Clock.
type FakeClock struct {
	now time.Time
	mu  sync.Mutex
}

// NewFakeClock creates a clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now implements Clock.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
