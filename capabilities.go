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
	"encoding/hex"
	"strings"
	"time"
)

// Key is a single keypad symbol from the set 0-9, A-D, '*' and '#'.
type Key byte

const (
	// KeyStar starts (or restarts) password entry.
	KeyStar Key = '*'
	// KeyHash submits the entered password.
	KeyHash Key = '#'
)

// IsDigit reports whether the key is a decimal digit.
func (k Key) IsDigit() bool {
	return k >= '0' && k <= '9'
}

// IsValid reports whether the key belongs to the 4x4 keypad symbol set.
func (k Key) IsValid() bool {
	return k.IsDigit() || (k >= 'A' && k <= 'D') || k == KeyStar || k == KeyHash
}

func (k Key) String() string {
	return string(rune(k))
}

// UID is the opaque identifier returned by a card during anticollision.
type UID []byte

// String returns the UID as upper-case hex, or an empty string for a nil UID.
func (u UID) String() string {
	return strings.ToUpper(hex.EncodeToString(u))
}

// Equal reports whether two UIDs carry the same bytes.
func (u UID) Equal(other UID) bool {
	return string(u) == string(other)
}

// KeyInput returns the keys pressed since the previous poll.
// Debouncing is the implementation's job; the controller treats every
// returned key as one press.
type KeyInput interface {
	PollKeys(ctx context.Context) ([]Key, error)
}

// CardReader returns the UID of a card present this cycle, or nil when no
// card is in the field. Errors are treated as transient by the controller.
type CardReader interface {
	PollCard(ctx context.Context) (UID, error)
}

// Annunciator performs output side effects only; it makes no decisions.
type Annunciator interface {
	// Show replaces the display contents with text.
	Show(text string) error
	// Clear blanks the display.
	Clear() error
	// SetLED drives the access LED.
	SetLED(on bool) error
	// Beep plays a buzzer pattern. Implementations may block for the
	// duration of the pattern or queue it.
	Beep(pattern BeepPattern) error
}

// Clock supplies monotonic time to the controller.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns time.Now, which carries a monotonic reading.
func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns the wall clock backed by the runtime monotonic timer.
func SystemClock() Clock {
	return systemClock{}
}

// BeepPattern describes Count on/off cycles of the buzzer.
type BeepPattern struct {
	Count int           `yaml:"count" toml:"count"`
	On    time.Duration `yaml:"on" toml:"on"`
	Off   time.Duration `yaml:"off" toml:"off"`
}

// Duration returns how long the pattern takes to play.
func (p BeepPattern) Duration() time.Duration {
	if p.Count <= 0 {
		return 0
	}
	return time.Duration(p.Count) * (p.On + p.Off)
}
