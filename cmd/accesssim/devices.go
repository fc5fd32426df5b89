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
	"sync"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
)

// tapDuration is how long a tapped virtual card stays in the field.
const tapDuration = 300 * time.Millisecond

// virtualCard is a CardReader with one card that can be tapped or held.
type virtualCard struct {
	clock accesspad.Clock
	until time.Time
	uid   accesspad.UID
	mu    sync.Mutex
	held  bool
}

func (v *virtualCard) tap() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.until = v.clock.Now().Add(tapDuration)
}

func (v *virtualCard) toggleHeld() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.held = !v.held
	return v.held
}

func (v *virtualCard) present() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.held || v.clock.Now().Before(v.until)
}

func (v *virtualCard) PollCard(context.Context) (accesspad.UID, error) {
	if !v.present() {
		return nil, nil
	}
	return v.uid, nil
}

// simBeeper remembers the last pattern so the view can show it while it
// would be sounding.
type simBeeper struct {
	clock   accesspad.Clock
	until   time.Time
	pattern accesspad.BeepPattern
	mu      sync.Mutex
}

func (b *simBeeper) Beep(p accesspad.BeepPattern) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pattern = p
	b.until = b.clock.Now().Add(p.Duration())
	return nil
}

// sounding returns the pattern currently playing, if any.
func (b *simBeeper) sounding() (accesspad.BeepPattern, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pattern, b.clock.Now().Before(b.until)
}
