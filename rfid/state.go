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

package rfid

import (
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
)

// CardState tracks the card currently in the field.
type CardState struct {
	ArrivedAt time.Time
	LastSeen  time.Time
	LastUID   accesspad.UID
	LastType  CardType
	Present   bool
}

// TransitionToDetected records a newly arrived (or swapped) card.
func (cs *CardState) TransitionToDetected(uid accesspad.UID, cardType CardType, now time.Time) {
	cs.Present = true
	cs.LastUID = append(accesspad.UID(nil), uid...)
	cs.LastType = cardType
	cs.ArrivedAt = now
	cs.LastSeen = now
}

// TransitionToIdle forgets the card.
func (cs *CardState) TransitionToIdle() {
	cs.Present = false
	cs.LastUID = nil
	cs.LastType = 0
	cs.ArrivedAt = time.Time{}
	cs.LastSeen = time.Time{}
}
