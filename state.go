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

// State is the controller's current mode. Exactly one is active at a time.
type State int

const (
	// StateIdle waits for '*' or a card.
	StateIdle State = iota
	// StateEnteringPassword collects digits until '#'.
	StateEnteringPassword
	// StateAwaitingCard waits, with a deadline, for a card after a correct password.
	StateAwaitingCard
	// StateAccessGranted holds the granted display until it expires.
	StateAccessGranted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnteringPassword:
		return "entering_password"
	case StateAwaitingCard:
		return "awaiting_card"
	case StateAccessGranted:
		return "access_granted"
	default:
		return "unknown"
	}
}
