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

/*
Package accesspad implements a keypad and RFID access controller for small
embedded boards.

The Controller is a tick-driven state machine. Every tick it polls a KeyInput
and, when the state allows it, a CardReader, then issues display, LED and
buzzer commands to an Annunciator. The hardware drivers live in sub-packages:

  - keypad: GPIO matrix keypad scanning with debounce
  - rfid, rfid/mfrc522, rfid/rdm6300: card readers over SPI or UART
  - annunciator, display/ssd1306: LED, buzzer and OLED output
  - detection: discovery of I2C displays and USB serial readers
  - config: YAML/TOML configuration files

States:

	Idle --'*'--> EnteringPassword --'#' ok--> AwaitingCard --card--> AccessGranted
	Idle --card--> AccessGranted
	EnteringPassword --'#' wrong--> Idle
	AwaitingCard --5s, no card--> Idle
	AccessGranted --10s--> Idle

Deadlines are measured on the Clock, never by counting ticks, so tick jitter
does not change when a state expires. Sensor faults are logged and absorbed at
the tick boundary; the controller never leaves its loop because of one.

Basic Usage:

	ctrl, err := accesspad.New(keys, reader, panel,
	    accesspad.WithPassword("2468"),
	)
	if err != nil {
	    log.Fatal(err)
	}
	ctrl.OnAccessGranted = func(ev accesspad.Event) {
	    log.Printf("granted to %s via %s", ev.UID, ev.Method)
	}
	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    log.Fatal(err)
	}

Thread Safety: Controller is not safe for concurrent use. Journal is.
*/
package accesspad
