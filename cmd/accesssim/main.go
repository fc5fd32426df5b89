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

// Command accesssim runs the access controller in a terminal. The keyboard
// stands in for the keypad and Enter taps a virtual card on the reader.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/ZaparooProject/go-accesspad/config"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	configPath := flag.String("config", "", "Configuration file; only the controller section is used")
	uidHex := flag.String("uid", "DEADBEEF", "UID of the virtual card, in hex")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(2)
		}
		cfg = loaded
	}

	uid, err := hex.DecodeString(*uidHex)
	if err != nil || len(uid) == 0 {
		_, _ = fmt.Fprintf(os.Stderr, "Invalid -uid %q\n", *uidHex)
		os.Exit(2)
	}

	m, err := newModel(&cfg.Controller, accesspad.UID(uid), accesspad.SystemClock())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to create controller: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error running simulator: %v\n", err)
		os.Exit(1)
	}
}
