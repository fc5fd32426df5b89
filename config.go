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
	"fmt"
	"time"
)

// Messages holds the text shown on the display for each controller event.
type Messages struct {
	Idle           string `yaml:"idle" toml:"idle"`
	EnterPassword  string `yaml:"enter_password" toml:"enter_password"`
	PasswordPrefix string `yaml:"password_prefix" toml:"password_prefix"`
	Verifying      string `yaml:"verifying" toml:"verifying"`
	PresentCard    string `yaml:"present_card" toml:"present_card"`
	WrongPassword  string `yaml:"wrong_password" toml:"wrong_password"`
	CardNotFound   string `yaml:"card_not_found" toml:"card_not_found"`
	AccessGranted  string `yaml:"access_granted" toml:"access_granted"`
}

// DefaultMessages returns the English prompt set.
func DefaultMessages() Messages {
	return Messages{
		Idle:           "Present card or enter password",
		EnterPassword:  "Enter password",
		PasswordPrefix: "Password: ",
		Verifying:      "Verifying...",
		PresentCard:    "Password OK, present card",
		WrongPassword:  "Wrong password",
		CardNotFound:   "Card not detected",
		AccessGranted:  "Access granted",
	}
}

// Beeps holds the buzzer pattern for each outcome.
type Beeps struct {
	Granted  BeepPattern `yaml:"granted" toml:"granted"`
	Accepted BeepPattern `yaml:"accepted" toml:"accepted"`
	Failure  BeepPattern `yaml:"failure" toml:"failure"`
}

// DefaultBeeps returns three short beeps on grant, three shorter beeps when
// the password is accepted and two long beeps on failure.
func DefaultBeeps() Beeps {
	return Beeps{
		Granted:  BeepPattern{Count: 3, On: 100 * time.Millisecond, Off: 100 * time.Millisecond},
		Accepted: BeepPattern{Count: 3, On: 50 * time.Millisecond, Off: 50 * time.Millisecond},
		Failure:  BeepPattern{Count: 2, On: 300 * time.Millisecond, Off: 300 * time.Millisecond},
	}
}

// Config contains the controller policy.
type Config struct {
	Messages Messages `yaml:"messages" toml:"messages"`
	Beeps    Beeps    `yaml:"beeps" toml:"beeps"`
	Password string   `yaml:"password" toml:"password"`
	// TickInterval is the sleep between two iterations of Run.
	TickInterval time.Duration `yaml:"tick_interval" toml:"tick_interval"`
	// InactivityTimeout blanks the display after no key or card activity.
	InactivityTimeout time.Duration `yaml:"inactivity_timeout" toml:"inactivity_timeout"`
	// CardWaitTimeout bounds the wait for a card after a correct password.
	CardWaitTimeout time.Duration `yaml:"card_wait_timeout" toml:"card_wait_timeout"`
	// AccessDisplayTimeout is how long the granted state is held.
	AccessDisplayTimeout time.Duration `yaml:"access_display_timeout" toml:"access_display_timeout"`
	// MaxPasswordLength caps the entry buffer; further digits are dropped.
	MaxPasswordLength int `yaml:"max_password_length" toml:"max_password_length"`
	// JournalSize is the number of access events retained in memory.
	JournalSize int `yaml:"journal_size" toml:"journal_size"`
}

// DefaultConfig returns the factory configuration.
func DefaultConfig() *Config {
	return &Config{
		Password:             "12345",
		TickInterval:         100 * time.Millisecond,
		InactivityTimeout:    10 * time.Second,
		CardWaitTimeout:      5 * time.Second,
		AccessDisplayTimeout: 10 * time.Second,
		MaxPasswordLength:    16,
		JournalSize:          64,
		Messages:             DefaultMessages(),
		Beeps:                DefaultBeeps(),
	}
}

// Validate checks that the configuration can drive a controller.
func (c *Config) Validate() error {
	if c.Password == "" {
		return fmt.Errorf("%w: password is empty", ErrInvalidConfig)
	}
	for _, r := range c.Password {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: password must contain only digits", ErrInvalidConfig)
		}
	}
	if c.MaxPasswordLength < len(c.Password) {
		return fmt.Errorf("%w: max password length %d is shorter than the password",
			ErrInvalidConfig, c.MaxPasswordLength)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"tick interval", c.TickInterval},
		{"inactivity timeout", c.InactivityTimeout},
		{"card wait timeout", c.CardWaitTimeout},
		{"access display timeout", c.AccessDisplayTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidConfig, d.name, d.value)
		}
	}

	if c.JournalSize < 0 {
		return fmt.Errorf("%w: journal size cannot be negative", ErrInvalidConfig)
	}
	return nil
}
