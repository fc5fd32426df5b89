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

// Option is a functional option for configuring a Controller
type Option func(*Controller) error

// WithConfig replaces the whole configuration. Options applied after it
// modify the copy.
func WithConfig(config *Config) Option {
	return func(c *Controller) error {
		if config == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidConfig)
		}
		cfg := *config
		c.config = &cfg
		return nil
	}
}

// WithPassword sets the numeric password.
func WithPassword(password string) Option {
	return func(c *Controller) error {
		c.config.Password = password
		if c.config.MaxPasswordLength < len(password) {
			c.config.MaxPasswordLength = len(password)
		}
		return nil
	}
}

// WithClock sets the time source, mainly for tests.
func WithClock(clock Clock) Option {
	return func(c *Controller) error {
		if clock == nil {
			return ErrNilCapability
		}
		c.clock = clock
		return nil
	}
}

// WithTickInterval sets the sleep between ticks in Run.
func WithTickInterval(interval time.Duration) Option {
	return func(c *Controller) error {
		c.config.TickInterval = interval
		return nil
	}
}

// WithTimeouts sets the inactivity, card wait and access display timeouts.
func WithTimeouts(inactivity, cardWait, accessDisplay time.Duration) Option {
	return func(c *Controller) error {
		c.config.InactivityTimeout = inactivity
		c.config.CardWaitTimeout = cardWait
		c.config.AccessDisplayTimeout = accessDisplay
		return nil
	}
}

// WithMessages sets the display texts.
func WithMessages(messages Messages) Option {
	return func(c *Controller) error {
		c.config.Messages = messages
		return nil
	}
}

// WithBeeps sets the buzzer patterns.
func WithBeeps(beeps Beeps) Option {
	return func(c *Controller) error {
		c.config.Beeps = beeps
		return nil
	}
}

// WithJournal shares an existing journal with the controller.
func WithJournal(journal *Journal) Option {
	return func(c *Controller) error {
		c.journal = journal
		return nil
	}
}
