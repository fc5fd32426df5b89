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

// Package annunciator drives the user feedback hardware of an access pad: a
// text display, a status LED and a buzzer.
package annunciator

import (
	"errors"
	"fmt"
	"sync"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"periph.io/x/conn/v3/gpio"
)

// Display is a small text display.
type Display interface {
	// Clear blanks the frame buffer.
	Clear() error
	// DrawText renders text into the frame buffer, wrapping as needed.
	DrawText(text string) error
	// Flush pushes the frame buffer to the panel.
	Flush() error
}

// Beeper plays beep patterns.
type Beeper interface {
	Beep(pattern accesspad.BeepPattern) error
}

// Panel implements accesspad.Annunciator on top of a Display, an LED line and
// a Beeper. Any of them may be nil, in which case that output is skipped.
type Panel struct {
	display Display
	led     gpio.PinOut
	buzzer  Beeper
	text    string
	mu      sync.Mutex
	ledOn   bool
}

// NewPanel builds a Panel. The LED is driven low immediately.
func NewPanel(display Display, led gpio.PinOut, buzzer Beeper) (*Panel, error) {
	p := &Panel{
		display: display,
		led:     led,
		buzzer:  buzzer,
	}
	if led != nil {
		if err := led.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("failed to initialise LED %s: %w", led, err)
		}
	}
	return p, nil
}

// Show replaces the display content with text.
func (p *Panel) Show(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.text = text
	if p.display == nil {
		return nil
	}
	if err := p.display.Clear(); err != nil {
		return fmt.Errorf("display clear failed: %w", err)
	}
	if err := p.display.DrawText(text); err != nil {
		return fmt.Errorf("display draw failed: %w", err)
	}
	if err := p.display.Flush(); err != nil {
		return fmt.Errorf("display flush failed: %w", err)
	}
	return nil
}

// Clear blanks the display.
func (p *Panel) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.text = ""
	if p.display == nil {
		return nil
	}
	if err := p.display.Clear(); err != nil {
		return fmt.Errorf("display clear failed: %w", err)
	}
	if err := p.display.Flush(); err != nil {
		return fmt.Errorf("display flush failed: %w", err)
	}
	return nil
}

// SetLED drives the status LED.
func (p *Panel) SetLED(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ledOn = on
	if p.led == nil {
		return nil
	}
	if err := p.led.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("LED %s: %w", p.led, err)
	}
	return nil
}

// Beep plays pattern on the buzzer.
func (p *Panel) Beep(pattern accesspad.BeepPattern) error {
	if p.buzzer == nil {
		return nil
	}
	return p.buzzer.Beep(pattern)
}

// Text returns the last text shown.
func (p *Panel) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text
}

// LED reports the last LED state set.
func (p *Panel) LED() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledOn
}

// Close turns the LED off, blanks the display and stops the buzzer if it
// has a Close method.
func (p *Panel) Close() error {
	var errs []error
	if err := p.SetLED(false); err != nil {
		errs = append(errs, err)
	}
	if err := p.Clear(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := p.buzzer.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ accesspad.Annunciator = (*Panel)(nil)
