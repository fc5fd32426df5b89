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

// Package keypad provides KeyInput implementations: a GPIO matrix keypad
// scanner and an in-memory queue.
package keypad

import (
	"context"
	"errors"
	"fmt"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Layout4x4 is the standard 4x4 membrane keypad.
var Layout4x4 = [][]accesspad.Key{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Layout4x3 is the 12-key telephone keypad.
var Layout4x3 = [][]accesspad.Key{
	{'1', '2', '3'},
	{'4', '5', '6'},
	{'7', '8', '9'},
	{'*', '0', '#'},
}

const (
	// DefaultDebounce is the settle time between the two confirming scans.
	DefaultDebounce = 20 * time.Millisecond
	// DefaultRowSettle is the delay between driving a row and reading columns.
	DefaultRowSettle = 10 * time.Microsecond
)

var errLayoutMismatch = errors.New("keypad layout does not match pin count")

// Matrix scans a row/column keypad. Rows are driven low one at a time and
// columns are read with pull-ups, so a pressed key reads Low.
//
// A key is reported once when two scans Debounce apart both see it pressed,
// and again only after it has been released.
type Matrix struct {
	layout    [][]accesspad.Key
	rows      []gpio.PinOut
	cols      []gpio.PinIn
	edges     edgeTracker
	debounce  time.Duration
	rowSettle time.Duration
}

// Option configures a Matrix.
type Option func(*Matrix) error

// WithLayout sets the key symbols, indexed [row][column].
func WithLayout(layout [][]accesspad.Key) Option {
	return func(m *Matrix) error {
		m.layout = layout
		return nil
	}
}

// WithDebounce sets the delay between the two confirming scans.
func WithDebounce(d time.Duration) Option {
	return func(m *Matrix) error {
		if d < 0 {
			return fmt.Errorf("debounce cannot be negative: %v", d)
		}
		m.debounce = d
		return nil
	}
}

// WithRowSettle sets the delay after driving a row low.
func WithRowSettle(d time.Duration) Option {
	return func(m *Matrix) error {
		m.rowSettle = d
		return nil
	}
}

// New creates a matrix scanner on already-resolved pins.
func New(rows []gpio.PinOut, cols []gpio.PinIn, opts ...Option) (*Matrix, error) {
	m := &Matrix{
		rows:      rows,
		cols:      cols,
		layout:    Layout4x4,
		debounce:  DefaultDebounce,
		rowSettle: DefaultRowSettle,
		edges:     edgeTracker{held: make(map[accesspad.Key]bool)},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	if len(m.layout) != len(rows) {
		return nil, fmt.Errorf("%w: %d layout rows, %d row pins", errLayoutMismatch, len(m.layout), len(rows))
	}
	for i, row := range m.layout {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("%w: layout row %d has %d keys, %d column pins",
				errLayoutMismatch, i, len(row), len(cols))
		}
	}

	for _, row := range rows {
		if err := row.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("failed to drive row %s: %w", row, err)
		}
	}
	for _, col := range cols {
		if err := col.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure column %s: %w", col, err)
		}
	}

	return m, nil
}

// NewFromNames resolves pins through gpioreg (e.g. "GPIO6") and creates a
// matrix scanner. host.Init must have been called.
func NewFromNames(rowNames, colNames []string, opts ...Option) (*Matrix, error) {
	rows := make([]gpio.PinOut, 0, len(rowNames))
	for _, name := range rowNames {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("%w: row pin %s", accesspad.ErrDeviceNotFound, name)
		}
		rows = append(rows, p)
	}

	cols := make([]gpio.PinIn, 0, len(colNames))
	for _, name := range colNames {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("%w: column pin %s", accesspad.ErrDeviceNotFound, name)
		}
		cols = append(cols, p)
	}

	return New(rows, cols, opts...)
}

// PollKeys implements accesspad.KeyInput.
func (m *Matrix) PollKeys(ctx context.Context) ([]accesspad.Key, error) {
	first, err := m.scan()
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return m.edges.update(nil), nil
	}

	if m.debounce > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.debounce):
		}
	}

	second, err := m.scan()
	if err != nil {
		return nil, err
	}

	return m.edges.update(intersect(first, second)), nil
}

// scan returns the keys currently closed, in row-major order.
func (m *Matrix) scan() ([]accesspad.Key, error) {
	var pressed []accesspad.Key

	for r, row := range m.rows {
		if err := row.Out(gpio.Low); err != nil {
			return nil, accesspad.NewSensorError("scan", row.String(), err, accesspad.ErrorTypeTransient)
		}
		if m.rowSettle > 0 {
			time.Sleep(m.rowSettle)
		}

		for c, col := range m.cols {
			if col.Read() == gpio.Low {
				pressed = append(pressed, m.layout[r][c])
			}
		}

		if err := row.Out(gpio.High); err != nil {
			return nil, accesspad.NewSensorError("scan", row.String(), err, accesspad.ErrorTypeTransient)
		}
	}

	return pressed, nil
}

func intersect(a, b []accesspad.Key) []accesspad.Key {
	var out []accesspad.Key
	for _, k := range a {
		for _, other := range b {
			if k == other {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// edgeTracker turns "currently held" sets into "newly pressed" lists.
type edgeTracker struct {
	held map[accesspad.Key]bool
}

func (e *edgeTracker) update(current []accesspad.Key) []accesspad.Key {
	var pressed []accesspad.Key
	now := make(map[accesspad.Key]bool, len(current))
	for _, k := range current {
		now[k] = true
		if !e.held[k] {
			pressed = append(pressed, k)
		}
	}
	e.held = now
	return pressed
}

var _ accesspad.KeyInput = (*Matrix)(nil)
