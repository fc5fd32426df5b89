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

// Package ssd1306 renders access pad messages on SSD1306 OLED panels over I2C.
package ssd1306

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"unicode/utf8"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	// DefaultAddr is the I2C address the periph SSD1306 driver talks to. Modules
	// strapped to 0x3D (SA0 high) are not supported.
	DefaultAddr = 0x3C
	// DefaultWidth and DefaultHeight match the common 128x32 module.
	DefaultWidth  = 128
	DefaultHeight = 32

	maxClockFreq = 400 * physic.KiloHertz
)

// Panel is the subset of *ssd1306.Dev the display needs.
type Panel interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Display implements annunciator.Display with a bitmap font and word
// wrapping. Text that does not fit is truncated to the last visible line.
type Display struct {
	panel  Panel
	closer i2c.BusCloser
	img    *image1bit.VerticalLSB
	face   font.Face
	name   string
	mu     sync.Mutex
}

// Option configures a Display.
type Option func(*Display)

// WithFace replaces the default 7x13 bitmap font.
func WithFace(face font.Face) Option {
	return func(d *Display) {
		d.face = face
	}
}

// New wraps an initialised panel.
func New(panel Panel, opts ...Option) *Display {
	d := &Display{
		panel: panel,
		img:   image1bit.NewVerticalLSB(panel.Bounds()),
		face:  basicfont.Face7x13,
		name:  "ssd1306",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CheckAddress reports whether addr can be opened. Zero selects DefaultAddr.
func CheckAddress(addr uint16) error {
	if addr != 0 && addr != DefaultAddr {
		return fmt.Errorf("%w: SSD1306 address 0x%02X is not supported, strap the module to 0x%02X",
			accesspad.ErrInvalidConfig, addr, DefaultAddr)
	}
	return nil
}

// Open opens busName ("" for the first bus) and initialises a panel of the
// given geometry at addr. Zero values select the defaults. host.Init must
// have been called.
func Open(busName string, addr uint16, width, height int, opts ...Option) (*Display, error) {
	if err := CheckAddress(addr); err != nil {
		return nil, err
	}
	addr = DefaultAddr
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}
	_ = bus.SetSpeed(maxClockFreq)

	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: width, H: height})
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("failed to initialise SSD1306 at 0x%02X on %s: %w", addr, bus, err)
	}

	d := New(dev, opts...)
	d.closer = bus
	d.name = fmt.Sprintf("ssd1306@%s:0x%02X", bus, addr)
	return d, nil
}

// Clear blanks the frame buffer.
func (d *Display) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.img.Pix {
		d.img.Pix[i] = 0
	}
	return nil
}

// DrawText renders text from the top left corner, wrapping on spaces.
func (d *Display) DrawText(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	bounds := d.img.Bounds()
	metrics := d.face.Metrics()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()
	if lineHeight <= 0 {
		return fmt.Errorf("%s: font has no height", d.name)
	}

	advance, ok := d.face.GlyphAdvance('M')
	if !ok || advance <= 0 {
		return fmt.Errorf("%s: font has no advance", d.name)
	}
	cols := bounds.Dx() / advance.Ceil()
	rows := bounds.Dy() / lineHeight
	if rows == 0 {
		rows = 1
	}

	lines := Wrap(text, cols)
	if len(lines) > rows {
		lines = lines[:rows]
	}

	drawer := font.Drawer{
		Dst:  d.img,
		Src:  image.NewUniform(image1bit.On),
		Face: d.face,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(bounds.Min.X, bounds.Min.Y+ascent+i*lineHeight)
		drawer.DrawString(line)
	}
	return nil
}

// Flush sends the frame buffer to the panel.
func (d *Display) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.panel.Draw(d.img.Bounds(), d.img, image.Point{}); err != nil {
		return fmt.Errorf("%s: draw failed: %w", d.name, err)
	}
	return nil
}

// Close blanks the panel and releases the bus if Open created it.
func (d *Display) Close() error {
	err := d.panel.Halt()
	if d.closer != nil {
		if cerr := d.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("%s: close failed: %w", d.name, err)
	}
	return nil
}

// String returns the device name.
func (d *Display) String() string {
	return d.name
}

// Wrap splits text into lines of at most width runes, breaking on
// spaces and hard-splitting words longer than a line.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var cur string
		for _, word := range strings.Fields(para) {
			for utf8.RuneCountInString(word) > width {
				if cur != "" {
					lines = append(lines, cur)
					cur = ""
				}
				runes := []rune(word)
				lines = append(lines, string(runes[:width]))
				word = string(runes[width:])
			}
			switch {
			case cur == "":
				cur = word
			case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) <= width:
				cur += " " + word
			default:
				lines = append(lines, cur)
				cur = word
			}
		}
		lines = append(lines, cur)
	}
	return lines
}
