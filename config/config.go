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

// Package config loads access pad settings and hardware wiring from YAML or
// TOML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/ZaparooProject/go-accesspad/display/ssd1306"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is returned for file extensions other than .yaml,
// .yml and .toml.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// RFID drivers.
const (
	DriverMFRC522 = "mfrc522"
	DriverRDM6300 = "rdm6300"
	DriverNone    = "none"
)

// Keypad describes the matrix keypad wiring.
type Keypad struct {
	Rows     []string      `yaml:"rows" toml:"rows"`
	Cols     []string      `yaml:"cols" toml:"cols"`
	Layout   string        `yaml:"layout" toml:"layout"` // "4x4" or "4x3"
	Debounce time.Duration `yaml:"debounce" toml:"debounce"`
}

// Outputs describes the LED and buzzer lines. Empty pin names disable them.
type Outputs struct {
	LED           string `yaml:"led" toml:"led"`
	Buzzer        string `yaml:"buzzer" toml:"buzzer"`
	BlockingBeeps bool   `yaml:"blocking_beeps" toml:"blocking_beeps"`
}

// Display describes the OLED panel.
type Display struct {
	Bus     string `yaml:"bus" toml:"bus"`
	Address uint16 `yaml:"address" toml:"address"`
	Width   int    `yaml:"width" toml:"width"`
	Height  int    `yaml:"height" toml:"height"`
	// Detect probes the I2C buses for a panel instead of using Bus/Address.
	Detect   bool `yaml:"detect" toml:"detect"`
	Disabled bool `yaml:"disabled" toml:"disabled"`
}

// RFID describes the card reader.
type RFID struct {
	Driver string `yaml:"driver" toml:"driver"`

	// mfrc522
	SPIPort  string        `yaml:"spi_port" toml:"spi_port"`
	ResetPin string        `yaml:"reset_pin" toml:"reset_pin"`
	SPISpeed int64         `yaml:"spi_speed_hz" toml:"spi_speed_hz"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout"`

	// rdm6300; an empty SerialPort means auto-detect.
	SerialPort string        `yaml:"serial_port" toml:"serial_port"`
	BaudRate   int           `yaml:"baud_rate" toml:"baud_rate"`
	HoldTime   time.Duration `yaml:"hold_time" toml:"hold_time"`

	// RemovalTimeout enables arrival-only reporting for mfrc522 when positive.
	RemovalTimeout time.Duration `yaml:"removal_timeout" toml:"removal_timeout"`
}

// Hardware groups all wiring settings.
type Hardware struct {
	Keypad  Keypad  `yaml:"keypad" toml:"keypad"`
	Outputs Outputs `yaml:"outputs" toml:"outputs"`
	Display Display `yaml:"display" toml:"display"`
	RFID    RFID    `yaml:"rfid" toml:"rfid"`
}

// File is the full contents of a configuration file.
type File struct {
	Hardware   Hardware         `yaml:"hardware" toml:"hardware"`
	Controller accesspad.Config `yaml:"controller" toml:"controller"`
	Debug      bool             `yaml:"debug" toml:"debug"`
}

// Default returns the controller defaults and a Raspberry Pi wiring with an
// MFRC522 on SPI0.0 and a 128x32 SSD1306 on the first I2C bus.
func Default() *File {
	return &File{
		Controller: *accesspad.DefaultConfig(),
		Hardware: Hardware{
			Keypad: Keypad{
				Rows:     []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19"},
				Cols:     []string{"GPIO12", "GPIO16", "GPIO20", "GPIO21"},
				Layout:   "4x4",
				Debounce: 20 * time.Millisecond,
			},
			Outputs: Outputs{
				LED:    "GPIO17",
				Buzzer: "GPIO18",
			},
			Display: Display{
				Address: 0x3C,
				Width:   128,
				Height:  32,
			},
			RFID: RFID{
				Driver:   DriverMFRC522,
				SPIPort:  "SPI0.0",
				ResetPin: "GPIO25",
				SPISpeed: 1_000_000,
				Timeout:  50 * time.Millisecond,
				BaudRate: 9600,
				HoldTime: 300 * time.Millisecond,
			},
		},
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load reads path over Default, applies ACCESSPAD_* environment overrides
// and validates the result. Settings absent from the file keep their
// defaults.
func Load(path string) (*File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := f.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes data over Default without validating it.
func Parse(data []byte, format Format) (*File, error) {
	f := Default()
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), f); err != nil {
			return nil, fmt.Errorf("failed to decode TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return f, nil
}

// Write encodes f in format.
func (f *File) Write(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(f); err != nil {
			return fmt.Errorf("failed to encode TOML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ApplyEnv overrides settings from ACCESSPAD_PASSWORD, ACCESSPAD_DEBUG and
// ACCESSPAD_RFID_DRIVER.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ACCESSPAD_PASSWORD"); ok && v != "" {
		f.Controller.Password = v
		if f.Controller.MaxPasswordLength < len(v) {
			f.Controller.MaxPasswordLength = len(v)
		}
	}
	if v, ok := lookup("ACCESSPAD_DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: ACCESSPAD_DEBUG=%q", accesspad.ErrInvalidConfig, v)
		}
		f.Debug = debug
	}
	if v, ok := lookup("ACCESSPAD_RFID_DRIVER"); ok && v != "" {
		f.Hardware.RFID.Driver = strings.ToLower(v)
	}
	return nil
}

// Validate checks the controller settings and the wiring.
func (f *File) Validate() error {
	if err := f.Controller.Validate(); err != nil {
		return err
	}

	kp := f.Hardware.Keypad
	wantCols := 4
	switch kp.Layout {
	case "", "4x4":
	case "4x3":
		wantCols = 3
	default:
		return fmt.Errorf("%w: keypad layout %q", accesspad.ErrInvalidConfig, kp.Layout)
	}
	if len(kp.Rows) != 4 || len(kp.Cols) != wantCols {
		return fmt.Errorf("%w: keypad layout %s needs 4 row and %d column pins, got %d and %d",
			accesspad.ErrInvalidConfig, kp.LayoutName(), wantCols, len(kp.Rows), len(kp.Cols))
	}
	if kp.Debounce < 0 {
		return fmt.Errorf("%w: keypad debounce must not be negative", accesspad.ErrInvalidConfig)
	}

	rfid := f.Hardware.RFID
	switch rfid.Driver {
	case DriverMFRC522, DriverRDM6300, DriverNone:
	default:
		return fmt.Errorf("%w: rfid driver %q", accesspad.ErrInvalidConfig, rfid.Driver)
	}
	if rfid.RemovalTimeout < 0 || rfid.HoldTime < 0 || rfid.Timeout < 0 {
		return fmt.Errorf("%w: rfid durations must not be negative", accesspad.ErrInvalidConfig)
	}

	d := f.Hardware.Display
	if !d.Disabled && (d.Width < 0 || d.Height < 0 || d.Address > 0x7F) {
		return fmt.Errorf("%w: display geometry %dx%d at 0x%02X", accesspad.ErrInvalidConfig,
			d.Width, d.Height, d.Address)
	}
	if !d.Disabled && !d.Detect {
		if err := ssd1306.CheckAddress(d.Address); err != nil {
			return err
		}
	}
	return nil
}

// LayoutName returns the keypad layout name, defaulting to "4x4".
func (k Keypad) LayoutName() string {
	if k.Layout == "" {
		return "4x4"
	}
	return k.Layout
}
