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

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
debug: true
controller:
  password: "2468"
  card_wait_timeout: 8s
  messages:
    idle: "Welcome"
  beeps:
    failure:
      count: 4
      on: 150ms
      off: 50ms
hardware:
  keypad:
    layout: 4x3
    rows: [GPIO6, GPIO7, GPIO8, GPIO9]
    cols: [GPIO2, GPIO3, GPIO4]
  rfid:
    driver: rdm6300
    serial_port: /dev/ttyUSB0
`

const sampleTOML = `
[controller]
password = "9999"
inactivity_timeout = "30s"

[hardware.display]
disabled = true

[hardware.rfid]
driver = "mfrc522"
removal_timeout = "1s"
`

func TestParse_YAML(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	assert.True(t, f.Debug)
	assert.Equal(t, "2468", f.Controller.Password)
	assert.Equal(t, 8*time.Second, f.Controller.CardWaitTimeout)
	assert.Equal(t, 10*time.Second, f.Controller.InactivityTimeout, "unset keeps default")
	assert.Equal(t, "Welcome", f.Controller.Messages.Idle)
	assert.Equal(t, "Enter password", f.Controller.Messages.EnterPassword)
	assert.Equal(t, accesspad.BeepPattern{Count: 4, On: 150 * time.Millisecond, Off: 50 * time.Millisecond},
		f.Controller.Beeps.Failure)
	assert.Equal(t, []string{"GPIO2", "GPIO3", "GPIO4"}, f.Hardware.Keypad.Cols)
	assert.Equal(t, DriverRDM6300, f.Hardware.RFID.Driver)
	assert.Equal(t, "/dev/ttyUSB0", f.Hardware.RFID.SerialPort)
	assert.Equal(t, "GPIO17", f.Hardware.Outputs.LED)
}

func TestParse_TOML(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(sampleTOML), FormatTOML)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	assert.Equal(t, "9999", f.Controller.Password)
	assert.Equal(t, 30*time.Second, f.Controller.InactivityTimeout)
	assert.True(t, f.Hardware.Display.Disabled)
	assert.Equal(t, time.Second, f.Hardware.RFID.RemovalTimeout)
	assert.Equal(t, "SPI0.0", f.Hardware.RFID.SPIPort)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("controller: [unterminated"), FormatYAML)
	require.Error(t, err)

	_, err = Parse([]byte("[controller\n"), FormatTOML)
	require.Error(t, err)

	_, err = Parse(nil, Format("json"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{path: "/etc/accesspad.yaml", want: FormatYAML},
		{path: "pad.YML", want: FormatYAML},
		{path: "pad.toml", want: FormatTOML},
		{path: "pad.json", wantErr: true},
		{path: "pad", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	good := filepath.Join(dir, "pad.toml")
	require.NoError(t, os.WriteFile(good, []byte(sampleTOML), 0o600))
	f, err := Load(good)
	require.NoError(t, err)
	assert.Equal(t, "9999", f.Controller.Password)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("controller:\n  password: \"12ab\"\n"), 0o600))
	_, err = Load(bad)
	require.ErrorIs(t, err, accesspad.ErrInvalidConfig)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"ACCESSPAD_PASSWORD":    "12345678901234567890",
		"ACCESSPAD_DEBUG":       "true",
		"ACCESSPAD_RFID_DRIVER": "RDM6300",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	f := Default()
	require.NoError(t, f.ApplyEnv(lookup))
	assert.Equal(t, "12345678901234567890", f.Controller.Password)
	assert.Equal(t, 20, f.Controller.MaxPasswordLength)
	assert.True(t, f.Debug)
	assert.Equal(t, DriverRDM6300, f.Hardware.RFID.Driver)
	require.NoError(t, f.Validate())

	f = Default()
	err := f.ApplyEnv(func(k string) (string, bool) {
		if k == "ACCESSPAD_DEBUG" {
			return "maybe", true
		}
		return "", false
	})
	require.ErrorIs(t, err, accesspad.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate func(*File)
		name   string
	}{
		{name: "bad layout", mutate: func(f *File) { f.Hardware.Keypad.Layout = "3x3" }},
		{name: "missing row", mutate: func(f *File) { f.Hardware.Keypad.Rows = f.Hardware.Keypad.Rows[:3] }},
		{name: "4x3 with four cols", mutate: func(f *File) { f.Hardware.Keypad.Layout = "4x3" }},
		{name: "negative debounce", mutate: func(f *File) { f.Hardware.Keypad.Debounce = -time.Millisecond }},
		{name: "unknown driver", mutate: func(f *File) { f.Hardware.RFID.Driver = "pn532" }},
		{name: "negative hold", mutate: func(f *File) { f.Hardware.RFID.HoldTime = -1 }},
		{name: "display address", mutate: func(f *File) { f.Hardware.Display.Address = 0x80 }},
		{name: "unsupported display address", mutate: func(f *File) { f.Hardware.Display.Address = 0x3D }},
		{name: "controller", mutate: func(f *File) { f.Controller.TickInterval = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := Default()
			tt.mutate(f)
			require.ErrorIs(t, f.Validate(), accesspad.ErrInvalidConfig)
		})
	}

	require.NoError(t, Default().Validate())

	disabled := Default()
	disabled.Hardware.Display.Address = 0x3D
	disabled.Hardware.Display.Disabled = true
	require.NoError(t, disabled.Validate())
}

func TestWrite(t *testing.T) {
	t.Parallel()

	orig := Default()
	orig.Controller.Password = "777"

	var buf bytes.Buffer
	require.NoError(t, orig.Write(&buf, FormatYAML))
	back, err := Parse(buf.Bytes(), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, orig, back)

	buf.Reset()
	require.NoError(t, orig.Write(&buf, FormatTOML))
	assert.Contains(t, buf.String(), `password = "777"`)

	require.ErrorIs(t, orig.Write(&buf, Format("ini")), ErrUnsupportedFormat)
}
