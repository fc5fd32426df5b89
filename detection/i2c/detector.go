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

// Package i2c detects SSD1306-class OLED displays on Linux I2C buses.
// Importing it registers the detector with the detection package.
package i2c

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/go-accesspad/detection"
)

// DisplayAddress is the factory address of SSD1306 modules and the only one
// the panel driver can open.
const DisplayAddress = 0x3C

type busInfo struct {
	Path   string // e.g. "/dev/i2c-1"
	Number int
}

// bus reads one byte from a 7-bit address. A controller in command mode
// answers with its status register.
type bus interface {
	readByte(addr uint8) (byte, error)
	Close() error
}

type detector struct {
	findBuses func() ([]busInfo, error)
	openBus   func(path string) (bus, error)
}

// New returns the I2C display detector for this platform.
func New() detection.Detector {
	return &detector{
		findBuses: findBuses,
		openBus:   openBus,
	}
}

func init() {
	detection.RegisterDetector(New())
}

func (*detector) Transport() string {
	return "i2c"
}

func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	buses, err := d.findBuses()
	if err != nil {
		return nil, err
	}
	if len(buses) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	var devices []detection.DeviceInfo
	for _, info := range buses {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		b, err := d.openBus(info.Path)
		if err != nil {
			continue
		}
		devices = append(devices, probeBus(b, info, opts)...)
		_ = b.Close()
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func probeBus(b bus, info busInfo, opts *detection.Options) []detection.DeviceInfo {
	path := fmt.Sprintf("%s:0x%02X", info.Path, DisplayAddress)
	if detection.IsPathIgnored(path, opts.IgnorePaths) {
		return nil
	}

	dev := detection.DeviceInfo{
		Transport:  "i2c",
		Kind:       detection.KindDisplay,
		Path:       path,
		Name:       fmt.Sprintf("OLED display on %s at 0x%02X", info.Path, DisplayAddress),
		Confidence: detection.Low,
		Metadata: map[string]string{
			"bus":     info.Path,
			"address": fmt.Sprintf("0x%02X", DisplayAddress),
		},
	}

	// Passive mode generates no bus traffic.
	if opts.Mode == detection.Passive {
		return []detection.DeviceInfo{dev}
	}

	status, err := b.readByte(DisplayAddress)
	if err != nil {
		return nil
	}
	dev.Confidence = detection.Medium

	if opts.Mode == detection.Full {
		dev.Metadata["status"] = fmt.Sprintf("0x%02X", status)
		if controller := classify(status); controller != "" {
			dev.Confidence = detection.High
			dev.Metadata["controller"] = controller
		}
	}
	return []detection.DeviceInfo{dev}
}

// classify identifies the controller from the low nibble of its status byte.
func classify(status byte) string {
	switch status & 0x0F {
	case 0x03, 0x06, 0x07:
		return "SSD1306"
	case 0x08:
		return "SH1106"
	default:
		return ""
	}
}
