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

// Package uart detects USB serial adapters that may carry a 125 kHz card
// reader module. Importing it registers the detector with the detection
// package.
package uart

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-accesspad/detection"
	"go.bug.st/serial/enumerator"
)

// knownAdapters are USB-UART bridges commonly soldered to RDM6300 boards.
var knownAdapters = map[string]string{
	"1A86:7523": "CH340",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"067B:2303": "PL2303",
}

type detector struct {
	listPorts func() ([]*enumerator.PortDetails, error)
}

// New returns the serial card reader detector.
func New() detection.Detector {
	return &detector{listPorts: enumerator.GetDetailedPortsList}
}

func init() {
	detection.RegisterDetector(New())
}

func (*detector) Transport() string {
	return "uart"
}

func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	blocklist := opts.Blocklist
	if blocklist == nil {
		blocklist = detection.DefaultBlocklist()
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		if dev, ok := classifyPort(port, blocklist, opts); ok {
			devices = append(devices, dev)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func classifyPort(port *enumerator.PortDetails, blocklist []string, opts *detection.Options) (detection.DeviceInfo, bool) {
	if port == nil || detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	dev := detection.DeviceInfo{
		Transport:  "uart",
		Kind:       detection.KindCardReader,
		Path:       port.Name,
		Name:       port.Name,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}

	if !port.IsUSB {
		// On-board UARTs are only candidates when the user asks for everything.
		if opts.Mode != detection.Full || !isHardwareUART(port.Name) {
			return detection.DeviceInfo{}, false
		}
		return dev, true
	}

	vidpid := detection.ParseVIDPID(port.VID + ":" + port.PID)
	if detection.IsBlocked(vidpid, blocklist) {
		return detection.DeviceInfo{}, false
	}

	dev.Metadata["vid_pid"] = vidpid
	if port.SerialNumber != "" {
		dev.Metadata["serial"] = port.SerialNumber
	}
	if port.Product != "" {
		dev.Name = fmt.Sprintf("%s (%s)", port.Product, port.Name)
	}
	if chip, ok := knownAdapters[vidpid]; ok {
		dev.Confidence = detection.Medium
		dev.Metadata["chip"] = chip
	}
	return dev, true
}

func isHardwareUART(name string) bool {
	for _, prefix := range []string{"/dev/ttyS", "/dev/ttyAMA", "/dev/serial"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
