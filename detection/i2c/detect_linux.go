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

//go:build linux

package i2c

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const (
	ioctlI2CSlave = 0x0703
	ioctlI2CFuncs = 0x0705
	i2cFuncI2C    = 0x00000001
)

type devBus struct {
	fd int
}

func openBus(path string) (bus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &devBus{fd: fd}, nil
}

func (b *devBus) readByte(addr uint8) (byte, error) {
	if err := unix.IoctlSetInt(b.fd, ioctlI2CSlave, int(addr)); err != nil {
		return 0, fmt.Errorf("failed to select address 0x%02X: %w", addr, err)
	}
	buf := make([]byte, 1)
	n, err := unix.Read(b.fd, buf)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, io.ErrUnexpectedEOF
	}
	return buf[0], nil
}

func (b *devBus) Close() error {
	return unix.Close(b.fd)
}

func findBuses() ([]busInfo, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C buses: %w", err)
	}

	buses := make([]busInfo, 0, len(matches))
	for _, path := range matches {
		var num int
		if _, err := fmt.Sscanf(filepath.Base(path), "i2c-%d", &num); err != nil {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if !supportsPlainI2C(path) {
			continue
		}
		buses = append(buses, busInfo{Path: path, Number: num})
	}
	return buses, nil
}

func supportsPlainI2C(path string) bool {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return false
	}
	defer func() { _ = unix.Close(fd) }()

	funcs, err := unix.IoctlGetInt(fd, ioctlI2CFuncs)
	if err != nil {
		return false
	}
	return funcs&i2cFuncI2C != 0
}
