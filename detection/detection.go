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

// Package detection finds access pad peripherals attached to the host: I2C
// displays and USB serial card readers. Transport specific detectors live in
// sub-packages and register themselves on import.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNoDevicesFound is returned when no detector found anything.
	ErrNoDevicesFound = errors.New("no devices found")
	// ErrUnsupportedPlatform is returned by detectors that cannot run on this OS.
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	// ErrDetectionTimeout is returned when the context expires mid-scan.
	ErrDetectionTimeout = errors.New("detection timed out")
)

// Mode controls how intrusive detection is.
type Mode int

const (
	// Passive only inspects metadata (USB IDs, device nodes) without I/O.
	Passive Mode = iota
	// Safe performs single-byte reads at well known addresses.
	Safe
	// Full reads status registers to identify the controller.
	Full
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Confidence ranks how likely a DeviceInfo is the peripheral it claims to be.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

// String returns the confidence name.
func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// Kind is the role a detected device plays.
type Kind string

const (
	KindDisplay    Kind = "display"
	KindCardReader Kind = "card-reader"
)

// DeviceInfo describes a detected peripheral. Path is what the matching
// driver's Open function expects: "/dev/i2c-1:0x3C" for displays, a port
// name for serial readers.
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Kind       Kind
	Confidence Confidence
}

// Options tune a detection run.
type Options struct {
	// IgnorePaths are device paths never reported.
	IgnorePaths []string
	// Blocklist holds VID:PID pairs never reported. Nil selects DefaultBlocklist.
	Blocklist []string
	// Timeout bounds the whole run. Zero means DefaultTimeout.
	Timeout time.Duration
	Mode    Mode
}

// DefaultTimeout bounds a detection run.
const DefaultTimeout = 5 * time.Second

// DefaultOptions returns Safe mode with the default blocklist.
func DefaultOptions() Options {
	return Options{
		Mode:      Safe,
		Timeout:   DefaultTimeout,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds devices on one transport.
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Detector{}
)

// RegisterDetector makes d available to DetectAll, replacing any detector
// for the same transport.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// Detectors returns the registered detectors sorted by transport.
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Detector, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

// DetectAll runs every registered detector and returns the devices found,
// highest confidence first. Detector errors other than "nothing found" and
// "unsupported" are joined into the returned error alongside any results.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	return detectWith(ctx, Detectors(), opts)
}

// Find returns the highest confidence device of kind.
func Find(ctx context.Context, kind Kind, opts *Options) (DeviceInfo, error) {
	devices, err := DetectAll(ctx, opts)
	for _, d := range devices {
		if d.Kind == kind {
			return d, nil
		}
	}
	if err != nil {
		return DeviceInfo{}, err
	}
	return DeviceInfo{}, fmt.Errorf("%w: %s", ErrNoDevicesFound, kind)
}

func detectWith(ctx context.Context, detectors []Detector, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, d := range detectors {
		found, err := d.Detect(ctx, opts)
		devices = append(devices, found...)
		switch {
		case err == nil,
			errors.Is(err, ErrNoDevicesFound),
			errors.Is(err, ErrUnsupportedPlatform):
		default:
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})

	if len(devices) == 0 && len(errs) == 0 {
		return nil, ErrNoDevicesFound
	}
	return devices, errors.Join(errs...)
}
