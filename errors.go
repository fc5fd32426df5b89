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
	"errors"
	"fmt"
)

// Sensor errors
var (
	ErrSensorFault       = errors.New("sensor fault")
	ErrSensorTimeout     = errors.New("sensor timeout")
	ErrSensorNotReady    = errors.New("sensor not ready")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrFrameCorrupted    = errors.New("frame corrupted")
	ErrNoCard            = errors.New("no card in field")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNilCapability     = errors.New("capability cannot be nil")
	ErrControllerRunning = errors.New("controller is already running")
)

// ErrorType classifies a SensorError for the tick loop.
type ErrorType int

const (
	// ErrorTypePermanent errors do not go away by polling again.
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors are expected to clear on the next poll.
	ErrorTypeTransient
	// ErrorTypeTimeout errors mean the sensor did not answer in time.
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// SensorError describes a failed operation on an input or output device.
type SensorError struct {
	Err       error
	Op        string
	Device    string
	Type      ErrorType
	Retryable bool
}

func (e *SensorError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Device, e.Err)
}

func (e *SensorError) Unwrap() error {
	return e.Err
}

// NewSensorError creates a SensorError; transient and timeout errors are retryable.
func NewSensorError(op, device string, err error, errType ErrorType) *SensorError {
	return &SensorError{
		Op:        op,
		Device:    device,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error for op on device.
func NewTimeoutError(op, device string) *SensorError {
	return NewSensorError(op, device, ErrSensorTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a retryable error for a malformed frame.
func NewFrameCorruptedError(op, device string) *SensorError {
	return NewSensorError(op, device, ErrFrameCorrupted, ErrorTypeTransient)
}

// IsTransient reports whether polling again may succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *SensorError
	if errors.As(err, &se) {
		return se.Retryable
	}

	switch {
	case errors.Is(err, ErrSensorFault),
		errors.Is(err, ErrSensorTimeout),
		errors.Is(err, ErrSensorNotReady),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrNoCard):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of err.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var se *SensorError
	if errors.As(err, &se) {
		return se.Type
	}

	if errors.Is(err, ErrSensorTimeout) {
		return ErrorTypeTimeout
	}
	if IsTransient(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}
