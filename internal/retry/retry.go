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

// Package retry provides retry loops shared by the hardware drivers
package retry

import (
	"context"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
)

// Operation is a function that can be retried.
// Returns: data, shouldRetry, error
//   - data: the result if successful
//   - shouldRetry: true if the operation should be attempted again
//   - error: a permanent error that stops retrying
type Operation[T any] func() (T, bool, error)

// Config configures retry behavior
type Config struct {
	OnRetry    func() error
	Op         string
	Device     string
	MaxRetries int
	RetryDelay time.Duration
}

// WithRetry runs operation until it succeeds, fails permanently or runs out
// of attempts. Exhaustion is reported as a transient SensorError.
func WithRetry[T any](ctx context.Context, config Config, operation Operation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(); err != nil {
				return zero, err
			}
		}

		if config.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(config.RetryDelay):
			}
		}
	}

	return zero, accesspad.NewSensorError(config.Op, config.Device,
		accesspad.ErrSensorFault, accesspad.ErrorTypeTransient)
}

// Until polls operation every interval until it stops asking for a retry or
// timeout elapses. Used for waiting on device status bits.
func Until[T any](ctx context.Context, timeout, interval time.Duration, op, device string,
	operation Operation[T],
) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return zero, accesspad.NewTimeoutError(op, device)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(interval):
		}
	}
}
