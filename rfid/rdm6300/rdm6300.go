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

// Package rdm6300 reads 125 kHz EM4100 cards from RDM6300-style modules that
// stream ASCII frames over a UART.
//
// A frame is STX, ten hex digits of data (one version byte and a four byte
// tag number), two hex digits of XOR checksum, then ETX. The module repeats
// the frame for as long as the card stays in the field.
package rdm6300

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"go.bug.st/serial"
)

const (
	stx = 0x02
	etx = 0x03

	frameLen = 14
	dataLen  = 5

	// DefaultBaudRate is the fixed rate of RDM6300 modules.
	DefaultBaudRate = 9600
	// DefaultHoldTime is how long a card is reported present after its last frame.
	DefaultHoldTime = 300 * time.Millisecond
	// DefaultReadTimeout bounds a single port read so PollCard never blocks a tick.
	DefaultReadTimeout = 10 * time.Millisecond
)

// Reader is a CardReader for a UART card module.
type Reader struct {
	port     io.ReadCloser
	clock    accesspad.Clock
	lastSeen time.Time
	name     string
	buf      []byte
	lastUID  accesspad.UID
	hold     time.Duration
	mu       sync.Mutex
}

// Option configures a Reader.
type Option func(*Reader)

// WithHoldTime sets how long a card stays present after its last valid frame.
func WithHoldTime(d time.Duration) Option {
	return func(r *Reader) {
		r.hold = d
	}
}

// WithClock replaces the clock used for the hold time.
func WithClock(clock accesspad.Clock) Option {
	return func(r *Reader) {
		r.clock = clock
	}
}

// WithName sets the device name used in errors.
func WithName(name string) Option {
	return func(r *Reader) {
		r.name = name
	}
}

// New wraps an already open port. Reads must return (0, nil) or a timeout
// error when no data is pending.
func New(port io.ReadCloser, opts ...Option) (*Reader, error) {
	if port == nil {
		return nil, accesspad.ErrNilCapability
	}
	r := &Reader{
		port:  port,
		clock: accesspad.SystemClock(),
		hold:  DefaultHoldTime,
		name:  "rdm6300",
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.clock == nil {
		return nil, accesspad.ErrNilCapability
	}
	return r, nil
}

// Open opens the named serial port at baud (0 means DefaultBaudRate).
func Open(portName string, baud int, opts ...Option) (*Reader, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}
	_ = port.ResetInputBuffer()

	opts = append([]Option{WithName(portName)}, opts...)
	return New(port, opts...)
}

// PollCard drains pending bytes and returns the UID of the card in the field,
// or nil when no valid frame arrived within the hold time. A frame with a bad
// checksum is dropped and reported as a transient error.
func (r *Reader) PollCard(ctx context.Context) (accesspad.UID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fill(); err != nil {
		return nil, err
	}

	var frameErr error
	for {
		uid, ok, err := r.nextFrame()
		if err != nil {
			frameErr = err
			continue
		}
		if !ok {
			break
		}
		r.lastUID = uid
		r.lastSeen = r.clock.Now()
	}

	if r.lastUID != nil && r.clock.Now().Sub(r.lastSeen) >= r.hold {
		r.lastUID = nil
	}
	if frameErr != nil && r.lastUID == nil {
		return nil, frameErr
	}
	if r.lastUID == nil {
		return nil, nil
	}
	return append(accesspad.UID(nil), r.lastUID...), nil
}

// Close closes the port.
func (r *Reader) Close() error {
	if err := r.port.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", r.name, err)
	}
	return nil
}

// String returns the device name.
func (r *Reader) String() string {
	return r.name
}

func (r *Reader) fill() error {
	chunk := make([]byte, 64)
	for {
		n, err := r.port.Read(chunk)
		r.buf = append(r.buf, chunk[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return accesspad.NewSensorError("read", r.name, err, accesspad.ErrorTypeTransient)
		}
		if n < len(chunk) {
			return nil
		}
	}
}

// nextFrame consumes one frame from the buffer. ok is false when no complete
// frame is buffered.
func (r *Reader) nextFrame() (accesspad.UID, bool, error) {
	start := bytes.IndexByte(r.buf, stx)
	if start < 0 {
		r.buf = r.buf[:0]
		return nil, false, nil
	}
	r.buf = r.buf[start:]
	if len(r.buf) < frameLen {
		return nil, false, nil
	}

	frame := r.buf[:frameLen]
	if frame[frameLen-1] != etx {
		// Resync on the next STX.
		r.buf = r.buf[1:]
		return nil, false, accesspad.NewFrameCorruptedError("frame", r.name)
	}
	r.buf = r.buf[frameLen:]

	uid, err := decodeFrame(frame)
	if err != nil {
		return nil, false, accesspad.NewSensorError("frame", r.name, err, accesspad.ErrorTypeTransient)
	}
	return uid, true, nil
}

func decodeFrame(frame []byte) (accesspad.UID, error) {
	raw := make([]byte, dataLen+1)
	if _, err := hex.Decode(raw, frame[1:frameLen-1]); err != nil {
		return nil, fmt.Errorf("%w: %v", accesspad.ErrFrameCorrupted, err)
	}

	var sum byte
	for _, b := range raw[:dataLen] {
		sum ^= b
	}
	if sum != raw[dataLen] {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", accesspad.ErrChecksumMismatch, raw[dataLen], sum)
	}
	return accesspad.UID(raw[:dataLen]), nil
}

var _ accesspad.CardReader = (*Reader)(nil)
