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

package annunciator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"periph.io/x/conn/v3/gpio"
)

// DefaultQueueSize is the number of patterns a queued Buzzer buffers.
const DefaultQueueSize = 4

var (
	// ErrBuzzerBusy is returned when the queue is full and a pattern was dropped.
	ErrBuzzerBusy = errors.New("buzzer queue full")
	// ErrBuzzerClosed is returned by Beep after Close.
	ErrBuzzerClosed = errors.New("buzzer closed")
)

// Buzzer plays beep patterns on an active buzzer wired to a GPIO line.
//
// By default patterns are queued and played by a background goroutine so
// Beep returns immediately. WithBlocking makes Beep play the pattern before
// returning.
type Buzzer struct {
	pin       gpio.PinOut
	queue     chan accesspad.BeepPattern
	stop      chan struct{}
	done      chan struct{}
	queueSize int
	mu        sync.Mutex
	blocking  bool
	closed    bool
}

// BuzzerOption configures a Buzzer.
type BuzzerOption func(*Buzzer)

// WithBlocking makes Beep synchronous.
func WithBlocking() BuzzerOption {
	return func(b *Buzzer) {
		b.blocking = true
	}
}

// WithQueueSize sets how many patterns may wait behind the one playing.
func WithQueueSize(n int) BuzzerOption {
	return func(b *Buzzer) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// NewBuzzer drives pin low and, unless blocking, starts the player goroutine.
func NewBuzzer(pin gpio.PinOut, opts ...BuzzerOption) (*Buzzer, error) {
	if pin == nil {
		return nil, accesspad.ErrNilCapability
	}
	b := &Buzzer{
		pin:       pin,
		queueSize: DefaultQueueSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to initialise buzzer %s: %w", pin, err)
	}

	if b.blocking {
		close(b.done)
		return b, nil
	}
	b.queue = make(chan accesspad.BeepPattern, b.queueSize)
	go b.run()
	return b, nil
}

// Beep plays or enqueues pattern. A pattern with Count <= 0 is a no-op.
func (b *Buzzer) Beep(pattern accesspad.BeepPattern) error {
	if pattern.Count <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBuzzerClosed
	}
	if b.blocking {
		return b.play(context.Background(), pattern)
	}

	select {
	case b.queue <- pattern:
		return nil
	default:
		accesspad.Debugf("buzzer %s: dropped %d-beep pattern", b.pin, pattern.Count)
		return ErrBuzzerBusy
	}
}

// Close stops the player, abandoning queued patterns, and leaves the line low.
func (b *Buzzer) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.stop)
	b.mu.Unlock()

	<-b.done
	if err := b.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to silence buzzer %s: %w", b.pin, err)
	}
	return nil
}

func (b *Buzzer) run() {
	defer close(b.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-b.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-b.stop:
			return
		case p := <-b.queue:
			err := b.play(ctx, p)
			if err == nil {
				// keep back-to-back patterns distinct
				err = sleep(ctx, p.Off)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				accesspad.Logger().Warn("buzzer playback failed", "pin", b.pin.String(), "error", err)
			}
		}
	}
}

func (b *Buzzer) play(ctx context.Context, p accesspad.BeepPattern) error {
	defer func() { _ = b.pin.Out(gpio.Low) }()

	for i := 0; i < p.Count; i++ {
		if err := b.pin.Out(gpio.High); err != nil {
			return fmt.Errorf("buzzer on: %w", err)
		}
		if err := sleep(ctx, p.On); err != nil {
			return err
		}
		if err := b.pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("buzzer off: %w", err)
		}
		if i < p.Count-1 {
			if err := sleep(ctx, p.Off); err != nil {
				return err
			}
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
