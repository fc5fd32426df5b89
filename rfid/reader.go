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

// Package rfid adapts card transceivers to the accesspad.CardReader contract.
package rfid

import (
	"context"
	"errors"
	"fmt"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
)

// CardType is the ATQA a card answers to a request, e.g. 0x0004 for MIFARE Classic 1K.
type CardType uint16

// Transceiver is the minimal two-step card protocol: request wakes idle
// cards in the field, anticoll selects one and returns its UID.
// Request returns accesspad.ErrNoCard when nothing answers.
type Transceiver interface {
	Request(ctx context.Context) (CardType, error)
	Anticoll(ctx context.Context) (accesspad.UID, error)
	String() string
}

// Reader polls a Transceiver once per call to PollCard.
//
// With a non-zero removal timeout the reader reports a card only when it
// arrives: a UID already reported is suppressed until the field has been
// empty for the removal timeout.
type Reader struct {
	tr             Transceiver
	clock          accesspad.Clock
	OnCardDetected func(uid accesspad.UID, cardType CardType)
	OnCardRemoved  func(uid accesspad.UID)
	state          CardState
	removalTimeout time.Duration
}

// Option configures a Reader.
type Option func(*Reader)

// WithRemovalTimeout enables arrival-only reporting.
func WithRemovalTimeout(d time.Duration) Option {
	return func(r *Reader) {
		r.removalTimeout = d
	}
}

// WithClock sets the clock used for removal detection.
func WithClock(clock accesspad.Clock) Option {
	return func(r *Reader) {
		r.clock = clock
	}
}

// NewReader creates a reader on top of tr.
func NewReader(tr Transceiver, opts ...Option) (*Reader, error) {
	if tr == nil {
		return nil, accesspad.ErrNilCapability
	}
	r := &Reader{tr: tr, clock: accesspad.SystemClock()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// State returns the presence tracking state.
func (r *Reader) State() CardState {
	return r.state
}

// PollCard implements accesspad.CardReader.
func (r *Reader) PollCard(ctx context.Context) (accesspad.UID, error) {
	uid, cardType, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	if r.removalTimeout <= 0 {
		return uid, nil
	}
	return r.track(uid, cardType), nil
}

func (r *Reader) read(ctx context.Context) (accesspad.UID, CardType, error) {
	cardType, err := r.tr.Request(ctx)
	if errors.Is(err, accesspad.ErrNoCard) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("card request failed: %w", err)
	}

	uid, err := r.tr.Anticoll(ctx)
	if errors.Is(err, accesspad.ErrNoCard) {
		// card left the field between the two steps
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("anticollision failed: %w", err)
	}
	return uid, cardType, nil
}

func (r *Reader) track(uid accesspad.UID, cardType CardType) accesspad.UID {
	now := r.clock.Now()

	if uid == nil {
		if r.state.Present && now.Sub(r.state.LastSeen) >= r.removalTimeout {
			last := r.state.LastUID
			r.state.TransitionToIdle()
			if r.OnCardRemoved != nil {
				r.OnCardRemoved(last)
			}
		}
		return nil
	}

	if r.state.Present && r.state.LastUID.Equal(uid) {
		r.state.LastSeen = now
		return nil
	}

	r.state.TransitionToDetected(uid, cardType, now)
	if r.OnCardDetected != nil {
		r.OnCardDetected(uid, cardType)
	}
	return uid
}

var _ accesspad.CardReader = (*Reader)(nil)
