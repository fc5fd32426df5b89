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

package rfid

import (
	"context"
	"errors"
	"testing"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransceiver struct {
	requestErr  error
	anticollErr error
	uid         accesspad.UID
	requests    int
}

func (f *fakeTransceiver) Request(_ context.Context) (CardType, error) {
	f.requests++
	if f.requestErr != nil {
		return 0, f.requestErr
	}
	if f.uid == nil {
		return 0, accesspad.ErrNoCard
	}
	return 0x0004, nil
}

func (f *fakeTransceiver) Anticoll(_ context.Context) (accesspad.UID, error) {
	if f.anticollErr != nil {
		return nil, f.anticollErr
	}
	return f.uid, nil
}

func (*fakeTransceiver) String() string { return "fake" }

var cardA = accesspad.UID{0xDE, 0xAD, 0xBE, 0xEF}

func TestNewReader_Nil(t *testing.T) {
	t.Parallel()
	_, err := NewReader(nil)
	require.ErrorIs(t, err, accesspad.ErrNilCapability)
}

func TestReader_PollCard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("EmptyField", func(t *testing.T) {
		t.Parallel()
		r, err := NewReader(&fakeTransceiver{})
		require.NoError(t, err)
		uid, err := r.PollCard(ctx)
		require.NoError(t, err)
		assert.Nil(t, uid)
	})

	t.Run("CardPresentEveryPoll", func(t *testing.T) {
		t.Parallel()
		r, err := NewReader(&fakeTransceiver{uid: cardA})
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			uid, err := r.PollCard(ctx)
			require.NoError(t, err)
			assert.Equal(t, cardA, uid)
		}
	})

	t.Run("RequestFault", func(t *testing.T) {
		t.Parallel()
		fault := accesspad.NewSensorError("request", "fake", accesspad.ErrSensorFault, accesspad.ErrorTypeTransient)
		r, err := NewReader(&fakeTransceiver{requestErr: fault})
		require.NoError(t, err)
		_, err = r.PollCard(ctx)
		require.ErrorIs(t, err, accesspad.ErrSensorFault)
		assert.True(t, accesspad.IsTransient(err))
	})

	t.Run("CardLeftDuringAnticoll", func(t *testing.T) {
		t.Parallel()
		r, err := NewReader(&fakeTransceiver{uid: cardA, anticollErr: accesspad.ErrNoCard})
		require.NoError(t, err)
		uid, err := r.PollCard(ctx)
		require.NoError(t, err)
		assert.Nil(t, uid)
	})

	t.Run("AnticollFault", func(t *testing.T) {
		t.Parallel()
		r, err := NewReader(&fakeTransceiver{uid: cardA, anticollErr: errors.New("bcc mismatch")})
		require.NoError(t, err)
		_, err = r.PollCard(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "anticollision failed")
	})
}

func TestReader_ArrivalOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := accesspad.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := &fakeTransceiver{uid: cardA}

	var detected, removed []accesspad.UID
	r, err := NewReader(tr, WithRemovalTimeout(time.Second), WithClock(clock))
	require.NoError(t, err)
	r.OnCardDetected = func(uid accesspad.UID, _ CardType) { detected = append(detected, uid) }
	r.OnCardRemoved = func(uid accesspad.UID) { removed = append(removed, uid) }

	uid, err := r.PollCard(ctx)
	require.NoError(t, err)
	assert.Equal(t, cardA, uid)
	assert.True(t, r.State().Present)

	clock.Advance(500 * time.Millisecond)
	uid, err = r.PollCard(ctx)
	require.NoError(t, err)
	assert.Nil(t, uid, "same card is not reported twice")

	// a short dropout does not count as removal
	tr.uid = nil
	clock.Advance(500 * time.Millisecond)
	uid, err = r.PollCard(ctx)
	require.NoError(t, err)
	assert.Nil(t, uid)
	assert.True(t, r.State().Present)

	tr.uid = cardA
	uid, err = r.PollCard(ctx)
	require.NoError(t, err)
	assert.Nil(t, uid)

	tr.uid = nil
	clock.Advance(time.Second)
	_, err = r.PollCard(ctx)
	require.NoError(t, err)
	assert.False(t, r.State().Present)

	tr.uid = cardA
	uid, err = r.PollCard(ctx)
	require.NoError(t, err)
	assert.Equal(t, cardA, uid, "card reported again after removal")

	assert.Len(t, detected, 2)
	assert.Len(t, removed, 1)
}

func TestReader_CardSwap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cardB := accesspad.UID{0x01, 0x02, 0x03, 0x04}
	tr := &fakeTransceiver{uid: cardA}
	r, err := NewReader(tr, WithRemovalTimeout(time.Second))
	require.NoError(t, err)

	_, err = r.PollCard(ctx)
	require.NoError(t, err)

	tr.uid = cardB
	uid, err := r.PollCard(ctx)
	require.NoError(t, err)
	assert.Equal(t, cardB, uid)
	assert.Equal(t, cardB, r.State().LastUID)
}
