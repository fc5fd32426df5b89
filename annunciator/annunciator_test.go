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
	"errors"
	"sync"
	"testing"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type mockDisplay struct {
	mock.Mock
}

func (m *mockDisplay) Clear() error {
	return m.Called().Error(0)
}

func (m *mockDisplay) DrawText(text string) error {
	return m.Called(text).Error(0)
}

func (m *mockDisplay) Flush() error {
	return m.Called().Error(0)
}

// recordingPin remembers every level driven on it.
type recordingPin struct {
	*gpiotest.Pin
	levels []gpio.Level
	rises  []time.Time
	mu     sync.Mutex
}

func newRecordingPin(name string) *recordingPin {
	return &recordingPin{Pin: &gpiotest.Pin{N: name}}
}

func (p *recordingPin) Out(l gpio.Level) error {
	p.mu.Lock()
	p.levels = append(p.levels, l)
	if l == gpio.High {
		p.rises = append(p.rises, time.Now())
	}
	p.mu.Unlock()
	return p.Pin.Out(l)
}

func (p *recordingPin) Levels() []gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]gpio.Level(nil), p.levels...)
}

func (p *recordingPin) Rises() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.rises...)
}

func (p *recordingPin) highs() int {
	n := 0
	for _, l := range p.Levels() {
		if l == gpio.High {
			n++
		}
	}
	return n
}

func TestPanel_Show(t *testing.T) {
	t.Parallel()
	display := &mockDisplay{}
	display.On("Clear").Return(nil).Once()
	display.On("DrawText", "Enter password").Return(nil).Once()
	display.On("Flush").Return(nil).Once()

	p, err := NewPanel(display, nil, nil)
	require.NoError(t, err)

	require.NoError(t, p.Show("Enter password"))
	assert.Equal(t, "Enter password", p.Text())
	display.AssertExpectations(t)
}

func TestPanel_Clear(t *testing.T) {
	t.Parallel()
	display := &mockDisplay{}
	display.On("Clear").Return(nil)
	display.On("DrawText", mock.Anything).Return(nil)
	display.On("Flush").Return(nil)

	p, err := NewPanel(display, nil, nil)
	require.NoError(t, err)
	require.NoError(t, p.Show("hello"))
	require.NoError(t, p.Clear())

	assert.Empty(t, p.Text())
	display.AssertNumberOfCalls(t, "Clear", 2)
	display.AssertNumberOfCalls(t, "Flush", 2)
	display.AssertNumberOfCalls(t, "DrawText", 1)
}

func TestPanel_DisplayErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("i2c nack")

	tests := []struct {
		setup func(*mockDisplay)
		name  string
	}{
		{
			name: "clear",
			setup: func(d *mockDisplay) {
				d.On("Clear").Return(boom)
			},
		},
		{
			name: "draw",
			setup: func(d *mockDisplay) {
				d.On("Clear").Return(nil)
				d.On("DrawText", mock.Anything).Return(boom)
			},
		},
		{
			name: "flush",
			setup: func(d *mockDisplay) {
				d.On("Clear").Return(nil)
				d.On("DrawText", mock.Anything).Return(nil)
				d.On("Flush").Return(boom)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			display := &mockDisplay{}
			tt.setup(display)
			p, err := NewPanel(display, nil, nil)
			require.NoError(t, err)

			err = p.Show("x")
			require.ErrorIs(t, err, boom)
		})
	}
}

func TestPanel_LED(t *testing.T) {
	t.Parallel()
	led := newRecordingPin("GPIO15")

	p, err := NewPanel(nil, led, nil)
	require.NoError(t, err)
	assert.Equal(t, gpio.Low, led.Read())

	require.NoError(t, p.SetLED(true))
	assert.Equal(t, gpio.High, led.Read())
	assert.True(t, p.LED())

	require.NoError(t, p.SetLED(false))
	assert.Equal(t, gpio.Low, led.Read())
	assert.False(t, p.LED())
}

func TestPanel_Headless(t *testing.T) {
	t.Parallel()
	p, err := NewPanel(nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, p.Show("x"))
	require.NoError(t, p.Clear())
	require.NoError(t, p.SetLED(true))
	require.NoError(t, p.Beep(accesspad.BeepPattern{Count: 1, On: time.Millisecond}))
	require.NoError(t, p.Close())
}

func TestPanel_CloseStopsBuzzer(t *testing.T) {
	t.Parallel()
	pin := newRecordingPin("GPIO28")
	b, err := NewBuzzer(pin)
	require.NoError(t, err)
	p, err := NewPanel(nil, nil, b)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Beep(accesspad.BeepPattern{Count: 1}), ErrBuzzerClosed)
}

func TestBuzzer_NilPin(t *testing.T) {
	t.Parallel()
	_, err := NewBuzzer(nil)
	require.ErrorIs(t, err, accesspad.ErrNilCapability)
}

func TestBuzzer_Blocking(t *testing.T) {
	t.Parallel()
	pin := newRecordingPin("GPIO28")
	b, err := NewBuzzer(pin, WithBlocking())
	require.NoError(t, err)

	pattern := accesspad.BeepPattern{Count: 3, On: 5 * time.Millisecond, Off: 5 * time.Millisecond}
	start := time.Now()
	require.NoError(t, b.Beep(pattern))
	assert.GreaterOrEqual(t, time.Since(start), pattern.Duration()-pattern.Off)

	assert.Equal(t, 3, pin.highs())
	assert.Equal(t, gpio.Low, pin.Read())
	require.NoError(t, b.Close())
}

func TestBuzzer_Queued(t *testing.T) {
	t.Parallel()
	pin := newRecordingPin("GPIO28")
	b, err := NewBuzzer(pin)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	pattern := accesspad.BeepPattern{Count: 2, On: 20 * time.Millisecond, Off: 5 * time.Millisecond}
	start := time.Now()
	require.NoError(t, b.Beep(pattern))
	assert.Less(t, time.Since(start), pattern.On, "Beep must not wait for playback")

	assert.Eventually(t, func() bool {
		return pin.highs() == 2 && pin.Read() == gpio.Low
	}, time.Second, 5*time.Millisecond)
}

func TestBuzzer_QueuedPatternsKeepGap(t *testing.T) {
	t.Parallel()
	pin := newRecordingPin("GPIO28")
	b, err := NewBuzzer(pin)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	first := accesspad.BeepPattern{Count: 1, On: 10 * time.Millisecond, Off: 60 * time.Millisecond}
	second := accesspad.BeepPattern{Count: 1, On: 10 * time.Millisecond}
	require.NoError(t, b.Beep(first))
	require.NoError(t, b.Beep(second))

	require.Eventually(t, func() bool { return pin.highs() == 2 }, time.Second, time.Millisecond)
	rises := pin.Rises()
	assert.GreaterOrEqual(t, rises[1].Sub(rises[0]), first.On+first.Off)
}

func TestBuzzer_QueueFull(t *testing.T) {
	t.Parallel()
	pin := newRecordingPin("GPIO28")
	b, err := NewBuzzer(pin, WithQueueSize(1))
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	long := accesspad.BeepPattern{Count: 1, On: time.Second}
	var busy bool
	for i := 0; i < 5; i++ {
		if errors.Is(b.Beep(long), ErrBuzzerBusy) {
			busy = true
			break
		}
	}
	assert.True(t, busy)
}

func TestBuzzer_CloseInterruptsPlayback(t *testing.T) {
	t.Parallel()
	pin := newRecordingPin("GPIO28")
	b, err := NewBuzzer(pin)
	require.NoError(t, err)

	require.NoError(t, b.Beep(accesspad.BeepPattern{Count: 1, On: time.Hour}))
	assert.Eventually(t, func() bool { return pin.Read() == gpio.High }, time.Second, time.Millisecond)

	start := time.Now()
	require.NoError(t, b.Close())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, gpio.Low, pin.Read())
	require.NoError(t, b.Close())
}

func TestBuzzer_EmptyPattern(t *testing.T) {
	t.Parallel()
	pin := newRecordingPin("GPIO28")
	b, err := NewBuzzer(pin, WithBlocking())
	require.NoError(t, err)

	require.NoError(t, b.Beep(accesspad.BeepPattern{}))
	assert.Zero(t, pin.highs())
}
