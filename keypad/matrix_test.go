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

package keypad

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// fakeMatrix wires gpiotest row pins to column pins whose level depends on
// which keys are held and which row is driven low.
type fakeMatrix struct {
	rows []*gpiotest.Pin
	cols []*colPin
	held map[[2]int]bool
	// bounce, when set, is consulted once per column read to fake contact chatter.
	bounce func(r, c int) bool
	mu     sync.Mutex
}

type colPin struct {
	*gpiotest.Pin
	m   *fakeMatrix
	col int
}

func (p *colPin) Read() gpio.Level {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	for r, row := range p.m.rows {
		if row.Read() != gpio.Low || !p.m.held[[2]int{r, p.col}] {
			continue
		}
		if p.m.bounce != nil && p.m.bounce(r, p.col) {
			continue
		}
		return gpio.Low
	}
	return gpio.High
}

func newFakeMatrix(nRows, nCols int) *fakeMatrix {
	m := &fakeMatrix{held: make(map[[2]int]bool)}
	for r := 0; r < nRows; r++ {
		m.rows = append(m.rows, &gpiotest.Pin{N: fmt.Sprintf("ROW%d", r), Num: r})
	}
	for c := 0; c < nCols; c++ {
		m.cols = append(m.cols, &colPin{Pin: &gpiotest.Pin{N: fmt.Sprintf("COL%d", c), Num: 10 + c}, m: m, col: c})
	}
	return m
}

func (m *fakeMatrix) press(r, c int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[[2]int{r, c}] = true
}

func (m *fakeMatrix) release(r, c int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, [2]int{r, c})
}

func (m *fakeMatrix) pins() ([]gpio.PinOut, []gpio.PinIn) {
	rows := make([]gpio.PinOut, len(m.rows))
	for i, p := range m.rows {
		rows[i] = p
	}
	cols := make([]gpio.PinIn, len(m.cols))
	for i, p := range m.cols {
		cols[i] = p
	}
	return rows, cols
}

func newTestMatrix(t *testing.T, fm *fakeMatrix, opts ...Option) *Matrix {
	t.Helper()
	rows, cols := fm.pins()
	opts = append([]Option{WithDebounce(time.Millisecond), WithRowSettle(0)}, opts...)
	m, err := New(rows, cols, opts...)
	require.NoError(t, err)
	return m
}

func TestNew_ConfiguresPins(t *testing.T) {
	t.Parallel()
	fm := newFakeMatrix(4, 4)
	newTestMatrix(t, fm)

	for _, row := range fm.rows {
		assert.Equal(t, gpio.High, row.Read(), "rows idle high")
	}
	for _, col := range fm.cols {
		assert.Equal(t, gpio.PullUp, col.Pin.P)
	}
}

func TestNew_LayoutMismatch(t *testing.T) {
	t.Parallel()
	fm := newFakeMatrix(4, 4)
	rows, cols := fm.pins()

	_, err := New(rows, cols, WithLayout(Layout4x3))
	require.ErrorIs(t, err, errLayoutMismatch)

	_, err = New(rows[:3], cols, WithLayout(Layout4x4))
	require.ErrorIs(t, err, errLayoutMismatch)

	_, err = New(rows, cols, WithDebounce(-time.Second))
	require.Error(t, err)
}

func TestMatrix_ReportsPressOnce(t *testing.T) {
	t.Parallel()
	fm := newFakeMatrix(4, 4)
	m := newTestMatrix(t, fm)
	ctx := context.Background()

	keys, err := m.PollKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	fm.press(3, 0) // '*'
	keys, err = m.PollKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []accesspad.Key{'*'}, keys)

	keys, err = m.PollKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys, "held key is not repeated")

	fm.release(3, 0)
	_, err = m.PollKeys(ctx)
	require.NoError(t, err)

	fm.press(3, 0)
	keys, err = m.PollKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []accesspad.Key{'*'}, keys, "press after release is reported again")

	for _, row := range fm.rows {
		assert.Equal(t, gpio.High, row.Read(), "rows restored high after scan")
	}
}

func TestMatrix_MultipleKeysRowMajor(t *testing.T) {
	t.Parallel()
	fm := newFakeMatrix(4, 4)
	m := newTestMatrix(t, fm)

	fm.press(2, 1) // '8'
	fm.press(0, 3) // 'A'
	keys, err := m.PollKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []accesspad.Key{'A', '8'}, keys)
}

func TestMatrix_BounceRejected(t *testing.T) {
	t.Parallel()
	fm := newFakeMatrix(4, 4)
	reads := 0
	fm.bounce = func(_, _ int) bool {
		reads++
		return reads > 1 // seen on the first scan only
	}
	m := newTestMatrix(t, fm)

	fm.press(1, 1) // '5'
	keys, err := m.PollKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMatrix_ContextCancelledDuringDebounce(t *testing.T) {
	t.Parallel()
	fm := newFakeMatrix(4, 4)
	m := newTestMatrix(t, fm, WithDebounce(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fm.press(0, 0)
	_, err := m.PollKeys(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestQueue(t *testing.T) {
	t.Parallel()
	q := NewQueue()
	q.Push('1', 'x', '#')

	keys, err := q.PollKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []accesspad.Key{'1', '#'}, keys)

	keys, err = q.PollKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}
