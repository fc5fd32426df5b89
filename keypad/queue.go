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
	"sync"

	accesspad "github.com/ZaparooProject/go-accesspad"
)

// Queue is a KeyInput fed by another component, such as a terminal or a
// serial front panel. Each poll drains everything pushed since the last one.
type Queue struct {
	keys []accesspad.Key
	mu   sync.Mutex
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends keys; invalid symbols are dropped.
func (q *Queue) Push(keys ...accesspad.Key) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, k := range keys {
		if k.IsValid() {
			q.keys = append(q.keys, k)
		}
	}
}

// PollKeys implements accesspad.KeyInput.
func (q *Queue) PollKeys(_ context.Context) ([]accesspad.Key, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.keys) == 0 {
		return nil, nil
	}
	keys := q.keys
	q.keys = nil
	return keys, nil
}

var _ accesspad.KeyInput = (*Queue)(nil)
