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
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the outcome recorded in the journal.
type EventKind string

const (
	EventGranted     EventKind = "granted"
	EventDenied      EventKind = "denied"
	EventCardTimeout EventKind = "card_timeout"
	EventAbandoned   EventKind = "abandoned"
)

// Method identifies which credentials took part in an event.
type Method string

const (
	MethodCard            Method = "card"
	MethodPassword        Method = "password"
	MethodPasswordAndCard Method = "password+card"
)

// Event is one access attempt outcome.
type Event struct {
	At     time.Time
	ID     string
	Kind   EventKind
	Method Method
	UID    UID
}

// Journal keeps the most recent access events in memory. It is safe for
// concurrent use so other goroutines can read it while the controller runs.
type Journal struct {
	events []Event
	next   int
	full   bool
	mu     sync.Mutex
}

// NewJournal creates a journal that retains up to size events. A size of
// zero disables recording.
func NewJournal(size int) *Journal {
	if size < 0 {
		size = 0
	}
	return &Journal{events: make([]Event, size)}
}

// Record stores ev, assigning an ID if it has none, and returns the stored copy.
func (j *Journal) Record(ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if len(ev.UID) > 0 {
		ev.UID = append(UID(nil), ev.UID...)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.events) == 0 {
		return ev
	}
	j.events[j.next] = ev
	j.next = (j.next + 1) % len(j.events)
	if j.next == 0 {
		j.full = true
	}
	return ev
}

// Events returns the retained events, oldest first.
func (j *Journal) Events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.full {
		return append([]Event(nil), j.events[:j.next]...)
	}
	out := make([]Event, 0, len(j.events))
	out = append(out, j.events[j.next:]...)
	return append(out, j.events[:j.next]...)
}

// Last returns the most recent event, if any.
func (j *Journal) Last() (Event, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.events) == 0 || (!j.full && j.next == 0) {
		return Event{}, false
	}
	idx := j.next - 1
	if idx < 0 {
		idx = len(j.events) - 1
	}
	return j.events[idx], true
}

// Len returns the number of retained events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.full {
		return len(j.events)
	}
	return j.next
}
