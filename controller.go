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
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// faultLogInterval limits how often a repeating input fault is logged.
const faultLogInterval = 5 * time.Second

// Controller is the access-control state machine. It owns the password
// buffer, the RFID gate and every timer, and on each tick consumes keypad and
// card input and issues display, LED and buzzer commands.
//
// Thread Safety: Controller is NOT thread-safe. Tick and Run must be called
// from a single goroutine; the Journal is the only part safe to read
// concurrently.
type Controller struct {
	lastActivity time.Time
	grantedAt    time.Time
	cardDeadline time.Time

	keys    KeyInput
	cards   CardReader
	ann     Annunciator
	clock   Clock
	config  *Config
	journal *Journal

	keyFaults    *rate.Limiter
	cardFaults   *rate.Limiter
	effectFaults *rate.Limiter

	// OnStateChange is called after every state transition.
	OnStateChange func(from, to State)
	// OnAccessGranted is called when a card grants access.
	OnAccessGranted func(Event)
	// OnAccessDenied is called on a wrong password or a card wait timeout.
	OnAccessDenied func(Event)

	buffer         []byte
	transitions    uint64
	state          State
	running        atomic.Bool
	rfidEnabled    bool
	displayCleared bool
	started        bool
}

// New creates a controller driving ann from keys and cards.
func New(keys KeyInput, cards CardReader, ann Annunciator, opts ...Option) (*Controller, error) {
	if keys == nil || cards == nil || ann == nil {
		return nil, ErrNilCapability
	}

	c := &Controller{
		keys:         keys,
		cards:        cards,
		ann:          ann,
		clock:        SystemClock(),
		config:       DefaultConfig(),
		keyFaults:    rate.NewLimiter(rate.Every(faultLogInterval), 1),
		cardFaults:   rate.NewLimiter(rate.Every(faultLogInterval), 1),
		effectFaults: rate.NewLimiter(rate.Every(faultLogInterval), 1),
		rfidEnabled:  true,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	if c.journal == nil {
		c.journal = NewJournal(c.config.JournalSize)
	}

	return c, nil
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Buffer returns the digits entered so far.
func (c *Controller) Buffer() string {
	return string(c.buffer)
}

// RFIDEnabled reports whether card reads are currently acted upon.
func (c *Controller) RFIDEnabled() bool {
	return c.rfidEnabled
}

// DisplayCleared reports whether the display was blanked by a timeout.
func (c *Controller) DisplayCleared() bool {
	return c.displayCleared
}

// Locked reports whether the door is locked, i.e. access is not granted.
func (c *Controller) Locked() bool {
	return c.state != StateAccessGranted
}

// Journal returns the access journal.
func (c *Controller) Journal() *Journal {
	return c.journal
}

// Config returns a copy of the active configuration.
func (c *Controller) Config() Config {
	return *c.config
}

// Start puts the controller in Idle with the idle prompt shown, RFID
// enabled and the activity timer reset. Run calls it; Tick calls it on first use.
func (c *Controller) Start() {
	now := c.clock.Now()
	c.started = true
	c.buffer = c.buffer[:0]
	c.rfidEnabled = true
	c.displayCleared = false
	c.lastActivity = now
	c.grantedAt = time.Time{}
	c.cardDeadline = time.Time{}
	c.setState(StateIdle)

	c.show(c.config.Messages.Idle)
	c.setLED(false)
}

// Run ticks the controller every TickInterval until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrControllerRunning
	}
	defer c.running.Store(false)

	c.Start()
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("controller stopped: %w", ctx.Err())
		default:
		}

		c.Tick(ctx)

		select {
		case <-ctx.Done():
			return fmt.Errorf("controller stopped: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Tick runs one iteration: inactivity check, granted-window check, keypad
// events in arrival order, then the card poll. A tick in which a key caused
// any transition does not act on the card reader, even when the keys lead back
// to the state the tick began in.
func (c *Controller) Tick(ctx context.Context) {
	if !c.started {
		c.Start()
	}

	now := c.clock.Now()
	keys := c.pollKeys(ctx)

	c.checkInactivity(now)
	c.checkGrantExpiry(now)

	before := c.transitions
	for _, k := range keys {
		c.handleKey(now, k)
	}
	if c.transitions != before {
		return
	}

	switch c.state {
	case StateIdle:
		if c.rfidEnabled {
			if uid := c.readCard(ctx); uid != nil {
				c.touch(now)
				c.grant(now, uid, MethodCard)
			}
		}
	case StateAwaitingCard:
		if !now.Before(c.cardDeadline) {
			c.cardTimeout(now)
			return
		}
		if uid := c.readCard(ctx); uid != nil {
			c.touch(now)
			c.grant(now, uid, MethodPasswordAndCard)
		}
	case StateEnteringPassword, StateAccessGranted:
	}
}

func (c *Controller) pollKeys(ctx context.Context) []Key {
	keys, err := c.keys.PollKeys(ctx)
	if err != nil {
		if c.keyFaults.Allow() {
			logger().Warn("keypad poll failed", faultAttrs(err)...)
		}
		return nil
	}

	valid := keys[:0:0]
	for _, k := range keys {
		if k.IsValid() {
			valid = append(valid, k)
		} else {
			debugf("ignoring unknown key %q", byte(k))
		}
	}
	return valid
}

// readCard treats every reader error as "no card this tick".
func (c *Controller) readCard(ctx context.Context) UID {
	uid, err := c.cards.PollCard(ctx)
	if err != nil {
		if c.cardFaults.Allow() {
			logger().Warn("card read failed", faultAttrs(err)...)
		}
		return nil
	}
	if len(uid) == 0 {
		return nil
	}
	return uid
}

func (c *Controller) checkInactivity(now time.Time) {
	if c.displayCleared || now.Sub(c.lastActivity) <= c.config.InactivityTimeout {
		return
	}

	switch c.state {
	case StateAccessGranted, StateAwaitingCard:
		// both have their own deadline
		return
	case StateEnteringPassword:
		debugln("password entry abandoned")
		c.buffer = c.buffer[:0]
		c.rfidEnabled = true
		c.setState(StateIdle)
		c.record(now, EventAbandoned, MethodPassword, nil)
	case StateIdle:
	}

	debugf("no activity for %v, blanking display", c.config.InactivityTimeout)
	c.blank()
}

func (c *Controller) checkGrantExpiry(now time.Time) {
	if c.state != StateAccessGranted || now.Sub(c.grantedAt) < c.config.AccessDisplayTimeout {
		return
	}

	debugln("access window elapsed")
	c.blank()
	c.rfidEnabled = true
	c.setState(StateIdle)
}

// touch records activity and restores the idle prompt after a blank.
func (c *Controller) touch(now time.Time) {
	c.lastActivity = now
	if c.displayCleared {
		c.displayCleared = false
		c.show(c.config.Messages.Idle)
	}
}

func (c *Controller) handleKey(now time.Time, k Key) {
	debugf("key pressed: %s", k)
	c.touch(now)

	switch c.state {
	case StateIdle:
		if k == KeyStar {
			c.beginEntry()
		}
	case StateEnteringPassword:
		switch {
		case k == KeyStar:
			c.beginEntry()
		case k.IsDigit():
			c.appendDigit(k)
		case k == KeyHash:
			c.submit(now)
		}
	case StateAwaitingCard, StateAccessGranted:
	}
}

func (c *Controller) beginEntry() {
	c.buffer = c.buffer[:0]
	c.rfidEnabled = false
	c.setState(StateEnteringPassword)
	c.show(c.config.Messages.EnterPassword)
}

func (c *Controller) appendDigit(k Key) {
	if len(c.buffer) >= c.config.MaxPasswordLength {
		debugf("password buffer full (%d digits), dropping %s", len(c.buffer), k)
		return
	}
	c.buffer = append(c.buffer, byte(k))
	c.show(c.config.Messages.PasswordPrefix + strings.Repeat("*", len(c.buffer)))
}

func (c *Controller) submit(now time.Time) {
	c.show(c.config.Messages.Verifying)

	match := subtle.ConstantTimeCompare(c.buffer, []byte(c.config.Password)) == 1
	c.buffer = c.buffer[:0]
	c.rfidEnabled = true

	if match {
		c.show(c.config.Messages.PresentCard)
		c.beep(c.config.Beeps.Accepted)
		c.cardDeadline = now.Add(c.config.CardWaitTimeout)
		c.setState(StateAwaitingCard)
		return
	}

	c.show(c.config.Messages.WrongPassword)
	c.beep(c.config.Beeps.Failure)
	c.setLED(false)
	c.setState(StateIdle)
	c.deny(c.record(now, EventDenied, MethodPassword, nil))
}

func (c *Controller) cardTimeout(now time.Time) {
	c.show(c.config.Messages.CardNotFound)
	c.beep(c.config.Beeps.Failure)
	c.rfidEnabled = true
	c.setState(StateIdle)
	c.deny(c.record(now, EventCardTimeout, MethodPasswordAndCard, nil))
}

func (c *Controller) grant(now time.Time, uid UID, method Method) {
	debugf("access granted to %s via %s", uid, method)
	c.show(c.config.Messages.AccessGranted)
	c.beep(c.config.Beeps.Granted)
	c.setLED(true)
	c.grantedAt = now
	c.rfidEnabled = false
	c.setState(StateAccessGranted)

	ev := c.record(now, EventGranted, method, uid)
	if c.OnAccessGranted != nil {
		c.OnAccessGranted(ev)
	}
}

func (c *Controller) deny(ev Event) {
	if c.OnAccessDenied != nil {
		c.OnAccessDenied(ev)
	}
}

func (c *Controller) record(now time.Time, kind EventKind, method Method, uid UID) Event {
	return c.journal.Record(Event{At: now, Kind: kind, Method: method, UID: uid})
}

func (c *Controller) setState(to State) {
	from := c.state
	c.state = to
	if from != to {
		c.transitions++
		debugf("state %s -> %s", from, to)
		if c.OnStateChange != nil {
			c.OnStateChange(from, to)
		}
	}
}

func (c *Controller) blank() {
	c.clear()
	c.setLED(false)
	c.displayCleared = true
}

func (c *Controller) show(text string) {
	c.effectError("show", c.ann.Show(text))
}

func (c *Controller) clear() {
	c.effectError("clear", c.ann.Clear())
}

func (c *Controller) setLED(on bool) {
	c.effectError("led", c.ann.SetLED(on))
}

func (c *Controller) beep(p BeepPattern) {
	if p.Count <= 0 {
		return
	}
	c.effectError("beep", c.ann.Beep(p))
}

func faultAttrs(err error) []any {
	return []any{"error", err, "type", GetErrorType(err).String(), "transient", IsTransient(err)}
}

func (c *Controller) effectError(op string, err error) {
	if err != nil && c.effectFaults.Allow() {
		logger().Warn("annunciator command failed", "op", op, "error", err)
	}
}
