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

// Package mfrc522 drives an NXP MFRC522 card reader over SPI. Only the two
// steps needed to identify a card are implemented: REQA and cascade level 1
// anticollision.
package mfrc522

import (
	"context"
	"errors"
	"fmt"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/ZaparooProject/go-accesspad/internal/retry"
	"github.com/ZaparooProject/go-accesspad/rfid"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// Registers.
const (
	regCommand    = 0x01
	regComIEn     = 0x02
	regComIrq     = 0x04
	regError      = 0x06
	regFIFOData   = 0x09
	regFIFOLevel  = 0x0A
	regControl    = 0x0C
	regBitFraming = 0x0D
	regMode       = 0x11
	regTxControl  = 0x14
	regTxASK      = 0x15
	regTMode      = 0x2A
	regTPrescaler = 0x2B
	regTReloadH   = 0x2C
	regTReloadL   = 0x2D
	regVersion    = 0x37
)

// Commands and flags.
const (
	cmdIdle       = 0x00
	cmdTransceive = 0x0C
	cmdSoftReset  = 0x0F

	powerDown   = 0x10
	startSend   = 0x80
	flushBuffer = 0x80

	irqTimer = 0x01
	irqIdle  = 0x10
	irqRx    = 0x20

	// BufferOvfl | ParityErr | ProtocolErr | CollErr
	errMask = 0x1B

	piccReqIdle   = 0x26
	piccAnticoll1 = 0x93
	nvbAnticoll   = 0x20
)

const (
	// DefaultSpeed is a safe SPI clock for breakout boards with long wires.
	DefaultSpeed = 1 * physic.MegaHertz
	// DefaultTimeout bounds one transceive, including the chip's own 25ms timer.
	DefaultTimeout = 50 * time.Millisecond
)

// ErrCollision is returned when two cards answered the anticollision loop.
var ErrCollision = errors.New("card collision")

// Bus is the part of spi.Conn the driver needs.
type Bus interface {
	Tx(w, r []byte) error
}

// Dev is an MFRC522 transceiver.
type Dev struct {
	bus     Bus
	reset   gpio.PinOut
	closer  spi.PortCloser
	name    string
	timeout time.Duration
	version byte
}

// Option configures a Dev.
type Option func(*Dev)

// WithTimeout sets the per-transceive timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dev) {
		d.timeout = timeout
	}
}

// WithName sets the name used in errors and logs.
func WithName(name string) Option {
	return func(d *Dev) {
		d.name = name
	}
}

// New initialises the chip behind bus. reset may be nil when the RST line is
// tied high.
func New(ctx context.Context, bus Bus, reset gpio.PinOut, opts ...Option) (*Dev, error) {
	if bus == nil {
		return nil, accesspad.ErrNilCapability
	}

	d := &Dev{
		bus:     bus,
		reset:   reset,
		name:    "mfrc522",
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.Init(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Open connects to the SPI port (e.g. "SPI0.0", or "" for the first one) and
// optional reset pin by name. host.Init must have been called.
func Open(ctx context.Context, port, resetPin string, speed physic.Frequency, opts ...Option) (*Dev, error) {
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", port, err)
	}

	if speed == 0 {
		speed = DefaultSpeed
	}
	conn, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to configure SPI port %q: %w", port, err)
	}

	var reset gpio.PinOut
	if resetPin != "" {
		pin := gpioreg.ByName(resetPin)
		if pin == nil {
			_ = p.Close()
			return nil, fmt.Errorf("%w: reset pin %s", accesspad.ErrDeviceNotFound, resetPin)
		}
		reset = pin
	}

	opts = append([]Option{WithName(p.String())}, opts...)
	d, err := New(ctx, conn, reset, opts...)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	d.closer = p
	return d, nil
}

// Init resets the chip, programs its timer for a 25ms receive timeout and
// turns the antenna on.
func (d *Dev) Init(ctx context.Context) error {
	if d.reset != nil {
		if err := d.reset.Out(gpio.Low); err != nil {
			return fmt.Errorf("failed to assert reset: %w", err)
		}
		time.Sleep(time.Millisecond)
		if err := d.reset.Out(gpio.High); err != nil {
			return fmt.Errorf("failed to release reset: %w", err)
		}
	}

	if err := d.write(regCommand, cmdSoftReset); err != nil {
		return err
	}
	_, err := retry.Until(ctx, 50*time.Millisecond, time.Millisecond, "reset", d.name,
		func() (byte, bool, error) {
			v, err := d.read(regCommand)
			return v, err == nil && v&powerDown != 0, err
		})
	if err != nil {
		return fmt.Errorf("chip did not come out of reset: %w", err)
	}

	settings := [][2]byte{
		{regTMode, 0x8D},      // timer starts after transmission
		{regTPrescaler, 0x3E}, // ~30kHz timer clock
		{regTReloadL, 30},
		{regTReloadH, 0},
		{regTxASK, 0x40}, // 100% ASK
		{regMode, 0x3D},  // CRC preset 0x6363
	}
	for _, w := range settings {
		if err := d.write(w[0], w[1]); err != nil {
			return err
		}
	}

	if err := d.setBits(regTxControl, 0x03); err != nil {
		return err
	}

	// A floating MISO line reads as all zeros or all ones.
	d.version, err = retry.WithRetry(ctx,
		retry.Config{Op: "version", Device: d.name, MaxRetries: 3, RetryDelay: 5 * time.Millisecond},
		func() (byte, bool, error) {
			v, err := d.read(regVersion)
			if err != nil {
				return 0, false, err
			}
			return v, v == 0x00 || v == 0xFF, nil
		})
	if err != nil {
		return fmt.Errorf("no MFRC522 answering on %s: %w", d.name, err)
	}
	return nil
}

// Version returns the VersionReg value read during Init (0x91 or 0x92 for
// genuine parts).
func (d *Dev) Version() byte {
	return d.version
}

// String returns the device name.
func (d *Dev) String() string {
	return d.name
}

// Request sends REQA and returns the ATQA of an idle card.
func (d *Dev) Request(ctx context.Context) (rfid.CardType, error) {
	if err := d.write(regBitFraming, 0x07); err != nil {
		return 0, err
	}

	data, bits, err := d.transceive(ctx, []byte{piccReqIdle})
	if err != nil {
		return 0, err
	}
	if bits != 16 || len(data) < 2 {
		return 0, accesspad.NewFrameCorruptedError("request", d.name)
	}
	return rfid.CardType(uint16(data[1])<<8 | uint16(data[0])), nil
}

// Anticoll runs cascade level 1 anticollision and returns the 4-byte UID.
func (d *Dev) Anticoll(ctx context.Context) (accesspad.UID, error) {
	if err := d.write(regBitFraming, 0x00); err != nil {
		return nil, err
	}

	data, _, err := d.transceive(ctx, []byte{piccAnticoll1, nvbAnticoll})
	if err != nil {
		return nil, err
	}
	if len(data) != 5 {
		return nil, accesspad.NewFrameCorruptedError("anticoll", d.name)
	}

	var bcc byte
	for _, b := range data[:4] {
		bcc ^= b
	}
	if bcc != data[4] {
		return nil, accesspad.NewSensorError("anticoll", d.name, accesspad.ErrChecksumMismatch,
			accesspad.ErrorTypeTransient)
	}
	return accesspad.UID(append([]byte(nil), data[:4]...)), nil
}

// Close turns the antenna off and releases the SPI port if Open created it.
func (d *Dev) Close() error {
	err := d.clearBits(regTxControl, 0x03)
	if d.closer != nil {
		if cerr := d.closer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close SPI port: %w", cerr)
		}
	}
	return err
}

// transceive sends data to the card and returns the answer and its length in bits.
func (d *Dev) transceive(ctx context.Context, data []byte) ([]byte, int, error) {
	const irqEnable = 0x77

	steps := [][2]byte{
		{regComIEn, irqEnable | 0x80},
		{regComIrq, 0x7F}, // clear all interrupt bits
		{regFIFOLevel, flushBuffer},
		{regCommand, cmdIdle},
	}
	for _, s := range steps {
		if err := d.write(s[0], s[1]); err != nil {
			return nil, 0, err
		}
	}
	for _, b := range data {
		if err := d.write(regFIFOData, b); err != nil {
			return nil, 0, err
		}
	}
	if err := d.write(regCommand, cmdTransceive); err != nil {
		return nil, 0, err
	}
	if err := d.setBits(regBitFraming, startSend); err != nil {
		return nil, 0, err
	}

	irq, err := retry.Until(ctx, d.timeout, 0, "transceive", d.name,
		func() (byte, bool, error) {
			v, err := d.read(regComIrq)
			if err != nil {
				return 0, false, err
			}
			return v, v&(irqTimer|irqRx|irqIdle) == 0, nil
		})
	if clearErr := d.clearBits(regBitFraming, startSend); clearErr != nil && err == nil {
		err = clearErr
	}
	if err != nil {
		return nil, 0, err
	}

	if irq&(irqRx|irqIdle) == 0 && irq&irqTimer != 0 {
		return nil, 0, accesspad.ErrNoCard
	}

	errReg, err := d.read(regError)
	if err != nil {
		return nil, 0, err
	}
	if errReg&errMask != 0 {
		if errReg&0x08 != 0 {
			return nil, 0, accesspad.NewSensorError("transceive", d.name, ErrCollision, accesspad.ErrorTypeTransient)
		}
		return nil, 0, accesspad.NewSensorError("transceive", d.name,
			fmt.Errorf("%w: error register 0x%02X", accesspad.ErrSensorFault, errReg), accesspad.ErrorTypeTransient)
	}

	n, err := d.read(regFIFOLevel)
	if err != nil {
		return nil, 0, err
	}
	control, err := d.read(regControl)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, accesspad.ErrNoCard
	}
	if n > 16 {
		n = 16
	}

	bits := int(n) * 8
	if lastBits := int(control & 0x07); lastBits != 0 {
		bits = (int(n)-1)*8 + lastBits
	}

	out := make([]byte, n)
	for i := range out {
		if out[i], err = d.read(regFIFOData); err != nil {
			return nil, 0, err
		}
	}
	return out, bits, nil
}

func (d *Dev) read(reg byte) (byte, error) {
	w := []byte{((reg << 1) & 0x7E) | 0x80, 0}
	r := make([]byte, 2)
	if err := d.bus.Tx(w, r); err != nil {
		return 0, accesspad.NewSensorError("read", d.name, err, accesspad.ErrorTypeTransient)
	}
	return r[1], nil
}

func (d *Dev) write(reg, value byte) error {
	w := []byte{(reg << 1) & 0x7E, value}
	if err := d.bus.Tx(w, make([]byte, 2)); err != nil {
		return accesspad.NewSensorError("write", d.name, err, accesspad.ErrorTypeTransient)
	}
	return nil
}

func (d *Dev) setBits(reg, mask byte) error {
	v, err := d.read(reg)
	if err != nil {
		return err
	}
	return d.write(reg, v|mask)
}

func (d *Dev) clearBits(reg, mask byte) error {
	v, err := d.read(reg)
	if err != nil {
		return err
	}
	return d.write(reg, v&^mask)
}

var _ rfid.Transceiver = (*Dev)(nil)
