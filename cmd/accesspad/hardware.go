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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/ZaparooProject/go-accesspad/annunciator"
	"github.com/ZaparooProject/go-accesspad/config"
	"github.com/ZaparooProject/go-accesspad/detection"
	"github.com/ZaparooProject/go-accesspad/display/ssd1306"
	"github.com/ZaparooProject/go-accesspad/keypad"
	"github.com/ZaparooProject/go-accesspad/rfid"
	"github.com/ZaparooProject/go-accesspad/rfid/mfrc522"
	"github.com/ZaparooProject/go-accesspad/rfid/rdm6300"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

type hardware struct {
	keys    accesspad.KeyInput
	cards   accesspad.CardReader
	panel   *annunciator.Panel
	closers []io.Closer
}

// Close releases everything opened, last opened first.
func (h *hardware) Close() {
	if h.panel != nil {
		_ = h.panel.Close()
	}
	for i := len(h.closers) - 1; i >= 0; i-- {
		_ = h.closers[i].Close()
	}
}

// noCardReader stands in when no RFID reader is fitted.
type noCardReader struct{}

func (noCardReader) PollCard(context.Context) (accesspad.UID, error) {
	return nil, nil
}

func openHardware(ctx context.Context, hw config.Hardware, logger *slog.Logger) (*hardware, error) {
	h := &hardware{}
	ok := false
	defer func() {
		if !ok {
			h.Close()
		}
	}()

	keys, err := keypad.NewFromNames(hw.Keypad.Rows, hw.Keypad.Cols,
		keypad.WithLayout(layoutFor(hw.Keypad.LayoutName())),
		keypad.WithDebounce(hw.Keypad.Debounce))
	if err != nil {
		return nil, fmt.Errorf("failed to set up keypad: %w", err)
	}
	h.keys = keys

	if h.cards, err = openCardReader(ctx, h, hw.RFID, logger); err != nil {
		return nil, err
	}

	if h.panel, err = openPanel(ctx, h, hw, logger); err != nil {
		return nil, err
	}

	ok = true
	return h, nil
}

func layoutFor(name string) [][]accesspad.Key {
	if name == "4x3" {
		return keypad.Layout4x3
	}
	return keypad.Layout4x4
}

func pinByName(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: pin %s", accesspad.ErrDeviceNotFound, name)
	}
	return pin, nil
}

func openCardReader(ctx context.Context, h *hardware, cfg config.RFID, logger *slog.Logger) (accesspad.CardReader, error) {
	switch cfg.Driver {
	case config.DriverNone:
		return noCardReader{}, nil

	case config.DriverRDM6300:
		port := cfg.SerialPort
		if port == "" {
			dev, err := detection.Find(ctx, detection.KindCardReader, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to find a serial card reader: %w", err)
			}
			logger.Info("detected card reader", "path", dev.Path, "name", dev.Name, "confidence", dev.Confidence)
			port = dev.Path
		}
		r, err := rdm6300.Open(port, cfg.BaudRate, rdm6300.WithHoldTime(cfg.HoldTime))
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, r)
		return r, nil

	default:
		speed := physic.Frequency(cfg.SPISpeed) * physic.Hertz
		dev, err := mfrc522.Open(ctx, cfg.SPIPort, cfg.ResetPin, speed, mfrc522.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, fmt.Errorf("failed to open MFRC522: %w", err)
		}
		h.closers = append(h.closers, dev)
		logger.Info("card reader ready", "device", dev.String(), "version", fmt.Sprintf("0x%02X", dev.Version()))

		r, err := rfid.NewReader(dev, rfid.WithRemovalTimeout(cfg.RemovalTimeout))
		if err != nil {
			return nil, err
		}
		r.OnCardDetected = func(uid accesspad.UID, cardType rfid.CardType) {
			logger.Debug("card arrived", "uid", uid.String(), "atqa", fmt.Sprintf("0x%04X", uint16(cardType)))
		}
		r.OnCardRemoved = func(uid accesspad.UID) {
			logger.Debug("card removed", "uid", uid.String())
		}
		return r, nil
	}
}

func openPanel(ctx context.Context, h *hardware, hw config.Hardware, logger *slog.Logger) (*annunciator.Panel, error) {
	var display annunciator.Display
	if !hw.Display.Disabled {
		d, err := openDisplay(ctx, hw.Display, logger)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, d)
		display = d
	}

	var led gpio.PinOut
	if hw.Outputs.LED != "" {
		pin, err := pinByName(hw.Outputs.LED)
		if err != nil {
			return nil, err
		}
		led = pin
	}

	var beeper annunciator.Beeper
	if hw.Outputs.Buzzer != "" {
		pin, err := pinByName(hw.Outputs.Buzzer)
		if err != nil {
			return nil, err
		}
		var opts []annunciator.BuzzerOption
		if hw.Outputs.BlockingBeeps {
			opts = append(opts, annunciator.WithBlocking())
		}
		b, err := annunciator.NewBuzzer(pin, opts...)
		if err != nil {
			return nil, err
		}
		beeper = b
	}

	return annunciator.NewPanel(display, led, beeper)
}

func openDisplay(ctx context.Context, cfg config.Display, logger *slog.Logger) (*ssd1306.Display, error) {
	bus, addr := cfg.Bus, cfg.Address
	if cfg.Detect {
		dev, err := detection.Find(ctx, detection.KindDisplay, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to find a display: %w", err)
		}
		logger.Info("detected display", "path", dev.Path, "confidence", dev.Confidence)
		if bus, addr, err = splitI2CPath(dev.Path); err != nil {
			return nil, err
		}
	}

	d, err := ssd1306.Open(bus, addr, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	logger.Info("display ready", "device", d.String())
	return d, nil
}

// splitI2CPath splits "/dev/i2c-1:0x3C" into bus and address.
func splitI2CPath(path string) (string, uint16, error) {
	idx := strings.LastIndex(path, ":")
	if idx < 0 {
		return "", 0, errors.New("i2c path has no address: " + path)
	}
	addr, err := strconv.ParseUint(path[idx+1:], 0, 7)
	if err != nil {
		return "", 0, fmt.Errorf("bad i2c address in %s: %w", path, err)
	}
	return path[:idx], uint16(addr), nil
}
