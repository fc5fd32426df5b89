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

// Command accesspad runs the keypad and RFID access controller on a single
// board computer until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	accesspad "github.com/ZaparooProject/go-accesspad"
	"github.com/ZaparooProject/go-accesspad/config"
	"github.com/ZaparooProject/go-accesspad/detection"
	// Import all detectors to register them
	_ "github.com/ZaparooProject/go-accesspad/detection/i2c"
	_ "github.com/ZaparooProject/go-accesspad/detection/uart"
	"periph.io/x/host/v3"
)

type flags struct {
	configPath  *string
	printConfig *string
	debug       *bool
	detect      *bool
	jsonLogs    *bool
}

func parseFlags() *flags {
	f := &flags{
		configPath: flag.String("config", "",
			"Configuration file (.yaml, .yml or .toml). Built-in defaults are used when empty."),
		printConfig: flag.String("print-config", "",
			"Print the effective configuration as yaml or toml and exit"),
		debug:    flag.Bool("debug", false, "Enable debug output"),
		detect:   flag.Bool("detect", false, "List detected displays and card readers and exit"),
		jsonLogs: flag.Bool("json", false, "Log as JSON instead of text"),
	}
	flag.Parse()
	return f
}

func loadConfig(path string) (*config.File, error) {
	if path == "" {
		cfg := config.Default()
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func setupLogging(debug, jsonLogs bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if jsonLogs {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	accesspad.SetLogger(logger)
	accesspad.SetDebugEnabled(debug)
	return logger
}

func listDevices(ctx context.Context) error {
	opts := detection.DefaultOptions()
	opts.Mode = detection.Full
	devices, err := detection.DetectAll(ctx, &opts)
	for _, d := range devices {
		_, _ = fmt.Printf("%-12s %-5s %-24s %-6s %s\n", d.Kind, d.Transport, d.Path, d.Confidence, d.Name)
	}
	if errors.Is(err, detection.ErrNoDevicesFound) {
		_, _ = fmt.Println("No devices found")
		return nil
	}
	return err
}

func wireCallbacks(c *accesspad.Controller, logger *slog.Logger) {
	c.OnStateChange = func(from, to accesspad.State) {
		logger.Debug("state change", "from", from, "to", to)
	}
	c.OnAccessGranted = func(ev accesspad.Event) {
		logger.Info("access granted", "id", ev.ID, "method", ev.Method, "uid", ev.UID.String())
	}
	c.OnAccessDenied = func(ev accesspad.Event) {
		logger.Warn("access denied", "id", ev.ID, "reason", ev.Kind, "method", ev.Method)
	}
}

func run(ctx context.Context, cfg *config.File, logger *slog.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph host: %w", err)
	}

	hw, err := openHardware(ctx, cfg.Hardware, logger)
	if err != nil {
		return err
	}
	defer hw.Close()

	controller, err := accesspad.New(hw.keys, hw.cards, hw.panel, accesspad.WithConfig(&cfg.Controller))
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	wireCallbacks(controller, logger)

	logger.Info("access pad running",
		"rfid", cfg.Hardware.RFID.Driver,
		"tick", cfg.Controller.TickInterval,
		"inactivity", cfg.Controller.InactivityTimeout)

	err = controller.Run(ctx)
	logger.Info("access pad stopped", "events", controller.Journal().Len())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	f := parseFlags()

	cfg, err := loadConfig(*f.configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	if *f.printConfig != "" {
		if err := cfg.Write(os.Stdout, config.Format(*f.printConfig)); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to print configuration: %v\n", err)
			os.Exit(2)
		}
		return
	}

	logger := setupLogging(*f.debug || cfg.Debug, *f.jsonLogs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *f.detect {
		detectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := listDevices(detectCtx); err != nil {
			logger.Error("detection failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("access pad failed", "error", err)
		os.Exit(1)
	}
}
