// go-i2cbus
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-i2cbus.
//
// go-i2cbus is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-i2cbus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-i2cbus; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	i2cbus "github.com/ZaparooProject/go-i2cbus"
	periphi2c "github.com/ZaparooProject/go-i2cbus/transport/i2c"
	"github.com/urfave/cli"
)

const (
	// Regular 7-bit range; 0x00-0x07 and 0x78-0x7F are reserved.
	scanFirst = 0x08
	scanLast  = 0x77
)

// newDriver picks the hardware or the simulated driver
func newDriver(s *settings) i2cbus.Driver {
	if !s.Simulate {
		return periphi2c.New()
	}
	devs := make([]*i2cbus.VirtualDevice, 0, len(s.SimDevices))
	for _, addr := range s.SimDevices {
		devs = append(devs, i2cbus.NewVirtualDevice(uint16(addr)))
	}
	return i2cbus.NewVirtualDriver(devs...)
}

// withBus brings up the bus for the duration of fn
func withBus(c *cli.Context, fn func(*i2cbus.Bus, *settings, *Output) error) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	i2cbus.SetDebugEnabled(s.Debug)

	bus, err := i2cbus.Initialize(newDriver(s), &s.Bus, s.busOptions()...)
	if err != nil {
		return fmt.Errorf("failed to initialize bus: %w", err)
	}
	defer func() { _ = bus.Deinitialize() }()

	return fn(bus, s, NewOutput(os.Stdout))
}

// withDevice attaches the device named by --addr for the duration of fn
func withDevice(c *cli.Context, fn func(*i2cbus.Device, *Output) error) error {
	addr, err := parseAddr(c.String("addr"))
	if err != nil {
		return err
	}

	return withBus(c, func(bus *i2cbus.Bus, s *settings, out *Output) error {
		dev, err := bus.AttachDevice(addr, s.Bus.ClockSpeed)
		if err != nil {
			return fmt.Errorf("failed to attach device 0x%02X: %w", addr, err)
		}
		defer func() { _ = dev.Detach() }()
		return fn(dev, out)
	})
}

func listBuses(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return err
	}
	out := NewOutput(os.Stdout)
	if s.Simulate {
		out.Buses([]periphi2c.BusInfo{{Name: "virtual", Number: 0}})
		return nil
	}

	buses, err := periphi2c.Buses()
	if err != nil {
		return err
	}
	if len(buses) == 0 {
		out.Warning("no I2C buses found")
		return nil
	}
	out.Buses(buses)
	return nil
}

func scanBus(c *cli.Context) error {
	return withBus(c, func(bus *i2cbus.Bus, _ *settings, out *Output) error {
		found, err := bus.Scan(scanFirst, scanLast)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		out.ScanGrid(scanFirst, scanLast, found)
		out.Info("%d device(s) on %s", len(found), bus)
		return nil
	})
}

func probeDevice(c *cli.Context) error {
	addr, err := parseAddr(c.String("addr"))
	if err != nil {
		return err
	}
	return withBus(c, func(bus *i2cbus.Bus, _ *settings, out *Output) error {
		err := bus.Probe(addr)
		switch {
		case err == nil:
			out.OK("0x%02X acknowledged", addr)
			return nil
		case errors.Is(err, i2cbus.ErrNotFound):
			out.Warning("0x%02X did not acknowledge", addr)
			return nil
		default:
			return fmt.Errorf("probe failed: %w", err)
		}
	})
}

func readDevice(c *cli.Context) error {
	n := c.Int("len")
	if n <= 0 {
		return fmt.Errorf("invalid length %d", n)
	}
	return withDevice(c, func(dev *i2cbus.Device, out *Output) error {
		buf := make([]byte, n)
		if err := dev.Read(buf); err != nil {
			return fmt.Errorf("read from %s failed: %w", dev, err)
		}
		out.Bytes(buf)
		return nil
	})
}

func writeDevice(c *cli.Context) error {
	data, err := parseHexBytes(c.String("data"))
	if err != nil {
		return err
	}
	return withDevice(c, func(dev *i2cbus.Device, out *Output) error {
		if err := dev.Write(data); err != nil {
			return fmt.Errorf("write to %s failed: %w", dev, err)
		}
		out.OK("wrote %d byte(s) to %s", len(data), dev)
		return nil
	})
}

// parseAddr accepts decimal, 0x hex or 0o octal 7-bit addresses
func parseAddr(s string) (uint16, error) {
	if s == "" {
		return 0, errors.New("missing --addr")
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if v > i2cbus.MaxAddr7 {
		return 0, fmt.Errorf("address %q is not a 7-bit address", s)
	}
	return uint16(v), nil
}
