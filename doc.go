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

/*
Package i2cbus is a thin manager for an I2C master bus.

It brings a bus up on a hardware driver, attaches 7-bit addressed devices
to it, checks whether an address acknowledges and runs blocking reads and
writes. Every call is forwarded to the driver once; driver errors come back
unchanged, so callers match them with errors.Is against the sentinels in
this package.

Basic Usage:

	bus, err := i2cbus.Initialize(i2c.New(), &i2cbus.Config{
		Port:          1,
		ClockSpeed:    400 * physic.KiloHertz,
		EnablePullups: true,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Deinitialize()

	if err := bus.Probe(0x48); i2cbus.IsNotFound(err) {
		log.Fatal("nothing at 0x48")
	}

	dev, err := bus.AttachDevice(0x48, 100*physic.KiloHertz)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Detach()

	if err := dev.Write([]byte{0x00}); err != nil {
		log.Fatal(err)
	}
	buf := make([]byte, 2)
	if err := dev.Read(buf); err != nil {
		log.Fatal(err)
	}

Drivers:
  - transport/i2c: periph.io buses on Linux hosts
  - VirtualDriver: in-memory devices for tests and simulation

Timeouts:

Probe waits at most ProbeTimeout. Reads and writes block until the driver
finishes unless the bus was created with WithTransferTimeout, in which case
they return ErrTimeout once the deadline passes.

Thread Safety:

A Bus does no locking of its own. Concurrent use is as safe as the driver
underneath; the periph driver serializes transactions per bus.
*/
package i2cbus
