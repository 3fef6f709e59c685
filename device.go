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

package i2cbus

import (
	"fmt"
	"time"
)

// Device is a handle for a device attached to a Bus. Nothing tracks which
// bus a Device belongs to; keep the Bus alive until the Device is detached.
type Device struct {
	dev     MasterDevice
	addr    uint16
	timeout time.Duration
}

// Addr returns the device address, or 0 for a nil Device.
func (d *Device) Addr() uint16 {
	if d == nil {
		return 0
	}
	return d.addr
}

// Detach unregisters the device from its bus. Calling it on a nil Device
// does nothing.
func (d *Device) Detach() error {
	if d == nil || d.dev == nil {
		return nil
	}
	err := d.dev.Remove()
	d.dev = nil
	return err
}

// Write transmits data to the device and blocks until the driver is done
// or the bus transfer timeout expires.
func (d *Device) Write(data []byte) error {
	if d == nil || d.dev == nil {
		return ErrInvalidArg
	}
	return d.dev.Transmit(data, d.timeout)
}

// Read receives exactly len(buf) bytes from the device into buf.
func (d *Device) Read(buf []byte) error {
	if d == nil || d.dev == nil {
		return ErrInvalidArg
	}
	return d.dev.Receive(buf, d.timeout)
}

func (d *Device) String() string {
	if d == nil {
		return "i2c-dev(nil)"
	}
	return fmt.Sprintf("i2c-dev(0x%02X)", d.addr)
}
