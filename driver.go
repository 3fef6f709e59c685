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
	"time"

	"periph.io/x/conn/v3/physic"
)

// WaitForever makes a probe or transfer block until the driver completes
// or fails it.
const WaitForever time.Duration = -1

// Driver is the hardware I2C master driver the bus manager delegates to.
// Clock generation, arbitration, ACK/NACK handling and clock stretching
// all live behind this interface.
type Driver interface {
	// NewMasterBus creates and configures a master bus
	NewMasterBus(cfg MasterBusConfig) (MasterBus, error)
}

// MasterBus is a driver-level master bus handle.
type MasterBus interface {
	// Probe checks whether a device acknowledges its address.
	// It returns ErrNotFound when nothing acknowledges within timeout.
	Probe(addr uint16, timeout time.Duration) error

	// AddDevice registers a device on the bus
	AddDevice(cfg DeviceConfig) (MasterDevice, error)

	// Close deletes the bus and releases its resources
	Close() error
}

// MasterDevice is a driver-level handle for a device registered on a bus.
type MasterDevice interface {
	// Transmit writes w to the device
	Transmit(w []byte, timeout time.Duration) error

	// Receive fills r from the device
	Receive(r []byte, timeout time.Duration) error

	// Remove unregisters the device from its bus
	Remove() error
}

// ClockSource selects the clock that drives the bus controller.
type ClockSource int

const (
	// ClockSourceDefault lets the driver pick its default source.
	ClockSourceDefault ClockSource = iota
	// ClockSourceXTAL uses the external crystal.
	ClockSourceXTAL
	// ClockSourceRCFast uses the internal RC oscillator.
	ClockSourceRCFast
)

// String returns the clock source name
func (c ClockSource) String() string {
	switch c {
	case ClockSourceDefault:
		return "default"
	case ClockSourceXTAL:
		return "xtal"
	case ClockSourceRCFast:
		return "rc-fast"
	default:
		return "unknown"
	}
}

// AddrBitLen is the device address width.
type AddrBitLen int

const (
	// AddrBitLen7 selects 7-bit addressing.
	AddrBitLen7 AddrBitLen = 7
	// AddrBitLen10 selects 10-bit addressing.
	AddrBitLen10 AddrBitLen = 10
)

// MaxAddr7 is the highest 7-bit device address.
const MaxAddr7 = 0x7F

// MasterBusConfig is what the driver needs to bring up a master bus.
type MasterBusConfig struct {
	Port              int
	SDAPin            int
	SCLPin            int
	ClockSource       ClockSource
	GlitchIgnoreCount int
	IntrPriority      int
	// TransQueueDepth of zero keeps transfers synchronous.
	TransQueueDepth int
	Speed           physic.Frequency
	InternalPullup  bool
}

// DeviceConfig describes a device to register on a master bus.
type DeviceConfig struct {
	AddrBitLen AddrBitLen
	Address    uint16
	Speed      physic.Frequency
}
