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

import "errors"

// Error codes shared by the bus manager and drivers. Drivers may wrap them
// with extra context; match with errors.Is.
var (
	// ErrInvalidArg is returned when a required argument or handle is missing
	ErrInvalidArg = errors.New("invalid argument")
	// ErrNoMem is returned when the bus context cannot be allocated
	ErrNoMem = errors.New("out of memory")
	// ErrNotFound is returned by a probe that nothing acknowledged
	ErrNotFound = errors.New("device not found")
	// ErrTimeout is returned when a bounded transfer does not complete in time
	ErrTimeout = errors.New("operation timed out")
	// ErrNACK is returned when a device does not acknowledge a transfer
	ErrNACK = errors.New("device did not acknowledge")
	// ErrTransferFailed is returned for any other transfer failure
	ErrTransferFailed = errors.New("transfer failed")
	// ErrInvalidState is returned when a handle has already been released
	ErrInvalidState = errors.New("invalid state")
)

// IsNotFound reports whether err means no device acknowledged.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether err is a transfer timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
