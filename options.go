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

	log "github.com/sirupsen/logrus"
)

// Option is a functional option for Initialize
type Option func(*settings) error

type settings struct {
	log             log.FieldLogger
	transferTimeout time.Duration
}

func defaultSettings() *settings {
	return &settings{
		log:             NewLogger("i2cbus"),
		transferTimeout: WaitForever,
	}
}

// WithLogger sets the logger the bus reports to
func WithLogger(logger log.FieldLogger) Option {
	return func(s *settings) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidArg)
		}
		s.log = logger
		return nil
	}
}

// WithTransferTimeout bounds every Read and Write on devices attached to the
// bus. WaitForever (the default) blocks until the driver finishes.
func WithTransferTimeout(timeout time.Duration) Option {
	return func(s *settings) error {
		if timeout == 0 {
			return fmt.Errorf("%w: zero transfer timeout", ErrInvalidArg)
		}
		if timeout < 0 {
			timeout = WaitForever
		}
		s.transferTimeout = timeout
		return nil
	}
}
