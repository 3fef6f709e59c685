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
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

const (
	// ProbeTimeout bounds an address probe. It leaves room for slaves that
	// stretch the clock, slow rise times on heavily loaded buses, and
	// scheduler preemption during the ACK phase.
	ProbeTimeout = 100 * time.Millisecond

	// GlitchIgnoreCount is the glitch filter length in source clock cycles.
	GlitchIgnoreCount = 7
)

// Config holds the parameters for bringing up a master bus.
type Config struct {
	// Port selects the bus. A negative port picks the driver default.
	Port int
	// SDAPin is the GPIO number of the data line.
	SDAPin int
	// SCLPin is the GPIO number of the clock line.
	SCLPin int
	// ClockSpeed is the initial bus clock. Zero keeps the driver default.
	ClockSpeed physic.Frequency
	// EnablePullups turns on the internal pull-ups of SDAPin and SCLPin.
	EnablePullups bool
}

// Bus owns one driver-level master bus. The zero value is not usable; get a
// Bus from Initialize and release it with Deinitialize. A Bus performs no
// locking of its own; concurrent use is only as safe as the driver.
type Bus struct {
	master          MasterBus
	log             log.FieldLogger
	port            int
	transferTimeout time.Duration
}

// allocBus is replaced in tests to simulate allocation failure.
var allocBus = func() *Bus { return new(Bus) }

// Initialize brings up a master bus on drv. On any failure it returns a nil
// Bus; driver errors are returned unchanged.
func Initialize(drv Driver, cfg *Config, opts ...Option) (*Bus, error) {
	if drv == nil || cfg == nil {
		return nil, ErrInvalidArg
	}

	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	b := allocBus()
	if b == nil {
		s.log.Error("memory allocation failed")
		return nil, ErrNoMem
	}
	b.log = s.log
	b.port = cfg.Port
	b.transferTimeout = s.transferTimeout

	master, err := drv.NewMasterBus(MasterBusConfig{
		Port:              cfg.Port,
		SDAPin:            cfg.SDAPin,
		SCLPin:            cfg.SCLPin,
		ClockSource:       ClockSourceDefault,
		GlitchIgnoreCount: GlitchIgnoreCount,
		IntrPriority:      0,
		TransQueueDepth:   0,
		Speed:             cfg.ClockSpeed,
		InternalPullup:    cfg.EnablePullups,
	})
	if err != nil {
		s.log.WithError(err).WithField("port", cfg.Port).Error("bus init failed")
		return nil, err
	}
	b.master = master

	b.log.WithField("port", cfg.Port).Info("I2C master bus initialized")
	return b, nil
}

// Deinitialize deletes the driver bus. Calling it on a nil Bus does nothing.
// Devices still attached must be detached first.
func (b *Bus) Deinitialize() error {
	if b == nil {
		return nil
	}
	if b.master == nil {
		return ErrInvalidState
	}

	err := b.master.Close()
	b.master = nil
	b.log.WithField("port", b.port).Info("I2C master bus de-initialized")
	return err
}

// Probe checks whether a device acknowledges addr within ProbeTimeout.
// It returns nil on ACK and ErrNotFound otherwise.
func (b *Bus) Probe(addr uint16) error {
	if b == nil {
		return ErrInvalidArg
	}
	if b.master == nil {
		return ErrInvalidState
	}
	return b.master.Probe(addr, ProbeTimeout)
}

// AttachDevice registers a 7-bit addressed device clocked at speed. Adding
// the same address twice is left to the driver.
func (b *Bus) AttachDevice(addr uint16, speed physic.Frequency) (*Device, error) {
	if b == nil {
		return nil, ErrInvalidArg
	}
	if b.master == nil {
		return nil, ErrInvalidState
	}

	dev, err := b.master.AddDevice(DeviceConfig{
		AddrBitLen: AddrBitLen7,
		Address:    addr,
		Speed:      speed,
	})
	if err != nil {
		return nil, err
	}

	return &Device{
		dev:     dev,
		addr:    addr,
		timeout: b.transferTimeout,
	}, nil
}

// Scan probes every address from first to last inclusive and returns those
// that acknowledged. Errors other than ErrNotFound stop the scan.
func (b *Bus) Scan(first, last uint16) ([]uint16, error) {
	if b == nil {
		return nil, ErrInvalidArg
	}
	if first > last || last > MaxAddr7 {
		return nil, fmt.Errorf("%w: scan range 0x%02X-0x%02X", ErrInvalidArg, first, last)
	}

	var found []uint16
	for addr := first; addr <= last; addr++ {
		err := b.Probe(addr)
		switch {
		case err == nil:
			found = append(found, addr)
		case errors.Is(err, ErrNotFound):
		default:
			return found, err
		}
	}

	b.log.WithField("port", b.port).Debugf("scan found %d device(s)", len(found))
	return found, nil
}

// Port returns the port the bus was initialized on, or -1 for a nil Bus.
func (b *Bus) Port() int {
	if b == nil {
		return -1
	}
	return b.port
}

func (b *Bus) String() string {
	if b == nil {
		return "i2c(nil)"
	}
	return fmt.Sprintf("i2c(port %d)", b.port)
}
