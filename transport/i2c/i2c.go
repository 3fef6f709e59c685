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

// Package i2c provides an i2cbus.Driver backed by periph.io
package i2c

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	i2cbus "github.com/ZaparooProject/go-i2cbus"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Opener opens the periph bus registered under name.
type Opener func(name string) (i2c.BusCloser, error)

// Option is a functional option for New
type Option func(*Driver)

// WithOpener replaces the host bus registry lookup
func WithOpener(open Opener) Option {
	return func(d *Driver) {
		d.open = open
	}
}

// WithLogger sets the logger the driver reports to
func WithLogger(logger log.FieldLogger) Option {
	return func(d *Driver) {
		d.log = logger
	}
}

// Driver implements i2cbus.Driver on top of periph.io buses
type Driver struct {
	open Opener
	log  log.FieldLogger
}

// New creates a periph driver. Without WithOpener, the host is initialized
// on first use and buses are looked up in the periph registry.
func New(opts ...Option) *Driver {
	d := &Driver{
		open: openHost,
		log:  i2cbus.NewLogger("i2cbus/periph"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var (
	hostOnce sync.Once
	errHost  error
)

func initHost() error {
	hostOnce.Do(func() {
		_, errHost = host.Init()
	})
	if errHost != nil {
		return fmt.Errorf("failed to initialize periph host: %w", errHost)
	}
	return nil
}

func openHost(name string) (i2c.BusCloser, error) {
	if err := initHost(); err != nil {
		return nil, err
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", name, err)
	}
	return bus, nil
}

// BusName maps a port to its periph registry name. A negative port selects
// the first registered bus.
func BusName(port int) string {
	if port < 0 {
		return ""
	}
	return strconv.Itoa(port)
}

// NewMasterBus implements i2cbus.Driver
func (d *Driver) NewMasterBus(cfg i2cbus.MasterBusConfig) (i2cbus.MasterBus, error) {
	name := BusName(cfg.Port)
	bus, err := d.open(name)
	if err != nil {
		return nil, err
	}
	logger := d.log.WithField("bus", bus.String())

	if cfg.InternalPullup {
		if err := enablePullups(cfg.SDAPin, cfg.SCLPin); err != nil {
			_ = bus.Close()
			return nil, err
		}
	}

	mb := newMasterBus(bus, logger)
	if cfg.Speed > 0 {
		// Not every adapter can change speed; keep its default.
		if err := bus.SetSpeed(cfg.Speed); err != nil {
			logger.WithError(err).Warnf("cannot set bus speed to %s", cfg.Speed)
		} else {
			mb.speed = cfg.Speed
		}
	}

	if p, ok := bus.(i2c.Pins); ok {
		logger.Debugf("SCL=%s SDA=%s", p.SCL(), p.SDA())
	}
	logger.Debugf("clock source %s and glitch filter %d ignored by periph",
		cfg.ClockSource, cfg.GlitchIgnoreCount)

	return mb, nil
}

func enablePullups(pins ...int) error {
	for _, n := range pins {
		p := gpioreg.ByName(strconv.Itoa(n))
		if p == nil {
			return fmt.Errorf("%w: unknown pin %d", i2cbus.ErrInvalidArg, n)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return fmt.Errorf("failed to enable pull-up on %s: %w", p, err)
		}
	}
	return nil
}

// errBusBusy is returned when another transaction still owns the bus at
// the deadline. It is a timeout, never a missing ACK.
var errBusBusy = fmt.Errorf("%w: bus busy", i2cbus.ErrTimeout)

type masterBus struct {
	bus i2c.BusCloser
	log log.FieldLogger
	// owner is held from lock acquisition until Tx returns, including by
	// transactions whose caller already gave up on them.
	owner  chan struct{}
	speed  physic.Frequency
	mu     sync.Mutex
	closed bool
}

func newMasterBus(bus i2c.BusCloser, logger log.FieldLogger) *masterBus {
	return &masterBus{
		bus:   bus,
		log:   logger,
		owner: make(chan struct{}, 1),
	}
}

func (b *masterBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// acquire takes the bus, waiting at most timeout. A negative timeout waits
// until the bus is free.
func (b *masterBus) acquire(timeout time.Duration) error {
	if timeout < 0 {
		b.owner <- struct{}{}
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case b.owner <- struct{}{}:
		return nil
	case <-timer.C:
		return errBusBusy
	}
}

func (b *masterBus) release() {
	<-b.owner
}

// tx runs one transaction at speed within timeout, reprogramming the bus
// clock when the device speed differs from the current one. Waiting for the
// bus counts against the timeout.
func (b *masterBus) tx(timeout time.Duration, addr uint16, speed physic.Frequency, w, r []byte) error {
	start := time.Now()
	if err := b.acquire(timeout); err != nil {
		return err
	}
	if b.isClosed() {
		b.release()
		return i2cbus.ErrInvalidState
	}

	remaining := timeout
	if timeout >= 0 {
		remaining = timeout - time.Since(start)
		if remaining <= 0 {
			b.release()
			return errBusBusy
		}
	}

	return withTimeout(remaining, func() error {
		defer b.release()

		if speed > 0 && speed != b.speed {
			if err := b.bus.SetSpeed(speed); err != nil {
				b.log.WithError(err).Warnf("cannot set bus speed to %s", speed)
			} else {
				b.speed = speed
			}
		}

		if err := b.bus.Tx(addr, w, r); err != nil {
			return fmt.Errorf("%w: %w", i2cbus.ErrTransferFailed, err)
		}
		return nil
	})
}

// Probe reads one byte from addr. A NACK or a read that outlives timeout
// means no device; a bus still owned by an earlier transaction is reported
// as a timeout.
func (b *masterBus) Probe(addr uint16, timeout time.Duration) error {
	if addr > i2cbus.MaxAddr7 {
		return i2cbus.ErrInvalidArg
	}

	err := b.tx(timeout, addr, 0, nil, make([]byte, 1))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errBusBusy), errors.Is(err, i2cbus.ErrInvalidState):
		return err
	}

	b.log.WithError(err).Debugf("no ACK from 0x%02X", addr)
	return fmt.Errorf("%w: 0x%02X", i2cbus.ErrNotFound, addr)
}

func (b *masterBus) AddDevice(cfg i2cbus.DeviceConfig) (i2cbus.MasterDevice, error) {
	if cfg.AddrBitLen != i2cbus.AddrBitLen7 {
		return nil, fmt.Errorf("%w: %d-bit addressing not supported", i2cbus.ErrInvalidArg, cfg.AddrBitLen)
	}
	if cfg.Address > i2cbus.MaxAddr7 {
		return nil, fmt.Errorf("%w: address 0x%02X", i2cbus.ErrInvalidArg, cfg.Address)
	}

	if b.isClosed() {
		return nil, i2cbus.ErrInvalidState
	}

	return &device{bus: b, addr: cfg.Address, speed: cfg.Speed}, nil
}

// Close refuses new transactions, waits for the one in flight to return
// and closes the bus.
func (b *masterBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return i2cbus.ErrInvalidState
	}
	b.closed = true
	b.mu.Unlock()

	b.owner <- struct{}{}
	defer b.release()

	if err := b.bus.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus: %w", err)
	}
	return nil
}

type device struct {
	bus     *masterBus
	addr    uint16
	speed   physic.Frequency
	mu      sync.Mutex
	removed bool
}

func (d *device) isRemoved() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removed
}

func (d *device) Transmit(w []byte, timeout time.Duration) error {
	if d.isRemoved() {
		return i2cbus.ErrInvalidState
	}
	return d.bus.tx(timeout, d.addr, d.speed, w, nil)
}

func (d *device) Receive(r []byte, timeout time.Duration) error {
	if d.isRemoved() {
		return i2cbus.ErrInvalidState
	}
	return d.bus.tx(timeout, d.addr, d.speed, nil, r)
}

func (d *device) Remove() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removed {
		return i2cbus.ErrInvalidState
	}
	d.removed = true
	return nil
}

// withTimeout runs fn, giving up after timeout. A negative timeout waits
// for fn to return. An abandoned fn keeps running until the bus returns.
func withTimeout(timeout time.Duration, fn func() error) error {
	if timeout < 0 {
		return fn()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return i2cbus.ErrTimeout
	}
}

// Ensure Driver implements i2cbus.Driver
var _ i2cbus.Driver = (*Driver)(nil)

// BusInfo describes a bus known to the periph registry
type BusInfo struct {
	Name    string
	Aliases []string
	Number  int
}

// Buses initializes the host and lists the registered I2C buses
func Buses() ([]BusInfo, error) {
	if err := initHost(); err != nil {
		return nil, err
	}

	refs := i2creg.All()
	buses := make([]BusInfo, 0, len(refs))
	for _, ref := range refs {
		buses = append(buses, BusInfo{
			Name:    ref.Name,
			Aliases: ref.Aliases,
			Number:  ref.Number,
		})
	}
	return buses, nil
}
