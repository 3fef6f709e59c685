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
	"sync"
	"time"
)

// VirtualDevice is a simulated peripheral for VirtualDriver. It echoes:
// Receive returns the bytes of the last Transmit, zero padded.
type VirtualDevice struct {
	release    chan struct{}
	data       []byte
	addr       uint16
	mu         sync.Mutex
	nack       bool
	stretching bool
}

// NewVirtualDevice creates a simulated device that acknowledges addr
func NewVirtualDevice(addr uint16) *VirtualDevice {
	return &VirtualDevice{
		addr:    addr,
		release: make(chan struct{}),
	}
}

// Addr returns the simulated device address
func (v *VirtualDevice) Addr() uint16 {
	return v.addr
}

// SetNACK makes the device refuse to acknowledge probes and transfers
func (v *VirtualDevice) SetNACK(nack bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nack = nack
}

// SetStretching makes the device hold the clock low indefinitely. Probes
// run into their timeout and transfers block until their timeout expires or
// Release is called.
func (v *VirtualDevice) SetStretching(stretching bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case stretching && !v.stretching:
		v.release = make(chan struct{})
	case !stretching && v.stretching:
		close(v.release)
	}
	v.stretching = stretching
}

// Release lets go of the clock, unblocking pending transfers
func (v *VirtualDevice) Release() {
	v.SetStretching(false)
}

// SetData preloads the bytes the next Receive returns
func (v *VirtualDevice) SetData(data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = append([]byte(nil), data...)
}

// Data returns a copy of the last bytes written to the device
func (v *VirtualDevice) Data() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.data...)
}

func (v *VirtualDevice) state() (nack, stretching bool, release chan struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nack, v.stretching, v.release
}

// hold blocks while the device stretches the clock. Probes treat a
// stretched clock as no acknowledgment.
func (v *VirtualDevice) hold(timeout time.Duration, expired error) error {
	_, stretching, release := v.state()
	if !stretching {
		return nil
	}
	if timeout < 0 {
		<-release
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-release:
		return nil
	case <-timer.C:
		return expired
	}
}

// VirtualDriver is an in-memory Driver. It never touches hardware, which
// makes it usable for dry runs and tests.
type VirtualDriver struct {
	createErr  error
	devices    map[uint16]*VirtualDevice
	lastConfig MasterBusConfig
	mu         sync.Mutex
	openBuses  int
	attached   int
	creates    int
	probes     int
}

// NewVirtualDriver creates a virtual driver with devs connected to its bus
func NewVirtualDriver(devs ...*VirtualDevice) *VirtualDriver {
	d := &VirtualDriver{devices: make(map[uint16]*VirtualDevice)}
	for _, dev := range devs {
		d.Connect(dev)
	}
	return d
}

// Connect puts dev on the simulated wire
func (d *VirtualDriver) Connect(dev *VirtualDevice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.devices[dev.addr] = dev
}

// Disconnect removes the device at addr from the simulated wire
func (d *VirtualDriver) Disconnect(addr uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.devices, addr)
}

// SetCreateError makes NewMasterBus fail with err
func (d *VirtualDriver) SetCreateError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createErr = err
}

// OpenBuses returns the number of buses created and not yet closed
func (d *VirtualDriver) OpenBuses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openBuses
}

// AttachedDevices returns the number of registered device handles
func (d *VirtualDriver) AttachedDevices() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached
}

// CreateCalls returns how many times NewMasterBus was called
func (d *VirtualDriver) CreateCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.creates
}

// ProbeCalls returns how many probes reached the driver
func (d *VirtualDriver) ProbeCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.probes
}

// LastConfig returns the configuration of the last NewMasterBus call
func (d *VirtualDriver) LastConfig() MasterBusConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastConfig
}

// NewMasterBus implements Driver
func (d *VirtualDriver) NewMasterBus(cfg MasterBusConfig) (MasterBus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.creates++
	d.lastConfig = cfg
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.openBuses++
	return &virtualBus{drv: d}, nil
}

func (d *VirtualDriver) lookup(addr uint16) *VirtualDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devices[addr]
}

type virtualBus struct {
	drv    *VirtualDriver
	mu     sync.Mutex
	closed bool
}

func (b *virtualBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *virtualBus) Probe(addr uint16, timeout time.Duration) error {
	if b.isClosed() {
		return ErrInvalidState
	}
	if addr > MaxAddr7 {
		return ErrInvalidArg
	}

	b.drv.mu.Lock()
	b.drv.probes++
	b.drv.mu.Unlock()

	dev := b.drv.lookup(addr)
	if dev == nil {
		return ErrNotFound
	}
	if nack, _, _ := dev.state(); nack {
		return ErrNotFound
	}
	if err := dev.hold(timeout, ErrNotFound); err != nil {
		return err
	}
	return nil
}

func (b *virtualBus) AddDevice(cfg DeviceConfig) (MasterDevice, error) {
	if b.isClosed() {
		return nil, ErrInvalidState
	}
	if cfg.AddrBitLen == AddrBitLen7 && cfg.Address > MaxAddr7 {
		return nil, ErrInvalidArg
	}

	b.drv.mu.Lock()
	b.drv.attached++
	b.drv.mu.Unlock()

	return &virtualHandle{bus: b, addr: cfg.Address}, nil
}

func (b *virtualBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrInvalidState
	}
	b.closed = true

	b.drv.mu.Lock()
	b.drv.openBuses--
	b.drv.mu.Unlock()
	return nil
}

type virtualHandle struct {
	bus     *virtualBus
	addr    uint16
	mu      sync.Mutex
	removed bool
}

// target resolves the device currently answering at the handle's address
func (h *virtualHandle) target(timeout time.Duration) (*VirtualDevice, error) {
	h.mu.Lock()
	removed := h.removed
	h.mu.Unlock()
	if removed || h.bus.isClosed() {
		return nil, ErrInvalidState
	}

	dev := h.bus.drv.lookup(h.addr)
	if dev == nil {
		return nil, ErrNACK
	}
	if nack, _, _ := dev.state(); nack {
		return nil, ErrNACK
	}
	if err := dev.hold(timeout, ErrTimeout); err != nil {
		return nil, err
	}
	return dev, nil
}

func (h *virtualHandle) Transmit(w []byte, timeout time.Duration) error {
	dev, err := h.target(timeout)
	if err != nil {
		return err
	}
	dev.SetData(w)
	return nil
}

func (h *virtualHandle) Receive(r []byte, timeout time.Duration) error {
	dev, err := h.target(timeout)
	if err != nil {
		return err
	}
	data := dev.Data()
	n := copy(r, data)
	for i := n; i < len(r); i++ {
		r[i] = 0
	}
	return nil
}

func (h *virtualHandle) Remove() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.removed {
		return ErrInvalidState
	}
	h.removed = true

	h.bus.drv.mu.Lock()
	h.bus.drv.attached--
	h.bus.drv.mu.Unlock()
	return nil
}

var (
	_ Driver       = (*VirtualDriver)(nil)
	_ MasterBus    = (*virtualBus)(nil)
	_ MasterDevice = (*virtualHandle)(nil)
)
