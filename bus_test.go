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
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func testConfig() *Config {
	return &Config{
		Port:          0,
		SDAPin:        21,
		SCLPin:        22,
		ClockSpeed:    400 * physic.KiloHertz,
		EnablePullups: true,
	}
}

func quietLogger() (logrus.FieldLogger, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	return logger, hook
}

// driverFunc adapts a function to Driver
type driverFunc func(cfg MasterBusConfig) (MasterBus, error)

func (f driverFunc) NewMasterBus(cfg MasterBusConfig) (MasterBus, error) {
	return f(cfg)
}

// faultyBus acknowledges acks, fails with err at failAt and reports every
// other address as absent.
type faultyBus struct {
	err    error
	acks   map[uint16]bool
	failAt uint16
}

func (f *faultyBus) Probe(addr uint16, _ time.Duration) error {
	switch {
	case addr == f.failAt:
		return f.err
	case f.acks[addr]:
		return nil
	}
	return ErrNotFound
}

func (f *faultyBus) AddDevice(DeviceConfig) (MasterDevice, error) {
	return nil, ErrInvalidState
}

func (f *faultyBus) Close() error {
	return nil
}

func TestInitialize_InvalidArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		drv  Driver
		cfg  *Config
		name string
	}{
		{
			name: "Nil_Config",
			drv:  NewVirtualDriver(),
			cfg:  nil,
		},
		{
			name: "Nil_Driver",
			drv:  nil,
			cfg:  testConfig(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, hook := quietLogger()
			bus, err := Initialize(tt.drv, tt.cfg, WithLogger(logger))

			require.ErrorIs(t, err, ErrInvalidArg)
			assert.Nil(t, bus)
			assert.Empty(t, hook.AllEntries())
			if vd, ok := tt.drv.(*VirtualDriver); ok {
				assert.Zero(t, vd.CreateCalls())
			}
		})
	}
}

// TestInitialize_AllocationFailure swaps the package allocator, so it must
// not run in parallel with other tests.
func TestInitialize_AllocationFailure(t *testing.T) {
	saved := allocBus
	allocBus = func() *Bus { return nil }
	t.Cleanup(func() { allocBus = saved })

	drv := NewVirtualDriver()
	logger, hook := quietLogger()

	bus, err := Initialize(drv, testConfig(), WithLogger(logger))

	require.ErrorIs(t, err, ErrNoMem)
	assert.Nil(t, bus)
	assert.Zero(t, drv.CreateCalls(), "bus creation must not be attempted")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestInitialize_DriverFailure(t *testing.T) {
	t.Parallel()

	createErr := errors.New("bus busy")
	drv := NewVirtualDriver()
	drv.SetCreateError(createErr)
	logger, hook := quietLogger()

	bus, err := Initialize(drv, testConfig(), WithLogger(logger))

	assert.Nil(t, bus)
	assert.Same(t, createErr, err, "driver error must be returned unchanged")
	assert.Equal(t, 1, drv.CreateCalls())
	assert.Zero(t, drv.OpenBuses())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "bus init failed", hook.LastEntry().Message)
}

func TestInitialize_BusConfig(t *testing.T) {
	t.Parallel()

	drv := NewVirtualDriver()
	logger, hook := quietLogger()

	bus, err := Initialize(drv, testConfig(), WithLogger(logger))
	require.NoError(t, err)
	require.NotNil(t, bus)
	t.Cleanup(func() { _ = bus.Deinitialize() })

	assert.Equal(t, MasterBusConfig{
		Port:              0,
		SDAPin:            21,
		SCLPin:            22,
		ClockSource:       ClockSourceDefault,
		GlitchIgnoreCount: 7,
		IntrPriority:      0,
		TransQueueDepth:   0,
		Speed:             400 * physic.KiloHertz,
		InternalPullup:    true,
	}, drv.LastConfig())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 0, hook.LastEntry().Data["port"])
	assert.Equal(t, 0, bus.Port())
	assert.Equal(t, "i2c(port 0)", bus.String())
}

func TestInitialize_InvalidOption(t *testing.T) {
	t.Parallel()

	drv := NewVirtualDriver()
	bus, err := Initialize(drv, testConfig(), WithTransferTimeout(0))

	require.ErrorIs(t, err, ErrInvalidArg)
	assert.Nil(t, bus)
	assert.Zero(t, drv.CreateCalls())
}

func TestDeinitialize(t *testing.T) {
	t.Parallel()

	t.Run("No_Leak", func(t *testing.T) {
		t.Parallel()

		drv := NewVirtualDriver()
		logger, hook := quietLogger()
		bus, err := Initialize(drv, testConfig(), WithLogger(logger))
		require.NoError(t, err)
		assert.Equal(t, 1, drv.OpenBuses())

		require.NoError(t, bus.Deinitialize())
		assert.Zero(t, drv.OpenBuses())
		assert.Equal(t, "I2C master bus de-initialized", hook.LastEntry().Message)
	})

	t.Run("Nil_Bus", func(t *testing.T) {
		t.Parallel()

		var bus *Bus
		assert.NotPanics(t, func() {
			assert.NoError(t, bus.Deinitialize())
		})
	})

	t.Run("Twice", func(t *testing.T) {
		t.Parallel()

		logger, _ := quietLogger()
		bus, err := Initialize(NewVirtualDriver(), testConfig(), WithLogger(logger))
		require.NoError(t, err)

		require.NoError(t, bus.Deinitialize())
		assert.ErrorIs(t, bus.Deinitialize(), ErrInvalidState)
	})
}

// TestDeinitialize_NilBusIsSilent hooks the standard logger, so it must not
// run in parallel with other tests.
func TestDeinitialize_NilBusIsSilent(t *testing.T) {
	hook := logtest.NewGlobal()
	t.Cleanup(func() {
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	})

	var bus *Bus
	require.NoError(t, bus.Deinitialize())
	assert.Empty(t, hook.AllEntries())
}

func TestBus_NilIdentity(t *testing.T) {
	t.Parallel()

	var bus *Bus
	assert.NotPanics(t, func() {
		assert.Equal(t, -1, bus.Port())
		assert.Equal(t, "i2c(nil)", bus.String())
	})

	logger, _ := quietLogger()
	cfg := testConfig()
	cfg.Port = 2
	live, err := Initialize(NewVirtualDriver(), cfg, WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = live.Deinitialize() })
	assert.Equal(t, 2, live.Port())
}

func TestBus_Probe(t *testing.T) {
	t.Parallel()

	stretcher := NewVirtualDevice(0x50)
	stretcher.SetStretching(true)
	silent := NewVirtualDevice(0x20)
	silent.SetNACK(true)

	tests := []struct {
		wantErr error
		name    string
		addr    uint16
	}{
		{name: "Acknowledged", addr: 0x48, wantErr: nil},
		{name: "Nothing_At_Address", addr: 0x10, wantErr: ErrNotFound},
		{name: "NACK", addr: 0x20, wantErr: ErrNotFound},
		{name: "Clock_Stretched_Past_Timeout", addr: 0x50, wantErr: ErrNotFound},
		{name: "Address_Out_Of_Range", addr: 0x80, wantErr: ErrInvalidArg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			drv := NewVirtualDriver(NewVirtualDevice(0x48), silent, stretcher)
			logger, _ := quietLogger()
			bus, err := Initialize(drv, testConfig(), WithLogger(logger))
			require.NoError(t, err)
			t.Cleanup(func() { _ = bus.Deinitialize() })

			err = bus.Probe(tt.addr)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBus_ProbeReturnsWithinTimeout(t *testing.T) {
	t.Parallel()

	dev := NewVirtualDevice(0x3C)
	dev.SetStretching(true)
	t.Cleanup(dev.Release)

	logger, _ := quietLogger()
	bus, err := Initialize(NewVirtualDriver(dev), testConfig(), WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Deinitialize() })

	done := make(chan error, 1)
	start := time.Now()
	go func() {
		done <- bus.Probe(0x3C)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNotFound)
		assert.True(t, time.Since(start) >= ProbeTimeout, "probe returned before its timeout")
	case <-time.After(2 * time.Second):
		t.Fatal("probe did not return after its timeout")
	}
}

func TestBus_ProbeNilHandle(t *testing.T) {
	t.Parallel()

	var bus *Bus
	for _, addr := range []uint16{0x00, 0x48, 0x7F, 0xFF} {
		assert.ErrorIs(t, bus.Probe(addr), ErrInvalidArg)
	}
}

func TestBus_ProbeAfterDeinitialize(t *testing.T) {
	t.Parallel()

	drv := NewVirtualDriver(NewVirtualDevice(0x48))
	logger, _ := quietLogger()
	bus, err := Initialize(drv, testConfig(), WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, bus.Deinitialize())

	assert.ErrorIs(t, bus.Probe(0x48), ErrInvalidState)
	assert.Zero(t, drv.ProbeCalls())
}

func TestBus_AttachDevice(t *testing.T) {
	t.Parallel()

	t.Run("Nil_Bus", func(t *testing.T) {
		t.Parallel()

		var bus *Bus
		dev, err := bus.AttachDevice(0x48, 100*physic.KiloHertz)
		require.ErrorIs(t, err, ErrInvalidArg)
		assert.Nil(t, dev)
	})

	t.Run("Success", func(t *testing.T) {
		t.Parallel()

		drv := NewVirtualDriver()
		logger, _ := quietLogger()
		bus, err := Initialize(drv, testConfig(), WithLogger(logger))
		require.NoError(t, err)
		t.Cleanup(func() { _ = bus.Deinitialize() })

		dev, err := bus.AttachDevice(0x48, 100*physic.KiloHertz)
		require.NoError(t, err)
		require.NotNil(t, dev)
		assert.Equal(t, uint16(0x48), dev.Addr())
		assert.Equal(t, "i2c-dev(0x48)", dev.String())
		assert.Equal(t, 1, drv.AttachedDevices())

		// Same address again is the driver's call; the virtual driver allows it.
		again, err := bus.AttachDevice(0x48, 100*physic.KiloHertz)
		require.NoError(t, err)
		assert.Equal(t, 2, drv.AttachedDevices())

		require.NoError(t, dev.Detach())
		require.NoError(t, again.Detach())
		assert.Zero(t, drv.AttachedDevices())
	})

	t.Run("Driver_Rejects_Address", func(t *testing.T) {
		t.Parallel()

		logger, _ := quietLogger()
		bus, err := Initialize(NewVirtualDriver(), testConfig(), WithLogger(logger))
		require.NoError(t, err)
		t.Cleanup(func() { _ = bus.Deinitialize() })

		dev, err := bus.AttachDevice(0x1FF, 100*physic.KiloHertz)
		assert.Same(t, ErrInvalidArg, err)
		assert.Nil(t, dev)
	})
}

func TestBus_Scan(t *testing.T) {
	t.Parallel()

	nacker := NewVirtualDevice(0x30)
	nacker.SetNACK(true)
	drv := NewVirtualDriver(NewVirtualDevice(0x3C), NewVirtualDevice(0x48), nacker, NewVirtualDevice(0x68))
	logger, _ := quietLogger()
	bus, err := Initialize(drv, testConfig(), WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Deinitialize() })

	found, err := bus.Scan(0x08, 0x77)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x3C, 0x48, 0x68}, found)

	_, err = bus.Scan(0x10, 0x08)
	require.ErrorIs(t, err, ErrInvalidArg)

	_, err = bus.Scan(0x00, 0x80)
	require.ErrorIs(t, err, ErrInvalidArg)

	var nilBus *Bus
	_, err = nilBus.Scan(0x08, 0x77)
	require.ErrorIs(t, err, ErrInvalidArg)
}

func TestBus_ScanStopsOnBusError(t *testing.T) {
	t.Parallel()

	busErr := errors.New("arbitration lost")
	master := &faultyBus{
		acks:   map[uint16]bool{0x10: true, 0x40: true},
		failAt: 0x20,
		err:    busErr,
	}
	drv := driverFunc(func(MasterBusConfig) (MasterBus, error) {
		return master, nil
	})

	tests := []struct {
		wantErr   error
		name      string
		wantFound []uint16
		first     uint16
		last      uint16
	}{
		{
			name:      "Error_Mid_Range",
			first:     0x08,
			last:      0x77,
			wantFound: []uint16{0x10},
			wantErr:   busErr,
		},
		{
			name:      "Error_At_First_Address",
			first:     0x20,
			last:      0x77,
			wantFound: nil,
			wantErr:   busErr,
		},
		{
			name:      "Range_Before_Error",
			first:     0x08,
			last:      0x1F,
			wantFound: []uint16{0x10},
			wantErr:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, _ := quietLogger()
			bus, err := Initialize(drv, testConfig(), WithLogger(logger))
			require.NoError(t, err)

			found, err := bus.Scan(tt.first, tt.last)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.Same(t, tt.wantErr, err)
			}
			assert.Equal(t, tt.wantFound, found)
		})
	}
}
