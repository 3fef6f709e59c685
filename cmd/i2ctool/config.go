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
	"fmt"
	"time"

	i2cbus "github.com/ZaparooProject/go-i2cbus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"
	"periph.io/x/conn/v3/physic"
)

// settings is the merged view of the config file and command line
type settings struct {
	SimDevices []int
	Bus        i2cbus.Config
	Timeout    time.Duration
	Simulate   bool
	Debug      bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("bus.port", -1)
	v.SetDefault("bus.sda", 0)
	v.SetDefault("bus.scl", 0)
	v.SetDefault("bus.speed", "100kHz")
	v.SetDefault("bus.pullups", false)
	v.SetDefault("transfer.timeout", "0s")
	v.SetDefault("simulate.enabled", false)
	v.SetDefault("simulate.devices", []int{0x48})
	v.SetDefault("core.debug", false)
	return v
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigType("toml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// bindFlags lets flags given on the command line win over the config file
func bindFlags(v *viper.Viper, c *cli.Context) {
	if c.GlobalIsSet("port") {
		v.Set("bus.port", c.GlobalInt("port"))
	}
	if c.GlobalIsSet("sda") {
		v.Set("bus.sda", c.GlobalInt("sda"))
	}
	if c.GlobalIsSet("scl") {
		v.Set("bus.scl", c.GlobalInt("scl"))
	}
	if c.GlobalIsSet("speed") {
		v.Set("bus.speed", c.GlobalString("speed"))
	}
	if c.GlobalIsSet("pullups") {
		v.Set("bus.pullups", c.GlobalBool("pullups"))
	}
	if c.GlobalIsSet("timeout") {
		v.Set("transfer.timeout", c.GlobalDuration("timeout"))
	}
	if c.GlobalIsSet("simulate") {
		v.Set("simulate.enabled", c.GlobalBool("simulate"))
	}
	if c.GlobalIsSet("debug") {
		v.Set("core.debug", c.GlobalBool("debug"))
	}
}

func decodeSettings(v *viper.Viper) (*settings, error) {
	var speed physic.Frequency
	if err := speed.Set(v.GetString("bus.speed")); err != nil {
		return nil, fmt.Errorf("invalid bus speed %q: %w", v.GetString("bus.speed"), err)
	}

	timeout := v.GetDuration("transfer.timeout")
	if timeout < 0 {
		return nil, fmt.Errorf("invalid transfer timeout %s", timeout)
	}

	devices := v.GetIntSlice("simulate.devices")
	for _, addr := range devices {
		if addr < 0 || addr > i2cbus.MaxAddr7 {
			return nil, fmt.Errorf("invalid simulated device address %d: must be 0x00-0x%02X", addr, i2cbus.MaxAddr7)
		}
	}

	return &settings{
		Bus: i2cbus.Config{
			Port:          v.GetInt("bus.port"),
			SDAPin:        v.GetInt("bus.sda"),
			SCLPin:        v.GetInt("bus.scl"),
			ClockSpeed:    speed,
			EnablePullups: v.GetBool("bus.pullups"),
		},
		Timeout:    timeout,
		Simulate:   v.GetBool("simulate.enabled"),
		SimDevices: devices,
		Debug:      v.GetBool("core.debug"),
	}, nil
}

func loadSettings(c *cli.Context) (*settings, error) {
	v := newViper()
	if err := readConfigFile(v, c.GlobalString("config")); err != nil {
		return nil, err
	}
	bindFlags(v, c)
	return decodeSettings(v)
}

// busOptions turns settings into bus manager options
func (s *settings) busOptions() []i2cbus.Option {
	if s.Timeout > 0 {
		return []i2cbus.Option{i2cbus.WithTransferTimeout(s.Timeout)}
	}
	return nil
}
