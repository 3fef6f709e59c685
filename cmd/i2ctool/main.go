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

// Command i2ctool probes, scans and talks to devices on an I2C master bus.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()

	app.Name = "i2ctool"
	app.Usage = "probe, scan and talk to I2C devices"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from TOML `FILE`",
		},
		cli.IntFlag{
			Name:  "port, p",
			Value: -1,
			Usage: "bus number; negative selects the first bus found",
		},
		cli.IntFlag{
			Name:  "sda",
			Usage: "SDA pin number",
		},
		cli.IntFlag{
			Name:  "scl",
			Usage: "SCL pin number",
		},
		cli.StringFlag{
			Name:  "speed",
			Value: "100kHz",
			Usage: "bus clock speed",
		},
		cli.BoolFlag{
			Name:  "pullups",
			Usage: "enable the internal pull-ups on SDA and SCL",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "bound every read and write; 0 waits forever",
		},
		cli.BoolFlag{
			Name:  "simulate",
			Usage: "use an in-memory bus instead of hardware",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug output",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "buses",
			Usage:  "list the I2C buses the host knows about",
			Action: listBuses,
		},
		{
			Name:   "scan",
			Usage:  "probe every regular 7-bit address",
			Action: scanBus,
		},
		{
			Name:   "probe",
			Usage:  "check whether a device acknowledges an address",
			Flags:  []cli.Flag{addrFlag},
			Action: probeDevice,
		},
		{
			Name:  "read",
			Usage: "read bytes from a device",
			Flags: []cli.Flag{
				addrFlag,
				cli.IntFlag{Name: "len, n", Value: 1, Usage: "number of bytes to read"},
			},
			Action: readDevice,
		},
		{
			Name:  "write",
			Usage: "write hex bytes to a device",
			Flags: []cli.Flag{
				addrFlag,
				cli.StringFlag{Name: "data, d", Usage: "bytes to write, e.g. \"01 02 03\""},
			},
			Action: writeDevice,
		},
	}

	app.Before = func(*cli.Context) error {
		log.SetFormatter(&log.TextFormatter{DisableColors: true})
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

var addrFlag = cli.StringFlag{
	Name:  "addr, a",
	Usage: "7-bit device address, e.g. 0x48",
}
