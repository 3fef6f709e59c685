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
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	periphi2c "github.com/ZaparooProject/go-i2cbus/transport/i2c"
)

// Output handles consistent formatting of messages
type Output struct {
	w io.Writer
}

// NewOutput creates a new output handler
func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

// Buses prints one line per bus
func (o *Output) Buses(buses []periphi2c.BusInfo) {
	for _, b := range buses {
		line := fmt.Sprintf("%-12s #%d", b.Name, b.Number)
		if len(b.Aliases) > 0 {
			line += " (" + strings.Join(b.Aliases, ", ") + ")"
		}
		_, _ = fmt.Fprintln(o.w, line)
	}
}

// ScanGrid prints scan results the way i2cdetect does: one row per 16
// addresses, "--" for silence, blank outside the scanned range.
func (o *Output) ScanGrid(first, last uint16, found []uint16) {
	hit := make(map[uint16]bool, len(found))
	for _, addr := range found {
		hit[addr] = true
	}

	var sb strings.Builder
	sb.WriteString("   ")
	for col := 0; col < 16; col++ {
		_, _ = fmt.Fprintf(&sb, "  %x", col)
	}
	_, _ = fmt.Fprintln(o.w, sb.String())

	for row := uint16(0); row < 0x80; row += 16 {
		sb.Reset()
		_, _ = fmt.Fprintf(&sb, "%02x:", row)
		for addr := row; addr < row+16; addr++ {
			switch {
			case addr < first || addr > last:
				sb.WriteString("   ")
			case hit[addr]:
				_, _ = fmt.Fprintf(&sb, " %02x", addr)
			default:
				sb.WriteString(" --")
			}
		}
		_, _ = fmt.Fprintln(o.w, strings.TrimRight(sb.String(), " "))
	}
}

// Bytes prints data as space separated hex
func (o *Output) Bytes(data []byte) {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	_, _ = fmt.Fprintln(o.w, strings.Join(parts, " "))
}

// Warning prints a warning message
func (o *Output) Warning(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, "WARNING: "+format+"\n", args...)
}

// Info prints an info message
func (o *Output) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, "INFO: "+format+"\n", args...)
}

// OK prints a success message
func (o *Output) OK(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, "OK: "+format+"\n", args...)
}

// parseHexBytes parses "01 02 03", "0x01,0x02" or "010203"
func parseHexBytes(s string) ([]byte, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == ':'
	})

	var out []byte
	for _, f := range fields {
		f = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
		b, err := hex.DecodeString(f)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %w", f, err)
		}
		out = append(out, b...)
	}
	if len(out) == 0 {
		return nil, errors.New("missing --data")
	}
	return out, nil
}
