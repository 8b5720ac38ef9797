// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package internal contains the MLX90640 register map.
//
// It is an implementation detail of the protocol.
package internal

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/periph/conn/physic"
)

// Register is a 16 bits address on the device.
type Register uint16

// Registers and memory regions.
const (
	RegStatus  Register = 0x8000
	RegControl Register = 0x800D
	RAM        Register = 0x0400
	EEPROM     Register = 0x2400
)

// Sizes in 16 bits words.
const (
	RAMWords    = 832 // 768 pixels followed by 64 auxiliary words.
	EEPROMWords = 832
	Pixels      = 768
)

// Status register bits.
const (
	StatusSubPage uint16 = 1 << 0
	StatusNewData uint16 = 1 << 3
	// StatusStart is written back after reading a frame: enable overwrite and
	// start the next measurement.
	StatusStart uint16 = 0x0030
)

// Control register 1 bits.
const (
	ControlSubPageMode uint16 = 1 << 0
	ControlRateShift          = 7
	ControlRateMask    uint16 = 7 << ControlRateShift
	ControlResShift           = 10
	ControlResMask     uint16 = 3 << ControlResShift
	ControlChess       uint16 = 1 << 12
)

// RefreshRates is indexed by the 3 bits code stored in the control register.
var RefreshRates = [8]physic.Frequency{
	500 * physic.MilliHertz,
	physic.Hertz,
	2 * physic.Hertz,
	4 * physic.Hertz,
	8 * physic.Hertz,
	16 * physic.Hertz,
	32 * physic.Hertz,
	64 * physic.Hertz,
}

// RefreshCode returns the control register code for f.
func RefreshCode(f physic.Frequency) (uint16, error) {
	for i, r := range RefreshRates {
		if r == f {
			return uint16(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported refresh rate %s", f)
}

// Addr encodes the register address as sent on the wire.
func (r Register) Addr() []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(r))
	return b
}

// Write encodes a single word write transaction.
func (r Register) Write(v uint16) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint16(b, uint16(r))
	binary.BigEndian.PutUint16(b[2:], v)
	return b
}

// Words decodes big endian 16 bits words.
func Words(dst []uint16, b []byte) {
	for i := range dst {
		dst[i] = binary.BigEndian.Uint16(b[2*i:])
	}
}
