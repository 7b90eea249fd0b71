// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tempsensor reads the Modbus RTU temperature transmitters (one or
// more PT100/DS18B20 probes behind an RS485 to USB adapter) used in the
// control box.
//
// The transmitter answers a single raw "read input registers" request at
// slave address 1, register 0x0400. Each register holds one probe reading
// in tenth of °C.
package tempsensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/GermanBionicSystems/iotctrl/common"
	"github.com/jacobsa/go-serial/serial"
	"periph.io/x/conn/v3/physic"
)

var (
	// ErrOpen is returned when the serial port can't be opened.
	ErrOpen = errors.New("tempsensor: failed to open serial port")
	// ErrShortWrite is returned when the request wasn't fully written.
	ErrShortWrite = errors.New("tempsensor: short write")
	// ErrHeader is returned when the response doesn't answer the request.
	ErrHeader = errors.New("tempsensor: invalid response header")
	// ErrCRC is returned when the response checksum doesn't match.
	ErrCRC = errors.New("tempsensor: response crc mismatch")
	// ErrCount is returned for an invalid number of probes.
	ErrCount = errors.New("tempsensor: invalid probe count")
)

const (
	// DefaultPath is where the RS485 adapter usually shows up.
	DefaultPath = "/dev/ttyUSB0"
	// MaxCount is the most registers a single Modbus read returns.
	MaxCount = 125

	slaveAddress       = 0x01
	funcReadInput      = 0x04
	firstRegister      = 0x0400
	exceptionFlag byte = 0x80
)

// Invalid is reported by the transmitter for a missing or broken probe.
const Invalid Reading = 0x7FFF

// Reading is a probe value in tenth of °C, e.g. 321 is 32.1°C.
type Reading int16

// Valid reports whether the probe returned a measurement.
func (r Reading) Valid() bool {
	return r != Invalid
}

// Temperature converts the reading.
func (r Reading) Temperature() physic.Temperature {
	return physic.Temperature(r)*100*physic.MilliKelvin + physic.ZeroCelsius
}

func (r Reading) String() string {
	if !r.Valid() {
		return "invalid"
	}
	return r.Temperature().String()
}

// Dev is a temperature transmitter on a serial port.
type Dev struct {
	port io.ReadWriter
}

// New returns a transmitter talking over port. Closing port is left to the
// caller.
func New(port io.ReadWriter) *Dev {
	return &Dev{port: port}
}

// Open opens the serial port at path, 9600 baud 8N1. Close the returned
// closer when done.
func Open(path string) (*Dev, io.Closer, error) {
	port, err := serial.Open(serial.OpenOptions{
		PortName:   path,
		BaudRate:   9600,
		DataBits:   8,
		StopBits:   1,
		ParityMode: serial.PARITY_NONE,
		// A silent transmitter ends the read instead of blocking forever.
		InterCharacterTimeout: 500,
		MinimumReadSize:       0,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	return New(port), port, nil
}

// request returns the raw request for count registers.
func request(count int) []byte {
	frame := []byte{slaveAddress, funcReadInput, 0, 0, 0, byte(count)}
	binary.BigEndian.PutUint16(frame[2:], firstRegister)
	return common.AppendCRC16(frame)
}

// Read queries count probes. A probe that isn't connected reads Invalid.
func (d *Dev) Read(count int) ([]Reading, error) {
	if count < 1 || count > MaxCount {
		return nil, fmt.Errorf("%w: %d, must be in [1, %d]", ErrCount, count, MaxCount)
	}
	req := request(count)
	n, err := d.port.Write(req)
	if err != nil {
		return nil, fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrShortWrite, n, len(req), err)
	}
	if n != len(req) {
		return nil, fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(req))
	}

	rsp := make([]byte, 3, 5+2*count)
	if _, err = io.ReadFull(d.port, rsp); err != nil {
		return nil, fmt.Errorf("tempsensor: read header: %w", err)
	}
	if rsp[0] == slaveAddress && rsp[1] == funcReadInput|exceptionFlag {
		// Exception responses are address, function, code, crc.
		rsp = rsp[:5]
		if _, err = io.ReadFull(d.port, rsp[3:]); err == nil && !common.CheckCRC16(rsp) {
			return nil, fmt.Errorf("%w: exception response % x", ErrCRC, rsp)
		}
		return nil, fmt.Errorf("%w: modbus exception 0x%02x", ErrHeader, rsp[2])
	}
	if rsp[0] != slaveAddress || rsp[1] != funcReadInput || int(rsp[2]) != 2*count {
		return nil, fmt.Errorf("%w: expected % x, got % x", ErrHeader, []byte{slaveAddress, funcReadInput, byte(2 * count)}, rsp)
	}
	rsp = rsp[:cap(rsp)]
	if _, err = io.ReadFull(d.port, rsp[3:]); err != nil {
		return nil, fmt.Errorf("tempsensor: read %d registers: %w", count, err)
	}
	if !common.CheckCRC16(rsp) {
		return nil, fmt.Errorf("%w: response % x", ErrCRC, rsp)
	}
	readings := make([]Reading, count)
	for i := range readings {
		readings[i] = Reading(binary.BigEndian.Uint16(rsp[3+2*i:]))
	}
	return readings, nil
}

func (d *Dev) String() string {
	return "tempsensor"
}
