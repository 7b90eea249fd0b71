// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package relay switches the single channel USB serial relay boards based on
// the CH340 bridge (LCUS-1 and clones). The board understands two 4 byte
// frames: start byte 0xA0, channel, state and a sum checksum.
package relay

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jacobsa/go-serial/serial"
)

var (
	// ErrOpen is returned when the relay device can't be found or opened.
	ErrOpen = errors.New("relay: failed to open device")
	// ErrShortWrite is returned when the command wasn't fully written.
	ErrShortWrite = errors.New("relay: short write")
)

// DefaultPath is where the CH340 bridge usually shows up.
const DefaultPath = "/dev/ttyUSB0"

const channel = 0x01

var (
	cmdOn  = frame(true)
	cmdOff = frame(false)
)

// frame returns the command switching channel 1.
func frame(on bool) []byte {
	var state byte
	if on {
		state = 1
	}
	return []byte{0xA0, channel, state, 0xA0 + channel + state}
}

// Opts configures how the device is opened.
type Opts struct {
	// BaudRate of the bridge. Defaults to 9600.
	BaudRate uint
	// Open overrides how path is opened, e.g. for tests. Defaults to a
	// serial port opened 8N1 at BaudRate.
	Open func(path string) (io.WriteCloser, error)
}

// DefaultOpts is the configuration of the CH340 board.
var DefaultOpts = Opts{BaudRate: 9600}

func (o *Opts) openSerial(path string) (io.WriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:        path,
		BaudRate:        o.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
}

// Set switches the relay at path on or off. If opts is nil, DefaultOpts is
// used.
func Set(path string, on bool, opts *Opts) (err error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.BaudRate == 0 {
		o.BaudRate = DefaultOpts.BaudRate
	}
	open := o.Open
	if open == nil {
		open = o.openSerial
	}
	// Opening a missing path with O_CREAT semantics would leave a regular
	// file behind; make sure the device node exists first.
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	w, err := open(path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	defer func() {
		if e := w.Close(); e != nil && err == nil {
			err = fmt.Errorf("relay: close %s: %w", path, e)
		}
	}()
	cmd := cmdOff
	if on {
		cmd = cmdOn
	}
	n, err := w.Write(cmd)
	if err != nil {
		return fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrShortWrite, n, len(cmd), err)
	}
	if n != len(cmd) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(cmd))
	}
	return nil
}
