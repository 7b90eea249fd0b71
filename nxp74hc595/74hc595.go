// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The 74HC595 is a serial shift register. It converts a serial stream to a
// parallel output. Two of them chained together take one 16 bit word: the
// first byte shifted in ends up in the far register.
//
// This package pushes one word at a time into such a chain, either by
// bit-banging three GPIO pins (DIO, SCLK, RCLK) or over an SPI bus with the
// latch on a separate GPIO pin. The word is shifted MSB first and committed
// to the output register by a pulse on the latch (RCLK) pin.
//
// # Datasheet
//
// https://www.nexperia.com/product/74HC595D
//
// There's a nice tutorial on the device here:
//
// https://docs.arduino.cc/tutorials/communication/guide-to-shift-out/
package nxp74hc595

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

const (
	devName  = "74HC595"
	wordBits = 16
)

var (
	// ErrNilPin is returned when a required pin is not supplied.
	ErrNilPin = errors.New("nxp74hc595: nil pin")
	// ErrHalted is returned by writes after Halt.
	ErrHalted = errors.New("nxp74hc595: device halted")
)

// Dev represents a chain of 74hc595 devices taking 16 bit words.
type Dev struct {
	mu     sync.Mutex
	data   gpio.PinOut
	clock  gpio.PinOut
	latch  gpio.PinOut
	conn   spi.Conn
	halted bool
}

// NewGPIO returns a Dev that bit-bangs words on the data and clock pins and
// commits them with latch.
func NewGPIO(data, clock, latch gpio.PinOut) (*Dev, error) {
	if data == nil || clock == nil || latch == nil {
		return nil, ErrNilPin
	}
	return &Dev{data: data, clock: clock, latch: latch}, nil
}

// NewSPI returns a Dev that shifts words over conn and commits them with
// latch. conn must be configured for 8 bit words, MSB first.
func NewSPI(conn spi.Conn, latch gpio.PinOut) (*Dev, error) {
	if conn == nil {
		return nil, errors.New("nxp74hc595: nil spi connection")
	}
	if latch == nil {
		return nil, ErrNilPin
	}
	return &Dev{conn: conn, latch: latch}, nil
}

// Reset drives the clock and latch pins low, the idle state both edges are
// measured from.
func (dev *Dev) Reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.halted {
		return ErrHalted
	}
	if dev.clock != nil {
		if err := dev.clock.Out(gpio.Low); err != nil {
			return fmt.Errorf("nxp74hc595: clock: %w", err)
		}
	}
	if err := dev.latch.Out(gpio.Low); err != nil {
		return fmt.Errorf("nxp74hc595: latch: %w", err)
	}
	return nil
}

// Shift pushes word into the chain, most significant bit first. The outputs
// don't change until Latch is called.
func (dev *Dev) Shift(word uint16) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.halted {
		return ErrHalted
	}
	return dev.shift(word)
}

// Latch pulses the latch pin, copying the shift register to the outputs.
func (dev *Dev) Latch() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.halted {
		return ErrHalted
	}
	return dev.pulseLatch()
}

// Write shifts word into the chain and latches it.
func (dev *Dev) Write(word uint16) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.halted {
		return ErrHalted
	}
	if err := dev.shift(word); err != nil {
		return err
	}
	return dev.pulseLatch()
}

func (dev *Dev) shift(word uint16) error {
	if dev.conn != nil {
		if err := dev.conn.Tx([]byte{byte(word >> 8), byte(word)}, nil); err != nil {
			return fmt.Errorf("nxp74hc595: spi: %w", err)
		}
		return nil
	}
	for i := wordBits - 1; i >= 0; i-- {
		if err := dev.clock.Out(gpio.Low); err != nil {
			return fmt.Errorf("nxp74hc595: clock: %w", err)
		}
		if err := dev.data.Out(gpio.Level(word&(1<<i) != 0)); err != nil {
			return fmt.Errorf("nxp74hc595: data: %w", err)
		}
		if err := dev.clock.Out(gpio.High); err != nil {
			return fmt.Errorf("nxp74hc595: clock: %w", err)
		}
	}
	return nil
}

func (dev *Dev) pulseLatch() error {
	if err := dev.latch.Out(gpio.High); err != nil {
		return fmt.Errorf("nxp74hc595: latch: %w", err)
	}
	if err := dev.latch.Out(gpio.Low); err != nil {
		return fmt.Errorf("nxp74hc595: latch: %w", err)
	}
	return nil
}

// Halt drives the pins low and prevents further writes. It doesn't release
// the pins; they belong to whoever supplied them.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.halted {
		return nil
	}
	dev.halted = true
	var err error
	for _, p := range []gpio.PinOut{dev.data, dev.clock, dev.latch} {
		if p == nil {
			continue
		}
		if e := p.Out(gpio.Low); e != nil && err == nil {
			err = fmt.Errorf("nxp74hc595: %s: %w", p, e)
		}
	}
	return err
}

func (dev *Dev) String() string {
	if dev.conn != nil {
		return fmt.Sprintf("%s{%s, latch=%s}", devName, dev.conn, dev.latch)
	}
	return fmt.Sprintf("%s{data=%s, clock=%s, latch=%s}", devName, dev.data, dev.clock, dev.latch)
}

var _ conn.Resource = &Dev{}
