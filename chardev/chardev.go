// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package chardev opens a Linux GPIO character device by path and hands out
// its lines as periph gpio.PinOut values, so drivers in this module can be
// written against periph while the lines are requested with a consumer label
// through the kernel's uAPI.
//
// https://docs.kernel.org/userspace-api/gpio/chardev.html
package chardev

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// DefaultPath is the first GPIO controller on most boards.
const DefaultPath = "/dev/gpiochip0"

// ErrReleased is returned when writing to a line after Halt.
var ErrReleased = errors.New("chardev: line released")

// Chip is an open GPIO controller.
type Chip struct {
	mu       sync.Mutex
	c        *gpiocdev.Chip
	path     string
	consumer string
	closed   bool
}

// Open opens the GPIO controller at path. Lines requested from it carry
// consumer as their label.
func Open(path, consumer string) (*Chip, error) {
	c, err := gpiocdev.NewChip(path, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("chardev: open %s: %w", path, err)
	}
	return &Chip{c: c, path: path, consumer: consumer}, nil
}

// Output requests line offset as an output, initially low.
func (chip *Chip) Output(offset int) (gpio.PinOut, error) {
	chip.mu.Lock()
	defer chip.mu.Unlock()
	if chip.closed {
		return nil, fmt.Errorf("chardev: %s is closed", chip.path)
	}
	l, err := chip.c.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("chardev: request %s line %d: %w", chip.path, offset, err)
	}
	return &Line{l: l, chip: chip.path, offset: offset}, nil
}

// Close closes the controller. Lines already requested stay valid until
// they are halted.
func (chip *Chip) Close() error {
	chip.mu.Lock()
	defer chip.mu.Unlock()
	if chip.closed {
		return nil
	}
	chip.closed = true
	if err := chip.c.Close(); err != nil {
		return fmt.Errorf("chardev: close %s: %w", chip.path, err)
	}
	return nil
}

func (chip *Chip) String() string {
	return chip.path
}

// Line is a requested output line.
type Line struct {
	mu       sync.Mutex
	l        *gpiocdev.Line
	chip     string
	offset   int
	released bool
}

// Out sets the line level.
func (line *Line) Out(l gpio.Level) error {
	line.mu.Lock()
	defer line.mu.Unlock()
	if line.released {
		return ErrReleased
	}
	v := 0
	if l {
		v = 1
	}
	return line.l.SetValue(v)
}

// PWM is not supported by the character device.
func (line *Line) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("chardev: PWM not supported")
}

// Halt releases the line back to the kernel. Implements conn.Resource.
func (line *Line) Halt() error {
	line.mu.Lock()
	defer line.mu.Unlock()
	if line.released {
		return nil
	}
	line.released = true
	return line.l.Close()
}

// Name returns the line name in the periph convention.
func (line *Line) Name() string {
	return fmt.Sprintf("GPIO%d", line.offset)
}

// Number returns the line offset on its chip.
func (line *Line) Number() int {
	return line.offset
}

// Deprecated: returns "Out"
func (line *Line) Function() string {
	return "Out"
}

func (line *Line) String() string {
	return fmt.Sprintf("%s:%d", line.chip, line.offset)
}

var _ gpio.PinOut = &Line{}
