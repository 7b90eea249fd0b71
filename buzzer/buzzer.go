// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package buzzer plays on/off patterns on an active buzzer driven by a GPIO
// line.
package buzzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GermanBionicSystems/iotctrl/chardev"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
)

var (
	// ErrOpen is returned when the GPIO chip can't be opened.
	ErrOpen = errors.New("buzzer: failed to open gpio chip")
	// ErrLine is returned when the buzzer line can't be requested.
	ErrLine = errors.New("buzzer: failed to request gpio line")
	// ErrWrite is returned when the buzzer line can't be set.
	ErrWrite = errors.New("buzzer: failed to set gpio line")
)

const (
	// DefaultPin is the line the control box buzzer is wired to.
	DefaultPin = 4
	// Consumer labels the requested line.
	Consumer = "beep"
)

// Beep is one step of a pattern: the buzzer is held on or off for Duration.
type Beep struct {
	On       bool
	Duration time.Duration
}

func (b Beep) String() string {
	if b.On {
		return "on:" + b.Duration.String()
	}
	return "off:" + b.Duration.String()
}

// Alarm is two short beeps followed by a long pause.
var Alarm = []Beep{
	{On: true, Duration: 100 * time.Millisecond},
	{On: false, Duration: 100 * time.Millisecond},
	{On: true, Duration: 100 * time.Millisecond},
	{On: false, Duration: 2 * time.Second},
}

// ParsePattern parses a comma separated list of steps like
// "on:100ms,off:100ms".
func ParsePattern(s string) ([]Beep, error) {
	var seq []Beep
	for _, step := range strings.Split(s, ",") {
		state, d, ok := strings.Cut(strings.TrimSpace(step), ":")
		if !ok {
			return nil, fmt.Errorf("buzzer: invalid step %q, expected on:<duration> or off:<duration>", step)
		}
		var b Beep
		switch state {
		case "on", "1":
			b.On = true
		case "off", "0":
		default:
			return nil, fmt.Errorf("buzzer: invalid state %q in step %q", state, step)
		}
		var err error
		if b.Duration, err = time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("buzzer: step %q: %w", step, err)
		}
		if b.Duration < 0 {
			return nil, fmt.Errorf("buzzer: negative duration in step %q", step)
		}
		seq = append(seq, b)
	}
	return seq, nil
}

// Dev is a buzzer on an output pin.
type Dev struct {
	pin gpio.PinOut
}

// New returns a buzzer driven by pin. The pin is not halted by Dev.
func New(pin gpio.PinOut) *Dev {
	return &Dev{pin: pin}
}

// Play plays seq in order. The line is left in the state of the last step
// that was played. It returns early on a pin error or when ctx is done.
func (d *Dev) Play(ctx context.Context, seq []Beep) error {
	t := time.NewTimer(0)
	defer t.Stop()
	<-t.C
	for i, b := range seq {
		if err := d.pin.Out(gpio.Level(b.On)); err != nil {
			return fmt.Errorf("%w %s step %d: %w", ErrWrite, d.pin, i, err)
		}
		t.Reset(b.Duration)
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Repeat plays seq n times, or until ctx is done if n is 0, then turns the
// buzzer off. The buzzer is turned off even when ctx is done.
func (d *Dev) Repeat(ctx context.Context, seq []Beep, n int) error {
	var err error
	for i := 0; len(seq) != 0 && (n == 0 || i < n); i++ {
		if err = d.Play(ctx, seq); err != nil {
			break
		}
	}
	if e := d.pin.Out(gpio.Low); e != nil {
		err = multierr.Append(err, fmt.Errorf("%w %s: %w", ErrWrite, d.pin, e))
	}
	return err
}

func (d *Dev) String() string {
	return fmt.Sprintf("buzzer{%s}", d.pin)
}

// Buzz opens the GPIO chip at chipPath, plays seq on line offset and
// releases the line and the chip.
func Buzz(ctx context.Context, chipPath string, offset int, seq []Beep) (err error) {
	chip, err := chardev.Open(chipPath, Consumer)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer func() {
		err = multierr.Append(err, chip.Close())
	}()
	pin, err := chip.Output(offset)
	if err != nil {
		return fmt.Errorf("%w %d: %w", ErrLine, offset, err)
	}
	defer func() {
		err = multierr.Append(err, pin.Halt())
	}()
	return New(pin).Play(ctx, seq)
}
