// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen7seg emulates a 74HC595 driven 7-segment display on the
// terminal (stdout) using ANSI color codes.
//
// It acts as the GPIO chip the display is wired to: request the data, clock
// and latch lines from it, shift words in, and every latched word lights
// the selected digits. Useful while the display module is still in the
// mail, and in tests, since it records what was latched and how many lines
// were requested and released.
package screen7seg

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Opts represents the options available for this emulator.
type Opts struct {
	// Data, Clock and Latch are the line offsets wired to DIO, SCLK and RCLK.
	Data  int
	Clock int
	Latch int
	// Digits is the number of digits, at most 8.
	Digits int
	// Interval is the minimum time between two renders. Zero disables
	// rendering.
	Interval time.Duration
	// W receives the rendering. Defaults to stdout.
	W       io.Writer
	Palette *ansi256.Palette
	// On and Off are the colors of lit and unlit segments. The zero value
	// selects red and dark red.
	On  color.NRGBA
	Off color.NRGBA

	_ struct{}
}

// Stats counts the GPIO resources handed out by the emulator.
type Stats struct {
	Requested int
	Released  int
	Closed    int
}

// Dev is a 7-segment display emulator that outputs to the console.
type Dev struct {
	mu      sync.Mutex
	opts    Opts
	w       io.Writer
	palette ansi256.Palette

	levels   map[int]gpio.Level
	lines    map[int]*line
	shift    uint16
	segments []byte
	latched  int
	stats    Stats

	lastRender time.Time
	rendered   bool
	buf        bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	o := *opts
	if o.On == (color.NRGBA{}) {
		o.On = color.NRGBA{R: 255, A: 255}
	}
	if o.Off == (color.NRGBA{}) {
		o.Off = color.NRGBA{R: 48, A: 255}
	}
	w := o.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	d := &Dev{
		opts:     o,
		w:        w,
		palette:  *p,
		levels:   map[int]gpio.Level{},
		lines:    map[int]*line{},
		segments: make([]byte, o.Digits),
	}
	for i := range d.segments {
		d.segments[i] = 0xff
	}
	return d
}

func (d *Dev) String() string {
	return "Screen7Seg"
}

// Output returns the emulated line offset. A line can't be requested twice
// until it's been halted.
func (d *Dev) Output(offset int) (gpio.PinOut, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.lines[offset]; ok {
		return nil, fmt.Errorf("screen7seg: line %d busy", offset)
	}
	l := &line{dev: d, offset: offset}
	d.lines[offset] = l
	d.stats.Requested++
	return l, nil
}

// Close implements the chip's Close.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Closed++
	return nil
}

// Stats returns the resource counters.
func (d *Dev) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Segments returns the bitmaps last latched for each digit.
func (d *Dev) Segments() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.segments...)
}

// Latched returns the number of words latched so far.
func (d *Dev) Latched() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latched
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so it is not corrupted.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.rendered {
		return nil
	}
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// set is called with d.mu held.
func (d *Dev) set(offset int, l gpio.Level) {
	prev := d.levels[offset]
	d.levels[offset] = l
	if prev || !l {
		return
	}
	// Rising edges.
	switch offset {
	case d.opts.Clock:
		d.shift <<= 1
		if d.levels[d.opts.Data] {
			d.shift |= 1
		}
	case d.opts.Latch:
		d.latch()
	}
}

func (d *Dev) latch() {
	d.latched++
	seg := byte(d.shift >> 8)
	pos := byte(d.shift)
	n := len(d.segments)
	for i := range d.segments {
		if pos&(1<<(n-1-i)) != 0 {
			d.segments[i] = seg
		}
	}
	if d.opts.Interval > 0 && time.Since(d.lastRender) >= d.opts.Interval {
		d.lastRender = time.Now()
		_ = d.render()
	}
}

// cell layout of one digit, 3 wide and 5 high. Each entry lists the
// segment bits that light the cell; 7 is the decimal point.
var cells = [5][3][]uint{
	{{0, 5}, {0}, {0, 1}},
	{{5}, nil, {1}},
	{{4, 5, 6}, {6}, {1, 2, 6}},
	{{4}, nil, {2}},
	{{3, 4}, {3}, {7}},
}

func (d *Dev) render() error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.rendered {
		_, _ = fmt.Fprintf(&d.buf, "\033[%dA", len(cells))
	}
	for _, row := range cells {
		_, _ = d.buf.WriteString("\r\033[0m")
		for _, seg := range d.segments {
			for _, bits := range row {
				c := d.opts.Off
				for _, b := range bits {
					if seg&(1<<b) == 0 {
						c = d.opts.On
						break
					}
				}
				if bits == nil {
					_, _ = d.buf.WriteString("\033[0m  ")
				} else {
					_, _ = io.WriteString(&d.buf, d.palette.Block(c))
				}
			}
			_, _ = d.buf.WriteString("\033[0m  ")
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	d.rendered = true
	_, err := d.buf.WriteTo(d.w)
	return err
}

// line is an emulated output line.
type line struct {
	dev      *Dev
	offset   int
	released bool
}

func (l *line) Out(level gpio.Level) error {
	l.dev.mu.Lock()
	defer l.dev.mu.Unlock()
	if l.released {
		return errors.New("screen7seg: line released")
	}
	l.dev.set(l.offset, level)
	return nil
}

func (l *line) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("screen7seg: PWM not supported")
}

// Halt releases the line.
func (l *line) Halt() error {
	l.dev.mu.Lock()
	defer l.dev.mu.Unlock()
	if l.released {
		return errors.New("screen7seg: line released twice")
	}
	l.released = true
	delete(l.dev.lines, l.offset)
	l.dev.stats.Released++
	return nil
}

func (l *line) Name() string {
	return fmt.Sprintf("EMU%d", l.offset)
}

func (l *line) Number() int {
	return l.offset
}

func (l *line) Function() string {
	return "Out"
}

func (l *line) String() string {
	return l.Name()
}

var _ gpio.PinOut = &line{}
var _ fmt.Stringer = &Dev{}
