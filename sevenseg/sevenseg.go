// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sevenseg drives multiplexed 7-segment LED displays built from
// 74HC595 shift registers, the common "4 digit LED module" with DIO, SCLK
// and RCLK inputs. One or two 4 digit modules may be daisy chained.
//
// Such a display can only light one digit at a time. A background goroutine
// scans the digits continuously, holding each one for 1/RefreshRate, and
// persistence of vision does the rest. Application code updates the digits
// at any time without locking: every digit, bitmap and decimal point
// together, is a single atomic word, so a digit is never torn, but a four
// digit value may be seen half updated for one scan.
//
// Each bit of the 16 bit word shifted into the chain maps as follows:
//
//	15..8  segment bitmap, inverted logic (0 = on), bit 15 = decimal point
//	7..0   digit select, bit (digits-1-i) selects digit i (0 = left most)
package sevenseg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/iotctrl/chardev"
	"github.com/GermanBionicSystems/iotctrl/nxp74hc595"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const (
	// DigitsPerModule is the number of digits on one display module.
	DigitsPerModule = 4
	// MaxChain is the number of modules the 8 bit digit select can address.
	MaxChain = 2
	// DefaultConsumer labels the requested GPIO lines.
	DefaultConsumer = "7-segment-display"

	// dotFlag is the decimal point bit of a digit slot, above the bitmap.
	dotFlag uint32 = 1 << 8
)

var (
	// ErrConfig is returned for invalid Opts. Nothing has been acquired.
	ErrConfig = errors.New("sevenseg: invalid configuration")
	// ErrChip is returned when the GPIO chip can't be opened.
	ErrChip = errors.New("sevenseg: failed to open gpio chip")
	// ErrLine is returned when a GPIO line can't be requested or set up.
	ErrLine = errors.New("sevenseg: failed to set up gpio line")
	// ErrIndex is returned for a digit or float index outside the display.
	ErrIndex = errors.New("sevenseg: index out of range")
)

// Chip is a GPIO controller the display requests its lines from. Halting a
// returned pin releases the line.
type Chip interface {
	Output(offset int) (gpio.PinOut, error)
	Close() error
}

// Link carries one 16 bit word to the display and latches it.
type Link interface {
	Write(word uint16) error
	Halt() error
}

// Opts holds the connection configuration of a display.
type Opts struct {
	// DevicePath is the GPIO chip, e.g. /dev/gpiochip0.
	DevicePath string
	// DataPin, ClockPin and LatchPin are line offsets on the chip wired to
	// DIO, SCLK and RCLK.
	DataPin  int
	ClockPin int
	LatchPin int
	// Chain is the number of daisy chained 4 digit modules, 1 or 2.
	Chain int
	// Digits may be left 0; otherwise it must be DigitsPerModule*Chain.
	Digits int
	// RefreshRate is the digit scan rate: each digit is held for
	// 1/RefreshRate, so a single digit is refreshed at RefreshRate/Digits.
	// It is highly hardware dependent; 1kHz is a good starting point, then
	// adjust by factors of 2 to trade flicker against CPU use.
	RefreshRate physic.Frequency
	// Consumer labels the GPIO lines. Defaults to DefaultConsumer.
	Consumer string
	// Logger receives warnings and refresh errors. Defaults to a no-op.
	Logger *zap.SugaredLogger
	// OpenChip opens the GPIO chip. Defaults to chardev.Open.
	OpenChip func(path, consumer string) (Chip, error)
}

// DefaultOpts is the wiring of the control box: two modules on BCM 17, 11
// and 18 of the first GPIO chip, refreshed at 1kHz.
var DefaultOpts = Opts{
	DevicePath:  chardev.DefaultPath,
	DataPin:     17,
	ClockPin:    11,
	LatchPin:    18,
	Chain:       2,
	RefreshRate: physic.KiloHertz,
	Consumer:    DefaultConsumer,
}

func openChardev(path, consumer string) (Chip, error) {
	c, err := chardev.Open(path, consumer)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// refreshDelay returns 1,000,000/rate microseconds, truncated to whole
// microseconds.
func refreshDelay(rate physic.Frequency) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(uint64(physic.Hertz)*1_000_000/uint64(rate)) * time.Microsecond
}

// normalize validates the display part of opts and fills in defaults.
func (o Opts) normalize() (Opts, error) {
	if o.Chain < 1 || o.Chain > MaxChain {
		return o, fmt.Errorf("%w: chain count %d, must be 1 or 2", ErrConfig, o.Chain)
	}
	if o.Digits == 0 {
		o.Digits = DigitsPerModule * o.Chain
	}
	if o.Digits != DigitsPerModule*o.Chain {
		return o, fmt.Errorf("%w: %d digits doesn't match %d chained modules", ErrConfig, o.Digits, o.Chain)
	}
	if o.RefreshRate <= 0 {
		return o, fmt.Errorf("%w: refresh rate must be > 0", ErrConfig)
	}
	if refreshDelay(o.RefreshRate) <= 0 {
		return o, fmt.Errorf("%w: refresh rate %s is too high", ErrConfig, o.RefreshRate)
	}
	if o.Consumer == "" {
		o.Consumer = DefaultConsumer
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	if o.OpenChip == nil {
		o.OpenChip = openChardev
	}
	return o, nil
}

func (o *Opts) validatePins() error {
	if o.DevicePath == "" {
		return fmt.Errorf("%w: empty gpio chip path", ErrConfig)
	}
	pins := map[int]string{}
	for _, p := range []struct {
		name   string
		offset int
	}{{"data", o.DataPin}, {"clock", o.ClockPin}, {"latch", o.LatchPin}} {
		if p.offset < 0 {
			return fmt.Errorf("%w: %s pin %d is negative", ErrConfig, p.name, p.offset)
		}
		if other, ok := pins[p.offset]; ok {
			return fmt.Errorf("%w: %s and %s pins are both %d", ErrConfig, other, p.name, p.offset)
		}
		pins[p.offset] = p.name
	}
	return nil
}

// Dev is a running display.
type Dev struct {
	opts   Opts
	link   Link
	logger *zap.SugaredLogger
	delay  time.Duration

	// Each slot holds the bitmap in bits 0-7 and the dot flag in dotFlag.
	digits  []atomic.Uint32
	running atomic.Bool

	stop     chan struct{}
	done     chan struct{}
	haltOnce sync.Once
}

// Open opens the GPIO chip, requests the data, clock and latch lines as
// outputs and starts refreshing the display. On error everything acquired
// so far has been released again. If opts is nil, DefaultOpts is used.
func Open(opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	if err = o.validatePins(); err != nil {
		return nil, err
	}
	link, err := openGPIOLink(&o)
	if err != nil {
		return nil, err
	}
	return start(link, o), nil
}

// New starts refreshing the display over link. The Dev takes ownership of
// link and halts it in Halt. DevicePath and the pin fields of opts are
// ignored. If opts is nil, DefaultOpts is used.
func New(link Link, opts *Opts) (*Dev, error) {
	if link == nil {
		return nil, fmt.Errorf("%w: nil link", ErrConfig)
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	return start(link, o), nil
}

func start(link Link, o Opts) *Dev {
	d := &Dev{
		opts:   o,
		link:   link,
		logger: o.Logger,
		delay:  refreshDelay(o.RefreshRate),
		digits: make([]atomic.Uint32, o.Digits),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for i := range d.digits {
		d.digits[i].Store(uint32(Blank))
	}
	d.running.Store(true)
	d.logger.Debugw("display started", "display", d.String(), "refresh_delay", d.delay)
	go d.refresh()
	return d
}

// gpioLink is the bit-banged link over lines it owns.
type gpioLink struct {
	*nxp74hc595.Dev
	chip  Chip
	lines []gpio.PinOut
}

func openGPIOLink(o *Opts) (*gpioLink, error) {
	chip, err := o.OpenChip(o.DevicePath, o.Consumer)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrChip, o.DevicePath, err)
	}
	l := &gpioLink{chip: chip}
	for _, p := range []struct {
		name   string
		offset int
	}{{"data", o.DataPin}, {"clock", o.ClockPin}, {"latch", o.LatchPin}} {
		line, err := chip.Output(p.offset)
		if err != nil {
			err = fmt.Errorf("%w %s (%d): %w", ErrLine, p.name, p.offset, err)
			return nil, multierr.Append(err, l.release())
		}
		l.lines = append(l.lines, line)
	}
	if l.Dev, err = nxp74hc595.NewGPIO(l.lines[0], l.lines[1], l.lines[2]); err != nil {
		return nil, multierr.Append(fmt.Errorf("%w: %w", ErrLine, err), l.release())
	}
	if err = l.Reset(); err != nil {
		return nil, multierr.Append(fmt.Errorf("%w: %w", ErrLine, err), l.release())
	}
	return l, nil
}

// release releases the lines in reverse order of acquisition, then the
// chip.
func (l *gpioLink) release() error {
	var err error
	for i := len(l.lines) - 1; i >= 0; i-- {
		err = multierr.Append(err, l.lines[i].Halt())
	}
	l.lines = nil
	return multierr.Append(err, l.chip.Close())
}

// Halt idles the pins, then releases them and the chip.
func (l *gpioLink) Halt() error {
	return multierr.Append(l.Dev.Halt(), l.release())
}

// DigitCount returns the number of digits of the display.
func (d *Dev) DigitCount() int {
	return len(d.digits)
}

// UpdateDigit sets the zero based digit index to the raw segment bitmap and
// clears its decimal point flag. See Numerals for bitmaps of the digits.
func (d *Dev) UpdateDigit(index int, bitmap byte) error {
	if index < 0 || index >= len(d.digits) {
		return fmt.Errorf("%w: digit %d of %d", ErrIndex, index, len(d.digits))
	}
	d.digits[index].Store(uint32(bitmap))
	return nil
}

// SetDot turns the decimal point of digit index on or off, independently of
// its bitmap.
func (d *Dev) SetDot(index int, on bool) error {
	if index < 0 || index >= len(d.digits) {
		return fmt.Errorf("%w: digit %d of %d", ErrIndex, index, len(d.digits))
	}
	for {
		old := d.digits[index].Load()
		v := old &^ dotFlag
		if on {
			v |= dotFlag
		}
		if d.digits[index].CompareAndSwap(old, v) {
			return nil
		}
	}
}

// UpdateFloat shows v on the floatIndex-th group of four digits, that is
// digits 4*floatIndex to 4*floatIndex+3. An 8 digit display shows two
// floats. Values outside [-99.9, 999.9] are shown as 0.0 and logged.
func (d *Dev) UpdateFloat(v float32, floatIndex int) error {
	start := floatIndex * DigitsPerModule
	if floatIndex < 0 || start+DigitsPerModule > len(d.digits) {
		return fmt.Errorf("%w: float %d of %d", ErrIndex, floatIndex, len(d.digits)/DigitsPerModule)
	}
	out, clamped := EncodeFourDigitFloat(v)
	if clamped {
		d.logger.Warnw("float out of range, reset to 0", "value", v, "min", MinFloat, "max", MaxFloat)
	}
	for i, b := range out {
		v := uint32(b)
		if i == 2 {
			v |= dotFlag
		}
		d.digits[start+i].Store(v)
	}
	return nil
}

// AllSegmentsOn lights every segment of every digit, then blocks for
// duration. It is meant for checking the wiring. It returns early with the
// context's error if ctx is done first; the segments stay lit either way.
func (d *Dev) AllSegmentsOn(ctx context.Context, duration time.Duration) error {
	for i := range d.digits {
		_ = d.UpdateDigit(i, AllSegments)
	}
	t := time.NewTimer(duration)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Digits returns the bitmaps currently displayed, decimal points applied.
func (d *Dev) Digits() []byte {
	out := make([]byte, len(d.digits))
	for i := range out {
		out[i] = d.bitmap(i)
	}
	return out
}

func (d *Dev) bitmap(i int) byte {
	v := d.digits[i].Load()
	b := byte(v)
	if v&dotFlag != 0 {
		b &= Dot
	}
	return b
}

// Halt stops the refresh goroutine, waits for it to exit and releases the
// link, GPIO lines and chip. Only the first call does anything; later
// calls return nil. Implements conn.Resource.
func (d *Dev) Halt() error {
	var err error
	d.haltOnce.Do(func() {
		d.running.Store(false)
		close(d.stop)
		<-d.done
		if err = d.link.Halt(); err != nil {
			err = fmt.Errorf("sevenseg: halt: %w", err)
		}
		d.logger.Debugw("display halted", "display", d.String())
	})
	return err
}

func (d *Dev) String() string {
	if s, ok := d.link.(fmt.Stringer); ok {
		return fmt.Sprintf("sevenseg{%d digits, %s}", len(d.digits), s)
	}
	return fmt.Sprintf("sevenseg{%d digits, %T}", len(d.digits), d.link)
}

var _ conn.Resource = &Dev{}
