// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sevenseg

import (
	"math"
	"strconv"
	"strings"
)

// Segment bitmaps use inverted logic: a 0 bit turns a segment ON, a 1 bit
// turns it OFF. Bits 0-6 are segments a-g and bit 7 is the decimal point.
const (
	// Blank turns every segment of a digit off.
	Blank byte = 0xff
	// Minus lights segment g only.
	Minus byte = 0xbf
	// Dot is ANDed onto a bitmap to additionally light its decimal point.
	Dot byte = 0x7f
	// AllSegments lights every segment and the decimal point.
	AllSegments byte = 0x00
)

// Numerals holds the bitmaps of the digits 0 to 9.
var Numerals = [10]byte{
	0xc0, // 0
	0xf9, // 1
	0xa4, // 2
	0xb0, // 3
	0x99, // 4
	0x92, // 5
	0x82, // 6
	0xf8, // 7
	0x80, // 8
	0x90, // 9
}

const (
	// MaxFloat is the largest value EncodeFourDigitFloat shows faithfully.
	MaxFloat float32 = 999.9
	// MinFloat is the smallest value EncodeFourDigitFloat shows faithfully.
	MinFloat float32 = -99.9
)

// EncodeFourDigitFloat converts v into four digit bitmaps showing it as a
// fixed point number with one decimal place, the decimal point always on
// the third digit.
//
// Digits are truncated, not rounded. Values above 1000 or below -100 (and
// NaN) are replaced by 0 and clamped is returned true. Negative values
// trade the hundreds digit for a minus sign. Leading zeros are blanked up
// to the units digit, which is always shown.
func EncodeFourDigitFloat(v float32) (out [4]byte, clamped bool) {
	if v > 1000 || v < -100 || v != v {
		v = 0
		clamped = true
	}
	tenths := truncTenths(v)
	whole := tenths / 10

	switch {
	case v < 0:
		out[0] = Minus
	case whole < 100:
		out[0] = Blank
	default:
		out[0] = Numerals[whole%1000/100]
	}
	if whole < 10 {
		out[1] = Blank
	} else {
		out[1] = Numerals[whole%100/10]
	}
	out[2] = Numerals[whole%10] & Dot
	out[3] = Numerals[tenths%10]
	return out, clamped
}

// truncTenths returns |v| in tenths, truncated.
//
// It works on the shortest decimal representation of the float32 so that
// values such as 444.4, stored as 444.39999, keep their last digit.
func truncTenths(v float32) int {
	s := strconv.FormatFloat(math.Abs(float64(v)), 'f', -1, 32)
	intPart, frac, _ := strings.Cut(s, ".")
	n, _ := strconv.Atoi(intPart)
	t := 0
	if len(frac) > 0 {
		t = int(frac[0] - '0')
	}
	return n*10 + t
}

// DecodeDigit reverses the numeral table. ok is false when b, with its
// decimal point ignored, isn't one of Numerals.
func DecodeDigit(b byte) (digit int, dot bool, ok bool) {
	dot = b&^Dot == 0
	base := b | ^Dot
	for i, n := range Numerals {
		if n == base {
			return i, dot, true
		}
	}
	return 0, dot, false
}

// DecodeFourDigit reverses EncodeFourDigitFloat, returning the value shown
// in tenths. ok is false when the bitmaps aren't something
// EncodeFourDigitFloat produces.
func DecodeFourDigit(d [4]byte) (tenths int, ok bool) {
	negative := d[0] == Minus
	hundreds := 0
	leading := negative || d[0] == Blank
	if !leading {
		n, dot, ok := DecodeDigit(d[0])
		if !ok || dot {
			return 0, false
		}
		hundreds = n
	}
	tens := 0
	if d[1] == Blank {
		if !leading {
			return 0, false
		}
	} else {
		n, dot, ok := DecodeDigit(d[1])
		if !ok || dot {
			return 0, false
		}
		tens = n
	}
	units, dot, ok := DecodeDigit(d[2])
	if !ok || !dot {
		return 0, false
	}
	frac, dot, ok := DecodeDigit(d[3])
	if !ok || dot {
		return 0, false
	}
	tenths = hundreds*1000 + tens*100 + units*10 + frac
	if negative {
		tenths = -tenths
	}
	return tenths, true
}
