// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sevenseg

import (
	"math"
	"testing"
)

func TestEncodeFourDigitFloat(t *testing.T) {
	var tests = []struct {
		value    float32
		expected [4]byte
	}{
		{value: -0.3, expected: [4]byte{Minus, Blank, Numerals[0] & Dot, Numerals[3]}},
		{value: 444.4, expected: [4]byte{Numerals[4], Numerals[4], Numerals[4] & Dot, Numerals[4]}},
		{value: 0, expected: [4]byte{Blank, Blank, Numerals[0] & Dot, Numerals[0]}},
		{value: -99.9, expected: [4]byte{Minus, Numerals[9], Numerals[9] & Dot, Numerals[9]}},
		{value: 999.9, expected: [4]byte{Numerals[9], Numerals[9], Numerals[9] & Dot, Numerals[9]}},
		{value: 0.7, expected: [4]byte{Blank, Blank, Numerals[0] & Dot, Numerals[7]}},
		{value: 8.8, expected: [4]byte{Blank, Blank, Numerals[8] & Dot, Numerals[8]}},
		{value: 55.5, expected: [4]byte{Blank, Numerals[5], Numerals[5] & Dot, Numerals[5]}},
		{value: -6.6, expected: [4]byte{Minus, Blank, Numerals[6] & Dot, Numerals[6]}},
		{value: 105.02, expected: [4]byte{Numerals[1], Numerals[0], Numerals[5] & Dot, Numerals[0]}},
		// Truncated, not rounded.
		{value: 12.39, expected: [4]byte{Blank, Numerals[1], Numerals[2] & Dot, Numerals[3]}},
		{value: -1.99, expected: [4]byte{Minus, Blank, Numerals[1] & Dot, Numerals[9]}},
		// The upper bound is inclusive; the hundreds digit wraps.
		{value: 1000, expected: [4]byte{Numerals[0], Numerals[0], Numerals[0] & Dot, Numerals[0]}},
	}
	for _, test := range tests {
		got, clamped := EncodeFourDigitFloat(test.value)
		if clamped {
			t.Errorf("EncodeFourDigitFloat(%v) clamped an in range value", test.value)
		}
		if got != test.expected {
			t.Errorf("EncodeFourDigitFloat(%v)=%#v expected %#v", test.value, got, test.expected)
		}
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	zero, _ := EncodeFourDigitFloat(0)
	for _, v := range []float32{1000.1, 5000, -100.1, -1e9, float32(math.Inf(1)), float32(math.Inf(-1)), float32(math.NaN())} {
		got, clamped := EncodeFourDigitFloat(v)
		if !clamped {
			t.Errorf("EncodeFourDigitFloat(%v) not clamped", v)
		}
		if got != zero {
			t.Errorf("EncodeFourDigitFloat(%v)=%#v expected the encoding of 0 %#v", v, got, zero)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	// Every value in [-99.9, 999.9] with one decimal place.
	for n := -999; n <= 9999; n++ {
		v := float32(n) / 10
		out, clamped := EncodeFourDigitFloat(v)
		if clamped {
			t.Fatalf("EncodeFourDigitFloat(%v) clamped", v)
		}
		got, ok := DecodeFourDigit(out)
		if !ok {
			t.Fatalf("DecodeFourDigit(%#v) of %v failed", out, v)
		}
		if got != n {
			t.Fatalf("round trip of %v gave %d tenths, expected %d", v, got, n)
		}
	}
}

func TestDecodeDigit(t *testing.T) {
	for i, b := range Numerals {
		n, dot, ok := DecodeDigit(b)
		if !ok || dot || n != i {
			t.Errorf("DecodeDigit(0x%02x)=%d,%t,%t expected %d", b, n, dot, ok, i)
		}
		n, dot, ok = DecodeDigit(b & Dot)
		if !ok || !dot || n != i {
			t.Errorf("DecodeDigit(0x%02x)=%d,%t,%t expected %d with dot", b&Dot, n, dot, ok, i)
		}
	}
	for _, b := range []byte{Blank, Minus, Blank & Dot} {
		if _, _, ok := DecodeDigit(b); ok {
			t.Errorf("DecodeDigit(0x%02x) decoded a non numeral", b)
		}
	}
}

func TestDecodeFourDigitInvalid(t *testing.T) {
	for _, d := range [][4]byte{
		// Blank tens under a shown hundreds digit.
		{Numerals[1], Blank, Numerals[0] & Dot, Numerals[0]},
		// Missing decimal point.
		{Blank, Blank, Numerals[0], Numerals[0]},
		// Decimal point on the wrong digit.
		{Blank, Blank, Numerals[0] & Dot, Numerals[0] & Dot},
		{Blank, Blank, Blank, Blank},
		{AllSegments, AllSegments, AllSegments, AllSegments},
	} {
		if v, ok := DecodeFourDigit(d); ok {
			t.Errorf("DecodeFourDigit(%#v)=%d expected failure", d, v)
		}
	}
}
