// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/GermanBionicSystems/iotctrl/screen7seg"
	"github.com/GermanBionicSystems/iotctrl/sevenseg"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
)

func TestDemoStopsOnCancel(t *testing.T) {
	emu := &emulator{screen7seg.New(&screen7seg.Opts{Data: 17, Clock: 11, Latch: 18, Digits: 8, W: io.Discard})}
	o := sevenseg.DefaultOpts
	o.RefreshRate = 10 * physic.KiloHertz
	o.OpenChip = func(path, consumer string) (sevenseg.Chip, error) { return emu, nil }
	dev, err := sevenseg.Open(&o)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- demo(ctx, dev, zap.NewNop().Sugar())
	}()
	time.Sleep(10 * time.Millisecond)
	// The five second all segments phase is cut short.
	cancel()
	select {
	case err = <-done:
		if err != nil {
			t.Errorf("demo() returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("demo() didn't stop")
	}
	for i, b := range dev.Digits() {
		if b != sevenseg.AllSegments {
			t.Errorf("digit %d is 0x%02x, expected all segments", i, b)
		}
	}
	if err = dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if s := emu.Stats(); s.Closed != 1 || s.Released != 3 {
		t.Errorf("stats %+v", s)
	}
}

func TestIgnoreCancel(t *testing.T) {
	if err := ignoreCancel(context.Canceled); err != nil {
		t.Errorf("got %v", err)
	}
	errBroken := errors.New("broken")
	if err := ignoreCancel(errBroken); err != errBroken {
		t.Errorf("got %v", err)
	}
}

func TestDemoValuesFit(t *testing.T) {
	for _, v := range demoValues {
		if _, clamped := sevenseg.EncodeFourDigitFloat(v); clamped {
			t.Errorf("%g doesn't fit four digits", v)
		}
	}
}
