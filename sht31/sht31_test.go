// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sht31

import (
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

const addr = uint16(DefaultAddress)

// 25.0°C, 50.0% RH.
var measureOps = []i2ctest.IO{
	{Addr: addr, W: []byte{0x2c, 0x06}},
	{Addr: addr, R: []byte{0x66, 0x66, 0x93, 0x80, 0x00, 0xa2}},
}

func getDev(t *testing.T, ops []i2ctest.IO) (*Dev, *i2ctest.Playback) {
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := New(bus, DefaultAddress)
	if err != nil {
		t.Fatal(err)
	}
	return dev, bus
}

func TestNew(t *testing.T) {
	if _, err := New(&i2ctest.Playback{}, i2c.Addr(0x40)); err == nil {
		t.Error("expected an error for an invalid address")
	}
	dev, _ := getDev(t, nil)
	if len(dev.String()) == 0 {
		t.Error("string returned empty")
	}
}

func TestSense(t *testing.T) {
	dev, bus := getDev(t, measureOps)
	env := &physic.Env{}
	if err := dev.Sense(env); err != nil {
		t.Fatal(err)
	}
	if diff := math.Abs(env.Temperature.Celsius() - 25); diff > 0.01 {
		t.Errorf("temperature %s expected 25°C", env.Temperature)
	}
	expected := 50 * physic.PercentRH
	if diff := env.Humidity - expected; diff > physic.MilliRH || diff < -physic.MilliRH {
		t.Errorf("humidity %s expected %s", env.Humidity, expected)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestSenseCRC(t *testing.T) {
	ops := []i2ctest.IO{
		{Addr: addr, W: []byte{0x2c, 0x06}},
		{Addr: addr, R: []byte{0x66, 0x66, 0x93, 0x80, 0x00, 0x00}},
	}
	dev, _ := getDev(t, ops)
	env := &physic.Env{}
	err := dev.Sense(env)
	if !errors.Is(err, ErrCRC) {
		t.Errorf("expected ErrCRC, got %v", err)
	}
	if env.Temperature != minTemperature || env.Humidity != minRH {
		t.Errorf("env not reset on error: %#v", env)
	}
}

func TestCountToTemp(t *testing.T) {
	if temp := countToTemp(0); temp != minTemperature {
		t.Errorf("invalid temperature %s. Expected -40", temp)
	}
	if temp := countToTemp(0xffff); temp != maxTemperature {
		t.Errorf("invalid temperature %s. Expected 125", temp)
	}
	temp := countToTemp(0x8000)
	if diff := math.Abs(42.5 - temp.Celsius()); diff > 0.002 {
		t.Errorf("invalid temperature expected 42.5°C got %s", temp)
	}
}

func TestCountToHumidity(t *testing.T) {
	if rh := countToHumidity(0); rh != minRH {
		t.Errorf("received RH %s expected %s", rh, minRH)
	}
	if rh := countToHumidity(0xffff); rh != maxRH {
		t.Errorf("received RH %s expected %s", rh, maxRH)
	}
}

func TestStatus(t *testing.T) {
	ops := []i2ctest.IO{
		{Addr: addr, W: []byte{0xf3, 0x2d}},
		{Addr: addr, R: []byte{0x80, 0x10, 0xe1}},
		{Addr: addr, W: []byte{0x30, 0x41}},
	}
	dev, bus := getDev(t, ops)
	s, err := dev.Status()
	if err != nil {
		t.Fatal(err)
	}
	if s != StatusAlertPending|StatusReset {
		t.Errorf("status 0x%04x", uint16(s))
	}
	if err = bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestResetAndHeater(t *testing.T) {
	ops := []i2ctest.IO{
		{Addr: addr, W: []byte{0x30, 0xa2}},
		{Addr: addr, W: []byte{0x30, 0x6d}},
		{Addr: addr, W: []byte{0x30, 0x66}},
	}
	dev, bus := getDev(t, ops)
	if err := dev.Reset(); err != nil {
		t.Error(err)
	}
	if err := dev.SetHeater(true); err != nil {
		t.Error(err)
	}
	if err := dev.SetHeater(false); err != nil {
		t.Error(err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestSenseContinuous(t *testing.T) {
	var ops []i2ctest.IO
	for range 3 {
		ops = append(ops, measureOps...)
	}
	dev, _ := getDev(t, ops)
	if _, err := dev.SenseContinuous(time.Millisecond); err == nil {
		t.Error("SenseContinuous() doesn't return an error on too short a duration.")
	}
	ch, err := dev.SenseContinuous(minSampleDuration)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = dev.SenseContinuous(time.Second); err == nil {
		t.Error("expected an error for attempting concurrent SenseContinuous")
	}
	for range 3 {
		e := <-ch
		if diff := math.Abs(e.Temperature.Celsius() - 25); diff > 0.01 {
			t.Errorf("temperature %s expected 25°C", e.Temperature)
		}
	}
	if err = dev.Halt(); err != nil {
		t.Fatal(err)
	}
	for range ch {
	}
}
