// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sht31 interfaces with the Sensirion SHT30, SHT31 and SHT35
// temperature and humidity sensors in single shot mode.
//
// # Datasheet
//
// https://sensirion.com/media/documents/213E6A3B/63A5A569/Datasheet_SHT3x_DIS.pdf
//
// The SHT31 is accurate to ±0.2 °C and ±2 % RH, with a resolution of 0.01 °C
// and 0.01 % RH over -40…+125 °C.
package sht31

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/iotctrl/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddress is the address with ADDR pulled low.
	DefaultAddress i2c.Addr = 0x44
	// AlternateAddress is the address with ADDR pulled high.
	AlternateAddress i2c.Addr = 0x45
)

// ErrCRC is returned when a word read from the sensor fails its checksum.
var ErrCRC = errors.New("sht31: crc error")

// Two byte commands, MSB first.
var (
	// Single shot, high repeatability, clock stretching.
	cmdMeasure    = []byte{0x2c, 0x06}
	cmdSoftReset  = []byte{0x30, 0xa2}
	cmdHeaterOn   = []byte{0x30, 0x6d}
	cmdHeaterOff  = []byte{0x30, 0x66}
	cmdReadStatus = []byte{0xf3, 0x2d}
	cmdClearState = []byte{0x30, 0x41}
)

const (
	countDivisor = float64(65535)

	minTemperature = -40*physic.Kelvin + physic.ZeroCelsius
	maxTemperature = 125*physic.Kelvin + physic.ZeroCelsius

	minRH = 0 * physic.PercentRH
	maxRH = 100 * physic.PercentRH

	// High repeatability measurements take up to 15.5ms.
	measureDuration   = 16 * time.Millisecond
	minSampleDuration = 20 * time.Millisecond
)

// Status bits, see table 17 of the datasheet.
const (
	StatusAlertPending Status = 1 << 15
	StatusHeaterOn     Status = 1 << 13
	StatusRHAlert      Status = 1 << 11
	StatusTAlert       Status = 1 << 10
	StatusReset        Status = 1 << 4
	StatusCommandError Status = 1 << 1
	StatusCRCError     Status = 1 << 0
)

// Status is the content of the status register.
type Status uint16

// Dev represents a SHT3x series temperature/humidity sensor.
type Dev struct {
	d        *i2c.Dev
	shutdown chan struct{}
	mu       sync.Mutex
}

// New returns a sensor on bus at addr. No I/O is done.
func New(bus i2c.Bus, addr i2c.Addr) (*Dev, error) {
	if addr != DefaultAddress && addr != AlternateAddress {
		return nil, fmt.Errorf("sht31: invalid address 0x%02x", uint16(addr))
	}
	return &Dev{d: &i2c.Dev{Bus: bus, Addr: uint16(addr)}}, nil
}

// txWithDelay writes w, waits for delay then reads r. The sensor NACKs a read
// until the command completed.
//
// Every response is a sequence of 2 byte words each followed by its CRC.
func (dev *Dev) txWithDelay(w, r []byte, delay time.Duration) error {
	if err := dev.d.Tx(w, nil); err != nil {
		return fmt.Errorf("sht31: error transmitting %w", err)
	}
	time.Sleep(delay)
	if r == nil {
		return nil
	}
	if err := dev.d.Tx(nil, r); err != nil {
		return fmt.Errorf("sht31: error reading %w", err)
	}
	for i := 0; i+2 < len(r); i += 3 {
		if common.CRC8(r[i:i+2]) != r[i+2] {
			return fmt.Errorf("%w: bytes[%d:%d]", ErrCRC, i, i+2)
		}
	}
	return nil
}

func countToTemp(count uint16) physic.Temperature {
	// T=-45+175*(count/countDivisor)
	val := physic.Temperature(float64(physic.Kelvin)*(-45.0+175.0*(float64(count)/countDivisor))) + physic.ZeroCelsius
	if val < minTemperature {
		val = minTemperature
	} else if val > maxTemperature {
		val = maxTemperature
	}
	return val
}

func countToHumidity(count uint16) physic.RelativeHumidity {
	// RH=100*(count/countDivisor)
	val := physic.RelativeHumidity(100.0 * (float64(count) / countDivisor) * float64(physic.PercentRH))
	if val < minRH {
		val = minRH
	} else if val > maxRH {
		val = maxRH
	}
	return val
}

// Precision implements physic.SenseEnv.
func (dev *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 100
	e.Humidity = physic.PercentRH / 100
	e.Pressure = 0
}

// Sense reads temperature and humidity from the device. Implements
// physic.SenseEnv.
func (dev *Dev) Sense(e *physic.Env) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.sense(e)
}

func (dev *Dev) sense(e *physic.Env) error {
	e.Pressure = 0
	r := make([]byte, 6)
	if err := dev.txWithDelay(cmdMeasure, r, measureDuration); err != nil {
		e.Temperature = minTemperature
		e.Humidity = minRH
		return fmt.Errorf("sht31: error reading device %w", err)
	}
	e.Temperature = countToTemp(uint16(r[0])<<8 | uint16(r[1]))
	e.Humidity = countToHumidity(uint16(r[3])<<8 | uint16(r[4]))
	return nil
}

// SenseContinuous reads the sensor every interval and sends the readings to
// the returned channel. Call Halt to stop.
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		return nil, errors.New("sht31: SenseContinuous already running")
	}
	if interval < minSampleDuration {
		return nil, errors.New("sht31: sample interval is < device sample rate")
	}
	shutdown := make(chan struct{})
	dev.shutdown = shutdown
	ch := make(chan physic.Env, 16)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				env := physic.Env{}
				if err := dev.Sense(&env); err == nil {
					select {
					case ch <- env:
					case <-shutdown:
						return
					}
				}
			}
		}
	}()
	return ch, nil
}

// Halt terminates a running SenseContinuous. Implements conn.Resource.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		close(dev.shutdown)
		dev.shutdown = nil
	}
	return nil
}

// Reset issues a soft reset.
func (dev *Dev) Reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.txWithDelay(cmdSoftReset, nil, 2*time.Millisecond); err != nil {
		return fmt.Errorf("sht31: error resetting %w", err)
	}
	return nil
}

// SetHeater turns the internal heater on or off. The heater is meant for
// checking the sensor or drying it in condensing environments.
func (dev *Dev) SetHeater(on bool) error {
	cmd := cmdHeaterOff
	if on {
		cmd = cmdHeaterOn
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.txWithDelay(cmd, nil, time.Millisecond); err != nil {
		return fmt.Errorf("sht31: error setting heater %w", err)
	}
	return nil
}

// Status reads the status register, then clears its alert flags.
func (dev *Dev) Status() (Status, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	r := make([]byte, 3)
	if err := dev.txWithDelay(cmdReadStatus, r, time.Millisecond); err != nil {
		return 0, fmt.Errorf("sht31: error reading status %w", err)
	}
	if err := dev.txWithDelay(cmdClearState, nil, time.Millisecond); err != nil {
		return 0, fmt.Errorf("sht31: error clearing status %w", err)
	}
	return Status(r[0])<<8 | Status(r[1]), nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("sht31{%s}", dev.d)
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
