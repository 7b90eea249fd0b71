// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nxp74hc595_test

import (
	"log"

	"github.com/GermanBionicSystems/iotctrl/nxp74hc595"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	// DIO, SCLK and RCLK of a 74HC595 based display module.
	data := gpioreg.ByName("GPIO17")
	clock := gpioreg.ByName("GPIO11")
	latch := gpioreg.ByName("GPIO18")
	if data == nil || clock == nil || latch == nil {
		log.Fatal("failed to find GPIO pins")
	}
	dev, err := nxp74hc595.NewGPIO(data, clock, latch)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Halt()
	if err = dev.Reset(); err != nil {
		log.Fatal(err)
	}
	// Light every segment of the left most digit of a 4 digit module.
	if err = dev.Write(0x0008); err != nil {
		log.Fatal(err)
	}
}
