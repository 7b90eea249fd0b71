// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package iotctrl is a container for the drivers of the control box
// peripherals: the 7-segment displays (sevenseg), the USB serial relay
// (relay), the buzzer (buzzer), the Modbus temperature transmitter
// (tempsensor) and the SHT31 sensor (sht31).
//
// The command line tools live under cmd/.
package iotctrl
