// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sevenseg_test

import (
	"context"
	"log"
	"time"

	"github.com/GermanBionicSystems/iotctrl/sevenseg"
)

func Example() {
	// Two chained modules on /dev/gpiochip0, data on 17, clock on 11 and
	// latch on 18.
	dev, err := sevenseg.Open(nil)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Halt()
	if err = dev.AllSegmentsOn(context.Background(), time.Second); err != nil {
		log.Fatal(err)
	}
	if err = dev.UpdateFloat(21.5, 0); err != nil {
		log.Fatal(err)
	}
	if err = dev.UpdateFloat(-4.2, 1); err != nil {
		log.Fatal(err)
	}
	time.Sleep(10 * time.Second)
}
