// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sevenseg

import "time"

// word returns the 16 bit word showing digit i: bitmap in the high byte,
// digit select in the low byte. Digit 0 is selected by the highest bit.
func (d *Dev) word(i int) uint16 {
	position := uint16(1) << (len(d.digits) - 1 - i)
	return uint16(d.bitmap(i))<<8 | position
}

// refresh scans the digits until Halt. The running flag is checked before
// every digit, and the wait between digits is cut short by Halt, so Halt
// returns within one refresh delay plus one word write.
func (d *Dev) refresh() {
	defer close(d.done)
	t := time.NewTimer(d.delay)
	defer t.Stop()
	failures := 0
	for {
		for i := range d.digits {
			if !d.running.Load() {
				return
			}
			if err := d.link.Write(d.word(i)); err != nil {
				// A lost digit is better than a frozen display; keep going
				// but don't flood the log at the refresh rate.
				if failures == 0 {
					d.logger.Errorw("failed to write digit", "digit", i, "error", err)
				}
				failures++
			} else if failures != 0 {
				d.logger.Warnw("digit writes recovered", "failed_writes", failures)
				failures = 0
			}
			select {
			case <-t.C:
				t.Reset(d.delay)
			case <-d.stop:
				return
			}
		}
	}
}
