// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains the checksums shared by the sensor drivers: the
// Sensirion CRC8 used by the SHT31 and the Modbus CRC16 used by the RTU
// temperature probe.
package common

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. Polynomial 0x31, initial value 0xff, as used by
// Sensirion sensors.
func CRC8(bytes []byte) byte {
	var crc byte = 0xff
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (byte)((crc << 1) ^ 0x31)
			}
		}
	}
	return crc
}

// CRC16 calculates the Modbus RTU CRC of bytes. Reflected polynomial 0xa001,
// initial value 0xffff.
//
// The low byte of the result is sent first on the wire, so a frame ends with
// byte(crc), byte(crc>>8). Use AppendCRC16 and CheckCRC16 rather than
// swapping bytes by hand.
func CRC16(bytes []byte) uint16 {
	var crc uint16 = 0xffff
	for _, val := range bytes {
		crc ^= uint16(val)
		for range 8 {
			if (crc & 0x0001) != 0 {
				crc = (crc >> 1) ^ 0xa001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// AppendCRC16 appends the Modbus CRC of frame to frame, low byte first.
func AppendCRC16(frame []byte) []byte {
	crc := CRC16(frame)
	return append(frame, byte(crc), byte(crc>>8))
}

// CheckCRC16 reports whether the last two bytes of frame are the Modbus CRC
// of the bytes preceding them.
func CheckCRC16(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	n := len(frame) - 2
	expected := uint16(frame[n+1])<<8 | uint16(frame[n])
	return CRC16(frame[:n]) == expected
}
