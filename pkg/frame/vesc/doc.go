// Package vesc implements the motor-controller frame protocol.
//
// Wire format (short packets only):
//
//	0x02, len, payload[len], crc_hi, crc_lo, 0x03
//
// The CRC is CRC-16/XMODEM over the payload only. The first payload byte
// is the command id; replies echo the id of the request.
package vesc
