// Package ubx implements the satellite-receiver binary frame protocol.
//
// Wire format:
//
//	0xB5, 0x62, class, id, len_lo, len_hi, payload[len], ck_a, ck_b
//
// The checksum is the 8-bit Fletcher pair over class, id, length and
// payload. Once the length field is known the decoder asks for exactly
// the missing bytes so validated prefixes are not re-scanned.
package ubx
