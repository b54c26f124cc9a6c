// Package checksum provides the integrity primitives used by the link protocols.
//
// Two CRC16 conventions are in use and must not be mixed up:
// the motor-controller frames use the XMODEM parameters (poly 0x1021, init 0)
// while the byte-stuffed ESC frames use CCITT-FALSE (poly 0x1021, init 0xFFFF).
package checksum
