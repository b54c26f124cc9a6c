// Package xesc implements the byte-stuffed ESC frame protocol.
//
// Frames are COBS-stuffed and terminated by a 0x00 delimiter. The unstuffed
// packet ends with a CRC-16/CCITT-FALSE, little-endian, computed over every
// byte before it. The first byte is the message type.
package xesc
