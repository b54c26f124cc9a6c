package checksum

import "github.com/sigurn/crc16"

var (
	xmodemTable = crc16.MakeTable(crc16.CRC16_XMODEM)
	ccittTable  = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)
)

// CRC16XModem computes CRC-16/XMODEM over data.
func CRC16XModem(data []byte) uint16 {
	return crc16.Checksum(data, xmodemTable)
}

// CRC16CCITTFalse computes CRC-16/CCITT-FALSE over data.
func CRC16CCITTFalse(data []byte) uint16 {
	return crc16.Checksum(data, ccittTable)
}

// CRC16 is a running CRC-16/XMODEM used when the checksummed
// bytes arrive in pieces.
type CRC16 uint16

// Block feeds data into the running CRC.
func (c *CRC16) Block(data []byte) {
	*c = CRC16(crc16.Update(uint16(*c), data, xmodemTable))
}

// Single feeds one byte into the running CRC.
func (c *CRC16) Single(b byte) {
	c.Block([]byte{b})
}
