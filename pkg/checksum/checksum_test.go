package checksum

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checkInput = []byte("123456789")

func TestCRC16Variants(t *testing.T) {
	assert.EqualValues(t, 0x31C3, CRC16XModem(checkInput))
	assert.EqualValues(t, 0x29B1, CRC16CCITTFalse(checkInput))
	assert.NotEqual(t, CRC16XModem(checkInput), CRC16CCITTFalse(checkInput))
}

func TestCRC16Running(t *testing.T) {
	crc := CRC16(0)
	crc.Single(10)
	assert.EqualValues(t, 0xA14A, crc)

	crc = 0
	crc.Block(checkInput[:4])
	crc.Block(checkInput[4:])
	assert.EqualValues(t, CRC16XModem(checkInput), crc)
}

func TestFletcher8(t *testing.T) {
	// UBX ACK-ACK for CFG-PRT, checksum bytes taken from a receiver capture.
	a, b := Fletcher8([]byte{0x05, 0x01, 0x02, 0x00, 0x06, 0x00})
	assert.EqualValues(t, 0x0E, a)
	assert.EqualValues(t, 0x37, b)
}

func TestXOR8(t *testing.T) {
	assert.EqualValues(t, 0x00, XOR8(nil))
	assert.EqualValues(t, 'A'^'B', XOR8([]byte("AB")))
}

func TestCOBS(t *testing.T) {
	run := make([]byte, 300)
	for i := range run {
		run[i] = byte(i%255) + 1
	}
	testCases := []struct {
		name string
		in   []byte
	}{
		{name: "empty", in: []byte{}},
		{name: "single zero", in: []byte{0}},
		{name: "zeros", in: []byte{0, 0, 0}},
		{name: "mixed", in: []byte{0x11, 0x22, 0x00, 0x33}},
		{name: "trailing zero", in: []byte{0x11, 0x00}},
		{name: "254 run", in: run[:254]},
		{name: "255 run", in: run[:255]},
		{name: "300 run", in: run},
		{name: "run then zero", in: append(append([]byte{}, run...), 0, 7)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			enc := COBSEncode(nil, tc.in)
			require.Equal(t, -1, bytes.IndexByte(enc, 0))
			require.True(t, len(enc) <= COBSMaxEncodedLen(len(tc.in)))
			dec, err := COBSDecode(nil, enc)
			require.NoError(t, err)
			require.Equal(t, tc.in, dec)
		})
	}
}

func TestCOBSDecodeMalformed(t *testing.T) {
	_, err := COBSDecode(nil, []byte{0x05, 0x01})
	assert.Equal(t, ErrCOBS, err)
	_, err = COBSDecode(nil, []byte{0x03, 0x01, 0x00})
	assert.Equal(t, ErrCOBS, err)
}
