package smbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/mowlink/pkg/frame"
)

func TestParseBlock(t *testing.T) {
	testCases := []struct {
		name    string
		resp    []byte
		data    []byte
		claimed int
	}{
		{name: "exact", resp: []byte{3, 'A', 'B', 'C'}, data: []byte("ABC")},
		{name: "trailing", resp: []byte{2, 'A', 'B', 0xff, 0xff}, data: []byte("AB")},
		{name: "zero", resp: []byte{0}, data: []byte{}},
		{name: "short", resp: []byte{5, 'A', 'B'}, claimed: 5},
		{name: "oversize", resp: append([]byte{40}, make([]byte, 40)...), claimed: 40},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := ParseBlock(tc.resp)
			if tc.data != nil {
				require.NoError(t, err)
				assert.Equal(t, tc.data, data)
				return
			}
			var lerr *LengthError
			require.True(t, errors.As(err, &lerr), "%v", err)
			assert.Equal(t, tc.claimed, lerr.Claimed)
			assert.Nil(t, data)
		})
	}
	_, err := ParseBlock(nil)
	assert.Equal(t, ErrEmpty, err)
}

func TestDecoderTransaction(t *testing.T) {
	var frames []frame.Frame
	d := NewDecoder(frame.HandleFrameFunc(func(fr frame.Frame) {
		frames = append(frames, fr)
	}))

	resp := append([]byte{40}, make([]byte, 32)...)
	_, err := d.Transaction(RegDeviceName, resp)
	assert.Error(t, err)
	assert.Empty(t, frames)

	assert.Equal(t, 1, d.Feed([]byte{RegDeviceName, 4, 'L', 'I', 'O', 'N'}))
	require.Len(t, frames, 1)
	assert.EqualValues(t, RegDeviceName, frames[0].ID)
	assert.Equal(t, frame.ProtocolSMBus, frames[0].Protocol)
	assert.Equal(t, "LION", string(frames[0].Payload))

	s := d.Stats().Snapshot()
	assert.EqualValues(t, 1, s.Frames)
	assert.EqualValues(t, 1, s.FramingErrors)
	assert.Equal(t, s.BytesIn, s.BytesConsumed)
}

func TestScaling(t *testing.T) {
	assert.InDelta(t, 25.05, Celsius(2982), 1e-9)
	assert.InDelta(t, 25.2, Volts(25200), 1e-9)
	assert.InDelta(t, -1.5, Amps(0xFA24), 1e-9)
	assert.InDelta(t, 4.4, AmpHours(4400), 1e-9)
}
