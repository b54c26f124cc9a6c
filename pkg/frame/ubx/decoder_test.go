package ubx

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/mowlink/pkg/frame"
)

type collector struct {
	frames []frame.Frame
}

func (c *collector) HandleFrame(fr frame.Frame) {
	c.frames = append(c.frames, fr)
}

func newTestDecoder() (*Decoder, *collector) {
	c := &collector{}
	return NewDecoder(c), c
}

func navPVTPayload() []byte {
	p := make([]byte, navPVTLen)
	binary.LittleEndian.PutUint32(p[0:], 345600000)
	binary.LittleEndian.PutUint16(p[4:], 2026)
	p[6], p[7], p[8], p[9], p[10] = 5, 17, 9, 30, 15
	p[11] = 0x07
	binary.LittleEndian.PutUint32(p[16:], 500000)
	p[20] = byte(Fix3D)
	p[21] = 0x01 | byte(CarrierFixed)<<6
	p[23] = 21
	binary.LittleEndian.PutUint32(p[24:], uint32(int32(85461234)))  // lon 8.5461234
	binary.LittleEndian.PutUint32(p[28:], uint32(int32(473765432))) // lat 47.3765432
	binary.LittleEndian.PutUint32(p[32:], 451234)
	binary.LittleEndian.PutUint32(p[36:], 402500)
	binary.LittleEndian.PutUint32(p[40:], 14)
	binary.LittleEndian.PutUint32(p[44:], 20)
	velN := int32(-250)
	binary.LittleEndian.PutUint32(p[48:], uint32(velN))
	binary.LittleEndian.PutUint32(p[52:], 433)
	binary.LittleEndian.PutUint32(p[56:], 0)
	binary.LittleEndian.PutUint32(p[60:], 500)
	binary.LittleEndian.PutUint32(p[64:], 12000000)
	binary.LittleEndian.PutUint16(p[76:], 132)
	return p
}

func mustEncode(t *testing.T, class, id byte, payload []byte) []byte {
	pkt, err := Encode(class, id, payload)
	require.NoError(t, err)
	return pkt
}

func TestEncodeAck(t *testing.T) {
	pkt := mustEncode(t, ClassACK, IDAckAck, []byte{0x06, 0x00})
	assert.Equal(t, []byte{0xB5, 0x62, 0x05, 0x01, 0x02, 0x00, 0x06, 0x00, 0x0E, 0x37}, pkt)
}

func TestDecodeNavPVT(t *testing.T) {
	d, c := newTestDecoder()
	d.Feed(mustEncode(t, ClassNAV, IDNavPVT, navPVTPayload()))
	require.Len(t, c.frames, 1)
	require.Equal(t, NavPVTID, c.frames[0].ID)
	m, err := ParseNavPVT(c.frames[0].Payload)
	require.NoError(t, err)
	assert.True(t, m.TimeValid)
	assert.Equal(t, time.Date(2026, 5, 17, 9, 30, 15, 500000, time.UTC), m.Time)
	assert.Equal(t, Fix3D, m.FixType)
	assert.True(t, m.FixOK)
	assert.Equal(t, CarrierFixed, m.Carrier)
	assert.Equal(t, 21, m.NumSV)
	assert.InDelta(t, 8.5461234, m.Lon, 1e-9)
	assert.InDelta(t, 47.3765432, m.Lat, 1e-9)
	assert.InDelta(t, 451.234, m.Height, 1e-9)
	assert.InDelta(t, 0.014, m.HAcc, 1e-9)
	assert.InDelta(t, -0.25, m.VelN, 1e-9)
	assert.InDelta(t, 0.433, m.VelE, 1e-9)
	assert.InDelta(t, 0.5, m.GroundSpeed, 1e-9)
	assert.InDelta(t, 120.0, m.Heading, 1e-9)
	assert.InDelta(t, 1.32, m.PDOP, 1e-9)
}

func TestSplitAtHalfLength(t *testing.T) {
	payload := navPVTPayload()
	pkt := mustEncode(t, ClassNAV, IDNavPVT, payload)
	split := len(payload) / 2
	d, c := newTestDecoder()
	need := d.Feed(pkt[:split])
	assert.Equal(t, len(pkt)-split, need)
	assert.Empty(t, c.frames)
	assert.Equal(t, 1, d.Feed(pkt[split:]))
	require.Len(t, c.frames, 1)
	assert.Equal(t, payload, c.frames[0].Payload)
}

func TestSplitAnywhere(t *testing.T) {
	pkt := mustEncode(t, ClassNAV, IDNavPVT, navPVTPayload())
	for split := 0; split <= len(pkt); split++ {
		d, c := newTestDecoder()
		d.Feed(pkt[:split])
		d.Feed(pkt[split:])
		require.Len(t, c.frames, 1, "split at %d", split)
		assert.Equal(t, navPVTPayload(), c.frames[0].Payload)
	}
}

func TestExactRemaining(t *testing.T) {
	pkt := mustEncode(t, ClassNAV, IDNavPVT, navPVTPayload())
	d, _ := newTestDecoder()
	assert.Equal(t, 1, d.Feed(pkt[:1]))
	assert.Equal(t, 4, d.Feed(pkt[1:2]))
	assert.Equal(t, len(pkt)-6, d.Feed(pkt[2:6]))
	assert.Equal(t, len(pkt)-50, d.Feed(pkt[6:50]))
}

func TestResyncAfterCorruption(t *testing.T) {
	first := mustEncode(t, ClassACK, IDAckAck, []byte{0x06, 0x8a})
	next := mustEncode(t, ClassNAV, IDNavPVT, navPVTPayload())
	for i := range first {
		d, c := newTestDecoder()
		bad := append([]byte(nil), first...)
		bad[i] ^= 0x01
		stream := append(bad, next...)
		for len(stream) < 2*DefaultMaxPayload {
			stream = append(stream, next...)
		}
		d.Feed(stream)
		pvt := 0
		for _, fr := range c.frames {
			if fr.ID == NavPVTID {
				assert.Equal(t, navPVTPayload(), fr.Payload)
				pvt++
			} else {
				assert.NotEqual(t, first[6:8], fr.Payload, "corrupt byte %d", i)
			}
		}
		assert.Equal(t, (len(stream)-len(bad))/len(next), pvt, "corrupt byte %d", i)
	}
}

func TestOversizeLengthIsFramingError(t *testing.T) {
	d, c := newTestDecoder()
	d.MaxPayload = 100
	pkt := mustEncode(t, ClassNAV, IDNavPVT, make([]byte, 200))
	d.Feed(pkt)
	assert.Empty(t, c.frames)
	assert.True(t, d.Stats().FramingErrors.Load() > 0)
	s := d.Stats().Snapshot()
	assert.True(t, s.BytesConsumed <= s.BytesIn)
}

func TestParseAck(t *testing.T) {
	a, err := ParseAck(AckNakID, []byte{ClassCFG, 0x31})
	require.NoError(t, err)
	assert.Equal(t, Ack{Acked: false, Class: ClassCFG, ID: 0x31}, a)
	_, err = ParseNavPVT(make([]byte, 10))
	assert.Equal(t, ErrShortPayload, err)
}
