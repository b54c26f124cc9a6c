package nmea

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/mowlink/pkg/frame"
)

const (
	ggaLine = "$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76"
	rmcLine = "$GNRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*74"
)

type collector struct {
	lines []string
}

func (c *collector) HandleFrame(fr frame.Frame) {
	c.lines = append(c.lines, string(fr.Payload))
}

func TestFramesLines(t *testing.T) {
	c := &collector{}
	d := NewDecoder(c, 0)
	assert.Equal(t, 1, d.Feed([]byte("noise"+ggaLine+"\r\n"+rmcLine)))
	assert.Equal(t, []string{ggaLine}, c.lines)
	d.Feed([]byte("\r\n"))
	assert.Equal(t, []string{ggaLine, rmcLine}, c.lines)
	s := d.Stats().Snapshot()
	assert.EqualValues(t, 2, s.Frames)
	assert.Equal(t, s.BytesIn, s.BytesConsumed)
}

func TestFramesByteByByte(t *testing.T) {
	c := &collector{}
	d := NewDecoder(c, 0)
	for _, b := range []byte(ggaLine + "\r\n") {
		assert.Equal(t, 1, d.Feed([]byte{b}))
	}
	assert.Equal(t, []string{ggaLine}, c.lines)
}

func TestTruncatedSentence(t *testing.T) {
	c := &collector{}
	d := NewDecoder(c, 0)
	d.Feed([]byte("$GPGGA,0927" + ggaLine + "\n"))
	assert.Equal(t, []string{ggaLine}, c.lines)
	assert.EqualValues(t, 1, d.Stats().FramingErrors.Load())
}

func TestOversizeLineDiscarded(t *testing.T) {
	c := &collector{}
	d := NewDecoder(c, 0)
	d.Feed([]byte("$" + strings.Repeat("A", 2*DefaultMaxLine)))
	d.Feed([]byte(strings.Repeat("B", 10) + "\n"))
	d.Feed([]byte(ggaLine + "\n"))
	assert.Equal(t, []string{ggaLine}, c.lines)
	assert.EqualValues(t, 1, d.Stats().Overflows.Load())

	d.Feed([]byte("$" + strings.Repeat("C", DefaultMaxLine) + "\n"))
	assert.Len(t, c.lines, 1)
	assert.EqualValues(t, 2, d.Stats().Overflows.Load())
}

func TestParseGGA(t *testing.T) {
	msg, err := Parse([]byte(ggaLine))
	require.NoError(t, err)
	g, ok := msg.(GGA)
	require.True(t, ok)
	assert.Equal(t, 9*time.Hour+27*time.Minute+50*time.Second, g.TimeOfDay)
	assert.InDelta(t, 53+21.6802/60, g.Lat, 1e-9)
	assert.InDelta(t, -(6 + 30.3372/60), g.Lon, 1e-9)
	assert.Equal(t, QualityGPS, g.Quality)
	assert.Equal(t, 8, g.Satellites)
	assert.InDelta(t, 1.03, g.HDOP, 1e-9)
	assert.InDelta(t, 61.7, g.Altitude, 1e-9)
}

func TestParseGGARTK(t *testing.T) {
	line := AppendChecksum(nil, "GNGGA,120000.50,4807.0380,N,01131.0000,E,4,12,0.6,520.1,M,47.9,M,1.0,0000")
	msg, err := Parse(bytes.TrimRight(line, "\r\n"))
	require.NoError(t, err)
	g := msg.(GGA)
	assert.Equal(t, QualityRTKFix, g.Quality)
	assert.Equal(t, 12*time.Hour+500*time.Millisecond, g.TimeOfDay)
	assert.InDelta(t, 48+7.038/60, g.Lat, 1e-9)
}

func TestParseGGANoPosition(t *testing.T) {
	line := AppendChecksum(nil, "GPGGA,120001.00,,,,,1,05,2.1,10.0,M,,M,,")
	msg, err := Parse(bytes.TrimRight(line, "\r\n"))
	require.NoError(t, err)
	g := msg.(GGA)
	assert.True(t, math.IsNaN(g.Lat))
	assert.True(t, math.IsNaN(g.Lon))
	assert.Equal(t, 5, g.Satellites)
}

func TestParseRMC(t *testing.T) {
	msg, err := Parse([]byte(rmcLine))
	require.NoError(t, err)
	r, ok := msg.(RMC)
	require.True(t, ok)
	assert.True(t, r.Valid)
	assert.InDelta(t, 48+7.038/60, r.Lat, 1e-9)
	assert.InDelta(t, 11+31.0/60, r.Lon, 1e-9)
	assert.InDelta(t, 22.4*0.514444, r.Speed, 1e-9)
	assert.InDelta(t, 84.4, r.Course, 1e-9)
	assert.True(t, time.Date(1994, 3, 23, 12, 35, 19, 0, time.UTC).Equal(r.Time), r.Time.String())
}

func TestParseUnsupported(t *testing.T) {
	line := AppendChecksum(nil, "GPVTG,45.5,T,67.5,M,30.45,N,56.40,K")
	_, err := Parse(bytes.TrimRight(line, "\r\n"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestChecksumRejected(t *testing.T) {
	bad := []byte(ggaLine)
	bad[10] = '8'
	_, err := Parse(bad)
	assert.Error(t, err)
	_, err = Parse([]byte(strings.TrimSuffix(ggaLine, "*76")))
	assert.Error(t, err)
}

func TestAppendChecksum(t *testing.T) {
	body := strings.TrimSuffix(strings.TrimPrefix(rmcLine, "$"), "*74")
	assert.Equal(t, rmcLine+"\r\n", string(AppendChecksum(nil, body)))
}
