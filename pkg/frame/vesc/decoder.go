package vesc

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/checksum"
	"github.com/robotalks/mowlink/pkg/frame"
)

const (
	startByte byte = 0x02
	endByte   byte = 0x03

	// MaxPayload is the largest payload a short packet can carry.
	MaxPayload = 255
	// Overhead is the number of framing bytes around the payload.
	Overhead = 5
	// MaxFrameSize is the largest encoded frame.
	MaxFrameSize = MaxPayload + Overhead
)

// ErrPayloadSize indicates a payload that does not fit a short packet.
var ErrPayloadSize = errors.New("vesc: payload must be 1..255 bytes")

// Decoder extracts motor-controller frames.
type Decoder struct {
	Handler frame.Handler

	stats frame.Stats
	buf   *frame.Buffer
}

// NewDecoder creates a Decoder delivering frames to h.
func NewDecoder(h frame.Handler) *Decoder {
	d := &Decoder{Handler: h}
	d.buf = frame.NewBuffer(MaxFrameSize*2, &d.stats)
	return d
}

// Stats implements frame.Decoder.
func (d *Decoder) Stats() *frame.Stats {
	return &d.stats
}

// Reset implements frame.Decoder.
func (d *Decoder) Reset() {
	d.buf.Reset()
}

// Feed implements frame.Decoder.
func (d *Decoder) Feed(p []byte) int {
	d.buf.Append(p)
	for {
		data := d.buf.Bytes()
		if len(data) == 0 {
			return 1
		}
		if data[0] != startByte {
			skip := bytes.IndexByte(data, startByte)
			if skip < 0 {
				skip = len(data)
			}
			d.framingError("garbage before start byte", skip)
			continue
		}
		if len(data) < 2 {
			return 2 - len(data)
		}
		size := int(data[1])
		if size == 0 {
			d.framingError("zero length", 1)
			continue
		}
		total := size + Overhead
		if len(data) < total {
			return total - len(data)
		}
		if data[total-1] != endByte {
			d.framingError("bad trailer", 1)
			continue
		}
		payload := data[2 : 2+size]
		if crc := binary.BigEndian.Uint16(data[2+size:]); crc != checksum.CRC16XModem(payload) {
			if n := d.stats.IntegrityErrors.Add(1); frame.ShouldLog(n) {
				glog.Warningf("vesc: crc mismatch on command %d (%d so far)", payload[0], n)
			}
			d.buf.Consume(1)
			continue
		}
		fr := frame.Frame{
			Protocol: frame.ProtocolVESC,
			ID:       uint16(payload[0]),
			Payload:  append([]byte(nil), payload...),
		}
		d.buf.Consume(total)
		d.stats.Frames.Add(1)
		if h := d.Handler; h != nil {
			h.HandleFrame(fr)
		}
	}
}

func (d *Decoder) framingError(reason string, skip int) {
	if n := d.stats.FramingErrors.Add(1); frame.ShouldLog(n) {
		glog.Warningf("vesc: framing error: %s (%d so far)", reason, n)
	}
	d.buf.Consume(skip)
}

// AppendFrame encodes payload into a frame appended to dst.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) == 0 || len(payload) > MaxPayload {
		return dst, ErrPayloadSize
	}
	dst = append(dst, startByte, byte(len(payload)))
	dst = append(dst, payload...)
	dst = binary.BigEndian.AppendUint16(dst, checksum.CRC16XModem(payload))
	return append(dst, endByte), nil
}

// Encode encodes payload into a new frame.
func Encode(payload []byte) ([]byte, error) {
	return AppendFrame(make([]byte, 0, len(payload)+Overhead), payload)
}
