package ubx

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/checksum"
	"github.com/robotalks/mowlink/pkg/frame"
)

// Sync bytes
const (
	Sync1 byte = 0xB5
	Sync2 byte = 0x62
)

const (
	headerLen = 6
	// Overhead is the number of framing bytes around the payload.
	Overhead = headerLen + 2
	// DefaultMaxPayload bounds the payloads accepted by a Decoder.
	DefaultMaxPayload = 1024
)

// ErrPayloadSize indicates a payload larger than the length field allows.
var ErrPayloadSize = errors.New("ubx: payload too large")

// MessageID returns the frame ID used for class and id.
func MessageID(class, id byte) uint16 {
	return uint16(class)<<8 | uint16(id)
}

// Decoder extracts satellite-receiver binary frames.
type Decoder struct {
	Handler frame.Handler
	// MaxPayload bounds the length field; larger claims are framing errors.
	MaxPayload int

	stats frame.Stats
	buf   *frame.Buffer
}

// NewDecoder creates a Decoder delivering frames to h.
func NewDecoder(h frame.Handler) *Decoder {
	d := &Decoder{Handler: h, MaxPayload: DefaultMaxPayload}
	d.buf = frame.NewBuffer(DefaultMaxPayload+Overhead, &d.stats)
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
		if data[0] != Sync1 {
			skip := bytes.IndexByte(data, Sync1)
			if skip < 0 {
				skip = len(data)
			}
			d.framingError("garbage before sync", skip)
			continue
		}
		if len(data) < 2 {
			return 1
		}
		if data[1] != Sync2 {
			d.framingError("bad second sync byte", 1)
			continue
		}
		if len(data) < headerLen {
			return headerLen - len(data)
		}
		size := int(binary.LittleEndian.Uint16(data[4:6]))
		if size > d.MaxPayload {
			d.framingError("length exceeds limit", 1)
			continue
		}
		total := size + Overhead
		if len(data) < total {
			return total - len(data)
		}
		ckA, ckB := checksum.Fletcher8(data[2 : total-2])
		if ckA != data[total-2] || ckB != data[total-1] {
			if n := d.stats.IntegrityErrors.Add(1); frame.ShouldLog(n) {
				glog.Warningf("ubx: checksum mismatch on %02x-%02x (%d so far)", data[2], data[3], n)
			}
			d.buf.Consume(1)
			continue
		}
		fr := frame.Frame{
			Protocol: frame.ProtocolUBX,
			ID:       MessageID(data[2], data[3]),
			Payload:  append([]byte(nil), data[headerLen:total-2]...),
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
		glog.Warningf("ubx: framing error: %s (%d so far)", reason, n)
	}
	d.buf.Consume(skip)
}

// AppendFrame encodes a message appended to dst.
func AppendFrame(dst []byte, class, id byte, payload []byte) ([]byte, error) {
	if len(payload) > 0xffff {
		return dst, ErrPayloadSize
	}
	start := len(dst)
	dst = append(dst, Sync1, Sync2, class, id)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	dst = append(dst, payload...)
	ckA, ckB := checksum.Fletcher8(dst[start+2:])
	return append(dst, ckA, ckB), nil
}

// Encode encodes a message into a new frame.
func Encode(class, id byte, payload []byte) ([]byte, error) {
	return AppendFrame(make([]byte, 0, len(payload)+Overhead), class, id, payload)
}
