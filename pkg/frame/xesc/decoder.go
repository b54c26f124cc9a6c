package xesc

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/checksum"
	"github.com/robotalks/mowlink/pkg/frame"
)

const (
	delimiter byte = 0x00

	// MinPacketLen is the shortest unstuffed packet: type, one byte, CRC.
	MinPacketLen = 4
	// MaxPacketLen bounds the unstuffed packet size.
	MaxPacketLen = 255
)

var (
	// MaxEncodedLen bounds the stuffed packet size.
	MaxEncodedLen = checksum.COBSMaxEncodedLen(MaxPacketLen)

	// ErrPacketSize indicates a packet outside MinPacketLen..MaxPacketLen.
	ErrPacketSize = errors.New("xesc: packet size out of range")
)

// Decoder extracts byte-stuffed frames.
type Decoder struct {
	Handler frame.Handler

	stats   frame.Stats
	buf     *frame.Buffer
	scratch []byte
	discard bool
}

// NewDecoder creates a Decoder delivering frames to h.
func NewDecoder(h frame.Handler) *Decoder {
	d := &Decoder{Handler: h, scratch: make([]byte, 0, MaxPacketLen)}
	d.buf = frame.NewBuffer(MaxEncodedLen+1, &d.stats)
	return d
}

// Stats implements frame.Decoder.
func (d *Decoder) Stats() *frame.Stats {
	return &d.stats
}

// Reset implements frame.Decoder.
func (d *Decoder) Reset() {
	d.buf.Reset()
	d.discard = false
}

// Feed implements frame.Decoder.
func (d *Decoder) Feed(p []byte) int {
	d.buf.Append(p)
	for {
		data := d.buf.Bytes()
		end := bytes.IndexByte(data, delimiter)
		if end < 0 {
			if len(data) > MaxEncodedLen {
				// Partial frame overflowed; drop it and skip to the next delimiter.
				if n := d.stats.Overflows.Add(1); frame.ShouldLog(n) {
					glog.Warningf("xesc: frame exceeds %d bytes, resync (%d so far)", MaxEncodedLen, n)
				}
				d.discard = true
				d.buf.Consume(len(data))
			}
			return 1
		}
		if d.discard {
			d.discard = false
			d.buf.Consume(end + 1)
			continue
		}
		if end == 0 {
			d.buf.Consume(1)
			continue
		}
		d.decodePacket(data[:end])
		d.buf.Consume(end + 1)
	}
}

func (d *Decoder) decodePacket(stuffed []byte) {
	pkt, err := checksum.COBSDecode(d.scratch[:0], stuffed)
	if err != nil || len(pkt) < MinPacketLen {
		if n := d.stats.FramingErrors.Add(1); frame.ShouldLog(n) {
			glog.Warningf("xesc: malformed frame of %d bytes (%d so far)", len(stuffed), n)
		}
		return
	}
	body := pkt[:len(pkt)-2]
	if crc := binary.LittleEndian.Uint16(pkt[len(body):]); crc != checksum.CRC16CCITTFalse(body) {
		if n := d.stats.IntegrityErrors.Add(1); frame.ShouldLog(n) {
			glog.Warningf("xesc: crc mismatch on type %d (%d so far)", body[0], n)
		}
		return
	}
	fr := frame.Frame{
		Protocol: frame.ProtocolXESC,
		ID:       uint16(body[0]),
		Payload:  append([]byte(nil), body...),
	}
	d.stats.Frames.Add(1)
	if h := d.Handler; h != nil {
		h.HandleFrame(fr)
	}
}

// AppendFrame appends the CRC to body, stuffs it and appends the delimited
// frame to dst.
func AppendFrame(dst, body []byte) ([]byte, error) {
	if len(body)+2 < MinPacketLen || len(body)+2 > MaxPacketLen {
		return dst, ErrPacketSize
	}
	pkt := make([]byte, 0, len(body)+2)
	pkt = append(pkt, body...)
	pkt = binary.LittleEndian.AppendUint16(pkt, checksum.CRC16CCITTFalse(body))
	dst = checksum.COBSEncode(dst, pkt)
	return append(dst, delimiter), nil
}

// Encode encodes body into a new delimited frame.
func Encode(body []byte) ([]byte, error) {
	return AppendFrame(nil, body)
}
