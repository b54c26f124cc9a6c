// Package nmea frames and parses ASCII sentences from GNSS receivers.
//
// The Decoder only frames: a sentence starts at '$' and ends at '\n'.
// Checksums are validated by Parse, not by the framer.
package nmea

import (
	"bytes"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/frame"
)

// DefaultMaxLine bounds the sentence length including "$" and "\r\n".
const DefaultMaxLine = 100

// Decoder frames ASCII sentences.
type Decoder struct {
	Handler frame.Handler

	maxLine int
	stats   frame.Stats
	buf     *frame.Buffer
}

// NewDecoder creates a Decoder with a line buffer of maxLine bytes.
// maxLine <= 0 selects DefaultMaxLine.
func NewDecoder(h frame.Handler, maxLine int) *Decoder {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	d := &Decoder{Handler: h, maxLine: maxLine}
	d.buf = frame.NewBuffer(maxLine*2, &d.stats)
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
		start := bytes.IndexByte(data, '$')
		if start < 0 {
			d.buf.Reset()
			return 1
		}
		if start > 0 {
			d.buf.Consume(start)
			continue
		}
		end := bytes.IndexByte(data, '\n')
		if restart := bytes.IndexByte(data[1:], '$'); restart >= 0 && (end < 0 || restart+1 < end) {
			// Sentence cut short by the start of another one.
			d.framingError("truncated sentence")
			d.buf.Consume(restart + 1)
			continue
		}
		if end < 0 {
			if len(data) > d.maxLine {
				d.overflow()
				d.buf.Reset()
			}
			return 1
		}
		if end+1 > d.maxLine {
			d.overflow()
			d.buf.Consume(end + 1)
			continue
		}
		line := bytes.TrimRight(data[:end], "\r")
		fr := frame.Frame{
			Protocol: frame.ProtocolNMEA,
			Payload:  append([]byte(nil), line...),
		}
		d.buf.Consume(end + 1)
		d.stats.Frames.Add(1)
		if h := d.Handler; h != nil {
			h.HandleFrame(fr)
		}
	}
}

func (d *Decoder) framingError(reason string) {
	if n := d.stats.FramingErrors.Add(1); frame.ShouldLog(n) {
		glog.Warningf("nmea: framing error: %s (%d so far)", reason, n)
	}
}

func (d *Decoder) overflow() {
	if n := d.stats.Overflows.Add(1); frame.ShouldLog(n) {
		glog.Warningf("nmea: sentence exceeds %d bytes, discarded (%d so far)", d.maxLine, n)
	}
}
