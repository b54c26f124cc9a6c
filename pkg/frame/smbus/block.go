// Package smbus validates block reads from the battery bus and maps the
// smart-battery register set to physical units.
//
// A block read is a request/response transaction rather than a stream:
// each response starts with a length byte and is accepted only if the
// claimed length fits in what the transaction actually returned.
package smbus

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/frame"
)

// MaxBlockLen is the largest data length a block read may claim.
const MaxBlockLen = 32

// ErrEmpty indicates a transaction that returned no bytes at all.
var ErrEmpty = errors.New("smbus: empty response")

// LengthError indicates a block response whose length byte is not
// consistent with the bytes received.
type LengthError struct {
	Claimed  int
	Received int
}

// Error implements error.
func (e *LengthError) Error() string {
	return fmt.Sprintf("smbus: block claims %d bytes, %d received (max %d)",
		e.Claimed, e.Received, MaxBlockLen)
}

// ParseBlock validates one block-read response and returns its data.
// The returned slice aliases resp.
func ParseBlock(resp []byte) ([]byte, error) {
	if len(resp) == 0 {
		return nil, ErrEmpty
	}
	n := int(resp[0])
	if n > MaxBlockLen || n > len(resp)-1 {
		return nil, &LengthError{Claimed: n, Received: len(resp) - 1}
	}
	return resp[1 : 1+n], nil
}

// Decoder is the block-read variant of frame.Decoder. Every call handles
// one complete bus transaction; nothing carries over between calls.
type Decoder struct {
	Handler frame.Handler

	stats frame.Stats
}

// NewDecoder creates a Decoder.
func NewDecoder(h frame.Handler) *Decoder {
	return &Decoder{Handler: h}
}

// Stats implements frame.Decoder.
func (d *Decoder) Stats() *frame.Stats {
	return &d.stats
}

// Reset implements frame.Decoder.
func (d *Decoder) Reset() {}

// Feed implements frame.Decoder. p is a transaction record: the register
// followed by the raw response.
func (d *Decoder) Feed(p []byte) int {
	if len(p) == 0 {
		return 1
	}
	d.Transaction(p[0], p[1:])
	return 1
}

// Transaction validates the response to a block read of reg. On success
// a frame with ID reg is delivered to the handler and the data is
// returned. A rejected response is counted and the error returned so the
// caller can retry the whole transaction.
func (d *Decoder) Transaction(reg byte, resp []byte) ([]byte, error) {
	d.stats.BytesIn.Add(uint64(len(resp)))
	d.stats.BytesConsumed.Add(uint64(len(resp)))
	data, err := ParseBlock(resp)
	if err != nil {
		if n := d.stats.FramingErrors.Add(1); frame.ShouldLog(n) {
			glog.Warningf("smbus: register 0x%02x: %v (%d so far)", reg, err, n)
		}
		return nil, err
	}
	d.stats.Frames.Add(1)
	if h := d.Handler; h != nil {
		h.HandleFrame(frame.Frame{
			Protocol: frame.ProtocolSMBus,
			ID:       uint16(reg),
			Payload:  append([]byte(nil), data...),
		})
	}
	return data, nil
}
