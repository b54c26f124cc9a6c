package frame

import (
	"fmt"
	"sync/atomic"
)

// Protocol identifies one of the closed set of link protocols.
type Protocol int

// Protocols
const (
	ProtocolUnknown Protocol = iota
	// ProtocolVESC is the motor-controller frame protocol.
	ProtocolVESC
	// ProtocolUBX is the satellite-receiver binary protocol.
	ProtocolUBX
	// ProtocolXESC is the byte-stuffed ESC frame protocol.
	ProtocolXESC
	// ProtocolNMEA is the ASCII sentence protocol.
	ProtocolNMEA
	// ProtocolSMBus is the battery-bus block-read protocol.
	ProtocolSMBus
)

var protocolNames = map[Protocol]string{
	ProtocolVESC:  "vesc",
	ProtocolUBX:   "ubx",
	ProtocolXESC:  "xesc",
	ProtocolNMEA:  "nmea",
	ProtocolSMBus: "smbus",
}

// String implements fmt.Stringer.
func (p Protocol) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return fmt.Sprintf("protocol(%d)", int(p))
}

// ParseProtocol maps a configuration name to a Protocol.
func ParseProtocol(name string) (Protocol, error) {
	for p, n := range protocolNames {
		if n == name {
			return p, nil
		}
	}
	return ProtocolUnknown, fmt.Errorf("unknown protocol %q", name)
}

// Frame is a validated protocol message detached from the receive buffer.
// ID is protocol specific: the command id for motor-controller frames,
// class<<8|id for satellite-binary frames, the message type for byte-stuffed
// frames and the register for block reads. ASCII sentences carry ID 0 and
// the whole line (without line terminator) as Payload.
type Frame struct {
	Protocol Protocol
	ID       uint16
	Payload  []byte
}

// Handler is called for every decoded frame, in arrival order.
type Handler interface {
	HandleFrame(Frame)
}

// HandleFrameFunc is func type of Handler.
type HandleFrameFunc func(Frame)

// HandleFrame implements Handler.
func (f HandleFrameFunc) HandleFrame(fr Frame) {
	f(fr)
}

// Decoder extracts frames from a byte stream.
type Decoder interface {
	// Feed consumes p, calls the handler for each complete frame and
	// returns the minimum number of additional bytes needed before the
	// next frame can be extracted. It never returns less than 1.
	Feed(p []byte) int
	// Stats returns the decoder counters.
	Stats() *Stats
	// Reset drops any carried-over partial frame.
	Reset()
}

// Stats counts decoder activity. Fields may be read while the owning
// worker is updating them.
type Stats struct {
	BytesIn         atomic.Uint64
	BytesConsumed   atomic.Uint64
	Frames          atomic.Uint64
	FramingErrors   atomic.Uint64
	IntegrityErrors atomic.Uint64
	Overflows       atomic.Uint64
	Pending         atomic.Int64
}

// Snapshot is a plain copy of Stats.
type Snapshot struct {
	BytesIn         uint64
	BytesConsumed   uint64
	Frames          uint64
	FramingErrors   uint64
	IntegrityErrors uint64
	Overflows       uint64
	Pending         int
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		BytesIn:         s.BytesIn.Load(),
		BytesConsumed:   s.BytesConsumed.Load(),
		Frames:          s.Frames.Load(),
		FramingErrors:   s.FramingErrors.Load(),
		IntegrityErrors: s.IntegrityErrors.Load(),
		Overflows:       s.Overflows.Load(),
		Pending:         int(s.Pending.Load()),
	}
}
