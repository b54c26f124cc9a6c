package ubx

import (
	"encoding/binary"
	"errors"
	"time"
)

// Message classes and ids.
const (
	ClassNAV byte = 0x01
	ClassACK byte = 0x05
	ClassCFG byte = 0x06

	IDNavPVT byte = 0x07
	IDAckNak byte = 0x00
	IDAckAck byte = 0x01
)

// Frame IDs of decoded messages.
var (
	NavPVTID = MessageID(ClassNAV, IDNavPVT)
	AckAckID = MessageID(ClassACK, IDAckAck)
	AckNakID = MessageID(ClassACK, IDAckNak)
)

// ErrShortPayload indicates a payload shorter than the message layout.
var ErrShortPayload = errors.New("ubx: short payload")

// FixType is the GNSS fix type of NAV-PVT.
type FixType byte

// Fix types
const (
	FixNone FixType = iota
	FixDeadReckoning
	Fix2D
	Fix3D
	FixGNSSDeadReckoning
	FixTimeOnly
)

// CarrierSolution is the RTK carrier phase solution state.
type CarrierSolution byte

// Carrier solutions
const (
	CarrierNone CarrierSolution = iota
	CarrierFloat
	CarrierFixed
)

// String implements fmt.Stringer.
func (c CarrierSolution) String() string {
	switch c {
	case CarrierFloat:
		return "float"
	case CarrierFixed:
		return "fixed"
	}
	return "none"
}

// NavPVT is the decoded NAV-PVT message with fields in SI units.
type NavPVT struct {
	ITOW        uint32 // ms
	Time        time.Time
	TimeValid   bool
	FixType     FixType
	FixOK       bool
	Carrier     CarrierSolution
	NumSV       int
	Lon, Lat    float64 // degrees
	Height      float64 // m above ellipsoid
	HeightMSL   float64 // m
	HAcc, VAcc  float64 // m
	VelN        float64 // m/s
	VelE        float64 // m/s
	VelD        float64 // m/s
	GroundSpeed float64 // m/s
	Heading     float64 // degrees
	SpeedAcc    float64 // m/s
	HeadingAcc  float64 // degrees
	PDOP        float64
}

const navPVTLen = 92

func i32(b []byte) int32  { return int32(binary.LittleEndian.Uint32(b)) }
func u32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// ParseNavPVT decodes a NAV-PVT payload.
func ParseNavPVT(p []byte) (m NavPVT, err error) {
	if len(p) < navPVTLen {
		return m, ErrShortPayload
	}
	m.ITOW = u32(p[0:])
	valid := p[11]
	if valid&0x03 == 0x03 {
		m.TimeValid = true
		m.Time = time.Date(int(binary.LittleEndian.Uint16(p[4:])), time.Month(p[6]), int(p[7]),
			int(p[8]), int(p[9]), int(p[10]), int(i32(p[16:])), time.UTC)
	}
	m.FixType = FixType(p[20])
	flags := p[21]
	m.FixOK = flags&0x01 != 0
	m.Carrier = CarrierSolution(flags >> 6)
	m.NumSV = int(p[23])
	m.Lon = float64(i32(p[24:])) * 1e-7
	m.Lat = float64(i32(p[28:])) * 1e-7
	m.Height = float64(i32(p[32:])) * 0.001
	m.HeightMSL = float64(i32(p[36:])) * 0.001
	m.HAcc = float64(u32(p[40:])) * 0.001
	m.VAcc = float64(u32(p[44:])) * 0.001
	m.VelN = float64(i32(p[48:])) * 0.001
	m.VelE = float64(i32(p[52:])) * 0.001
	m.VelD = float64(i32(p[56:])) * 0.001
	m.GroundSpeed = float64(i32(p[60:])) * 0.001
	m.Heading = float64(i32(p[64:])) * 1e-5
	m.SpeedAcc = float64(u32(p[68:])) * 0.001
	m.HeadingAcc = float64(u32(p[72:])) * 1e-5
	m.PDOP = float64(binary.LittleEndian.Uint16(p[76:])) * 0.01
	return m, nil
}

// Ack is a decoded ACK-ACK or ACK-NAK.
type Ack struct {
	Acked bool
	Class byte
	ID    byte
}

// ParseAck decodes an ACK frame.
func ParseAck(id uint16, p []byte) (a Ack, err error) {
	if len(p) < 2 {
		return a, ErrShortPayload
	}
	return Ack{Acked: id == AckAckID, Class: p[0], ID: p[1]}, nil
}
