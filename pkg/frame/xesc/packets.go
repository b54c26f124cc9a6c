package xesc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Message types.
const (
	TypeStatus   byte = 1
	TypeControl  byte = 2
	TypeSettings byte = 3
)

// Fault bits reported in Status.FaultCode.
const (
	FaultUninitialized     uint32 = 1 << 0
	FaultWatchdog          uint32 = 1 << 1
	FaultUndervoltage      uint32 = 1 << 2
	FaultOvervoltage       uint32 = 1 << 3
	FaultOvercurrent       uint32 = 1 << 4
	FaultOvertempMotor     uint32 = 1 << 5
	FaultOvertempPCB       uint32 = 1 << 6
	FaultInvalidHallSensor uint32 = 1 << 7
	FaultInternalError     uint32 = 1 << 8
	FaultOpenLoop          uint32 = 1 << 9
)

// ErrPacketType indicates a body of a different message type or length.
var ErrPacketType = errors.New("xesc: unexpected packet type or length")

// Status is the periodic status packet.
type Status struct {
	Seq              uint32
	FWMajor, FWMinor byte
	VoltageInput     float64 // V
	TemperaturePCB   float64 // °C
	TemperatureMotor float64 // °C
	CurrentInput     float64 // A
	DutyCycle        float64 // -1..1
	Direction        bool
	Tacho            uint32
	TachoAbsolute    uint32
	FaultCode        uint32
}

const statusBodyLen = 60

func f64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func appendF64(b []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
}

// ParseStatus decodes a status body (CRC stripped).
func ParseStatus(body []byte) (s Status, err error) {
	if len(body) < statusBodyLen || body[0] != TypeStatus {
		return s, ErrPacketType
	}
	s.Seq = binary.LittleEndian.Uint32(body[1:])
	s.FWMajor, s.FWMinor = body[5], body[6]
	s.VoltageInput = f64(body[7:])
	s.TemperaturePCB = f64(body[15:])
	s.TemperatureMotor = f64(body[23:])
	s.CurrentInput = f64(body[31:])
	s.DutyCycle = f64(body[39:])
	s.Direction = body[47] != 0
	s.Tacho = binary.LittleEndian.Uint32(body[48:])
	s.TachoAbsolute = binary.LittleEndian.Uint32(body[52:])
	s.FaultCode = binary.LittleEndian.Uint32(body[56:])
	return s, nil
}

// AppendBody appends the status body (without CRC) to dst.
func (s *Status) AppendBody(dst []byte) []byte {
	dst = append(dst, TypeStatus)
	dst = binary.LittleEndian.AppendUint32(dst, s.Seq)
	dst = append(dst, s.FWMajor, s.FWMinor)
	dst = appendF64(dst, s.VoltageInput)
	dst = appendF64(dst, s.TemperaturePCB)
	dst = appendF64(dst, s.TemperatureMotor)
	dst = appendF64(dst, s.CurrentInput)
	dst = appendF64(dst, s.DutyCycle)
	if s.Direction {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}
	dst = binary.LittleEndian.AppendUint32(dst, s.Tacho)
	dst = binary.LittleEndian.AppendUint32(dst, s.TachoAbsolute)
	return binary.LittleEndian.AppendUint32(dst, s.FaultCode)
}

// Control builds the encoded control frame setting the duty cycle.
func Control(duty float64) ([]byte, error) {
	return Encode(appendF64([]byte{TypeControl}, duty))
}

// ParseControl decodes a control body.
func ParseControl(body []byte) (float64, error) {
	if len(body) < 9 || body[0] != TypeControl {
		return 0, ErrPacketType
	}
	return f64(body[1:]), nil
}

var faultNames = []string{
	"uninitialized",
	"watchdog",
	"undervoltage",
	"overvoltage",
	"overcurrent",
	"overtemp-motor",
	"overtemp-pcb",
	"invalid-hall-sensor",
	"internal-error",
	"open-loop",
}

// FaultString names the set fault bits.
func FaultString(code uint32) string {
	if code == 0 {
		return "none"
	}
	var names []string
	for bit, name := range faultNames {
		if code&(1<<uint(bit)) != 0 {
			names = append(names, name)
		}
	}
	if rest := code >> uint(len(faultNames)); rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", rest<<uint(len(faultNames))))
	}
	return strings.Join(names, ",")
}
