package vesc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortPayload indicates a reply payload shorter than its layout.
var ErrShortPayload = errors.New("vesc: short payload")

// FaultCode is the controller fault reported in GET_VALUES.
type FaultCode byte

// Fault codes
const (
	FaultNone FaultCode = iota
	FaultOverVoltage
	FaultUnderVoltage
	FaultDRV
	FaultAbsOverCurrent
	FaultOverTempFET
	FaultOverTempMotor
	FaultGateDriverOverVoltage
	FaultGateDriverUnderVoltage
	FaultMCUUnderVoltage
	FaultBootingFromWatchdogReset
	FaultEncoderSPI
)

var faultNames = []string{
	"none",
	"over voltage",
	"under voltage",
	"drv",
	"abs over current",
	"over temp fet",
	"over temp motor",
	"gate driver over voltage",
	"gate driver under voltage",
	"mcu under voltage",
	"booting from watchdog reset",
	"encoder spi",
}

// String implements fmt.Stringer.
func (f FaultCode) String() string {
	if int(f) < len(faultNames) {
		return faultNames[f]
	}
	return fmt.Sprintf("fault %d", byte(f))
}

// Values is the decoded GET_VALUES reply.
type Values struct {
	TempFET          float64 // °C
	TempMotor        float64 // °C
	CurrentMotor     float64 // A
	CurrentIn        float64 // A
	CurrentD         float64 // A
	CurrentQ         float64 // A
	Duty             float64 // -1..1
	RPM              int32   // electrical
	VoltageIn        float64 // V
	AmpHours         float64
	AmpHoursCharged  float64
	WattHours        float64
	WattHoursCharged float64
	Tachometer       int32
	TachometerAbs    int32
	Fault            FaultCode
}

// valuesLen is the GET_VALUES layout length including the command byte.
// Newer firmware appends fields after it.
const valuesLen = 54

type reader struct {
	b   []byte
	off int
}

func (r *reader) i16(scale float64) float64 {
	v := int16(binary.BigEndian.Uint16(r.b[r.off:]))
	r.off += 2
	return float64(v) / scale
}

func (r *reader) i32() int32 {
	v := int32(binary.BigEndian.Uint32(r.b[r.off:]))
	r.off += 4
	return v
}

func (r *reader) i32s(scale float64) float64 {
	return float64(r.i32()) / scale
}

// ParseValues decodes a GET_VALUES reply payload (command byte included).
func ParseValues(payload []byte) (v Values, err error) {
	if len(payload) < valuesLen || Command(payload[0]) != CommGetValues {
		return v, ErrShortPayload
	}
	r := &reader{b: payload, off: 1}
	v.TempFET = r.i16(10)
	v.TempMotor = r.i16(10)
	v.CurrentMotor = r.i32s(100)
	v.CurrentIn = r.i32s(100)
	v.CurrentD = r.i32s(100)
	v.CurrentQ = r.i32s(100)
	v.Duty = r.i16(1000)
	v.RPM = r.i32()
	v.VoltageIn = r.i16(10)
	v.AmpHours = r.i32s(10000)
	v.AmpHoursCharged = r.i32s(10000)
	v.WattHours = r.i32s(10000)
	v.WattHoursCharged = r.i32s(10000)
	v.Tachometer = r.i32()
	v.TachometerAbs = r.i32()
	v.Fault = FaultCode(payload[r.off])
	return v, nil
}

// FWVersion is the decoded FW_VERSION reply.
type FWVersion struct {
	Major, Minor byte
	Hardware     string
}

// ParseFWVersion decodes a FW_VERSION reply payload.
func ParseFWVersion(payload []byte) (v FWVersion, err error) {
	if len(payload) < 3 || Command(payload[0]) != CommFWVersion {
		return v, ErrShortPayload
	}
	v.Major, v.Minor = payload[1], payload[2]
	hw := payload[3:]
	for i, b := range hw {
		if b == 0 {
			hw = hw[:i]
			break
		}
	}
	v.Hardware = string(hw)
	return v, nil
}
