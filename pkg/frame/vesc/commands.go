package vesc

import (
	"encoding/binary"
	"math"
)

// Command is the command id carried in the first payload byte.
type Command byte

// Commands used by the mower.
const (
	CommFWVersion       Command = 0
	CommGetValues       Command = 4
	CommSetDuty         Command = 5
	CommSetCurrent      Command = 6
	CommSetCurrentBrake Command = 7
	CommSetRPM          Command = 8
	CommAlive           Command = 30
)

// HasReply reports whether the controller answers the command.
func (c Command) HasReply() bool {
	return c == CommFWVersion || c == CommGetValues
}

// Query builds the payload of a command without arguments.
func Query(cmd Command) []byte {
	return []byte{byte(cmd)}
}

func requestInt32(cmd Command, v int32) []byte {
	return binary.BigEndian.AppendUint32([]byte{byte(cmd)}, uint32(v))
}

// SetDuty builds a duty-cycle command, duty in -1..1.
func SetDuty(duty float64) []byte {
	return requestInt32(CommSetDuty, int32(math.Round(duty*100000)))
}

// SetCurrent builds a motor current command in amperes.
func SetCurrent(amps float64) []byte {
	return requestInt32(CommSetCurrent, int32(math.Round(amps*1000)))
}

// SetCurrentBrake builds a brake current command in amperes.
func SetCurrentBrake(amps float64) []byte {
	return requestInt32(CommSetCurrentBrake, int32(math.Round(amps*1000)))
}

// SetRPM builds an electrical RPM command.
func SetRPM(erpm int32) []byte {
	return requestInt32(CommSetRPM, erpm)
}
