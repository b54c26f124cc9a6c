// Package telemetry publishes state snapshots over MQTT and forwards
// GNSS correction bytes from MQTT to the receiver link.
//
// A snapshot is one Record in protobuf wire format, prefixed with the
// number of fields so a reader can stop without a length envelope.
package telemetry

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/mowlink/pkg/state"
)

// KindEmergency is the record kind of the emergency word.
const KindEmergency state.Kind = "emergency"

// UnknownRecordError indicates a record of a kind this reader can't decode.
type UnknownRecordError struct {
	Kind string
}

// Error implements error.
func (e *UnknownRecordError) Error() string {
	return fmt.Sprintf("telemetry: unknown record kind %q", e.Kind)
}

const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
)

// Header fields. Value fields start at 16.
const (
	fieldKind = iota + 1
	fieldName
	fieldStamp
	fieldPresent
	fieldStale
	fieldAgeMicros
	fieldSeq
)

// Record is a snapshot of one state cell or of the emergency word.
type Record struct {
	Kind state.Kind
	Name string
	Meta state.Meta

	GPS       state.GPS
	Motor     state.Motor
	Battery   state.Battery
	Emergency state.Flag
}

// RecordOf snapshots a cell.
func RecordOf(c *state.Cell) Record {
	v, m := c.Value()
	r := Record{Kind: c.Kind(), Name: c.Name(), Meta: m}
	switch val := v.(type) {
	case state.GPS:
		r.GPS = val
	case state.Motor:
		r.Motor = val
	case state.Battery:
		r.Battery = val
	}
	return r
}

type encoder struct {
	buf    *proto.Buffer
	fields uint64
}

func (e *encoder) tag(num, wire int) {
	e.fields++
	e.buf.EncodeVarint(uint64(num)<<3 | uint64(wire))
}

func (e *encoder) double(num int, v float64) {
	if v == 0 {
		return
	}
	e.tag(num, wireFixed64)
	e.buf.EncodeFixed64(math.Float64bits(v))
}

func (e *encoder) sint(num int, v int64) {
	if v == 0 {
		return
	}
	e.tag(num, wireVarint)
	e.buf.EncodeZigzag64(uint64(v))
}

func (e *encoder) uint(num int, v uint64) {
	if v == 0 {
		return
	}
	e.tag(num, wireVarint)
	e.buf.EncodeVarint(v)
}

func (e *encoder) bool(num int, v bool) {
	if v {
		e.uint(num, 1)
	}
}

func (e *encoder) str(num int, s string) {
	if s == "" {
		return
	}
	e.tag(num, wireBytes)
	e.buf.EncodeStringBytes(s)
}

// Encode serializes the record.
func (r *Record) Encode() []byte {
	e := &encoder{buf: proto.NewBuffer(nil)}
	e.str(fieldKind, string(r.Kind))
	e.str(fieldName, r.Name)
	if !r.Meta.Stamp.IsZero() {
		e.sint(fieldStamp, r.Meta.Stamp.UnixNano())
	}
	e.bool(fieldPresent, r.Meta.Present)
	e.bool(fieldStale, r.Meta.Stale)
	e.uint(fieldAgeMicros, uint64(r.Meta.Age/time.Microsecond))
	e.uint(fieldSeq, r.Meta.Seq)
	switch r.Kind {
	case state.KindGPS:
		encodeGPS(e, &r.GPS)
	case state.KindMotor:
		encodeMotor(e, &r.Motor)
	case state.KindBattery:
		encodeBattery(e, &r.Battery)
	case KindEmergency:
		e.uint(16, uint64(r.Emergency))
	}
	out := proto.NewBuffer(nil)
	out.EncodeVarint(e.fields)
	return append(out.Bytes(), e.buf.Bytes()...)
}

func encodeGPS(e *encoder, g *state.GPS) {
	e.str(16, g.Protocol)
	if !g.Time.IsZero() {
		e.sint(17, g.Time.UnixNano())
	}
	e.sint(18, int64(g.Fix))
	e.bool(19, g.FixOK)
	e.str(20, g.RTK)
	e.sint(21, int64(g.Satellites))
	e.double(22, g.Lat)
	e.double(23, g.Lon)
	e.double(24, g.Height)
	e.double(25, g.HAcc)
	e.double(26, g.VAcc)
	e.double(27, g.VelN)
	e.double(28, g.VelE)
	e.double(29, g.VelD)
	e.double(30, g.Speed)
	e.double(31, g.Heading)
	e.double(32, g.DOP)
}

func encodeMotor(e *encoder, m *state.Motor) {
	e.double(16, m.TempFET)
	e.double(17, m.TempMotor)
	e.double(18, m.CurrentMotor)
	e.double(19, m.CurrentIn)
	e.double(20, m.Duty)
	e.double(21, m.RPM)
	e.double(22, m.VoltageIn)
	e.sint(23, m.Tacho)
	e.sint(24, m.TachoAbs)
	e.uint(25, uint64(m.Fault))
	e.str(26, m.FaultName)
	e.str(27, m.Firmware)
}

func encodeBattery(e *encoder, b *state.Battery) {
	e.double(16, b.Voltage)
	e.double(17, b.Current)
	e.double(18, b.Temperature)
	e.sint(19, int64(b.Charge))
	e.double(20, b.Remaining)
	e.double(21, b.FullCapacity)
	e.sint(22, int64(b.Cycles))
	e.str(23, b.Manufacturer)
	e.str(24, b.Device)
	e.str(25, b.Chemistry)
	e.double(26, b.SenseVoltage)
}

// fieldSet holds decoded raw field values by number.
type fieldSet map[int]fieldValue

type fieldValue struct {
	u uint64
	s string
}

func (f fieldSet) double(num int) float64 {
	return math.Float64frombits(f[num].u)
}

func (f fieldSet) sint(num int) int64 {
	u := f[num].u
	return int64(u>>1) ^ -int64(u&1)
}

func (f fieldSet) bool(num int) bool {
	return f[num].u != 0
}

func (f fieldSet) time(num int) time.Time {
	if _, ok := f[num]; !ok {
		return time.Time{}
	}
	return time.Unix(0, f.sint(num))
}

// DecodeRecord parses an encoded record.
func DecodeRecord(data []byte) (r Record, err error) {
	buf := proto.NewBuffer(data)
	count, err := buf.DecodeVarint()
	if err != nil {
		return r, err
	}
	fields := make(fieldSet, count)
	for i := uint64(0); i < count; i++ {
		tag, err := buf.DecodeVarint()
		if err != nil {
			return r, err
		}
		var v fieldValue
		switch tag & 7 {
		case wireVarint:
			v.u, err = buf.DecodeVarint()
		case wireFixed64:
			v.u, err = buf.DecodeFixed64()
		case wireBytes:
			v.s, err = buf.DecodeStringBytes()
		default:
			err = fmt.Errorf("telemetry: unsupported wire type %d", tag&7)
		}
		if err != nil {
			return r, err
		}
		fields[int(tag>>3)] = v
	}

	r.Kind = state.Kind(fields[fieldKind].s)
	r.Name = fields[fieldName].s
	r.Meta = state.Meta{
		Seq:     fields[fieldSeq].u,
		Stamp:   fields.time(fieldStamp),
		Present: fields.bool(fieldPresent),
		Stale:   fields.bool(fieldStale),
		Age:     time.Duration(fields[fieldAgeMicros].u) * time.Microsecond,
	}
	switch r.Kind {
	case state.KindGPS:
		r.GPS = state.GPS{
			Protocol: fields[16].s, Time: fields.time(17),
			Fix: int(fields.sint(18)), FixOK: fields.bool(19), RTK: fields[20].s,
			Satellites: int(fields.sint(21)),
			Lat:        fields.double(22), Lon: fields.double(23), Height: fields.double(24),
			HAcc: fields.double(25), VAcc: fields.double(26),
			VelN: fields.double(27), VelE: fields.double(28), VelD: fields.double(29),
			Speed: fields.double(30), Heading: fields.double(31), DOP: fields.double(32),
		}
	case state.KindMotor:
		r.Motor = state.Motor{
			TempFET: fields.double(16), TempMotor: fields.double(17),
			CurrentMotor: fields.double(18), CurrentIn: fields.double(19),
			Duty: fields.double(20), RPM: fields.double(21), VoltageIn: fields.double(22),
			Tacho: fields.sint(23), TachoAbs: fields.sint(24),
			Fault: uint32(fields[25].u), FaultName: fields[26].s, Firmware: fields[27].s,
		}
	case state.KindBattery:
		r.Battery = state.Battery{
			Voltage: fields.double(16), Current: fields.double(17), Temperature: fields.double(18),
			Charge: int(fields.sint(19)), Remaining: fields.double(20), FullCapacity: fields.double(21),
			Cycles: int(fields.sint(22)), Manufacturer: fields[23].s, Device: fields[24].s,
			Chemistry: fields[25].s, SenseVoltage: fields.double(26),
		}
	case KindEmergency:
		r.Emergency = state.Flag(fields[16].u)
	default:
		return r, &UnknownRecordError{Kind: string(r.Kind)}
	}
	return r, nil
}
