package station

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/frame"
	"github.com/robotalks/mowlink/pkg/frame/nmea"
	"github.com/robotalks/mowlink/pkg/frame/ubx"
	"github.com/robotalks/mowlink/pkg/frame/vesc"
	"github.com/robotalks/mowlink/pkg/frame/xesc"
	"github.com/robotalks/mowlink/pkg/link"
	"github.com/robotalks/mowlink/pkg/state"
)

// DefaultStatusInterval is the period of status requests on motor links.
const DefaultStatusInterval = 100 * time.Millisecond

// lateSender forwards to the link once it exists.
type lateSender struct {
	link vesc.Sender
}

func (s *lateSender) Send(p []byte) error {
	if s.link == nil {
		return link.ErrNotConnected
	}
	return s.link.Send(p)
}

// MotorClient sends requests on a motor-controller link and polls its
// status from the link worker's housekeeping.
type MotorClient struct {
	*vesc.Client

	out      *lateSender
	interval time.Duration
	next     time.Time
	firmware bool
}

func newMotorClient(interval time.Duration) *MotorClient {
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	out := &lateSender{}
	return &MotorClient{Client: vesc.NewClient(out), out: out, interval: interval}
}

func (m *MotorClient) attach(s vesc.Sender) {
	m.out.link = s
}

// Housekeep implements link.Housekeeper. The requests are sent without
// waiting: replies are decoded by the same worker.
func (m *MotorClient) Housekeep(ctx context.Context, now time.Time) {
	if now.Before(m.next) {
		return
	}
	m.next = now.Add(m.interval)
	if !m.firmware {
		m.send(vesc.Query(vesc.CommFWVersion))
	}
	m.send(vesc.Query(vesc.CommGetValues))
}

func (m *MotorClient) send(payload []byte) {
	if err := m.Client.Send(payload); err != nil {
		glog.V(2).Infof("motor request %d: %v", payload[0], err)
	}
}

func (s *Station) bindVESC(l *Link) frame.Decoder {
	l.Motor = newMotorClient(l.Config.StatusInterval.Duration)
	name, cell, client := l.Config.Name, l.motor, l.Motor
	return vesc.NewDecoder(frame.HandleFrameFunc(func(fr frame.Frame) {
		switch vesc.Command(fr.ID) {
		case vesc.CommGetValues:
			v, err := vesc.ParseValues(fr.Payload)
			if err != nil {
				glog.V(2).Infof("link %s: %v", name, err)
				break
			}
			cell.Update(func(m *state.Motor) {
				m.TempFET = v.TempFET
				m.TempMotor = v.TempMotor
				m.CurrentMotor = v.CurrentMotor
				m.CurrentIn = v.CurrentIn
				m.Duty = v.Duty
				m.RPM = float64(v.RPM)
				m.VoltageIn = v.VoltageIn
				m.Tacho = int64(v.Tachometer)
				m.TachoAbs = int64(v.TachometerAbs)
				m.Fault = uint32(v.Fault)
				m.FaultName = v.Fault.String()
			})
			s.setFault(name, v.Fault != 0)
		case vesc.CommFWVersion:
			v, err := vesc.ParseFWVersion(fr.Payload)
			if err != nil {
				glog.V(2).Infof("link %s: %v", name, err)
				break
			}
			client.firmware = true
			cell.Update(func(m *state.Motor) {
				m.Firmware = fmt.Sprintf("%d.%d", v.Major, v.Minor)
				if v.Hardware != "" {
					m.Firmware += " " + v.Hardware
				}
			})
		}
		client.HandleFrame(fr)
	}))
}

func (s *Station) bindXESC(l *Link) frame.Decoder {
	name, cell := l.Config.Name, l.motor
	return xesc.NewDecoder(frame.HandleFrameFunc(func(fr frame.Frame) {
		if byte(fr.ID) != xesc.TypeStatus {
			return
		}
		st, err := xesc.ParseStatus(fr.Payload)
		if err != nil {
			glog.V(2).Infof("link %s: %v", name, err)
			return
		}
		cell.Update(func(m *state.Motor) {
			m.TempFET = st.TemperaturePCB
			m.TempMotor = st.TemperatureMotor
			m.CurrentIn = st.CurrentInput
			m.Duty = st.DutyCycle
			m.VoltageIn = st.VoltageInput
			m.Tacho = int64(st.Tacho)
			m.TachoAbs = int64(st.TachoAbsolute)
			m.Fault = st.FaultCode
			m.FaultName = xesc.FaultString(st.FaultCode)
			m.Firmware = fmt.Sprintf("%d.%d", st.FWMajor, st.FWMinor)
		})
		s.setFault(name, st.FaultCode != 0)
	}))
}

func (s *Station) bindUBX(l *Link) frame.Decoder {
	name, cell := l.Config.Name, l.gps
	return ubx.NewDecoder(frame.HandleFrameFunc(func(fr frame.Frame) {
		switch fr.ID {
		case ubx.NavPVTID:
			pvt, err := ubx.ParseNavPVT(fr.Payload)
			if err != nil {
				glog.V(2).Infof("link %s: %v", name, err)
				return
			}
			cell.Update(func(g *state.GPS) {
				g.Protocol = frame.ProtocolUBX.String()
				g.Time = pvt.Time
				g.Fix = int(pvt.FixType)
				g.FixOK = pvt.FixOK
				g.RTK = pvt.Carrier.String()
				g.Satellites = pvt.NumSV
				g.Lat, g.Lon = pvt.Lat, pvt.Lon
				g.Height = pvt.HeightMSL
				g.HAcc, g.VAcc = pvt.HAcc, pvt.VAcc
				g.VelN, g.VelE, g.VelD = pvt.VelN, pvt.VelE, pvt.VelD
				g.Speed = pvt.GroundSpeed
				g.Heading = pvt.Heading
				g.DOP = pvt.PDOP
			})
		case ubx.AckAckID, ubx.AckNakID:
			if ack, err := ubx.ParseAck(fr.ID, fr.Payload); err == nil {
				glog.V(2).Infof("link %s: config 0x%02x/0x%02x acked=%v", name, ack.Class, ack.ID, ack.Acked)
			}
		}
	}))
}

func rtkOf(quality int) string {
	switch quality {
	case nmea.QualityRTKFix:
		return "fixed"
	case nmea.QualityRTKFlt:
		return "float"
	}
	return "none"
}

func (s *Station) bindNMEA(l *Link) frame.Decoder {
	name, cell := l.Config.Name, l.gps
	var dec *nmea.Decoder
	dec = nmea.NewDecoder(frame.HandleFrameFunc(func(fr frame.Frame) {
		msg, err := nmea.Parse(fr.Payload)
		if errors.Is(err, nmea.ErrUnsupported) {
			return
		}
		if err != nil {
			if n := dec.Stats().IntegrityErrors.Add(1); frame.ShouldLog(n) {
				glog.Warningf("link %s: %v (%d so far)", name, err, n)
			}
			return
		}
		switch m := msg.(type) {
		case nmea.GGA:
			cell.Update(func(g *state.GPS) {
				g.Protocol = frame.ProtocolNMEA.String()
				g.FixOK = m.Quality != nmea.QualityInvalid
				g.Fix = 0
				if g.FixOK {
					g.Fix = int(ubx.Fix3D)
				}
				g.RTK = rtkOf(m.Quality)
				g.Satellites = m.Satellites
				if !math.IsNaN(m.Lat) && !math.IsNaN(m.Lon) {
					g.Lat, g.Lon = m.Lat, m.Lon
				}
				g.Height = m.Altitude
				g.DOP = m.HDOP
			})
		case nmea.RMC:
			if !m.Valid {
				return
			}
			cell.Update(func(g *state.GPS) {
				g.Protocol = frame.ProtocolNMEA.String()
				if !m.Time.IsZero() {
					g.Time = m.Time
				}
				g.Speed = m.Speed
				g.Heading = m.Course
			})
		}
	}), 0)
	return dec
}
