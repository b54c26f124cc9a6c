package telemetry

import (
	"fmt"
	"time"

	"github.com/robotalks/mowlink/pkg/state"
)

// String formats the record on one line.
func (r Record) String() string {
	if r.Kind == KindEmergency {
		return "emergency: " + r.Emergency.String()
	}
	head := fmt.Sprintf("%s/%s %s", r.Kind, r.Name, metaString(r.Meta))
	if !r.Meta.Present {
		return head
	}
	switch r.Kind {
	case state.KindGPS:
		g := &r.GPS
		return fmt.Sprintf("%s %s fix=%d ok=%v rtk=%s sv=%d lat=%.7f lon=%.7f h=%.2f hacc=%.3f speed=%.2f hdg=%.1f dop=%.2f",
			head, g.Protocol, g.Fix, g.FixOK, g.RTK, g.Satellites, g.Lat, g.Lon, g.Height, g.HAcc, g.Speed, g.Heading, g.DOP)
	case state.KindMotor:
		m := &r.Motor
		return fmt.Sprintf("%s fw=%s vin=%.1fV iin=%.2fA imot=%.2fA duty=%.3f rpm=%.0f tacho=%d fet=%.1fC mot=%.1fC fault=%s",
			head, m.Firmware, m.VoltageIn, m.CurrentIn, m.CurrentMotor, m.Duty, m.RPM, m.Tacho, m.TempFET, m.TempMotor, m.FaultName)
	case state.KindBattery:
		b := &r.Battery
		return fmt.Sprintf("%s %s/%s %s v=%.3fV i=%.3fA t=%.1fC charge=%d%% remain=%.3fAh full=%.3fAh cycles=%d sense=%.2fV",
			head, b.Manufacturer, b.Device, b.Chemistry, b.Voltage, b.Current, b.Temperature, b.Charge, b.Remaining, b.FullCapacity, b.Cycles, b.SenseVoltage)
	}
	return head
}

func metaString(m state.Meta) string {
	switch {
	case !m.Present:
		return "[absent]"
	case m.Stale:
		return fmt.Sprintf("[stale #%d age=%s]", m.Seq, m.Age.Round(time.Millisecond))
	}
	return fmt.Sprintf("[#%d age=%s]", m.Seq, m.Age.Round(time.Millisecond))
}
