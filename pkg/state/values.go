package state

import "time"

// GPS is the latest navigation solution.
type GPS struct {
	Protocol   string
	Time       time.Time
	Fix        int
	FixOK      bool
	RTK        string
	Satellites int
	Lat, Lon   float64
	Height     float64
	HAcc, VAcc float64
	VelN, VelE float64
	VelD       float64
	Speed      float64
	Heading    float64
	DOP        float64
}

// Motor is the latest status of a motor controller.
type Motor struct {
	TempFET      float64
	TempMotor    float64
	CurrentMotor float64
	CurrentIn    float64
	Duty         float64
	RPM          float64
	VoltageIn    float64
	Tacho        int64
	TachoAbs     int64
	Fault        uint32
	FaultName    string
	Firmware     string
}

// Battery is the latest reading of the battery gauge.
type Battery struct {
	Voltage      float64
	Current      float64
	Temperature  float64
	Charge       int
	Remaining    float64
	FullCapacity float64
	Cycles       int
	Manufacturer string
	Device       string
	Chemistry    string
	// SenseVoltage is the charge input measured by the optional ADC pair.
	SenseVoltage float64
}

// GPSCell latches GPS.
type GPSCell struct {
	*Cell
}

// NewGPSCell creates a GPSCell.
func NewGPSCell(name string, maxAge time.Duration) *GPSCell {
	return &GPSCell{Cell: newCell(name, KindGPS, maxAge, GPS{})}
}

// Get returns the latest GPS value.
func (c *GPSCell) Get() (GPS, Meta) {
	v, m := c.Value()
	return v.(GPS), m
}

// Update applies fn to a copy of the current value and commits it.
func (c *GPSCell) Update(fn func(*GPS)) {
	v := c.load().value.(GPS)
	fn(&v)
	c.commit(v)
}

// MotorCell latches Motor.
type MotorCell struct {
	*Cell
}

// NewMotorCell creates a MotorCell.
func NewMotorCell(name string, maxAge time.Duration) *MotorCell {
	return &MotorCell{Cell: newCell(name, KindMotor, maxAge, Motor{})}
}

// Get returns the latest Motor value.
func (c *MotorCell) Get() (Motor, Meta) {
	v, m := c.Value()
	return v.(Motor), m
}

// Update applies fn to a copy of the current value and commits it.
func (c *MotorCell) Update(fn func(*Motor)) {
	v := c.load().value.(Motor)
	fn(&v)
	c.commit(v)
}

// BatteryCell latches Battery.
type BatteryCell struct {
	*Cell
}

// NewBatteryCell creates a BatteryCell.
func NewBatteryCell(name string, maxAge time.Duration) *BatteryCell {
	return &BatteryCell{Cell: newCell(name, KindBattery, maxAge, Battery{})}
}

// Get returns the latest Battery value.
func (c *BatteryCell) Get() (Battery, Meta) {
	v, m := c.Value()
	return v.(Battery), m
}

// Update applies fn to a copy of the current value and commits it.
func (c *BatteryCell) Update(fn func(*Battery)) {
	v := c.load().value.(Battery)
	fn(&v)
	c.commit(v)
}
