package smbus

// Smart-battery registers read by the battery poller.
const (
	RegTemperature        byte = 0x08
	RegVoltage            byte = 0x09
	RegCurrent            byte = 0x0A
	RegRelativeCharge     byte = 0x0D
	RegRemainingCapacity  byte = 0x0F
	RegFullChargeCapacity byte = 0x10
	RegCycleCount         byte = 0x17
	RegManufacturerName   byte = 0x20
	RegDeviceName         byte = 0x21
	RegDeviceChemistry    byte = 0x22
)

// Celsius converts a temperature word (0.1 K per LSB).
func Celsius(raw uint16) float64 {
	return float64(raw)*0.1 - 273.15
}

// Volts converts a voltage word (1 mV per LSB).
func Volts(raw uint16) float64 {
	return float64(raw) * 0.001
}

// Amps converts a signed current word (1 mA per LSB). Negative is discharge.
func Amps(raw uint16) float64 {
	return float64(int16(raw)) * 0.001
}

// AmpHours converts a capacity word (1 mAh per LSB).
func AmpHours(raw uint16) float64 {
	return float64(raw) * 0.001
}
