package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/mowlink/pkg/frame"
)

// Limits of a link buffer size.
const (
	MinBufferSize = 16
	MaxBufferSize = 4096
)

// Duration is a time.Duration written as a string, e.g. "20ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(strings.TrimSpace(string(text)))
	return
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Link describes one streaming link.
type Link struct {
	Name       string `toml:"name"`
	Protocol   string `toml:"protocol"`
	Port       string `toml:"port"`
	Baud       int    `toml:"baud"`
	BufferSize int    `toml:"buffer_size"`
	// FlushTimeout is the silence after which a partial buffer is decoded.
	FlushTimeout Duration `toml:"flush_timeout"`
	// MaxAge is the age after which the link state is stale.
	MaxAge Duration `toml:"max_age"`
	// StatusInterval is the period of status requests on motor links.
	StatusInterval Duration `toml:"status_interval"`
}

// ADC describes the converter measuring the charge input.
type ADC struct {
	Address           int     `toml:"address"`
	ReferenceRegister int     `toml:"reference_register"`
	SenseRegister     int     `toml:"sense_register"`
	ReferenceVolts    float64 `toml:"reference_volts"`
	Divider           float64 `toml:"divider"`
}

// Battery describes the gauge on the battery bus.
type Battery struct {
	// Bus is the index of /dev/i2c-N.
	Bus           int      `toml:"bus"`
	Address       int      `toml:"address"`
	PollInterval  Duration `toml:"poll_interval"`
	MaxAge        Duration `toml:"max_age"`
	SlowMaxAge    Duration `toml:"slow_max_age"`
	ProbeAttempts int      `toml:"probe_attempts"`
	ProbeWindow   Duration `toml:"probe_window"`
	ADC           *ADC     `toml:"adc"`
}

// Telemetry configures state publishing.
type Telemetry struct {
	Interval Duration `toml:"interval"`
}

// File is the content of the link file.
type File struct {
	Links     []Link    `toml:"link"`
	Battery   *Battery  `toml:"battery"`
	Telemetry Telemetry `toml:"telemetry"`
}

// LoadFile reads and validates a link file.
func LoadFile(path string) (*File, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return f.checked(meta)
}

// Parse decodes and validates link file content.
func Parse(content string) (*File, error) {
	var f File
	meta, err := toml.Decode(content, &f)
	if err != nil {
		return nil, err
	}
	return f.checked(meta)
}

func (f *File) checked(meta toml.MetaData) (*File, error) {
	if keys := meta.Undecoded(); len(keys) > 0 {
		return nil, fmt.Errorf("unknown key %q", keys[0].String())
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the content.
func (f *File) Validate() error {
	names := make(map[string]bool)
	for i, l := range f.Links {
		if l.Name == "" {
			return fmt.Errorf("link %d: name missing", i)
		}
		if names[l.Name] {
			return fmt.Errorf("link %s: duplicate name", l.Name)
		}
		names[l.Name] = true
		p, err := frame.ParseProtocol(l.Protocol)
		if err != nil {
			return fmt.Errorf("link %s: %w", l.Name, err)
		}
		if p == frame.ProtocolSMBus {
			return fmt.Errorf("link %s: %s is configured in [battery]", l.Name, p)
		}
		if l.Port == "" {
			return fmt.Errorf("link %s: port missing", l.Name)
		}
		if l.BufferSize != 0 && (l.BufferSize < MinBufferSize || l.BufferSize > MaxBufferSize) {
			return fmt.Errorf("link %s: buffer_size %d outside %d..%d", l.Name, l.BufferSize, MinBufferSize, MaxBufferSize)
		}
	}
	if b := f.Battery; b != nil {
		if names["battery"] {
			return fmt.Errorf("link battery: name reserved for [battery]")
		}
		if b.Address < 0 || b.Address > 0x7f {
			return fmt.Errorf("battery: address 0x%x out of range", b.Address)
		}
		if adc := b.ADC; adc != nil && (adc.Address <= 0 || adc.Address > 0x7f) {
			return fmt.Errorf("battery: adc address 0x%x out of range", adc.Address)
		}
	}
	return nil
}
