// Package battery polls the smart-battery gauge on the shared bus.
package battery

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/bus"
	"github.com/robotalks/mowlink/pkg/frame/smbus"
	"github.com/robotalks/mowlink/pkg/state"
)

// Defaults of Config.
const (
	DefaultAddress       = 0x0b
	DefaultPollInterval  = time.Second
	DefaultProbeAttempts = 3
	DefaultProbeWindow   = 30 * time.Second
	DefaultSlowTicks     = 10
)

// ErrNoReference indicates the converter reference channel reads zero.
var ErrNoReference = errors.New("battery: adc reference reads zero")

// ADCConfig describes the optional converter measuring the charge input
// as a ratio against a reference channel.
type ADCConfig struct {
	Address       byte
	RefRegister   byte
	SenseRegister byte
	// RefVolts is the voltage on the reference channel.
	RefVolts float64
	// Divider is the ratio of the sense voltage divider.
	Divider float64
}

// Config configures a Poller.
type Config struct {
	Address      byte
	PollInterval time.Duration
	// MaxAge is how long a voltage or current reading is reused before
	// the bus is read again. It defaults to half the poll interval, so
	// they are read on every tick.
	MaxAge time.Duration
	// SlowMaxAge is the same for the slowly changing registers:
	// temperature, charge, capacities and cycle count. It defaults to
	// DefaultSlowTicks poll intervals.
	SlowMaxAge    time.Duration
	ProbeAttempts int
	ProbeWindow   time.Duration
	Retry         bus.RetryPolicy
	ADC           *ADCConfig
}

var wordRegisters = []byte{
	smbus.RegVoltage,
	smbus.RegCurrent,
	smbus.RegTemperature,
	smbus.RegRelativeCharge,
	smbus.RegRemainingCapacity,
	smbus.RegFullChargeCapacity,
	smbus.RegCycleCount,
}

var fastRegisters = map[byte]bool{
	smbus.RegVoltage: true,
	smbus.RegCurrent: true,
}

var nameRegisters = []byte{
	smbus.RegManufacturerName,
	smbus.RegDeviceName,
	smbus.RegDeviceChemistry,
}

// Channel ranks on the shared bus. The reference is always locked first.
const (
	RankADCReference = 0
	RankADCSense     = 1
)

// Poller reads the gauge once per tick and commits the result to the
// battery cell. It is the single writer of that cell.
type Poller struct {
	cfg       Config
	bus       *bus.Shared
	cell      *state.BatteryCell
	emergency *state.Emergency
	decoder   *smbus.Decoder
	prober    *bus.Prober

	samples map[byte]*bus.Sample
	names   map[byte]string
	refCh   *bus.Channel
	senseCh *bus.Channel
}

// NewPoller creates a Poller.
func NewPoller(cfg Config, b *bus.Shared, cell *state.BatteryCell, emergency *state.Emergency) (*Poller, error) {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = cfg.PollInterval / 2
	}
	if cfg.SlowMaxAge <= 0 {
		cfg.SlowMaxAge = DefaultSlowTicks * cfg.PollInterval
	}
	if cfg.ProbeAttempts <= 0 {
		cfg.ProbeAttempts = DefaultProbeAttempts
	}
	if cfg.ProbeWindow <= 0 {
		cfg.ProbeWindow = DefaultProbeWindow
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = bus.DefaultRetryPolicy
	}
	p := &Poller{
		cfg:       cfg,
		bus:       b,
		cell:      cell,
		emergency: emergency,
		decoder:   smbus.NewDecoder(nil),
		prober:    bus.NewProber(cfg.ProbeAttempts, cfg.ProbeWindow),
		samples:   make(map[byte]*bus.Sample),
		names:     make(map[byte]string),
	}
	for _, reg := range wordRegisters {
		maxAge := cfg.SlowMaxAge
		if fastRegisters[reg] {
			maxAge = cfg.MaxAge
		}
		p.samples[reg] = &bus.Sample{MaxAge: maxAge}
	}
	if cfg.ADC != nil {
		var err error
		if p.refCh, err = b.Channel("adc-reference", RankADCReference); err != nil {
			return nil, err
		}
		if p.senseCh, err = b.Channel("adc-sense", RankADCSense); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Decoder returns the block-read decoder, for its counters.
func (p *Poller) Decoder() *smbus.Decoder {
	return p.decoder
}

// Present tells whether the gauge answered the last tick.
func (p *Poller) Present() bool {
	return p.prober.Present()
}

// Run implements Runnable.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	p.Poll(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p.Poll(ctx, now)
		}
	}
}

// Poll runs one tick. An absent gauge is probed at most ProbeAttempts
// ticks in a row, then left alone until the probe window has elapsed.
func (p *Poller) Poll(ctx context.Context, now time.Time) error {
	if !p.prober.ShouldTry(now) {
		return nil
	}
	words := make(map[byte]uint16, len(wordRegisters))
	for _, reg := range wordRegisters {
		reg := reg
		v, err := p.samples[reg].Read(now, func() (uint16, error) {
			return p.readWord(ctx, p.cfg.Address, reg)
		})
		if err != nil {
			p.absent(now, reg, err)
			return err
		}
		words[reg] = v
	}
	for _, reg := range nameRegisters {
		if _, ok := p.names[reg]; ok {
			continue
		}
		name, err := p.readName(ctx, reg)
		if err != nil {
			glog.Warningf("battery: register 0x%02x: %v", reg, err)
			continue
		}
		p.names[reg] = name
	}
	var sense float64
	if p.cfg.ADC != nil {
		v, err := p.readSense(ctx)
		if err != nil {
			glog.Warningf("battery: charge sense: %v", err)
		}
		sense = v
	}

	p.cell.Update(func(b *state.Battery) {
		b.Voltage = smbus.Volts(words[smbus.RegVoltage])
		b.Current = smbus.Amps(words[smbus.RegCurrent])
		b.Temperature = smbus.Celsius(words[smbus.RegTemperature])
		b.Charge = int(words[smbus.RegRelativeCharge])
		b.Remaining = smbus.AmpHours(words[smbus.RegRemainingCapacity])
		b.FullCapacity = smbus.AmpHours(words[smbus.RegFullChargeCapacity])
		b.Cycles = int(words[smbus.RegCycleCount])
		b.Manufacturer = p.names[smbus.RegManufacturerName]
		b.Device = p.names[smbus.RegDeviceName]
		b.Chemistry = p.names[smbus.RegDeviceChemistry]
		b.SenseVoltage = sense
	})
	if !p.prober.Present() {
		glog.Infof("battery: gauge at 0x%02x present", p.cfg.Address)
	}
	p.prober.Success()
	p.emergency.Clear(state.FlagBatteryAbsent)
	return nil
}

func (p *Poller) absent(now time.Time, reg byte, err error) {
	if p.prober.Present() {
		glog.Warningf("battery: gauge at 0x%02x absent, register 0x%02x: %v", p.cfg.Address, reg, err)
	}
	p.prober.Failure(now)
	for _, s := range p.samples {
		s.Invalidate()
	}
	p.cell.SetAbsent()
	p.emergency.Set(state.FlagBatteryAbsent)
}

func (p *Poller) readWord(ctx context.Context, addr, reg byte) (v uint16, err error) {
	err = p.cfg.Retry.Do(ctx, func() error {
		return p.bus.Do(func(b bus.Bus) (err error) {
			v, err = b.ReadWord(addr, reg)
			return
		})
	})
	return
}

// readName retries the whole block transaction when the response length
// is inconsistent.
func (p *Poller) readName(ctx context.Context, reg byte) (name string, err error) {
	var buf [smbus.MaxBlockLen + 2]byte
	err = p.cfg.Retry.Do(ctx, func() error {
		return p.bus.Do(func(b bus.Bus) error {
			n, err := b.ReadBlock(p.cfg.Address, reg, buf[:])
			if err != nil {
				return err
			}
			data, err := p.decoder.Transaction(reg, buf[:n])
			if err != nil {
				return err
			}
			name = string(data)
			return nil
		})
	})
	return
}

// readSense reads the reference and sense channels as one paired
// operation holding both channels.
func (p *Poller) readSense(ctx context.Context) (volts float64, err error) {
	adc := p.cfg.ADC
	err = p.cfg.Retry.Do(ctx, func() error {
		return p.bus.Do(func(b bus.Bus) error {
			ref, err := b.ReadWord(adc.Address, adc.RefRegister)
			if err != nil {
				return err
			}
			sense, err := b.ReadWord(adc.Address, adc.SenseRegister)
			if err != nil {
				return err
			}
			if ref == 0 {
				return ErrNoReference
			}
			divider := adc.Divider
			if divider <= 0 {
				divider = 1
			}
			volts = float64(sense) / float64(ref) * adc.RefVolts * divider
			return nil
		}, p.refCh, p.senseCh)
	})
	return
}
