package battery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/mowlink/pkg/bus"
	"github.com/robotalks/mowlink/pkg/bus/bustest"
	"github.com/robotalks/mowlink/pkg/frame/smbus"
	"github.com/robotalks/mowlink/pkg/state"
)

const addr = DefaultAddress

func block(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func gauge(f *bustest.Fake) {
	f.SetWord(addr, smbus.RegVoltage, 25200)
	f.SetWord(addr, smbus.RegCurrent, 0xFA24)
	f.SetWord(addr, smbus.RegTemperature, 2982)
	f.SetWord(addr, smbus.RegRelativeCharge, 87)
	f.SetWord(addr, smbus.RegRemainingCapacity, 3800)
	f.SetWord(addr, smbus.RegFullChargeCapacity, 4400)
	f.SetWord(addr, smbus.RegCycleCount, 12)
	f.QueueBlock(addr, smbus.RegManufacturerName, block("ACME"))
	f.QueueBlock(addr, smbus.RegDeviceName, block("MOW-7S"))
	f.QueueBlock(addr, smbus.RegDeviceChemistry, block("LION"))
}

type fixture struct {
	fake      *bustest.Fake
	cell      *state.BatteryCell
	emergency *state.Emergency
	poller    *Poller
}

func newFixture(t *testing.T, cfg Config) *fixture {
	f := &fixture{
		fake:      bustest.New(),
		cell:      state.NewBatteryCell("battery", 0),
		emergency: &state.Emergency{},
	}
	p, err := NewPoller(cfg, bus.NewShared(f.fake), f.cell, f.emergency)
	require.NoError(t, err)
	f.poller = p
	return f
}

func TestPollPresent(t *testing.T) {
	f := newFixture(t, Config{})
	gauge(f.fake)
	require.NoError(t, f.poller.Poll(context.Background(), time.Unix(100, 0)))

	b, m := f.cell.Get()
	assert.True(t, m.Present)
	assert.InDelta(t, 25.2, b.Voltage, 1e-9)
	assert.InDelta(t, -1.5, b.Current, 1e-9)
	assert.InDelta(t, 25.05, b.Temperature, 1e-9)
	assert.Equal(t, 87, b.Charge)
	assert.InDelta(t, 3.8, b.Remaining, 1e-9)
	assert.InDelta(t, 4.4, b.FullCapacity, 1e-9)
	assert.Equal(t, 12, b.Cycles)
	assert.Equal(t, "ACME", b.Manufacturer)
	assert.Equal(t, "MOW-7S", b.Device)
	assert.Equal(t, "LION", b.Chemistry)
	assert.False(t, f.emergency.Has(state.FlagBatteryAbsent))
}

func TestPollCachesSamples(t *testing.T) {
	f := newFixture(t, Config{MaxAge: time.Second})
	gauge(f.fake)
	now := time.Unix(100, 0)
	ctx := context.Background()
	require.NoError(t, f.poller.Poll(ctx, now))
	require.NoError(t, f.poller.Poll(ctx, now.Add(500*time.Millisecond)))
	assert.Equal(t, 1, f.fake.Calls(addr, smbus.RegVoltage))
	assert.Equal(t, 1, f.fake.Calls(addr, smbus.RegDeviceName))
	require.NoError(t, f.poller.Poll(ctx, now.Add(1500*time.Millisecond)))
	assert.Equal(t, 2, f.fake.Calls(addr, smbus.RegVoltage))
	assert.Equal(t, 1, f.fake.Calls(addr, smbus.RegDeviceName))
	assert.EqualValues(t, 3, f.cell.Meta().Seq)
}

func TestPollDefaultCaching(t *testing.T) {
	f := newFixture(t, Config{})
	gauge(f.fake)
	now := time.Unix(100, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.poller.Poll(ctx, now.Add(time.Duration(i)*DefaultPollInterval)))
	}
	assert.Equal(t, 3, f.fake.Calls(addr, smbus.RegVoltage))
	assert.Equal(t, 3, f.fake.Calls(addr, smbus.RegCurrent))
	assert.Equal(t, 1, f.fake.Calls(addr, smbus.RegCycleCount))
	assert.Equal(t, 1, f.fake.Calls(addr, smbus.RegFullChargeCapacity))

	f.fake.SetWord(addr, smbus.RegCycleCount, 13)
	require.NoError(t, f.poller.Poll(ctx, now.Add(11*DefaultPollInterval)))
	assert.Equal(t, 2, f.fake.Calls(addr, smbus.RegCycleCount))
	b, _ := f.cell.Get()
	assert.Equal(t, 13, b.Cycles)
}

func TestPollRetriesOversizeBlock(t *testing.T) {
	f := newFixture(t, Config{})
	for _, reg := range wordRegisters {
		f.fake.SetWord(addr, reg, 1)
	}
	oversize := append([]byte{40}, make([]byte, smbus.MaxBlockLen+1)...)
	f.fake.QueueBlock(addr, smbus.RegManufacturerName, block("ACME"))
	f.fake.QueueBlock(addr, smbus.RegDeviceName, oversize, block("MOW-7S"))
	f.fake.QueueBlock(addr, smbus.RegDeviceChemistry, block("LION"))
	require.NoError(t, f.poller.Poll(context.Background(), time.Unix(100, 0)))

	b, _ := f.cell.Get()
	assert.Equal(t, "MOW-7S", b.Device)
	assert.Equal(t, 2, f.fake.Calls(addr, smbus.RegDeviceName))
	s := f.poller.Decoder().Stats().Snapshot()
	assert.EqualValues(t, 1, s.FramingErrors)
	assert.EqualValues(t, 3, s.Frames)
}

func TestPollTransientFailure(t *testing.T) {
	f := newFixture(t, Config{})
	gauge(f.fake)
	f.fake.Fail(addr, smbus.RegVoltage, 2)
	require.NoError(t, f.poller.Poll(context.Background(), time.Unix(100, 0)))
	assert.Equal(t, 3, f.fake.Calls(addr, smbus.RegVoltage))
	assert.True(t, f.cell.Meta().Present)
}

func TestPollAbsentAndProbing(t *testing.T) {
	f := newFixture(t, Config{ProbeAttempts: 2, ProbeWindow: time.Minute})
	ctx := context.Background()
	now := time.Unix(100, 0)

	err := f.poller.Poll(ctx, now)
	var exhausted *bus.ExhaustedError
	require.True(t, errors.As(err, &exhausted), "%v", err)
	assert.Equal(t, bus.DefaultAttempts, f.fake.Calls(addr, smbus.RegVoltage))
	assert.False(t, f.cell.Meta().Present)
	assert.True(t, f.emergency.Has(state.FlagBatteryAbsent))
	assert.False(t, f.poller.Present())

	assert.Error(t, f.poller.Poll(ctx, now.Add(time.Second)))
	assert.Equal(t, 6, f.fake.Calls(addr, smbus.RegVoltage))
	assert.NoError(t, f.poller.Poll(ctx, now.Add(2*time.Second)))
	assert.NoError(t, f.poller.Poll(ctx, now.Add(30*time.Second)))
	assert.Equal(t, 6, f.fake.Calls(addr, smbus.RegVoltage))

	gauge(f.fake)
	require.NoError(t, f.poller.Poll(ctx, now.Add(time.Minute)))
	assert.True(t, f.poller.Present())
	assert.True(t, f.cell.Meta().Present)
	assert.False(t, f.emergency.Has(state.FlagBatteryAbsent))
}

func TestPollChargeSense(t *testing.T) {
	adc := &ADCConfig{Address: 0x48, RefRegister: 0x10, SenseRegister: 0x11, RefVolts: 3.3, Divider: 10}
	f := newFixture(t, Config{ADC: adc})
	gauge(f.fake)
	f.fake.SetWord(0x48, 0x10, 1000)
	f.fake.SetWord(0x48, 0x11, 500)
	require.NoError(t, f.poller.Poll(context.Background(), time.Unix(100, 0)))
	b, _ := f.cell.Get()
	assert.InDelta(t, 16.5, b.SenseVoltage, 1e-9)
}

func TestPollerChannelsRegistered(t *testing.T) {
	shared := bus.NewShared(bustest.New())
	_, err := NewPoller(Config{ADC: &ADCConfig{}}, shared, state.NewBatteryCell("battery", 0), &state.Emergency{})
	require.NoError(t, err)
	_, err = shared.Channel("charger", RankADCReference)
	assert.Error(t, err)
}
