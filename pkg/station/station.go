// Package station builds every configured link once at start-up and
// binds decoded frames to the state cells they update.
//
// There are no package-level instances: the Station owns the links,
// cells, emergency word and battery poller, and hands references to
// whoever needs them.
package station

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/battery"
	"github.com/robotalks/mowlink/pkg/bus"
	"github.com/robotalks/mowlink/pkg/config"
	"github.com/robotalks/mowlink/pkg/frame"
	fx "github.com/robotalks/mowlink/pkg/framework"
	"github.com/robotalks/mowlink/pkg/link"
	"github.com/robotalks/mowlink/pkg/port"
	"github.com/robotalks/mowlink/pkg/state"
)

// BatteryName is the name of the battery cell.
const BatteryName = "battery"

// Default staleness of link state.
const DefaultMaxAge = 500 * time.Millisecond

// Options replaces the hardware access of a Station, for tests and
// simulators.
type Options struct {
	// OpenPort returns the opener of a link port. Defaults to port.Opener.
	OpenPort func(l config.Link) (link.Opener, error)
	// OpenBus opens the battery bus. Defaults to bus.OpenI2C.
	OpenBus func(index int) (bus.Bus, error)
}

// Station owns all links of one mower.
type Station struct {
	Sink *state.Sink

	links   []*Link
	byName  map[string]*Link
	poller  *battery.Poller
	battery *bus.Shared

	faultLock sync.Mutex
	faults    map[string]bool
}

// Link is a configured link with its binding.
type Link struct {
	*link.Link
	Config config.Link
	// Motor is the request/reply client of motor-controller links.
	Motor *MotorClient

	gps   *state.GPSCell
	motor *state.MotorCell
}

// New builds a Station from the link file.
func New(f *config.File, opts Options) (*Station, error) {
	if opts.OpenPort == nil {
		opts.OpenPort = func(l config.Link) (link.Opener, error) {
			open, err := port.Opener(l.Port, l.Baud)
			return link.Opener(open), err
		}
	}
	if opts.OpenBus == nil {
		opts.OpenBus = bus.OpenI2C
	}
	s := &Station{
		Sink:   state.NewSink(),
		byName: make(map[string]*Link),
		faults: make(map[string]bool),
	}
	for _, lc := range f.Links {
		l, err := s.addLink(lc, opts)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("link %s: %w", lc.Name, err)
		}
		s.links = append(s.links, l)
		s.byName[lc.Name] = l
	}
	if f.Battery != nil {
		if err := s.addBattery(f.Battery, opts); err != nil {
			s.Close()
			return nil, fmt.Errorf("battery: %w", err)
		}
	}
	return s, nil
}

func (s *Station) addLink(lc config.Link, opts Options) (*Link, error) {
	protocol, err := frame.ParseProtocol(lc.Protocol)
	if err != nil {
		return nil, err
	}
	open, err := opts.OpenPort(lc)
	if err != nil {
		return nil, err
	}
	maxAge := lc.MaxAge.Duration
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	l := &Link{Config: lc}
	var dec frame.Decoder
	switch protocol {
	case frame.ProtocolVESC:
		l.motor = state.NewMotorCell(lc.Name, maxAge)
		err = s.Sink.AddMotor(l.motor)
		dec = s.bindVESC(l)
	case frame.ProtocolXESC:
		l.motor = state.NewMotorCell(lc.Name, maxAge)
		err = s.Sink.AddMotor(l.motor)
		dec = s.bindXESC(l)
	case frame.ProtocolUBX:
		l.gps = state.NewGPSCell(lc.Name, maxAge)
		err = s.Sink.AddGPS(l.gps)
		dec = s.bindUBX(l)
	case frame.ProtocolNMEA:
		l.gps = state.NewGPSCell(lc.Name, maxAge)
		err = s.Sink.AddGPS(l.gps)
		dec = s.bindNMEA(l)
	default:
		return nil, fmt.Errorf("protocol %s is not a streaming protocol", protocol)
	}
	if err != nil {
		return nil, err
	}
	l.Link = link.New(lc.Name, protocol, open, dec, link.Options{
		BufferSize:   lc.BufferSize,
		FlushTimeout: lc.FlushTimeout.Duration,
		Baud:         lc.Baud,
	})
	switch {
	case l.Motor != nil:
		l.Motor.attach(l.Link)
		l.AddHousekeeper(l.Motor)
	case l.gps != nil:
		l.AddHousekeeper(link.HousekeepFunc(s.gpsHousekeeping))
	}
	return l, nil
}

func (s *Station) addBattery(bc *config.Battery, opts Options) error {
	b, err := opts.OpenBus(bc.Bus)
	if err != nil {
		return err
	}
	s.battery = bus.NewShared(b)
	interval := bc.PollInterval.Duration
	if interval <= 0 {
		interval = battery.DefaultPollInterval
	}
	cell := state.NewBatteryCell(BatteryName, 3*interval)
	if err := s.Sink.AddBattery(cell); err != nil {
		return err
	}
	cfg := battery.Config{
		Address:       byte(bc.Address),
		PollInterval:  bc.PollInterval.Duration,
		MaxAge:        bc.MaxAge.Duration,
		SlowMaxAge:    bc.SlowMaxAge.Duration,
		ProbeAttempts: bc.ProbeAttempts,
		ProbeWindow:   bc.ProbeWindow.Duration,
	}
	if adc := bc.ADC; adc != nil {
		cfg.ADC = &battery.ADCConfig{
			Address:       byte(adc.Address),
			RefRegister:   byte(adc.ReferenceRegister),
			SenseRegister: byte(adc.SenseRegister),
			RefVolts:      adc.ReferenceVolts,
			Divider:       adc.Divider,
		}
	}
	s.poller, err = battery.NewPoller(cfg, s.battery, cell, s.Sink.Emergency)
	return err
}

// gpsHousekeeping raises the gps-stale flag while no GPS link has a
// valid solution.
func (s *Station) gpsHousekeeping(ctx context.Context, now time.Time) {
	stale := true
	for _, l := range s.links {
		if l.gps != nil && l.gps.Meta().Valid() {
			stale = false
			break
		}
	}
	if prev := s.Sink.Emergency.Assign(state.FlagGPSStale, stale); (prev&state.FlagGPSStale != 0) != stale {
		glog.Infof("gps stale: %v", stale)
	}
}

// setFault records the fault state of one motor link and updates the
// motor-fault flag from all of them.
func (s *Station) setFault(name string, fault bool) {
	s.faultLock.Lock()
	defer s.faultLock.Unlock()
	if s.faults[name] == fault {
		return
	}
	s.faults[name] = fault
	faulted := false
	for _, f := range s.faults {
		faulted = faulted || f
	}
	s.Sink.Emergency.Assign(state.FlagMotorFault, faulted)
}

// Links returns the links sorted by name.
func (s *Station) Links() []*Link {
	links := make([]*Link, len(s.links))
	copy(links, s.links)
	sort.Slice(links, func(i, j int) bool { return links[i].Name() < links[j].Name() })
	return links
}

// Link finds a link by name.
func (s *Station) Link(name string) *Link {
	return s.byName[name]
}

// GPSLink returns the first GPS link, or nil.
func (s *Station) GPSLink() *Link {
	for _, l := range s.links {
		if l.gps != nil {
			return l
		}
	}
	return nil
}

// Battery returns the battery poller, or nil.
func (s *Station) Battery() *battery.Poller {
	return s.poller
}

// Runnables returns everything to be run.
func (s *Station) Runnables() []fx.Runnable {
	var runners []fx.Runnable
	for _, l := range s.links {
		runners = append(runners, l.Link)
	}
	if s.poller != nil {
		runners = append(runners, fx.NamedRun(BatteryName, s.poller))
	}
	return runners
}

// Close releases the battery bus.
func (s *Station) Close() error {
	if s.battery != nil {
		return s.battery.Close()
	}
	return nil
}
