package telemetry

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/state"
)

// DefaultInterval is the default snapshot period.
const DefaultInterval = time.Second

// StateTopic returns the topic of a record.
func StateTopic(id string, kind state.Kind, name string) string {
	if kind == KindEmergency {
		return id + "/state/" + string(kind)
	}
	return id + "/state/" + string(kind) + "/" + name
}

// CorrectionsTopic returns the topic carrying GNSS correction bytes.
func CorrectionsTopic(id string) string {
	return id + "/rtcm"
}

// Publisher publishes a record per state cell every Interval.
type Publisher struct {
	Broker   Broker
	ID       string
	Sink     *state.Sink
	Interval time.Duration
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.PublishOnce(); err != nil {
				glog.Warningf("telemetry: %v", err)
			}
		}
	}
}

// PublishOnce publishes the current snapshot. It continues after a
// failed publish and returns the first error.
func (p *Publisher) PublishOnce() error {
	var first error
	publish := func(r Record) {
		err := p.Broker.Publish(StateTopic(p.ID, r.Kind, r.Name), r.Encode())
		if err != nil && first == nil {
			first = err
		}
	}
	for _, c := range p.Sink.Cells() {
		publish(RecordOf(c))
	}
	publish(Record{Kind: KindEmergency, Emergency: p.Sink.Emergency.Load()})
	return first
}

// Sender writes bytes to a link.
type Sender interface {
	Send([]byte) error
}

// Corrections forwards correction bytes received on the corrections
// topic to the GNSS receiver link.
type Corrections struct {
	Broker Broker
	ID     string
	Target Sender
}

// Run implements Runnable.
func (c *Corrections) Run(ctx context.Context) error {
	sub := c.Broker.Subscribe(CorrectionsTopic(c.ID), c.forward)
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (c *Corrections) forward(topic string, payload []byte) {
	if err := c.Target.Send(payload); err != nil {
		glog.V(2).Infof("telemetry: drop %d correction bytes: %v", len(payload), err)
	}
}
