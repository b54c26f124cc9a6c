package link

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/frame"
)

// Defaults of Options.
const (
	DefaultBufferSize   = 256
	DefaultFlushTimeout = 20 * time.Millisecond
	DefaultRetryDelay   = time.Second
)

// ErrNotConnected indicates the port is not open.
var ErrNotConnected = errors.New("link: not connected")

// Opener opens the byte stream of a link.
type Opener func(ctx context.Context) (io.ReadWriteCloser, error)

// Options configures a Link.
type Options struct {
	BufferSize   int
	FlushTimeout time.Duration
	Baud         int
	// RetryDelay is the wait before re-opening a failed port.
	RetryDelay   time.Duration
	Housekeepers []Housekeeper
}

// Stats is a plain copy of all link counters.
type Stats struct {
	Connected bool
	BytesIn   uint64
	HandOffs  uint64
	Flushes   uint64
	Rearms    uint64
	Overruns  uint64
	Dropped   uint64
	Events    uint64
	Timeouts  uint64
	Resets    uint64
	Decoder   frame.Snapshot
}

// Link is one physical peripheral link: a port, a receiver goroutine, a
// Transport and the Worker owning the decoder. It is created once at
// start-up and runs until its context is cancelled.
type Link struct {
	name     string
	protocol frame.Protocol
	open     Opener
	opts     Options

	transport *Transport
	worker    *Worker

	portLock sync.Mutex
	port     io.ReadWriteCloser
	sendLock sync.Mutex
}

// New creates a Link.
func New(name string, protocol frame.Protocol, open Opener, dec frame.Decoder, opts Options) *Link {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	l := &Link{name: name, protocol: protocol, open: open, opts: opts}
	l.transport = NewTransport(name, opts.BufferSize)
	l.worker = &Worker{
		Transport:    l.transport,
		Decoder:      dec,
		FlushTimeout: opts.FlushTimeout,
		ByteTime:     ByteTime(opts.Baud),
		Housekeepers: opts.Housekeepers,
	}
	return l
}

// Name implements Named.
func (l *Link) Name() string {
	return l.name
}

// Protocol returns the decoder protocol.
func (l *Link) Protocol() frame.Protocol {
	return l.protocol
}

// AddHousekeeper adds periodic work. Must be called before Run.
func (l *Link) AddHousekeeper(hk Housekeeper) {
	l.worker.Housekeepers = append(l.worker.Housekeepers, hk)
}

// Decoder returns the decoder owned by the worker.
func (l *Link) Decoder() frame.Decoder {
	return l.worker.Decoder
}

// Connected tells whether the port is open.
func (l *Link) Connected() bool {
	l.portLock.Lock()
	defer l.portLock.Unlock()
	return l.port != nil
}

// Stats snapshots all counters.
func (l *Link) Stats() Stats {
	ts, ws := l.transport.Stats(), l.worker.Stats()
	return Stats{
		Connected: l.Connected(),
		BytesIn:   ts.BytesIn.Load(),
		HandOffs:  ts.HandOffs.Load(),
		Flushes:   ts.Flushes.Load(),
		Rearms:    ts.Rearms.Load(),
		Overruns:  ts.Overruns.Load(),
		Dropped:   ts.Dropped.Load(),
		Events:    ws.Events.Load(),
		Timeouts:  ws.Timeouts.Load(),
		Resets:    ws.Resets.Load(),
		Decoder:   l.worker.Decoder.Stats().Snapshot(),
	}
}

// Send writes p to the port. Concurrent senders are serialized.
func (l *Link) Send(p []byte) error {
	l.portLock.Lock()
	port := l.port
	l.portLock.Unlock()
	if port == nil {
		return ErrNotConnected
	}
	l.sendLock.Lock()
	defer l.sendLock.Unlock()
	_, err := port.Write(p)
	return err
}

// Run implements Runnable.
func (l *Link) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.receive(ctx)
	}()
	err := l.worker.Run(ctx)
	cancel()
	l.setPort(nil)
	<-done
	return err
}

func (l *Link) setPort(port io.ReadWriteCloser) {
	l.portLock.Lock()
	defer l.portLock.Unlock()
	if l.port != nil && l.port != port {
		l.port.Close()
	}
	l.port = port
}

// receive is the receiver side: it pumps port bytes into the transport
// and re-opens the port after failures.
func (l *Link) receive(ctx context.Context) {
	buf := make([]byte, l.opts.BufferSize)
	for connects := 0; ; {
		port, err := l.open(ctx)
		if err == nil {
			glog.Infof("link %s: connected", l.name)
			if connects++; connects > 1 {
				// A frame cut by the old connection must not absorb new bytes.
				l.worker.RequestReset()
			}
			l.setPort(port)
			if ctx.Err() != nil {
				l.setPort(nil)
				return
			}
			err = l.pump(port, buf)
			l.setPort(nil)
		}
		if ctx.Err() != nil {
			return
		}
		glog.Warningf("link %s: %v, retry in %v", l.name, err, l.opts.RetryDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.opts.RetryDelay):
		}
	}
}

func (l *Link) pump(port io.Reader, buf []byte) error {
	for {
		n, err := port.Read(buf)
		if n > 0 {
			l.transport.Receive(buf[:n])
		}
		if err != nil {
			return err
		}
	}
}
