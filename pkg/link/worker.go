package link

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/frame"
)

// Housekeeper runs periodic work on the wake cycle of a worker,
// independent of decoding, e.g. issuing status requests.
type Housekeeper interface {
	Housekeep(ctx context.Context, now time.Time)
}

// HousekeepFunc is func type of Housekeeper.
type HousekeepFunc func(context.Context, time.Time)

// Housekeep implements Housekeeper.
func (f HousekeepFunc) Housekeep(ctx context.Context, now time.Time) {
	f(ctx, now)
}

// WorkerStats counts wake-ups of a worker.
type WorkerStats struct {
	Events   atomic.Uint64
	Timeouts atomic.Uint64
	Idle     atomic.Uint64
	Resets   atomic.Uint64
}

// Worker is the single consumer of one Transport. It owns the decoder:
// frames are decoded synchronously and handled in arrival order.
type Worker struct {
	Transport    *Transport
	Decoder      frame.Decoder
	FlushTimeout time.Duration
	// ByteTime is the wire time of one byte, used to extend the wait by
	// the number of bytes the decoder still needs.
	ByteTime     time.Duration
	Housekeepers []Housekeeper

	stats WorkerStats
	reset atomic.Bool
}

// Stats returns the counters.
func (w *Worker) Stats() *WorkerStats {
	return &w.stats
}

// RequestReset makes the worker reset the decoder before it decodes
// any byte received after this call.
func (w *Worker) RequestReset() {
	w.reset.Store(true)
}

// Run implements Runnable.
func (w *Worker) Run(ctx context.Context) error {
	timer := time.NewTimer(w.FlushTimeout)
	defer timer.Stop()
	need := 1
	for {
		var h *HandOff
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.Transport.Notify():
			w.stats.Events.Add(1)
			h = w.Transport.TakeReady()
		case <-timer.C:
			w.stats.Timeouts.Add(1)
			h = w.Transport.FlushPartial()
		}
		if w.reset.Swap(false) {
			w.Decoder.Reset()
			w.stats.Resets.Add(1)
			need = 1
		}
		if h != nil {
			need = w.decode(h)
		} else {
			w.stats.Idle.Add(1)
		}
		now := time.Now()
		for _, hk := range w.Housekeepers {
			hk.Housekeep(ctx, now)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.wait(need))
	}
}

func (w *Worker) decode(h *HandOff) int {
	defer h.Release()
	data := h.Bytes()
	if glog.V(4) {
		glog.Infof("link %s: decoding %d bytes (partial=%v)", w.Transport.name, len(data), h.Partial())
	}
	return w.Decoder.Feed(data)
}

func (w *Worker) wait(need int) time.Duration {
	if need > 1 && w.ByteTime > 0 {
		return w.FlushTimeout + time.Duration(need)*w.ByteTime
	}
	return w.FlushTimeout
}

// ByteTime returns the wire time of one byte at baud with 10 bits per
// byte. A zero baud returns zero.
func ByteTime(baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	return time.Duration(int64(time.Second) * 10 / int64(baud))
}
