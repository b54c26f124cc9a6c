package link

import (
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/mowlink/pkg/frame"
)

// ReceiveBuffer is a fixed-capacity byte array with a fill length.
type ReceiveBuffer struct {
	data []byte
	fill int
}

// HandOff transfers the valid content of one receive buffer to the worker.
// The worker must call Release when done; until then the receiver never
// writes that buffer.
type HandOff struct {
	t        *Transport
	buf      *ReceiveBuffer
	n        int
	partial  bool
	released bool
}

// Bytes returns the valid content.
func (h *HandOff) Bytes() []byte {
	return h.buf.data[:h.n]
}

// Partial tells the buffer was flushed before it was full.
func (h *HandOff) Partial() bool {
	return h.partial
}

// Release marks the content consumed. Calling it again has no effect.
func (h *HandOff) Release() {
	h.t.release(h)
}

// TransportStats counts transport activity.
type TransportStats struct {
	BytesIn  atomic.Uint64
	HandOffs atomic.Uint64
	Flushes  atomic.Uint64
	Rearms   atomic.Uint64
	Overruns atomic.Uint64
	// Dropped counts bytes lost to buffer reuse.
	Dropped atomic.Uint64
}

// Transport is the double buffer between the receiver and the worker.
type Transport struct {
	name  string
	stats TransportStats

	lock        sync.Mutex
	bufs        [2]ReceiveBuffer
	active      int
	ready       *HandOff
	outstanding bool
	lastFill    int
	fullEvent   bool

	notify chan struct{}
}

// NewTransport creates a Transport with two buffers of size bytes.
func NewTransport(name string, size int) *Transport {
	t := &Transport{name: name, notify: make(chan struct{}, 1)}
	for i := range t.bufs {
		t.bufs[i].data = make([]byte, size)
	}
	return t
}

// Stats returns the counters.
func (t *Transport) Stats() *TransportStats {
	return &t.stats
}

// Notify is signaled when a HandOff becomes ready. It never blocks the
// receiver: pending signals coalesce.
func (t *Transport) Notify() <-chan struct{} {
	return t.notify
}

// Receive copies freshly received bytes into the active buffer, handing
// it off each time it fills up.
func (t *Transport) Receive(p []byte) {
	t.stats.BytesIn.Add(uint64(len(p)))
	t.lock.Lock()
	defer t.lock.Unlock()
	for len(p) > 0 {
		buf := &t.bufs[t.active]
		n := copy(buf.data[buf.fill:], p)
		buf.fill += n
		p = p[n:]
		if buf.fill == len(buf.data) {
			t.full()
		}
	}
}

// full runs with the lock held when the active buffer is full.
func (t *Transport) full() {
	t.fullEvent = true
	buf := &t.bufs[t.active]
	if t.outstanding {
		t.stats.Dropped.Add(uint64(buf.fill))
		buf.fill = 0
		if n := t.stats.Overruns.Add(1); frame.ShouldLog(n) {
			glog.Warningf("link %s: overrun, worker still holds previous buffer (%d so far)", t.name, n)
		}
		return
	}
	t.handOff(false)
}

// handOff runs with the lock held.
func (t *Transport) handOff(partial bool) *HandOff {
	buf := &t.bufs[t.active]
	h := &HandOff{t: t, buf: buf, n: buf.fill, partial: partial}
	t.outstanding = true
	t.active ^= 1
	t.bufs[t.active].fill = 0
	t.lastFill = 0
	t.stats.HandOffs.Add(1)
	if !partial {
		t.ready = h
		select {
		case t.notify <- struct{}{}:
		default:
		}
	}
	return h
}

// TakeReady returns the HandOff of a full buffer, or nil.
func (t *Transport) TakeReady() *HandOff {
	t.lock.Lock()
	defer t.lock.Unlock()
	h := t.ready
	t.ready = nil
	return h
}

// FlushPartial is called by the worker after a silence timeout. If the
// receiver has neither filled a buffer nor written anything since the
// previous check, the partially filled buffer is handed off directly.
// Otherwise the check is re-armed and nil returned.
func (t *Transport) FlushPartial() *HandOff {
	t.lock.Lock()
	defer t.lock.Unlock()
	if h := t.ready; h != nil {
		t.ready = nil
		return h
	}
	if t.outstanding {
		return nil
	}
	fill := t.bufs[t.active].fill
	if fill == 0 {
		t.lastFill, t.fullEvent = 0, false
		return nil
	}
	if t.fullEvent || fill != t.lastFill {
		t.lastFill, t.fullEvent = fill, false
		t.stats.Rearms.Add(1)
		return nil
	}
	t.stats.Flushes.Add(1)
	return t.handOff(true)
}

func (t *Transport) release(h *HandOff) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if h.released {
		return
	}
	h.released = true
	h.buf.fill = 0
	t.outstanding = false
}
