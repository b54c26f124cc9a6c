// Package bustest provides an in-memory bus.Bus for tests.
package bustest

import (
	"sync"

	"github.com/robotalks/mowlink/pkg/bus"
)

type key struct {
	addr, reg byte
}

// Fake is a scripted bus. Registers not set answer ErrNoDevice.
type Fake struct {
	lock   sync.Mutex
	words  map[key]uint16
	blocks map[key][][]byte
	fails  map[key]int
	calls  map[key]int
	closed bool
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		words:  make(map[key]uint16),
		blocks: make(map[key][][]byte),
		fails:  make(map[key]int),
		calls:  make(map[key]int),
	}
}

// SetWord sets the value of a word register.
func (f *Fake) SetWord(addr, reg byte, val uint16) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.words[key{addr, reg}] = val
}

// Word returns the value of a word register.
func (f *Fake) Word(addr, reg byte) uint16 {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.words[key{addr, reg}]
}

// QueueBlock appends raw block responses. The last one is repeated.
func (f *Fake) QueueBlock(addr, reg byte, resp ...[]byte) {
	f.lock.Lock()
	defer f.lock.Unlock()
	k := key{addr, reg}
	f.blocks[k] = append(f.blocks[k], resp...)
}

// Fail makes the next n transactions on the register fail.
func (f *Fake) Fail(addr, reg byte, n int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.fails[key{addr, reg}] = n
}

// Remove drops every register of addr, simulating an unplugged device.
func (f *Fake) Remove(addr byte) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for k := range f.words {
		if k.addr == addr {
			delete(f.words, k)
		}
	}
	for k := range f.blocks {
		if k.addr == addr {
			delete(f.blocks, k)
		}
	}
}

// Calls returns the number of transactions on the register.
func (f *Fake) Calls(addr, reg byte) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[key{addr, reg}]
}

// Closed tells whether Close was called.
func (f *Fake) Closed() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.closed
}

func (f *Fake) begin(k key) error {
	f.calls[k]++
	if f.fails[k] > 0 {
		f.fails[k]--
		return bus.ErrNoDevice
	}
	return nil
}

// ReadWord implements bus.Bus.
func (f *Fake) ReadWord(addr, reg byte) (uint16, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	k := key{addr, reg}
	if err := f.begin(k); err != nil {
		return 0, err
	}
	v, ok := f.words[k]
	if !ok {
		return 0, bus.ErrNoDevice
	}
	return v, nil
}

// WriteWord implements bus.Bus.
func (f *Fake) WriteWord(addr, reg byte, val uint16) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	k := key{addr, reg}
	if err := f.begin(k); err != nil {
		return err
	}
	f.words[k] = val
	return nil
}

// ReadBlock implements bus.Bus.
func (f *Fake) ReadBlock(addr, reg byte, buf []byte) (int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	k := key{addr, reg}
	if err := f.begin(k); err != nil {
		return 0, err
	}
	queue := f.blocks[k]
	if len(queue) == 0 {
		return 0, bus.ErrNoDevice
	}
	resp := queue[0]
	if len(queue) > 1 {
		f.blocks[k] = queue[1:]
	}
	return copy(buf, resp), nil
}

// Close implements bus.Bus.
func (f *Fake) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	return nil
}
