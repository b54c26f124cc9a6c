// Package state holds the last-known decoded values of every link.
//
// Each cell has exactly one writer (the worker of the owning link) and
// any number of readers. A writer updates a cell in a single transaction:
// it copies the current value, applies all fields of one decoded message
// and commits the copy with one atomic store. Readers never observe a
// half-applied message; they may miss intermediate updates.
package state

import (
	"sync/atomic"
	"time"
)

// Kind names what a cell holds.
type Kind string

// Kinds
const (
	KindGPS     Kind = "gps"
	KindMotor   Kind = "motor"
	KindBattery Kind = "battery"
)

// Meta describes the freshness of a cell value at read time.
type Meta struct {
	// Seq counts commits, 0 means never written.
	Seq     uint64
	Stamp   time.Time
	Present bool
	Stale   bool
	Age     time.Duration
}

// Valid tells the value is present and not stale.
func (m Meta) Valid() bool {
	return m.Present && !m.Stale
}

type record struct {
	value   interface{}
	stamp   time.Time
	present bool
	seq     uint64
}

// Cell is the untyped latched value shared by the typed cells.
type Cell struct {
	name   string
	kind   Kind
	maxAge time.Duration
	now    func() time.Time
	rec    atomic.Value
}

func newCell(name string, kind Kind, maxAge time.Duration, zero interface{}) *Cell {
	c := &Cell{name: name, kind: kind, maxAge: maxAge, now: time.Now}
	c.rec.Store(&record{value: zero})
	return c
}

// Name returns the link name owning the cell.
func (c *Cell) Name() string {
	return c.name
}

// Kind returns the kind of value.
func (c *Cell) Kind() Kind {
	return c.kind
}

// MaxAge returns the age after which the value is stale. Zero never expires.
func (c *Cell) MaxAge() time.Duration {
	return c.maxAge
}

// SetClock replaces the time source, for tests.
func (c *Cell) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Cell) load() *record {
	return c.rec.Load().(*record)
}

// Value returns the raw value and its freshness.
func (c *Cell) Value() (interface{}, Meta) {
	r := c.load()
	return r.value, c.meta(r)
}

// Meta returns the freshness of the current value.
func (c *Cell) Meta() Meta {
	return c.meta(c.load())
}

func (c *Cell) meta(r *record) Meta {
	m := Meta{Seq: r.seq, Stamp: r.stamp, Present: r.present}
	if r.seq == 0 {
		m.Stale = true
		return m
	}
	m.Age = c.now().Sub(r.stamp)
	if c.maxAge > 0 && m.Age > c.maxAge {
		m.Stale = true
	}
	return m
}

// commit publishes value as present. Only the owning worker calls it.
func (c *Cell) commit(value interface{}) {
	prev := c.load()
	c.rec.Store(&record{value: value, stamp: c.now(), present: true, seq: prev.seq + 1})
}

// SetAbsent marks the device behind the cell absent, keeping the last value.
func (c *Cell) SetAbsent() {
	prev := c.load()
	if !prev.present && prev.seq > 0 {
		return
	}
	c.rec.Store(&record{value: prev.value, stamp: c.now(), present: false, seq: prev.seq + 1})
}
