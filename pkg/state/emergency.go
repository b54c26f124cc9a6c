package state

import (
	"strings"
	"sync/atomic"
)

// Flag is a bit in the emergency word.
type Flag uint32

// Emergency flags
const (
	FlagMotorFault Flag = 1 << iota
	FlagBatteryAbsent
	FlagGPSStale
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagMotorFault, "motor-fault"},
	{FlagBatteryAbsent, "battery-absent"},
	{FlagGPSStale, "gps-stale"},
}

// String lists the set flags.
func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, n := range flagNames {
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}

// Emergency is the safety status word shared by all links. The zero
// value has no flag set.
type Emergency struct {
	word atomic.Uint32
}

// Load returns the whole word.
func (e *Emergency) Load() Flag {
	return Flag(e.word.Load())
}

// Has tells whether any of f is set.
func (e *Emergency) Has(f Flag) bool {
	return e.Load()&f != 0
}

// Set raises f and returns the previous word.
func (e *Emergency) Set(f Flag) Flag {
	return e.modify(func(w Flag) Flag { return w | f })
}

// Clear lowers f and returns the previous word.
func (e *Emergency) Clear(f Flag) Flag {
	return e.modify(func(w Flag) Flag { return w &^ f })
}

// Assign sets or clears f.
func (e *Emergency) Assign(f Flag, on bool) Flag {
	if on {
		return e.Set(f)
	}
	return e.Clear(f)
}

func (e *Emergency) modify(fn func(Flag) Flag) Flag {
	for {
		old := e.word.Load()
		if e.word.CompareAndSwap(old, uint32(fn(Flag(old)))) {
			return Flag(old)
		}
	}
}
