package bus

import "time"

// Sample caches one reading with a maximum age. A reading younger than
// MaxAge is reused; an older one requires a fresh transaction. A zero
// MaxAge never expires once read.
type Sample struct {
	MaxAge time.Duration

	value uint16
	stamp time.Time
	valid bool
}

// Get returns the cached value when still fresh at now.
func (s *Sample) Get(now time.Time) (uint16, bool) {
	if !s.valid {
		return 0, false
	}
	if s.MaxAge > 0 && now.Sub(s.stamp) > s.MaxAge {
		return s.value, false
	}
	return s.value, true
}

// Put stores a fresh reading.
func (s *Sample) Put(v uint16, now time.Time) {
	s.value, s.stamp, s.valid = v, now, true
}

// Invalidate forces the next Get to miss.
func (s *Sample) Invalidate() {
	s.valid = false
}

// Read returns the cached value if fresh, otherwise calls read and caches
// its result.
func (s *Sample) Read(now time.Time, read func() (uint16, error)) (uint16, error) {
	if v, ok := s.Get(now); ok {
		return v, nil
	}
	v, err := read()
	if err != nil {
		return 0, err
	}
	s.Put(v, now)
	return v, nil
}
