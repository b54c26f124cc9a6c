package bus

import (
	"fmt"
	"sort"
	"sync"
)

// Channel is a logical sub-resource of a shared bus, e.g. one input of a
// converter. Channels of one bus are locked in ascending Rank order.
type Channel struct {
	Name string
	Rank int

	lock sync.Mutex
}

// Shared serializes access to a Bus. The lock order is fixed: the bus
// first, then the requested channels in ascending rank, released in
// reverse order. Every paired operation goes through Do so no two call
// sites can acquire the sub-resources in different orders.
type Shared struct {
	bus      Bus
	lock     sync.Mutex
	channels map[string]*Channel
}

// NewShared wraps b.
func NewShared(b Bus) *Shared {
	return &Shared{bus: b, channels: make(map[string]*Channel)}
}

// Channel registers a named channel. Registering the same name returns
// the existing channel when the rank matches.
func (s *Shared) Channel(name string, rank int) (*Channel, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if ch, ok := s.channels[name]; ok {
		if ch.Rank != rank {
			return nil, fmt.Errorf("bus: channel %q registered with rank %d", name, ch.Rank)
		}
		return ch, nil
	}
	for _, ch := range s.channels {
		if ch.Rank == rank {
			return nil, fmt.Errorf("bus: rank %d already used by %q", rank, ch.Name)
		}
	}
	ch := &Channel{Name: name, Rank: rank}
	s.channels[name] = ch
	return ch, nil
}

// Do runs fn holding the bus and the given channels.
func (s *Shared) Do(fn func(Bus) error, channels ...*Channel) error {
	ordered := make([]*Channel, len(channels))
	copy(ordered, channels)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	s.lock.Lock()
	defer s.lock.Unlock()
	for i, ch := range ordered {
		if i > 0 && ordered[i-1] == ch {
			continue
		}
		ch.lock.Lock()
		defer ch.lock.Unlock()
	}
	return fn(s.bus)
}

// Close closes the underlying bus.
func (s *Shared) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.bus.Close()
}
