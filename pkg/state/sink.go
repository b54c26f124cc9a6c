package state

import (
	"fmt"
	"sort"
	"sync"
)

// Sink owns every cell and the emergency word. Cells are registered once
// at start-up by the component owning the link.
type Sink struct {
	Emergency *Emergency

	lock  sync.RWMutex
	cells map[string]*Cell
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{Emergency: &Emergency{}, cells: make(map[string]*Cell)}
}

func (s *Sink) register(c *Cell) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.cells[c.name]; ok {
		return fmt.Errorf("state: cell %q already registered", c.name)
	}
	s.cells[c.name] = c
	return nil
}

// AddGPS registers a GPSCell.
func (s *Sink) AddGPS(c *GPSCell) error {
	return s.register(c.Cell)
}

// AddMotor registers a MotorCell.
func (s *Sink) AddMotor(c *MotorCell) error {
	return s.register(c.Cell)
}

// AddBattery registers a BatteryCell.
func (s *Sink) AddBattery(c *BatteryCell) error {
	return s.register(c.Cell)
}

// Cell finds a cell by name.
func (s *Sink) Cell(name string) *Cell {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.cells[name]
}

// Cells returns all cells sorted by name.
func (s *Sink) Cells() []*Cell {
	s.lock.RLock()
	cells := make([]*Cell, 0, len(s.cells))
	for _, c := range s.cells {
		cells = append(cells, c)
	}
	s.lock.RUnlock()
	sort.Slice(cells, func(i, j int) bool { return cells[i].name < cells[j].name })
	return cells
}
