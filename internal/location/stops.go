// Package location handles distance, arrival estimates, and the CTA stop table
package location

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed stops.yaml
var defaultStops []byte

// Stop is a train station with a Train Tracker stop identifier
type Stop struct {
	Name string `yaml:"name" json:"name"`
	ID   int    `yaml:"id" json:"id"`
}

// IsStation reports whether the id is a parent station (map) id rather than
// a single platform id
func (s Stop) IsStation() bool {
	return s.ID >= 40000 && s.ID < 50000
}

// StopTable maps station names to Train Tracker stop ids
type StopTable struct {
	stops  map[string]Stop
	mu     sync.RWMutex
	loaded bool
}

// NewStopTable creates an empty stop table
func NewStopTable() *StopTable {
	return &StopTable{stops: make(map[string]Stop)}
}

// DefaultStopTable returns the table embedded in the binary
func DefaultStopTable() (*StopTable, error) {
	t := NewStopTable()
	if err := t.parse(defaultStops); err != nil {
		return nil, err
	}
	return t, nil
}

// Load replaces the table with the contents of a YAML file
func (t *StopTable) Load(filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("reading stops file: %w", err)
	}
	return t.parse(data)
}

func (t *StopTable) parse(data []byte) error {
	var raw struct {
		Stops []Stop `yaml:"stops"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing stops YAML: %w", err)
	}
	if len(raw.Stops) == 0 {
		return fmt.Errorf("stops file has no entries")
	}

	stops := make(map[string]Stop, len(raw.Stops))
	for _, s := range raw.Stops {
		if s.Name == "" || s.ID <= 0 {
			return fmt.Errorf("invalid stop entry %+v", s)
		}
		stops[s.Name] = s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops = stops
	t.loaded = true
	return nil
}

// Lookup returns the stop for an exact station name
func (t *StopTable) Lookup(name string) (Stop, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stop, ok := t.stops[name]
	return stop, ok
}

// All returns every stop sorted by name
func (t *StopTable) All() []Stop {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Stop, 0, len(t.stops))
	for _, s := range t.stops {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Count returns the number of stops
func (t *StopTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.stops)
}

// IsLoaded returns true if data has been loaded
func (t *StopTable) IsLoaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}
