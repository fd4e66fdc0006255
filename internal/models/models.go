// Package models defines shared data types
package models

import "math"

// Mode is the kind of transit service a vehicle or station belongs to
type Mode string

const (
	ModeBus   Mode = "bus"
	ModeTrain Mode = "train"
)

// Coordinate is a latitude/longitude pair in degrees
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both fields are finite numbers
func (c Coordinate) Valid() bool {
	return finite(c.Lat) && finite(c.Lng)
}

// Unknown is a coordinate that never passes Valid
func Unknown() Coordinate {
	return Coordinate{Lat: math.NaN(), Lng: math.NaN()}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// StationCandidate is a station returned by a places search
type StationCandidate struct {
	Name     string     `json:"name"`
	Location Coordinate `json:"location"`
	Address  string     `json:"address"`
	Types    []string   `json:"types,omitempty"`
	Source   string     `json:"source"`
	Type     Mode       `json:"type,omitempty"`
}

// VehiclePosition is a live bus or train position
type VehiclePosition struct {
	ID          string     `json:"id"`
	Mode        Mode       `json:"type"`
	Route       string     `json:"route"`
	Location    Coordinate `json:"location"`
	Heading     int        `json:"heading"`
	Destination string     `json:"destination"`
	Delayed     bool       `json:"delayed"`
}

// Counts mirrors the collection lengths of a ProximityResult
type Counts struct {
	Stations int `json:"stations"`
	Buses    int `json:"buses"`
	Trains   int `json:"trains"`
}

// ProximityResult is the aggregated view around a reference point
type ProximityResult struct {
	Center      Coordinate         `json:"center"`
	Stations    []StationCandidate `json:"stations"`
	Buses       []VehiclePosition  `json:"buses"`
	Trains      []VehiclePosition  `json:"trains"`
	Counts      Counts             `json:"counts"`
	Unavailable []string           `json:"unavailable,omitempty"`
}

// NewProximityResult builds a result whose counts match its collections.
// Nil collections are replaced with empty ones so they encode as [].
func NewProximityResult(center Coordinate, stations []StationCandidate, buses, trains []VehiclePosition) ProximityResult {
	if stations == nil {
		stations = []StationCandidate{}
	}
	if buses == nil {
		buses = []VehiclePosition{}
	}
	if trains == nil {
		trains = []VehiclePosition{}
	}
	return ProximityResult{
		Center:   center,
		Stations: stations,
		Buses:    buses,
		Trains:   trains,
		Counts: Counts{
			Stations: len(stations),
			Buses:    len(buses),
			Trains:   len(trains),
		},
	}
}
