package maps

import (
	"context"
	"net/url"
	"strings"
)

const directionsProvider = "google directions"

// Step types
const (
	StepWalking = "walking"
	StepBus     = "bus"
	StepTrain   = "train"
	StepOther   = "other"
)

// Itineraries is the reshaped directions response
type Itineraries struct {
	Routes []Itinerary `json:"routes"`
}

// Itinerary summarizes one alternative from its first leg
type Itinerary struct {
	Duration     string `json:"duration"`
	Distance     string `json:"distance"`
	Arrival      string `json:"arrival"`
	Departure    string `json:"departure"`
	StartAddress string `json:"startAddress"`
	EndAddress   string `json:"endAddress"`
	Steps        []Step `json:"steps"`
}

// Step is one leg segment. Transit fields are set for bus and train steps only.
type Step struct {
	Type          string `json:"type"`
	Instructions  string `json:"instructions"`
	Duration      string `json:"duration"`
	Distance      string `json:"distance"`
	RouteName     string `json:"routeName,omitempty"`
	DepartureStop string `json:"departureStop,omitempty"`
	ArrivalStop   string `json:"arrivalStop,omitempty"`
	DepartureTime string `json:"departureTime,omitempty"`
	ArrivalTime   string `json:"arrivalTime,omitempty"`
	NumStops      int    `json:"numStops,omitempty"`
	Headsign      string `json:"headsign,omitempty"`
	Color         string `json:"color,omitempty"`
}

// Directions requests transit itineraries from the Directions API
type Directions struct {
	client
}

// NewDirections creates a Directions client
func NewDirections(opts Options) *Directions {
	return &Directions{client: newClient(opts)}
}

// Transit returns alternative transit itineraries between two free-form
// places. No route between them yields an empty list.
func (d *Directions) Transit(ctx context.Context, from, to string) (Itineraries, error) {
	params := url.Values{}
	params.Set("origin", from)
	params.Set("destination", to)
	params.Set("mode", "transit")
	params.Set("alternatives", "true")

	var resp directionsResponse
	if err := d.get(ctx, directionsProvider, "/directions/json", params, &resp); err != nil {
		return Itineraries{}, err
	}
	if err := checkStatus(directionsProvider, resp.Status, resp.ErrorMessage); err != nil {
		return Itineraries{}, err
	}

	out := Itineraries{Routes: make([]Itinerary, 0, len(resp.Routes))}
	for _, route := range resp.Routes {
		if len(route.Legs) == 0 {
			continue
		}
		out.Routes = append(out.Routes, route.Legs[0].itinerary())
	}
	return out, nil
}

// Directions API response structures
type directionsResponse struct {
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message"`
	Routes       []dirRoute `json:"routes"`
}

type dirRoute struct {
	Legs []dirLeg `json:"legs"`
}

type textValue struct {
	Text string `json:"text"`
}

type dirLeg struct {
	Duration      textValue `json:"duration"`
	Distance      textValue `json:"distance"`
	ArrivalTime   textValue `json:"arrival_time"`
	DepartureTime textValue `json:"departure_time"`
	StartAddress  string    `json:"start_address"`
	EndAddress    string    `json:"end_address"`
	Steps         []dirStep `json:"steps"`
}

type dirStep struct {
	TravelMode       string          `json:"travel_mode"`
	HTMLInstructions string          `json:"html_instructions"`
	Duration         textValue       `json:"duration"`
	Distance         textValue       `json:"distance"`
	TransitDetails   *transitDetails `json:"transit_details"`
}

type transitDetails struct {
	Line struct {
		Name      string `json:"name"`
		ShortName string `json:"short_name"`
		Color     string `json:"color"`
		Vehicle   struct {
			Type string `json:"type"`
		} `json:"vehicle"`
	} `json:"line"`
	DepartureStop struct {
		Name string `json:"name"`
	} `json:"departure_stop"`
	ArrivalStop struct {
		Name string `json:"name"`
	} `json:"arrival_stop"`
	DepartureTime textValue `json:"departure_time"`
	ArrivalTime   textValue `json:"arrival_time"`
	NumStops      int       `json:"num_stops"`
	Headsign      string    `json:"headsign"`
}

func (l dirLeg) itinerary() Itinerary {
	it := Itinerary{
		Duration:     l.Duration.Text,
		Distance:     l.Distance.Text,
		Arrival:      l.ArrivalTime.Text,
		Departure:    l.DepartureTime.Text,
		StartAddress: l.StartAddress,
		EndAddress:   l.EndAddress,
		Steps:        make([]Step, 0, len(l.Steps)),
	}
	for _, s := range l.Steps {
		it.Steps = append(it.Steps, s.step())
	}
	return it
}

func (s dirStep) step() Step {
	out := Step{
		Type:         StepOther,
		Instructions: s.HTMLInstructions,
		Duration:     s.Duration.Text,
		Distance:     s.Distance.Text,
	}

	switch strings.ToUpper(s.TravelMode) {
	case "WALKING":
		out.Type = StepWalking
	case "TRANSIT":
		td := s.TransitDetails
		if td == nil {
			return out
		}
		out.Type = StepTrain
		if strings.Contains(strings.ToUpper(td.Line.Vehicle.Type), "BUS") {
			out.Type = StepBus
		}
		out.RouteName = td.Line.ShortName
		if out.RouteName == "" {
			out.RouteName = td.Line.Name
		}
		out.DepartureStop = td.DepartureStop.Name
		out.ArrivalStop = td.ArrivalStop.Name
		out.DepartureTime = td.DepartureTime.Text
		out.ArrivalTime = td.ArrivalTime.Text
		out.NumStops = td.NumStops
		out.Headsign = td.Headsign
		out.Color = td.Line.Color
	}
	return out
}
