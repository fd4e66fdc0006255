package maps

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/upstream"
)

const directionsJSON = `{"status":"OK","routes":[{"legs":[{
	"duration":{"text":"25 mins","value":1500},
	"distance":{"text":"5.1 km","value":5100},
	"arrival_time":{"text":"12:40 PM","value":1740854400},
	"departure_time":{"text":"12:15 PM","value":1740852900},
	"start_address":"Chicago, IL, USA",
	"end_address":"Navy Pier, Chicago, IL 60611, USA",
	"steps":[
		{"travel_mode":"WALKING","html_instructions":"Walk to State St & Lake St","duration":{"text":"4 mins"},"distance":{"text":"0.3 km"}},
		{"travel_mode":"TRANSIT","html_instructions":"Bus towards Navy Pier","duration":{"text":"18 mins"},"distance":{"text":"4.6 km"},
			"transit_details":{
				"line":{"name":"Grand","short_name":"65","color":"#565a5c","vehicle":{"type":"BUS","name":"Bus"}},
				"departure_stop":{"name":"State & Lake"},
				"arrival_stop":{"name":"Navy Pier Terminal"},
				"departure_time":{"text":"12:19 PM"},
				"arrival_time":{"text":"12:37 PM"},
				"num_stops":9,
				"headsign":"Navy Pier"
			}},
		{"travel_mode":"TRANSIT","html_instructions":"Subway towards Howard","duration":{"text":"6 mins"},"distance":{"text":"2 km"},
			"transit_details":{"line":{"name":"Red Line","vehicle":{"type":"SUBWAY"}},"num_stops":3}},
		{"travel_mode":"DRIVING","html_instructions":"Drive","duration":{"text":"1 min"},"distance":{"text":"0.1 km"}}
	]
}]}]}`

func serve(t *testing.T, path, body string) (string, *string) {
	t.Helper()
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		query = r.URL.RawQuery
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL, &query
}

func opts(baseURL string) Options {
	return Options{APIKey: "server-key", BaseURL: baseURL, Timeout: time.Second}
}

func TestDirectionsTransit(t *testing.T) {
	base, query := serve(t, "/directions/json", directionsJSON)

	it, err := NewDirections(opts(base)).Transit(context.Background(), "Chicago,IL", "Navy Pier")
	if err != nil {
		t.Fatalf("Transit: %v", err)
	}
	for _, want := range []string{"mode=transit", "alternatives=true", "origin=Chicago%2CIL", "destination=Navy+Pier", "key=server-key"} {
		if !strings.Contains(*query, want) {
			t.Errorf("query %s missing %s", *query, want)
		}
	}

	if len(it.Routes) != 1 {
		t.Fatalf("got %d routes", len(it.Routes))
	}
	route := it.Routes[0]
	if route.Duration != "25 mins" || route.StartAddress != "Chicago, IL, USA" || route.Departure != "12:15 PM" {
		t.Errorf("route = %+v", route)
	}

	wantTypes := []string{StepWalking, StepBus, StepTrain, StepOther}
	if len(route.Steps) != len(wantTypes) {
		t.Fatalf("got %d steps", len(route.Steps))
	}
	for i, s := range route.Steps {
		if s.Type != wantTypes[i] {
			t.Errorf("steps[%d].Type = %s, want %s", i, s.Type, wantTypes[i])
		}
	}

	bus := route.Steps[1]
	want := Step{
		Type:          StepBus,
		Instructions:  "Bus towards Navy Pier",
		Duration:      "18 mins",
		Distance:      "4.6 km",
		RouteName:     "65",
		DepartureStop: "State & Lake",
		ArrivalStop:   "Navy Pier Terminal",
		DepartureTime: "12:19 PM",
		ArrivalTime:   "12:37 PM",
		NumStops:      9,
		Headsign:      "Navy Pier",
		Color:         "#565a5c",
	}
	if bus != want {
		t.Errorf("bus step = %+v\nwant %+v", bus, want)
	}

	// no short name falls back to the line name
	if route.Steps[2].RouteName != "Red Line" {
		t.Errorf("train RouteName = %q", route.Steps[2].RouteName)
	}

	walk, _ := json.Marshal(route.Steps[0])
	if strings.Contains(string(walk), "routeName") {
		t.Errorf("walking step carries transit fields: %s", walk)
	}
}

func TestDirectionsStatus(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"zero results", `{"status":"ZERO_RESULTS","routes":[]}`, false},
		{"denied", `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`, true},
		{"missing status", `{}`, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			base, _ := serve(t, "/directions/json", tc.body)
			it, err := NewDirections(opts(base)).Transit(context.Background(), "a", "b")
			if tc.wantErr {
				if !errors.Is(err, upstream.ErrUnavailable) {
					t.Errorf("err = %v, want ErrUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transit: %v", err)
			}
			if it.Routes == nil || len(it.Routes) != 0 {
				t.Errorf("Routes = %v, want empty", it.Routes)
			}
		})
	}
}

func TestMissingServerKey(t *testing.T) {
	_, err := NewDirections(Options{}).Transit(context.Background(), "a", "b")
	if !errors.Is(err, upstream.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestPlacesNearby(t *testing.T) {
	base, query := serve(t, "/place/nearbysearch/json", `{"status":"OK","results":[
		{"name":"Clark/Lake","vicinity":"100 W Lake St, Chicago","types":["subway_station","transit_station"],"geometry":{"location":{"lat":41.8857,"lng":-87.6309}}},
		{"name":"Lake St & Clark St","vicinity":"Chicago","types":["bus_station"]}
	]}`)

	places := NewPlaces(opts(base))
	defer places.Close()

	center := models.Coordinate{Lat: 41.88, Lng: -87.63}
	stations, err := places.Nearby(context.Background(), center, 800, "blue line")
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	for _, want := range []string{"type=transit_station", "radius=800", "location=41.88%2C-87.63", "keyword=blue+line"} {
		if !strings.Contains(*query, want) {
			t.Errorf("query %s missing %s", *query, want)
		}
	}

	if len(stations) != 2 {
		t.Fatalf("got %d stations", len(stations))
	}
	first := stations[0]
	if first.Name != "Clark/Lake" || first.Address != "100 W Lake St, Chicago" || first.Source != SourceGooglePlaces {
		t.Errorf("first = %+v", first)
	}
	if first.Location != (models.Coordinate{Lat: 41.8857, Lng: -87.6309}) {
		t.Errorf("Location = %v", first.Location)
	}
	if stations[1].Location.Valid() {
		t.Error("missing geometry should be an unknown location")
	}
}

func TestPlacesNearbyValidation(t *testing.T) {
	places := NewPlaces(opts("http://127.0.0.1:0"))
	defer places.Close()

	center := models.Coordinate{Lat: 41.88, Lng: -87.63}
	for _, r := range []int{0, -5} {
		if _, err := places.Nearby(context.Background(), center, r, ""); err == nil {
			t.Errorf("radius %d accepted", r)
		}
	}
	if _, err := places.Nearby(context.Background(), models.Unknown(), 500, ""); err == nil {
		t.Error("unknown center accepted")
	}
}

func TestPlacesEmptyAndFailure(t *testing.T) {
	base, _ := serve(t, "/place/nearbysearch/json", `{"status":"ZERO_RESULTS","results":[]}`)
	places := NewPlaces(opts(base))
	defer places.Close()

	stations, err := places.Nearby(context.Background(), models.Coordinate{Lat: 41.88, Lng: -87.63}, 500, "")
	if err != nil || len(stations) != 0 {
		t.Errorf("Nearby = %v, %v", stations, err)
	}

	base, _ = serve(t, "/place/nearbysearch/json", `{"status":"OVER_QUERY_LIMIT","results":[]}`)
	failing := NewPlaces(opts(base))
	defer failing.Close()

	if _, err := failing.Nearby(context.Background(), models.Coordinate{Lat: 41.88, Lng: -87.63}, 500, ""); !errors.Is(err, upstream.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestGeocode(t *testing.T) {
	base, query := serve(t, "/geocode/json", `{"status":"OK","results":[
		{"formatted_address":"600 E Grand Ave, Chicago, IL 60611, USA","geometry":{"location":{"lat":41.8917,"lng":-87.6086}}},
		{"formatted_address":"elsewhere","geometry":{"location":{"lat":1,"lng":1}}}
	]}`)

	geo := NewGeocoder(opts(base))
	defer geo.Close()

	place, err := geo.Geocode(context.Background(), "Navy Pier")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if !strings.Contains(*query, "address=Navy+Pier") {
		t.Errorf("query = %s", *query)
	}
	if place.Address != "600 E Grand Ave, Chicago, IL 60611, USA" || place.Location.Lat != 41.8917 {
		t.Errorf("place = %+v", place)
	}
}

func TestGeocodeNoResults(t *testing.T) {
	base, _ := serve(t, "/geocode/json", `{"status":"ZERO_RESULTS","results":[]}`)
	geo := NewGeocoder(opts(base))
	defer geo.Close()

	if _, err := geo.Geocode(context.Background(), "nowhere at all"); !errors.Is(err, ErrNoResults) {
		t.Errorf("err = %v, want ErrNoResults", err)
	}
}
