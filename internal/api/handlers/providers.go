package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/randytsao24/ventra/internal/location"
	"github.com/randytsao24/ventra/internal/maps"
	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/nearby"
	"github.com/randytsao24/ventra/internal/transit"
)

// TrainProvider abstracts CTA Train Tracker for testability.
type TrainProvider interface {
	HasAPIKey() bool
	Positions(ctx context.Context, routes ...string) (json.RawMessage, error)
	Arrivals(ctx context.Context, stopID string) (json.RawMessage, error)
	NextArrivals(ctx context.Context, stopID int, limit int) ([]transit.StopArrival, error)
}

// BusProvider abstracts CTA Bus Tracker for testability.
type BusProvider interface {
	HasAPIKey() bool
	RouteVehicles(ctx context.Context, route string) ([]json.RawMessage, error)
}

// AlertProvider abstracts the CTA alerts feed.
type AlertProvider interface {
	Alerts(ctx context.Context, q transit.AlertQuery) (transit.AlertFeed, error)
}

// PlacesProvider searches for transit stations.
type PlacesProvider interface {
	Nearby(ctx context.Context, center models.Coordinate, radiusMeters int, keyword string) ([]models.StationCandidate, error)
}

// DirectionsProvider plans transit itineraries.
type DirectionsProvider interface {
	Transit(ctx context.Context, from, to string) (maps.Itineraries, error)
}

// GeocodeProvider resolves addresses.
type GeocodeProvider interface {
	Geocode(ctx context.Context, address string) (maps.Place, error)
}

// Tracker builds proximity views and boards.
type Tracker interface {
	Track(ctx context.Context, center models.Coordinate) (models.ProximityResult, error)
	Snapshot(ctx context.Context, center models.Coordinate, arrivals nearby.ArrivalSource, now time.Time) (nearby.Snapshot, error)
}

// StopDirectory is the static CTA stop table.
type StopDirectory interface {
	Lookup(name string) (location.Stop, bool)
	All() []location.Stop
}
