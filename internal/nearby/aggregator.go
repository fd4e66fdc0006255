// Package nearby merges station search results with live vehicle feeds
// around a reference point and attaches arrival estimates.
package nearby

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/ventra/internal/location"
	"github.com/randytsao24/ventra/internal/models"
)

// Default filter radii in kilometers, both inclusive
const (
	DefaultBusRadiusKm   = 1.2
	DefaultTrainRadiusKm = 1.5

	DefaultPlacesRadiusMeters = 1000

	// DefaultSourceTimeout bounds each source fetch in Track
	DefaultSourceTimeout = 10 * time.Second
)

// Source names reported in ProximityResult.Unavailable
const (
	SourceStations = "stations"
	SourceBuses    = "buses"
	SourceTrains   = "trains"
)

// ErrInvalidCenter is returned when the reference point is not finite
var ErrInvalidCenter = errors.New("invalid reference coordinate")

// StationSource searches for transit stations around a point
type StationSource interface {
	Nearby(ctx context.Context, center models.Coordinate, radiusMeters int, keyword string) ([]models.StationCandidate, error)
}

// VehicleSource returns live positions for one mode
type VehicleSource interface {
	Vehicles(ctx context.Context) ([]models.VehiclePosition, error)
}

// StopLookup resolves a station name to a fixed CTA stop
type StopLookup interface {
	Lookup(name string) (location.Stop, bool)
}

// Options tunes the aggregator filters
type Options struct {
	BusRadiusKm        float64
	TrainRadiusKm      float64
	PlacesRadiusMeters int
	SourceTimeout      time.Duration
}

// Aggregator fetches stations, buses, and trains concurrently and filters
// them to the configured radii
type Aggregator struct {
	stations StationSource
	buses    VehicleSource
	trains   VehicleSource
	stops    StopLookup
	opts     Options
}

// NewAggregator creates an aggregator. A nil source is reported as
// unavailable on every call.
func NewAggregator(stations StationSource, buses, trains VehicleSource, stops StopLookup, opts Options) *Aggregator {
	if opts.BusRadiusKm <= 0 {
		opts.BusRadiusKm = DefaultBusRadiusKm
	}
	if opts.TrainRadiusKm <= 0 {
		opts.TrainRadiusKm = DefaultTrainRadiusKm
	}
	if opts.PlacesRadiusMeters <= 0 {
		opts.PlacesRadiusMeters = DefaultPlacesRadiusMeters
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	return &Aggregator{
		stations: stations,
		buses:    buses,
		trains:   trains,
		stops:    stops,
		opts:     opts,
	}
}

// Track builds the proximity view around center. A failing source yields an
// empty collection and is named in Unavailable; only an invalid center fails
// the call.
func (a *Aggregator) Track(ctx context.Context, center models.Coordinate) (models.ProximityResult, error) {
	if !center.Valid() {
		return models.ProximityResult{}, ErrInvalidCenter
	}

	var (
		stations                     []models.StationCandidate
		buses, trains                []models.VehiclePosition
		stationErr, busErr, trainErr error
	)

	// Each fetch records its own error so one failure never cancels the others
	var g errgroup.Group
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
		defer cancel()
		stations, stationErr = a.fetchStations(ctx, center)
		return nil
	})
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
		defer cancel()
		buses, busErr = fetchVehicles(ctx, a.buses)
		return nil
	})
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
		defer cancel()
		trains, trainErr = fetchVehicles(ctx, a.trains)
		return nil
	})
	g.Wait()

	var unavailable []string
	for _, src := range []struct {
		name string
		err  error
	}{
		{SourceStations, stationErr},
		{SourceBuses, busErr},
		{SourceTrains, trainErr},
	} {
		if src.err != nil {
			slog.Warn("source unavailable", "source", src.name, "error", src.err)
			unavailable = append(unavailable, src.name)
		}
	}

	result := models.NewProximityResult(center,
		a.classify(stations),
		FilterVehicles(center, buses, a.opts.BusRadiusKm),
		FilterVehicles(center, trains, a.opts.TrainRadiusKm),
	)
	result.Unavailable = unavailable
	return result, nil
}

var errNoSource = errors.New("source not configured")

func (a *Aggregator) fetchStations(ctx context.Context, center models.Coordinate) ([]models.StationCandidate, error) {
	if a.stations == nil {
		return nil, errNoSource
	}
	return a.stations.Nearby(ctx, center, a.opts.PlacesRadiusMeters, "")
}

func fetchVehicles(ctx context.Context, src VehicleSource) ([]models.VehiclePosition, error) {
	if src == nil {
		return nil, errNoSource
	}
	return src.Vehicles(ctx)
}

// classify drops stations without a usable location and marks each as a
// train station when its name is in the stop table
func (a *Aggregator) classify(stations []models.StationCandidate) []models.StationCandidate {
	out := make([]models.StationCandidate, 0, len(stations))
	for _, s := range stations {
		if !s.Location.Valid() {
			continue
		}
		s.Type = models.ModeBus
		if a.stops != nil {
			if _, ok := a.stops.Lookup(s.Name); ok {
				s.Type = models.ModeTrain
			}
		}
		out = append(out, s)
	}
	return out
}

// FilterVehicles keeps vehicles within radiusKm of center, in input order.
// Vehicles with a non-finite location never match.
func FilterVehicles(center models.Coordinate, vehicles []models.VehiclePosition, radiusKm float64) []models.VehiclePosition {
	out := make([]models.VehiclePosition, 0, len(vehicles))
	for _, v := range vehicles {
		if location.Within(center, v.Location, radiusKm) {
			out = append(out, v)
		}
	}
	return out
}
