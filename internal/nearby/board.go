package nearby

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/ventra/internal/location"
	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/transit"
)

// maxArrivalLookups bounds concurrent per-stop arrival requests in one snapshot
const maxArrivalLookups = 4

// ArrivalSource returns the next predicted arrivals at a fixed stop
type ArrivalSource interface {
	NextArrivals(ctx context.Context, stopID int, limit int) ([]transit.StopArrival, error)
}

// StationETA is a station with its coarse estimate and, for stations in the
// stop table, the next live arrivals
type StationETA struct {
	models.StationCandidate
	ETA      location.ETA          `json:"eta"`
	Arrivals []transit.StopArrival `json:"arrivals,omitempty"`
}

// VehicleETA is a vehicle with its coarse estimate
type VehicleETA struct {
	models.VehiclePosition
	ETA location.ETA `json:"eta"`
}

// Board is what a client renders on each refresh
type Board struct {
	Center      models.Coordinate `json:"center"`
	Stations    []StationETA      `json:"stations"`
	Buses       []VehicleETA      `json:"buses"`
	Trains      []VehicleETA      `json:"trains"`
	Counts      models.Counts     `json:"counts"`
	Unavailable []string          `json:"unavailable,omitempty"`
	FetchedAt   time.Time         `json:"fetchedAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Snapshot is the outcome of one fetch. Boards are derived from it without
// further network calls.
type Snapshot struct {
	Result    models.ProximityResult
	Arrivals  map[string][]transit.StopArrival
	FetchedAt time.Time
}

// Snapshot tracks center and looks up live arrivals for every train station
// in the stop table. Arrival failures are logged and leave the coarse
// estimate as the only signal.
func (a *Aggregator) Snapshot(ctx context.Context, center models.Coordinate, arrivals ArrivalSource, now time.Time) (Snapshot, error) {
	result, err := a.Track(ctx, center)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Result:    result,
		Arrivals:  make(map[string][]transit.StopArrival),
		FetchedAt: now,
	}
	if arrivals == nil || a.stops == nil {
		return snap, nil
	}

	stops := make(map[string]location.Stop)
	for _, st := range result.Stations {
		if stop, ok := a.stops.Lookup(st.Name); ok {
			stops[st.Name] = stop
		}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(maxArrivalLookups)

	for name, stop := range stops {
		g.Go(func() error {
			next, err := arrivals.NextArrivals(ctx, stop.ID, transit.MaxStopArrivals)
			if err != nil {
				slog.Warn("arrivals unavailable", "station", name, "stop_id", stop.ID, "error", err)
				return nil
			}
			if len(next) == 0 {
				return nil
			}
			mu.Lock()
			snap.Arrivals[name] = next
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return snap, nil
}

// Board computes estimates from the snapshot relative to center at now.
// Vehicles and counts stay as filtered around the fetch center until the
// next snapshot.
// The center may differ from the one the snapshot was fetched around.
func (s Snapshot) Board(center models.Coordinate, now time.Time) Board {
	r := s.Result
	b := Board{
		Center:      center,
		Stations:    make([]StationETA, 0, len(r.Stations)),
		Buses:       vehicleETAs(center, r.Buses),
		Trains:      vehicleETAs(center, r.Trains),
		Counts:      r.Counts,
		Unavailable: r.Unavailable,
		FetchedAt:   s.FetchedAt,
		UpdatedAt:   now,
	}

	for _, st := range r.Stations {
		mode := st.Type
		if mode == "" {
			mode = models.ModeBus
		}
		b.Stations = append(b.Stations, StationETA{
			StationCandidate: st,
			ETA:              location.EstimateETA(center, st.Location, mode),
			Arrivals:         recount(s.Arrivals[st.Name], now),
		})
	}
	return b
}

func vehicleETAs(center models.Coordinate, vehicles []models.VehiclePosition) []VehicleETA {
	out := make([]VehicleETA, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, VehicleETA{
			VehiclePosition: v,
			ETA:             location.EstimateETA(center, v.Location, v.Mode),
		})
	}
	return out
}

// recount refreshes minutes-away against now so a board rebuilt between
// fetches stays current
func recount(arrivals []transit.StopArrival, now time.Time) []transit.StopArrival {
	if len(arrivals) == 0 {
		return nil
	}
	out := make([]transit.StopArrival, len(arrivals))
	for i, a := range arrivals {
		a.Minutes = location.MinutesUntil(a.ArrivalTime, now)
		out[i] = a
	}
	return out
}
