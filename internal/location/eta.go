package location

import (
	"bytes"
	"math"
	"strconv"
	"time"

	"github.com/randytsao24/ventra/internal/models"
)

// Assumed average cruising speeds in km/h
const (
	BusSpeedKmh   = 20
	TrainSpeedKmh = 25
)

// ETA is a coarse whole-minute arrival estimate. The zero value is unknown.
type ETA struct {
	minutes int
	known   bool
}

// UnknownETA is returned when either coordinate is missing
var UnknownETA = ETA{}

// Minutes returns the estimate and whether it is known
func (e ETA) Minutes() (int, bool) {
	return e.minutes, e.known
}

// Known reports whether the estimate is numeric
func (e ETA) Known() bool {
	return e.known
}

// String renders unknown estimates as "?"
func (e ETA) String() string {
	if !e.known {
		return "?"
	}
	return strconv.Itoa(e.minutes)
}

// MarshalJSON encodes unknown estimates as null
func (e ETA) MarshalJSON() ([]byte, error) {
	if !e.known {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, int64(e.minutes), 10), nil
}

// UnmarshalJSON accepts a number or null
func (e *ETA) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*e = UnknownETA
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*e = ETA{minutes: n, known: true}
	return nil
}

// SpeedFor returns the assumed speed for a mode. Anything that is not a bus
// travels at train speed.
func SpeedFor(mode models.Mode) float64 {
	if mode == models.ModeBus {
		return BusSpeedKmh
	}
	return TrainSpeedKmh
}

// EstimateETA converts the distance between center and target into minutes
// at the mode's assumed speed
func EstimateETA(center, target models.Coordinate, mode models.Mode) ETA {
	d := DistanceKm(center, target)
	if math.IsNaN(d) {
		return UnknownETA
	}
	return ETA{
		minutes: int(math.Round(d / SpeedFor(mode) * 60)),
		known:   true,
	}
}

// MinutesUntil converts an absolute arrival time into whole minutes from now,
// clamped at zero. A zero time is unknown.
func MinutesUntil(arrival, now time.Time) ETA {
	if arrival.IsZero() {
		return UnknownETA
	}
	m := int(math.Round(float64(arrival.Sub(now)) / float64(time.Minute)))
	return ETA{minutes: max(m, 0), known: true}
}
